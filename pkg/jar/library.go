package jar

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/jarflow/pkg/coord"
	"github.com/matzehuels/jarflow/pkg/errors"
)

// RelocatedSuffix is inserted before ".jar" in relocated copies.
const RelocatedSuffix = "-relocated"

// Library is a local directory of downloaded archives.
type Library struct {
	Dir string
}

// NewLibrary returns a library rooted at dir.
func NewLibrary(dir string) Library { return Library{Dir: dir} }

// dir returns c's folder. Coordinates that are not valid, or that would
// leave the library directory, are rejected.
func (l Library) dir(c coord.Coordinate) (string, error) {
	if err := c.Validate(); err != nil {
		return "", err
	}
	d := filepath.Join(l.Dir, c.Group, c.Artifact, c.Version)
	rel, err := filepath.Rel(l.Dir, d)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.New(errors.ErrCodeInvalidPath, "%s resolves outside the library", c)
	}
	return d, nil
}

// Path returns where c's archive is stored.
func (l Library) Path(c coord.Coordinate) (string, error) {
	d, err := l.dir(c)
	if err != nil {
		return "", err
	}
	return filepath.Join(d, c.FileName("jar")), nil
}

// RelocatedPath returns where c's relocated archive is stored.
func (l Library) RelocatedPath(c coord.Coordinate) (string, error) {
	d, err := l.dir(c)
	if err != nil {
		return "", err
	}
	return filepath.Join(d, c.Artifact+"-"+c.Version+RelocatedSuffix+".jar"), nil
}

// Has reports whether c's archive has been downloaded.
func (l Library) Has(c coord.Coordinate) bool {
	p, err := l.Path(c)
	return err == nil && isFile(p)
}

// Locate returns the archive for c, preferring the plain one over the
// relocated copy.
func (l Library) Locate(c coord.Coordinate) (string, bool) {
	for _, path := range []func(coord.Coordinate) (string, error){l.Path, l.RelocatedPath} {
		if p, err := path(c); err == nil && isFile(p) {
			return p, true
		}
	}
	return "", false
}

// FromRepositoryPath maps a Maven repository path such as
// "com/google/guava/guava/32.1.3-jre/guava-32.1.3-jre.jar" to the file
// backing it. Only files inside a coordinate folder are addressable.
func (l Library) FromRepositoryPath(p string) (string, error) {
	p = strings.TrimPrefix(p, "/")
	if err := errors.ValidatePath(p); err != nil {
		return "", err
	}
	parts := strings.Split(p, "/")
	if len(parts) < 4 {
		return "", errors.New(errors.ErrCodeInvalidPath, "not an artifact path: %q", p)
	}
	n := len(parts)
	group := strings.Join(parts[:n-3], ".")
	dir, err := l.dir(coord.New(group, parts[n-3], parts[n-2]))
	if err != nil {
		return "", err
	}
	file := parts[n-1]
	if file == "" || strings.HasPrefix(file, ".") {
		return "", errors.New(errors.ErrCodeInvalidPath, "invalid file name %q", file)
	}
	return filepath.Join(dir, file), nil
}

func isFile(p string) bool {
	st, err := os.Stat(p)
	return err == nil && st.Mode().IsRegular()
}
