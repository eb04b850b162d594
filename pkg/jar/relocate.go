package jar

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/jarflow/pkg/deps"
	"github.com/matzehuels/jarflow/pkg/errors"
)

// Relocator produces a transformed copy of an archive.
type Relocator interface {
	Relocate(src, dst string, rules []deps.Relocation) error
}

// PathRelocator moves archive entries from one package prefix to another.
// Rules use dotted package names ("com.google" to "shaded.com.google") and
// are matched against entry paths; the first matching rule applies. Class
// file contents are copied unchanged.
type PathRelocator struct{}

var _ Relocator = PathRelocator{}

// Relocate writes the relocated copy of src to dst. dst is written through
// a temporary file and renamed into place.
func (PathRelocator) Relocate(src, dst string, rules []deps.Relocation) (err error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "open archive %s", src)
	}
	defer zr.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	seen := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		name := RelocatePath(f.Name, rules)
		if seen[name] {
			continue
		}
		seen[name] = true
		if err := copyEntry(zw, f, name); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "copy entry %s", f.Name)
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

func copyEntry(zw *zip.Writer, f *zip.File, name string) error {
	hdr := f.FileHeader
	hdr.Name = name
	w, err := zw.CreateHeader(&hdr)
	if err != nil {
		return err
	}
	if f.FileInfo().IsDir() {
		return nil
	}
	r, err := f.Open()
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.Copy(w, r)
	return err
}

// RelocatePath applies the first rule whose prefix matches name.
func RelocatePath(name string, rules []deps.Relocation) string {
	for _, r := range rules {
		from := packagePath(r.From)
		if from == "" {
			continue
		}
		if name == from || strings.HasPrefix(name, from+"/") {
			return packagePath(r.To) + strings.TrimPrefix(name, from)
		}
	}
	return name
}

func packagePath(pkg string) string {
	return strings.Trim(strings.ReplaceAll(strings.TrimSpace(pkg), ".", "/"), "/")
}
