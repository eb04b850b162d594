package coord

import (
	"strings"

	"github.com/matzehuels/jarflow/pkg/errors"
)

// Coordinate identifies a package version. It is a comparable value type;
// two coordinates are equal when their locations are equal.
type Coordinate struct {
	Group    string `json:"group"`
	Artifact string `json:"artifact"`
	Version  string `json:"version"`
}

// New returns a Coordinate without validating its parts.
func New(group, artifact, version string) Coordinate {
	return Coordinate{Group: group, Artifact: artifact, Version: version}
}

// Parse parses a "group:artifact:version" string. Each part is validated
// with [errors.ValidateCoordinatePart].
func Parse(s string) (Coordinate, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 3 {
		return Coordinate{}, errors.New(errors.ErrCodeInvalidCoordinate,
			"invalid coordinate %q (expected group:artifact:version)", s)
	}
	c := New(parts[0], parts[1], parts[2])
	if err := c.Validate(); err != nil {
		return Coordinate{}, err
	}
	return c, nil
}

// MustParse is like [Parse] but panics on error. Intended for tests and
// package-level variables.
func MustParse(s string) Coordinate {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Validate checks every part of the coordinate.
func (c Coordinate) Validate() error {
	if err := errors.ValidateCoordinatePart("group", c.Group); err != nil {
		return err
	}
	if err := errors.ValidateCoordinatePart("artifact", c.Artifact); err != nil {
		return err
	}
	return errors.ValidateCoordinatePart("version", c.Version)
}

// Location returns "group:artifact:version".
func (c Coordinate) Location() string {
	return c.Group + ":" + c.Artifact + ":" + c.Version
}

// Key returns "group:artifact", the version-independent identity.
func (c Coordinate) Key() string {
	return c.Group + ":" + c.Artifact
}

func (c Coordinate) String() string { return c.Location() }

// WithVersion returns a copy of c with the version replaced.
func (c Coordinate) WithVersion(v string) Coordinate {
	c.Version = v
	return c
}

// IsSnapshot reports whether the version is a -SNAPSHOT build.
func (c Coordinate) IsSnapshot() bool {
	return strings.HasSuffix(c.Version, "-SNAPSHOT")
}

// GroupPath returns the group with dots replaced by slashes.
func (c Coordinate) GroupPath() string {
	return strings.ReplaceAll(c.Group, ".", "/")
}

// Dir returns the repository directory "<groupPath>/<artifact>/<version>/".
func (c Coordinate) Dir() string {
	return c.GroupPath() + "/" + c.Artifact + "/" + c.Version + "/"
}

// FileName returns "<artifact>-<version>.<ext>".
func (c Coordinate) FileName(ext string) string {
	return c.Artifact + "-" + c.Version + "." + ext
}

// Path returns the repository-relative path of the file with extension ext.
func (c Coordinate) Path(ext string) string {
	return c.Dir() + c.FileName(ext)
}

// URL joins repoURL (which must end with "/") and [Coordinate.Path].
func (c Coordinate) URL(repoURL, ext string) string {
	return repoURL + c.Path(ext)
}
