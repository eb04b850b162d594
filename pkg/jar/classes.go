package jar

import (
	"archive/zip"
	"sort"
	"strings"

	"github.com/matzehuels/jarflow/pkg/errors"
)

// Classes lists the fully qualified class names in the archive at path
// that start with prefix. Names are sorted.
func Classes(path, prefix string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "open archive %s", path)
	}
	defer zr.Close()

	var out []string
	for _, f := range zr.File {
		name, ok := strings.CutSuffix(f.Name, ".class")
		if !ok || f.FileInfo().IsDir() {
			continue
		}
		class := strings.ReplaceAll(name, "/", ".")
		if strings.HasPrefix(class, prefix) {
			out = append(out, class)
		}
	}
	sort.Strings(out)
	return out, nil
}
