package jar

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/jarflow/pkg/coord"
	"github.com/matzehuels/jarflow/pkg/deps"
	"github.com/matzehuels/jarflow/pkg/errors"
)

// writeArchive creates a zip at path with the given entries. Names ending
// in "/" become directories.
func writeArchive(t *testing.T, path string, entries map[string]string, order ...string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, name := range order {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = io.WriteString(w, entries[name])
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	out := make(map[string]string)
	for _, f := range zr.File {
		r, err := f.Open()
		require.NoError(t, err)
		b, err := io.ReadAll(r)
		require.NoError(t, err)
		r.Close()
		out[f.Name] = string(b)
	}
	return out
}

var sample = map[string]string{
	"META-INF/MANIFEST.MF":              "Manifest-Version: 1.0\n",
	"com/google/":                       "",
	"com/google/common/Lists.class":     "lists",
	"com/google/common/Maps.class":      "maps",
	"com/googlex/Other.class":           "other",
	"org/example/App.class":             "app",
	"org/example/resources/config.json": "{}",
}

var sampleOrder = []string{
	"META-INF/MANIFEST.MF",
	"com/google/",
	"com/google/common/Lists.class",
	"com/google/common/Maps.class",
	"com/googlex/Other.class",
	"org/example/App.class",
	"org/example/resources/config.json",
}

func TestRelocatePath(t *testing.T) {
	rules := []deps.Relocation{
		{From: "com.google", To: "shaded.com.google"},
		{From: "org.example", To: "lib"},
		{From: "org", To: "never"},
	}
	tests := []struct{ in, want string }{
		{"com/google/common/Lists.class", "shaded/com/google/common/Lists.class"},
		{"com/google/", "shaded/com/google/"},
		{"com/googlex/Other.class", "com/googlex/Other.class"},
		{"org/example/App.class", "lib/App.class"},
		{"org/other/X.class", "never/other/X.class"},
		{"META-INF/MANIFEST.MF", "META-INF/MANIFEST.MF"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelocatePath(tt.in, rules), "RelocatePath(%q)", tt.in)
	}
	assert.Equal(t, "a/B.class", RelocatePath("a/B.class", []deps.Relocation{{From: "", To: "x"}}))
}

func TestPathRelocator(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "lib-1.0.jar")
	dst := filepath.Join(dir, "out", "lib-1.0-relocated.jar")
	writeArchive(t, src, sample, sampleOrder...)

	err := PathRelocator{}.Relocate(src, dst, []deps.Relocation{{From: "com.google", To: "shaded.com.google"}})
	require.NoError(t, err)

	got := readArchive(t, dst)
	assert.Equal(t, "lists", got["shaded/com/google/common/Lists.class"])
	assert.Equal(t, "maps", got["shaded/com/google/common/Maps.class"])
	assert.Equal(t, "other", got["com/googlex/Other.class"])
	assert.Equal(t, "app", got["org/example/App.class"])
	assert.NotContains(t, got, "com/google/common/Lists.class")
	assert.Len(t, got, len(sample))

	assert.Equal(t, sample, readArchive(t, src), "source is untouched")
}

func TestPathRelocatorInvalidSource(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "broken.jar")
	require.NoError(t, os.WriteFile(src, []byte("not a zip"), 0o644))

	err := PathRelocator{}.Relocate(src, filepath.Join(dir, "out.jar"), nil)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(dir, "out.jar"))
}

func TestClasses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lib.jar")
	writeArchive(t, path, sample, sampleOrder...)

	all, err := Classes(path, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"com.google.common.Lists",
		"com.google.common.Maps",
		"com.googlex.Other",
		"org.example.App",
	}, all)

	google, err := Classes(path, "com.google.common")
	require.NoError(t, err)
	assert.Len(t, google, 2)

	_, err = Classes(filepath.Join(t.TempDir(), "missing.jar"), "")
	assert.Error(t, err)
}

func TestLibrary(t *testing.T) {
	lib := NewLibrary(t.TempDir())
	c := coord.New("com.google.guava", "guava", "32.1.3-jre")

	plain, err := lib.Path(c)
	require.NoError(t, err)
	relocated, err := lib.RelocatedPath(c)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(lib.Dir, "com.google.guava", "guava", "32.1.3-jre", "guava-32.1.3-jre.jar"), plain)
	assert.Equal(t, filepath.Join(lib.Dir, "com.google.guava", "guava", "32.1.3-jre", "guava-32.1.3-jre-relocated.jar"), relocated)

	assert.False(t, lib.Has(c))
	_, ok := lib.Locate(c)
	assert.False(t, ok)

	writeArchive(t, relocated, sample, sampleOrder...)
	p, ok := lib.Locate(c)
	require.True(t, ok)
	assert.Equal(t, relocated, p, "relocated copy is found when the plain one is missing")
	assert.False(t, lib.Has(c))

	writeArchive(t, plain, sample, sampleOrder...)
	p, _ = lib.Locate(c)
	assert.Equal(t, plain, p)
	assert.True(t, lib.Has(c))
}

func TestLibraryRejectsEscapingCoordinates(t *testing.T) {
	lib := NewLibrary(filepath.Join(t.TempDir(), "a", "b", "libs"))

	for _, c := range []coord.Coordinate{
		coord.New("com.example", "evil", "../../../x"),
		coord.New("..", "evil", "1.0"),
		coord.New("com.example", "a/../../b", "1.0"),
		coord.New("com.example", "evil", ""),
		coord.New(".", ".", "."),
	} {
		t.Run(c.Location(), func(t *testing.T) {
			_, err := lib.Path(c)
			require.Error(t, err)
			_, err = lib.RelocatedPath(c)
			require.Error(t, err)
			assert.False(t, lib.Has(c))
			_, ok := lib.Locate(c)
			assert.False(t, ok)
		})
	}
}

func TestLibraryFromRepositoryPath(t *testing.T) {
	lib := NewLibrary("/libs")

	got, err := lib.FromRepositoryPath("/com/google/guava/guava/32.1.3-jre/guava-32.1.3-jre.jar")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/libs", "com.google.guava", "guava", "32.1.3-jre", "guava-32.1.3-jre.jar"), got)

	for _, bad := range []string{
		"",
		"guava.jar",
		"a/b/c",
		"com/../../etc/passwd/x",
		"com/google/guava/1.0/.hidden",
	} {
		_, err := lib.FromRepositoryPath(bad)
		assert.Error(t, err, "FromRepositoryPath(%q)", bad)
	}
	_, err = lib.FromRepositoryPath("com/example/lib/1.0/")
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidPath))
}
