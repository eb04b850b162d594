package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://repo1.maven.org/maven2", "https://repo1.maven.org/maven2/"},
		{"https://repo1.maven.org/maven2/", "https://repo1.maven.org/maven2/"},
		{"  https://jitpack.io  ", "https://jitpack.io/"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "Normalize(%q)", tt.in)
	}
}

func TestMerge(t *testing.T) {
	a := []Repository{
		New("https://one.example/repo", "one"),
		New("https://two.example/repo", "two"),
	}
	b := []Repository{
		{URL: "https://two.example/repo", Name: "duplicate"},
		{URL: "https://three.example/repo/"},
		{URL: ""},
	}

	got := Merge(a, b)
	require.Len(t, got, 3)
	assert.Equal(t, "https://one.example/repo/", got[0].URL)
	assert.Equal(t, "two", got[1].Name, "first occurrence wins")
	assert.Equal(t, "https://three.example/repo/", got[2].URL)

	assert.Equal(t, "https://two.example/repo", b[0].URL, "inputs must not be modified")
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge())
	assert.Empty(t, Merge(nil, nil))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry(MavenCentral())
	assert.Equal(t, 1, r.Len())

	added := r.Add(New(MavenCentralURL, "again"), JitPack())
	assert.Equal(t, 1, added)
	assert.True(t, r.Contains("https://jitpack.io"))
	assert.False(t, r.Contains("https://example.com"))

	snapshot := r.List()
	r.Add(JCenter())
	assert.Len(t, snapshot, 2, "List returns a snapshot")
	assert.Equal(t, 3, r.Len())
}

func TestLookup(t *testing.T) {
	repo, ok := Lookup("Central")
	require.True(t, ok)
	assert.Equal(t, MavenCentralURL, repo.URL)

	_, ok = Lookup("nope")
	assert.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "central", MavenCentral().DisplayName())
	assert.Equal(t, "https://x.example/", New("https://x.example", "").DisplayName())
}
