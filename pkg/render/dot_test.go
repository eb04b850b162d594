package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matzehuels/jarflow/pkg/deps"
	"github.com/matzehuels/jarflow/pkg/errors"
)

func sampleTree() *deps.Tree {
	t := deps.NewTree()
	app := t.AddRoot(deps.NewDependency("org.example", "app", "1.0"))
	app.Repository = "https://repo.example/maven2/"
	app.Packaging = "jar"
	app.DownloadURL = "https://repo.example/maven2/org/example/app/1.0/app-1.0.jar"

	lib := t.AddChild(app, deps.NewDependency("org.example", "lib", "1.0"))
	lib.DownloadURL = "https://repo.example/lib.jar"
	lib.Repository = app.Repository
	lib.NewVersion = "2.0"

	util := t.AddChild(lib, deps.NewDependency("org.example", "util", "2.0"))
	util.DownloadURL = "https://repo.example/util.jar"
	util.Repository = app.Repository
	again := t.AddChild(app, deps.NewDependency("org.example", "util", "2.0"))
	again.DownloadURL = util.DownloadURL
	again.Repository = app.Repository

	// Reached twice along the same edge.
	t.AddChild(app, deps.NewDependency("org.example", "util", "2.0"))

	missing := t.AddChild(app, deps.NewDependency("org.example", "gone", "0.1"))
	missing.Err = errors.New(errors.ErrCodeMetadataUnreachable, "not found")
	return t
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleTree(), Options{})

	assert.True(t, strings.HasPrefix(dot, "digraph G {\n"))
	assert.True(t, strings.HasSuffix(dot, "}\n"))

	assert.Equal(t, 1, strings.Count(dot, `"org.example:util:2.0" [`), "node drawn once")
	assert.Equal(t, 1, strings.Count(dot, `"org.example:app:1.0" -> "org.example:util:2.0";`), "edge deduplicated")
	assert.Contains(t, dot, `"org.example:lib:1.0" -> "org.example:util:2.0";`)
	assert.Contains(t, dot, `label="org.example:lib:1.0\n-> 2.0", fillcolor=lightyellow`)
	assert.Contains(t, dot, `"org.example:gone:0.1" [label="org.example:gone:0.1", style="rounded,filled,dashed", color=red`)
	assert.NotContains(t, dot, "repo:")
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(sampleTree(), Options{Detailed: true})

	assert.Contains(t, dot, `repo: https://repo.example/maven2/\npackaging: jar`)
	assert.Contains(t, dot, `error: METADATA_UNREACHABLE`)
}

func TestToDOTMaxDepth(t *testing.T) {
	dot := ToDOT(sampleTree(), Options{MaxDepth: 1})

	assert.Contains(t, dot, `"org.example:app:1.0" -> "org.example:util:2.0";`)
	assert.NotContains(t, dot, `"org.example:lib:1.0" -> "org.example:util:2.0";`)
}

func TestToDOTEmpty(t *testing.T) {
	assert.Equal(t, 0, strings.Count(ToDOT(nil, Options{}), "->"))
	assert.Equal(t, 0, strings.Count(ToDOT(deps.NewTree(), Options{}), "->"))
}

func TestNormalizeViewBox(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "rewrites root",
			in:   `<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`,
			want: `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.00 50.00" width="100" height="50"><g/></svg>`,
		},
		{
			name: "no viewBox",
			in:   `<svg><g/></svg>`,
			want: `<svg><g/></svg>`,
		},
		{
			name: "zero size",
			in:   `<svg viewBox="0 0 0 10"></svg>`,
			want: `<svg viewBox="0 0 0 10"></svg>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(normalizeViewBox([]byte(tt.in))))
		})
	}
}
