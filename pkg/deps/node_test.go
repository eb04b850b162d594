package deps

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/jarflow/pkg/errors"
)

func buildTree() (*Tree, map[string]*Node) {
	t := NewTree()
	nodes := make(map[string]*Node)
	r := t.AddRoot(NewDependency("g", "root", "1"))
	a := t.AddChild(r, NewDependency("g", "a", "1"))
	b := t.AddChild(a, NewDependency("g", "b", "1"))
	c := t.AddChild(r, NewDependency("g", "c", "1"))
	for _, n := range []*Node{r, a, b, c} {
		nodes[n.Dependency.Artifact] = n
	}
	return t, nodes
}

func TestTreeParentLinks(t *testing.T) {
	tree, n := buildTree()

	_, ok := tree.Parent(n["root"])
	assert.False(t, ok, "roots have no parent")

	p, ok := tree.Parent(n["b"])
	require.True(t, ok)
	assert.Same(t, n["a"], p)

	assert.Equal(t, []string{"g:root:1", "g:a:1", "g:b:1"}, tree.Path(n["b"]))
	assert.Len(t, tree.Ancestors(n["b"]), 2)
	assert.Equal(t, 2, n["b"].Depth)
}

func TestTreeNodeLookup(t *testing.T) {
	tree, n := buildTree()
	assert.Equal(t, 4, tree.Len())

	got, ok := tree.Node(n["c"].ID())
	require.True(t, ok)
	assert.Same(t, n["c"], got)

	_, ok = tree.Node(99)
	assert.False(t, ok)
	_, ok = tree.Node(-1)
	assert.False(t, ok)
}

func TestTreeWalk(t *testing.T) {
	tree, _ := buildTree()
	assert.Equal(t, []string{"g:root:1", "g:a:1", "g:b:1", "g:c:1"}, locations(tree.Flatten()))

	var visited []string
	tree.Walk(func(n *Node) bool {
		visited = append(visited, n.Location())
		return n.Dependency.Artifact != "a"
	})
	assert.Equal(t, []string{"g:root:1", "g:a:1", "g:c:1"}, visited, "returning false skips children")
}

func TestNodeMarshalJSON(t *testing.T) {
	tree, n := buildTree()
	n["b"].Err = errors.New(errors.ErrCodeMetadataUnreachable, "gone")
	n["a"].DownloadURL = "https://repo/a.jar"

	data, err := json.Marshal(tree)
	require.NoError(t, err)

	var out struct {
		Roots []struct {
			Location string `json:"location"`
			Children []struct {
				Location    string `json:"location"`
				DownloadURL string `json:"download_url"`
				Children    []struct {
					Error string `json:"error"`
				} `json:"children"`
			} `json:"children"`
		} `json:"roots"`
	}
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out.Roots, 1)
	assert.Equal(t, "g:root:1", out.Roots[0].Location)
	assert.Equal(t, "https://repo/a.jar", out.Roots[0].Children[0].DownloadURL)
	assert.Contains(t, out.Roots[0].Children[0].Children[0].Error, "gone")
}
