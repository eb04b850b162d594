package deps

import (
	"encoding/json"
)

// Node is one dependency within a resolution [Tree].
type Node struct {
	Dependency Dependency

	// DownloadURL is empty for unresolved nodes and pom-packaged ones.
	DownloadURL string

	// Repository is the URL of the repository that supplied the descriptor.
	Repository string

	// Packaging is the effective packaging of the descriptor.
	Packaging string

	// NewVersion is set by [TagConflicts] when a newer version of the same
	// group and artifact exists elsewhere in the tree.
	NewVersion string

	// Err is non-nil when the node could not be resolved or expanded.
	Err error

	// Children are owned by this node, in declaration order.
	Children []*Node

	// Depth is 0 for roots.
	Depth int

	id     int
	parent int // index into Tree.nodes, -1 for roots
}

// ID returns the node's index in its tree.
func (n *Node) ID() int { return n.id }

// Location returns the dependency's "group:artifact:version".
func (n *Node) Location() string { return n.Dependency.Location() }

// Key returns the dependency's "group:artifact".
func (n *Node) Key() string { return n.Dependency.Key() }

// Version returns the declared version.
func (n *Node) Version() string { return n.Dependency.Version }

// Resolved reports whether a descriptor was found for the node.
func (n *Node) Resolved() bool { return n.Repository != "" }

// HasArchive reports whether there is something to download.
func (n *Node) HasArchive() bool { return n.DownloadURL != "" }

// MarshalJSON renders the node and its subtree.
func (n *Node) MarshalJSON() ([]byte, error) {
	type view struct {
		Location    string       `json:"location"`
		DownloadURL string       `json:"download_url,omitempty"`
		Repository  string       `json:"repository,omitempty"`
		Packaging   string       `json:"packaging,omitempty"`
		NewVersion  string       `json:"new_version,omitempty"`
		Error       string       `json:"error,omitempty"`
		Relocations []Relocation `json:"relocations,omitempty"`
		Children    []*Node      `json:"children,omitempty"`
	}
	v := view{
		Location:    n.Location(),
		DownloadURL: n.DownloadURL,
		Repository:  n.Repository,
		Packaging:   n.Packaging,
		NewVersion:  n.NewVersion,
		Relocations: n.Dependency.Relocations,
		Children:    n.Children,
	}
	if n.Err != nil {
		v.Error = n.Err.Error()
	}
	return json.Marshal(v)
}

// Tree is the result of resolving one or more roots. It owns every node;
// parent links are indices into its node table.
type Tree struct {
	Roots []*Node `json:"roots"`
	nodes []*Node
}

// NewTree returns an empty tree.
func NewTree() *Tree { return &Tree{} }

// AddRoot creates a root node for d.
func (t *Tree) AddRoot(d Dependency) *Node {
	n := t.newNode(d, -1, 0)
	t.Roots = append(t.Roots, n)
	return n
}

// AddChild creates a node for d under parent.
func (t *Tree) AddChild(parent *Node, d Dependency) *Node {
	n := t.newNode(d, parent.id, parent.Depth+1)
	parent.Children = append(parent.Children, n)
	return n
}

func (t *Tree) newNode(d Dependency, parent, depth int) *Node {
	n := &Node{Dependency: d, Depth: depth, id: len(t.nodes), parent: parent}
	t.nodes = append(t.nodes, n)
	return n
}

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the node with the given id.
func (t *Tree) Node(id int) (*Node, bool) {
	if id < 0 || id >= len(t.nodes) {
		return nil, false
	}
	return t.nodes[id], true
}

// Parent returns n's parent; false for roots.
func (t *Tree) Parent(n *Node) (*Node, bool) {
	return t.Node(n.parent)
}

// Ancestors returns n's ancestors, nearest first.
func (t *Tree) Ancestors(n *Node) []*Node {
	var out []*Node
	for p, ok := t.Parent(n); ok; p, ok = t.Parent(p) {
		out = append(out, p)
	}
	return out
}

// Path returns the locations from the root down to n.
func (t *Tree) Path(n *Node) []string {
	anc := t.Ancestors(n)
	path := make([]string, 0, len(anc)+1)
	for i := len(anc) - 1; i >= 0; i-- {
		path = append(path, anc[i].Location())
	}
	return append(path, n.Location())
}

// Walk visits nodes depth-first in pre-order. Returning false from fn
// skips the node's children.
func (t *Tree) Walk(fn func(n *Node) bool) {
	var visit func(n *Node)
	visit = func(n *Node) {
		if !fn(n) {
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	for _, r := range t.Roots {
		visit(r)
	}
}

// Flatten returns every node depth-first in pre-order.
func (t *Tree) Flatten() []*Node {
	out := make([]*Node, 0, len(t.nodes))
	t.Walk(func(n *Node) bool {
		out = append(out, n)
		return true
	})
	return out
}
