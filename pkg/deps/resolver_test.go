package deps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/jarflow/pkg/cache"
	"github.com/matzehuels/jarflow/pkg/coord"
	"github.com/matzehuels/jarflow/pkg/errors"
	"github.com/matzehuels/jarflow/pkg/repository"
)

const (
	repo1 = "https://one.example/maven/"
	repo2 = "https://two.example/maven/"
)

// memRepo serves JSON-encoded descriptors by URL.
type memRepo struct {
	docs  map[string]string
	calls []string
}

func newMemRepo() *memRepo { return &memRepo{docs: make(map[string]string)} }

func (m *memRepo) Fetch(_ context.Context, url string) ([]byte, error) {
	m.calls = append(m.calls, url)
	if d, ok := m.docs[url]; ok {
		return []byte(d), nil
	}
	return nil, fmt.Errorf("not found: %s", url)
}

func (m *memRepo) put(repo, location string, d Descriptor) {
	c := coord.MustParse(location)
	d.Coordinate = c
	data, _ := json.Marshal(d)
	m.docs[c.URL(repo, "pom")] = string(data)
}

func (m *memRepo) putRaw(repo, location, text string) {
	m.docs[coord.MustParse(location).URL(repo, "pom")] = text
}

var jsonInterpreter = InterpreterFunc(func(_ context.Context, text []byte, _ string) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(text, &d); err != nil {
		return nil, err
	}
	if d.Packaging == "" {
		d.Packaging = "jar"
	}
	return &d, nil
})

func declared(location string) Declared {
	c := coord.MustParse(location)
	return Declared{Group: c.Group, Artifact: c.Artifact, Version: c.Version}
}

func quietOptions() Options {
	return Options{Logger: log.New(io.Discard)}
}

func resolve(t *testing.T, m *memRepo, opts Options, roots ...Dependency) *Result {
	t.Helper()
	r := NewResolver(m, jsonInterpreter, opts)
	res, err := r.Resolve(context.Background(), roots, []repository.Repository{repository.New(repo1, "one")})
	require.NoError(t, err)
	return res
}

func locations(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Location()
	}
	return out
}

func root(location string, opts ...Option) Dependency {
	return FromCoordinate(coord.MustParse(location), opts...)
}

func TestResolveDepthFirstOrder(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:root:1", Descriptor{Dependencies: []Declared{declared("g:a:1"), declared("g:b:1")}})
	m.put(repo1, "g:a:1", Descriptor{Dependencies: []Declared{declared("g:c:1")}})
	m.put(repo1, "g:b:1", Descriptor{})
	m.put(repo1, "g:c:1", Descriptor{})

	first := resolve(t, m, quietOptions(), root("g:root:1"))
	second := resolve(t, m, quietOptions(), root("g:root:1"))

	want := []string{"g:root:1", "g:a:1", "g:c:1", "g:b:1"}
	assert.Equal(t, want, locations(first.Tree.Flatten()))
	assert.Equal(t, locations(first.Tree.Flatten()), locations(second.Tree.Flatten()))
	assert.Empty(t, first.Failures)

	rootNode := first.Tree.Roots[0]
	assert.Equal(t, repo1+"g/root/1/root-1.jar", rootNode.DownloadURL)
	assert.Equal(t, repo1, rootNode.Repository)
}

func TestResolveConflictTagging(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:root:1", Descriptor{Dependencies: []Declared{declared("g:a:1"), declared("g:b:1")}})
	m.put(repo1, "g:a:1", Descriptor{Dependencies: []Declared{declared("g:d:1.0")}})
	m.put(repo1, "g:b:1", Descriptor{Dependencies: []Declared{declared("g:d:2.0")}})
	m.put(repo1, "g:d:1.0", Descriptor{})
	m.put(repo1, "g:d:2.0", Descriptor{})

	res := resolve(t, m, quietOptions(), root("g:root:1"))

	var d1, d2 *Node
	for _, n := range res.Tree.Flatten() {
		switch n.Location() {
		case "g:d:1.0":
			d1 = n
		case "g:d:2.0":
			d2 = n
		}
	}
	require.NotNil(t, d1)
	require.NotNil(t, d2)
	assert.Equal(t, "2.0", d1.NewVersion)
	assert.Empty(t, d2.NewVersion)
	assert.Equal(t, "1.0", d1.Version(), "tagging must not change the declared version")

	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, Conflict{Key: "g:d", Versions: []string{"1.0", "2.0"}, Latest: "2.0"}, res.Conflicts[0])
}

func TestResolveExcludeGroup(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:root:1", Descriptor{Dependencies: []Declared{declared("org.x:a:1"), declared("com.example:direct:1")}})
	m.put(repo1, "org.x:a:1", Descriptor{Dependencies: []Declared{declared("com.example:lib:1"), declared("org.x:b:1")}})
	m.put(repo1, "org.x:b:1", Descriptor{Dependencies: []Declared{declared("COM.EXAMPLE:deep:1")}})

	res := resolve(t, m, quietOptions(), root("g:root:1", Exclude("com.example")))

	for _, n := range res.Tree.Flatten() {
		assert.NotEqual(t, "com.example", strings.ToLower(n.Dependency.Group), "excluded node %s was created", n.Location())
	}
	assert.Equal(t, []string{"g:root:1", "org.x:a:1", "org.x:b:1"}, locations(res.Tree.Flatten()))
}

func TestResolveExclusionPolicy(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:root:1", Descriptor{Dependencies: []Declared{declared("org.x:b:1"), declared("org.x:c:1"), declared("org.y:c:1")}})
	m.put(repo1, "org.x:b:1", Descriptor{})
	m.put(repo1, "org.x:c:1", Descriptor{})
	m.put(repo1, "org.y:c:1", Descriptor{})

	anyRes := resolve(t, m, quietOptions(), root("g:root:1", ExcludeArtifact("org.x", "c")))
	assert.Equal(t, []string{"g:root:1"}, locations(anyRes.Tree.Flatten()), "MatchAny drops anything matching group or artifact")

	opts := quietOptions()
	opts.Policy = MatchAll
	allRes := resolve(t, m, opts, root("g:root:1", ExcludeArtifact("org.x", "c")))
	assert.Equal(t, []string{"g:root:1", "org.x:b:1", "org.y:c:1"}, locations(allRes.Tree.Flatten()))
}

func TestResolveDeclaredExclusionsMatchAll(t *testing.T) {
	m := newMemRepo()
	withExclusion := declared("g:a:1")
	withExclusion.Exclusions = []Exclusion{{Group: "org.y", Artifact: "z"}}
	m.put(repo1, "g:root:1", Descriptor{Dependencies: []Declared{withExclusion}})
	m.put(repo1, "g:a:1", Descriptor{Dependencies: []Declared{declared("org.y:z:1"), declared("org.y:other:1")}})
	m.put(repo1, "org.y:other:1", Descriptor{})

	res := resolve(t, m, quietOptions(), root("g:root:1"))
	assert.Equal(t, []string{"g:root:1", "g:a:1", "org.y:other:1"}, locations(res.Tree.Flatten()))
}

func TestResolveRepositoryFallback(t *testing.T) {
	m := newMemRepo()
	m.put(repo2, "g:root:1", Descriptor{Dependencies: []Declared{declared("g:a:1")}})
	m.put(repo2, "g:a:1", Descriptor{})

	r := NewResolver(m, jsonInterpreter, quietOptions())
	res, err := r.Resolve(context.Background(), []Dependency{root("g:root:1")},
		[]repository.Repository{repository.New(repo1, ""), repository.New(repo2, "")})
	require.NoError(t, err)

	n := res.Tree.Roots[0]
	assert.Equal(t, repo2, n.Repository)
	assert.Equal(t, repo2+"g/root/1/root-1.jar", n.DownloadURL)
	assert.Len(t, n.Children, 1)
	assert.Empty(t, res.Failures)
}

func TestResolveMalformedFallsThrough(t *testing.T) {
	m := newMemRepo()
	m.putRaw(repo1, "g:root:1", "{not json")
	m.put(repo2, "g:root:1", Descriptor{})

	r := NewResolver(m, jsonInterpreter, quietOptions())
	res, err := r.Resolve(context.Background(), []Dependency{root("g:root:1")},
		[]repository.Repository{repository.New(repo1, ""), repository.New(repo2, "")})
	require.NoError(t, err)
	assert.Equal(t, repo2, res.Tree.Roots[0].Repository)
}

func TestResolveFirstRepositoryWins(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:root:1", Descriptor{Dependencies: []Declared{declared("g:only-in-one:1")}})
	m.put(repo2, "g:root:1", Descriptor{Dependencies: []Declared{declared("g:only-in-two:1")}})
	m.put(repo1, "g:only-in-one:1", Descriptor{})

	r := NewResolver(m, jsonInterpreter, quietOptions())
	res, err := r.Resolve(context.Background(), []Dependency{root("g:root:1")},
		[]repository.Repository{repository.New(repo1, ""), repository.New(repo2, "")})
	require.NoError(t, err)
	assert.Equal(t, []string{"g:root:1", "g:only-in-one:1"}, locations(res.Tree.Flatten()))
}

func TestResolveUnresolvedIsNonFatal(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:root:1", Descriptor{Dependencies: []Declared{declared("g:missing:1"), declared("g:b:1")}})
	m.put(repo1, "g:b:1", Descriptor{})

	res := resolve(t, m, quietOptions(), root("g:root:1"))

	require.Len(t, res.Tree.Roots[0].Children, 2)
	missing, b := res.Tree.Roots[0].Children[0], res.Tree.Roots[0].Children[1]

	assert.Error(t, missing.Err)
	assert.True(t, errors.Is(missing.Err, errors.ErrCodeMetadataUnreachable))
	assert.Empty(t, missing.DownloadURL)
	assert.Empty(t, missing.Children)
	assert.False(t, missing.Resolved())

	assert.NoError(t, b.Err)
	assert.True(t, b.Resolved())

	require.Len(t, res.Failures, 1)
	assert.Equal(t, "g:missing:1", res.Failures[0].Location)
	assert.Equal(t, []string{"g:root:1", "g:missing:1"}, res.Failures[0].Path)
	assert.Equal(t, errors.ErrCodeMetadataUnreachable, res.Failures[0].Code())
}

func TestResolvePomPackaging(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:bom:1", Descriptor{Packaging: "pom", Dependencies: []Declared{declared("g:a:1")}})
	m.put(repo1, "g:a:1", Descriptor{})

	res := resolve(t, m, quietOptions(), root("g:bom:1"))
	n := res.Tree.Roots[0]
	assert.True(t, n.Resolved())
	assert.False(t, n.HasArchive())
	assert.Len(t, n.Children, 1)
}

func TestResolveScopeFiltering(t *testing.T) {
	m := newMemRepo()
	testDep := declared("g:test:1")
	testDep.Scope = "TEST"
	provided := declared("g:provided:1")
	provided.Scope = "provided"
	optional := declared("g:optional:1")
	optional.Optional = true
	runtime := declared("g:runtime:1")
	runtime.Scope = "runtime"
	compile := declared("g:compile:1")
	compile.Scope = "compile"

	m.put(repo1, "g:root:1", Descriptor{Dependencies: []Declared{testDep, provided, optional, runtime, compile}})
	m.put(repo1, "g:runtime:1", Descriptor{})
	m.put(repo1, "g:compile:1", Descriptor{})

	res := resolve(t, m, quietOptions(), root("g:root:1"))
	assert.Equal(t, []string{"g:root:1", "g:runtime:1", "g:compile:1"}, locations(res.Tree.Flatten()))
}

func TestResolveParentVersionSubstitution(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:root:1", Descriptor{
		ParentVersion: "5.0",
		Dependencies:  []Declared{{Group: "g", Artifact: "sibling"}},
	})
	m.put(repo1, "g:sibling:5.0", Descriptor{})

	res := resolve(t, m, quietOptions(), root("g:root:1"))
	assert.Equal(t, []string{"g:root:1", "g:sibling:5.0"}, locations(res.Tree.Flatten()))
	assert.Empty(t, res.Failures)
}

func TestResolveMissingVersion(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:root:1", Descriptor{Dependencies: []Declared{{Group: "g", Artifact: "nover"}}})

	res := resolve(t, m, quietOptions(), root("g:root:1"))
	require.Len(t, res.Failures, 1)
	assert.Equal(t, errors.ErrCodeMetadataMalformed, res.Failures[0].Code())
}

func TestResolveInvalidDeclaredCoordinate(t *testing.T) {
	tests := []struct {
		name string
		dep  Declared
	}{
		{"version traversal", Declared{Group: "com.example", Artifact: "evil", Version: "../../../x"}},
		{"artifact with slash", Declared{Group: "com.example", Artifact: "a/b", Version: "1.0"}},
		{"group traversal", Declared{Group: "..", Artifact: "evil", Version: "1.0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMemRepo()
			m.put(repo1, "g:root:1", Descriptor{Dependencies: []Declared{tt.dep, declared("g:ok:1")}})
			m.put(repo1, "g:ok:1", Descriptor{})

			res := resolve(t, m, quietOptions(), root("g:root:1"))
			require.Len(t, res.Failures, 1)
			assert.Equal(t, errors.ErrCodeMetadataMalformed, res.Failures[0].Code())
			assert.True(t, errors.Is(res.Failures[0].Err, errors.ErrCodeInvalidCoordinate))

			nodes := res.Tree.Flatten()
			require.Len(t, nodes, 3)
			bad := nodes[1]
			assert.Empty(t, bad.DownloadURL)
			assert.Empty(t, bad.Repository)
			assert.Equal(t, "g:ok:1", nodes[2].Location())
			assert.NotEmpty(t, nodes[2].DownloadURL)

			for _, call := range m.calls {
				assert.NotContains(t, call, "..")
			}
		})
	}
}

func TestResolveRepositoriesWidenForChildren(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:root:1", Descriptor{
		Dependencies: []Declared{declared("g:a:1")},
		Repositories: []repository.Repository{repository.New(repo2, "two")},
	})
	m.put(repo2, "g:a:1", Descriptor{Dependencies: []Declared{declared("g:b:1")}})
	m.put(repo1, "g:b:1", Descriptor{})

	res := resolve(t, m, quietOptions(), root("g:root:1"))
	flat := res.Tree.Flatten()
	require.Len(t, flat, 3)
	assert.Equal(t, repo2, flat[1].Repository)
	assert.Equal(t, repo1, flat[2].Repository, "earlier repositories keep priority")
	assert.Empty(t, res.Failures)

	assert.NotContains(t, m.calls, coord.MustParse("g:root:1").URL(repo2, "pom"),
		"a descriptor's repositories apply only to its children")
}

func TestResolveCycle(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:a:1", Descriptor{Dependencies: []Declared{declared("g:b:1")}})
	m.put(repo1, "g:b:1", Descriptor{Dependencies: []Declared{declared("g:a:1")}})

	res := resolve(t, m, quietOptions(), root("g:a:1"))
	assert.Equal(t, []string{"g:a:1", "g:b:1", "g:a:1"}, locations(res.Tree.Flatten()))
	require.Len(t, res.Failures, 1)
	assert.Equal(t, errors.ErrCodeCycle, res.Failures[0].Code())
}

func TestResolveMaxDepth(t *testing.T) {
	m := newMemRepo()
	for i := 0; i < 10; i++ {
		m.put(repo1, fmt.Sprintf("g:n%d:1", i), Descriptor{Dependencies: []Declared{declared(fmt.Sprintf("g:n%d:1", i+1))}})
	}

	opts := quietOptions()
	opts.MaxDepth = 3
	res := resolve(t, m, opts, root("g:n0:1"))
	assert.Equal(t, 3, res.Tree.Len())
	require.Len(t, res.Failures, 1)
	assert.Equal(t, errors.ErrCodeCycle, res.Failures[0].Code())
}

func TestResolveCanceled(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:root:1", Descriptor{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewResolver(m, jsonInterpreter, quietOptions())
	res, err := r.Resolve(ctx, []Dependency{root("g:root:1")}, []repository.Repository{repository.New(repo1, "")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, res)
}

func TestResolveNoRepositories(t *testing.T) {
	r := NewResolver(newMemRepo(), jsonInterpreter, quietOptions())
	res, err := r.Resolve(context.Background(), []Dependency{root("g:root:1")}, nil)
	require.NoError(t, err)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, errors.ErrCodeMetadataUnreachable, res.Failures[0].Code())
}

func TestResolveRootRepositories(t *testing.T) {
	m := newMemRepo()
	m.put(repo2, "g:root:1", Descriptor{})

	res := resolve(t, m, quietOptions(), root("g:root:1", WithRepositories(repository.New(repo2, ""))))
	assert.Equal(t, repo2, res.Tree.Roots[0].Repository)
}

func TestResolveUsesDescriptorCache(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:root:1", Descriptor{Dependencies: []Declared{declared("g:a:1")}})
	m.put(repo1, "g:a:1", Descriptor{})

	opts := quietOptions()
	opts.Cache = cache.NewLRUCache(16, nil)

	resolve(t, m, opts, root("g:root:1"))
	fetched := len(m.calls)
	assert.Equal(t, 2, fetched)

	resolve(t, m, opts, root("g:root:1"))
	assert.Equal(t, fetched, len(m.calls), "second run should be served from cache")

	opts.Refresh = true
	resolve(t, m, opts, root("g:root:1"))
	assert.Equal(t, 2*fetched, len(m.calls), "refresh bypasses the cache")
}

func TestResolveMultipleRoots(t *testing.T) {
	m := newMemRepo()
	m.put(repo1, "g:a:1", Descriptor{Dependencies: []Declared{declared("g:shared:1")}})
	m.put(repo1, "g:b:1", Descriptor{Dependencies: []Declared{declared("g:shared:2")}})
	m.put(repo1, "g:shared:1", Descriptor{})
	m.put(repo1, "g:shared:2", Descriptor{})

	res := resolve(t, m, quietOptions(), root("g:a:1"), root("g:b:1"))
	require.Len(t, res.Tree.Roots, 2)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, "g:shared", res.Conflicts[0].Key)
}
