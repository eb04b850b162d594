package deps

import (
	"sort"

	"github.com/matzehuels/jarflow/pkg/coord"
)

// Conflict describes a group and artifact present in several versions.
type Conflict struct {
	Key      string   `json:"key"`      // group:artifact
	Versions []string `json:"versions"` // distinct versions, oldest first
	Latest   string   `json:"latest"`
}

// TagConflicts sets [Node.NewVersion] on every node that is older than the
// latest version of its group and artifact anywhere in t. The tree shape
// is not modified. Conflicts are returned sorted by key.
func TagConflicts(t *Tree) []Conflict {
	groups := make(map[string][]*Node)
	var keys []string
	for _, n := range t.Flatten() {
		k := n.Key()
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], n)
	}
	sort.Strings(keys)

	var conflicts []Conflict
	for _, k := range keys {
		nodes := groups[k]
		versions := distinctVersions(nodes)
		if len(versions) < 2 {
			continue
		}
		latest, _ := coord.LatestOf(versions)
		for _, n := range nodes {
			if coord.Compare(n.Version(), latest) < 0 {
				n.NewVersion = latest
			}
		}
		sort.SliceStable(versions, func(i, j int) bool { return coord.Less(versions[i], versions[j]) })
		conflicts = append(conflicts, Conflict{Key: k, Versions: versions, Latest: latest})
	}
	return conflicts
}

func distinctVersions(nodes []*Node) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range nodes {
		if v := n.Version(); !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// Artifacts returns the distinct (by location) nodes of t that have an
// archive to download, in depth-first order.
//
// With redirect set, a node tagged with [Node.NewVersion] is replaced by a
// node of the tagged version when the tree holds a downloadable one; the
// older version is then skipped entirely.
func Artifacts(t *Tree, redirect bool) []*Node {
	all := t.Flatten()

	byLocation := make(map[string]*Node)
	for _, n := range all {
		if n.HasArchive() {
			if _, ok := byLocation[n.Location()]; !ok {
				byLocation[n.Location()] = n
			}
		}
	}

	seen := make(map[string]bool)
	var out []*Node
	for _, n := range all {
		pick := n
		if redirect && n.NewVersion != "" {
			if newer, ok := byLocation[n.Dependency.WithVersion(n.NewVersion).Location()]; ok {
				pick = newer
			}
		}
		if !pick.HasArchive() || seen[pick.Location()] {
			continue
		}
		seen[pick.Location()] = true
		out = append(out, pick)
	}
	return out
}
