// Package deps resolves transitive Maven dependency trees.
//
// # Overview
//
// A [Resolver] starts from one or more root [Dependency] values and walks
// their descriptors (POM files) depth-first:
//
//  1. Each repository is tried in order; the first one that returns a
//     document the [Interpreter] accepts is authoritative for that node.
//  2. A node no repository can describe is kept in the tree as unresolved
//     ([Node.Err] is set) and reported in [Result.Failures]; its siblings
//     are still resolved.
//  3. Nodes whose packaging is not "pom" get a [Node.DownloadURL] for the
//     jar next to the descriptor.
//  4. Declared children with scope test or provided, or marked optional,
//     are dropped. A child without a version takes the parent descriptor's
//     version. Children matched by an [Exclusion] of any ancestor are never
//     created.
//  5. Children search the parent's repositories followed by the ones the
//     parent's descriptor declares, deduplicated by URL.
//
// Resolution is single-threaded, so child order always follows declaration
// order and two runs over the same descriptors produce the same tree.
//
// # Conflicts
//
// [TagConflicts] groups every node of a tree by group and artifact. When a
// group holds several versions, every node older than the latest one gets
// [Node.NewVersion] set. Tagging is advisory: the tree is not changed, and
// [Artifacts] only swaps tagged nodes for their newer version when asked to.
//
// # Exclusions
//
// Exclusion rules attached with [Exclude], [ExcludeArtifact] or
// [WithExclusion] match a candidate when any populated field is equal,
// ignoring case ([MatchAny]). [MatchAll] requires every populated field to
// match. Rules a descriptor declares in its own <exclusions> element always
// use [MatchAll], as Maven does.
//
// # Tree Layout
//
// A [Tree] owns its nodes. Parent links are indices into the tree's node
// table and are followed with [Tree.Parent]; a node never points back at
// its parent directly.
package deps
