// Package pom interprets Maven POM documents into effective descriptors.
//
// An [Interpreter] parses a project model and applies, in order:
//
//   - parent inheritance, fetching each <parent> from the repository the
//     child came from and then from the fallback repositories
//   - property merging, where the child's value wins
//   - ${...} interpolation against properties and project.* / parent.*
//     built-ins
//   - dependencyManagement, including BOMs imported with scope=import
//
// The result is a [deps.Descriptor] ready for the resolver. Parent models are
// memoized in an in-process LRU and their raw documents may additionally be
// stored in a [cache.Cache].
package pom
