// Package coord models Maven package coordinates and version ordering.
//
// A [Coordinate] is the (group, artifact, version) triple that identifies a
// published package. Its [Coordinate.Location] string "group:artifact:version"
// is the identity used for deduplication throughout jarflow, while
// [Coordinate.Key] ("group:artifact") groups different versions of the same
// package for conflict detection.
//
// # Version Ordering
//
// [Compare] orders version strings the way Maven repositories do in practice:
//
//   - versions are split into tokens on ".", "-" and on transitions between
//     digits and letters ("1.0rc1" is 1, 0, rc, 1)
//   - numeric tokens compare numerically, so "1.10" > "1.9"
//   - a numeric token outranks a qualifier at the same position
//   - trailing zeros and release markers are insignificant: "1.0" == "1.0.0" == "1.0-ga"
//   - known qualifiers are ordered alpha < beta < milestone < rc < snapshot < release < sp
//   - unknown qualifiers sort after the known ones, lexically among themselves
//
// [LatestOf] returns the maximum of a list of versions under this order.
package coord
