// Package download fetches artifacts with parallel HTTP byte-range requests.
//
// A [Downloader] probes the resource with HEAD. When the server reports a
// size and advertises "Accept-Ranges: bytes", the file is split by
// [Partition] into contiguous inclusive ranges which are fetched
// concurrently into part files next to the destination:
//
//	<dest>_temp/<name>.part0
//	<dest>_temp/<name>.part1
//	...
//
// Only when every part succeeds are they concatenated, in index order, into
// the destination. The destination is written through a temporary file and
// renamed, so it either holds the complete archive or does not exist. On
// failure the part directory is removed unless [Options.KeepParts] is set.
//
// Servers without range support fall back to a single streamed GET.
//
// The whole batch is bounded by [Options.BatchTimeout], applied as a
// context deadline so that in-flight requests are aborted when it expires.
package download
