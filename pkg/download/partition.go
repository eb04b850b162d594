package download

import "fmt"

// Range is an inclusive byte range of a resource.
type Range struct {
	Index int
	Start int64
	End   int64
}

// Len returns the number of bytes in r.
func (r Range) Len() int64 { return r.End - r.Start + 1 }

func (r Range) String() string { return fmt.Sprintf("bytes=%d-%d", r.Start, r.End) }

// Partition splits size bytes into n contiguous ranges of size/n bytes.
// The last range absorbs the remainder. n is clamped to [1, size]; a
// non-positive size yields no ranges.
func Partition(size int64, n int) []Range {
	if size <= 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if int64(n) > size {
		n = int(size)
	}

	chunk := size / int64(n)
	ranges := make([]Range, n)
	for i := range ranges {
		start := int64(i) * chunk
		end := start + chunk - 1
		if i == n-1 {
			end = size - 1
		}
		ranges[i] = Range{Index: i, Start: start, End: end}
	}
	return ranges
}
