package pom

import "strings"

const maxPasses = 10

// interpolate replaces ${name} references using lookup. Replacement text
// is itself interpolated, up to maxPasses levels. Unknown references are
// left in place.
func interpolate(s string, lookup func(string) (string, bool)) string {
	for pass := 0; pass < maxPasses && strings.Contains(s, "${"); pass++ {
		next := replaceOnce(s, lookup)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func replaceOnce(s string, lookup func(string) (string, bool)) string {
	var b strings.Builder
	for {
		start := strings.Index(s, "${")
		if start < 0 {
			b.WriteString(s)
			return b.String()
		}
		end := strings.IndexByte(s[start:], '}')
		if end < 0 {
			b.WriteString(s)
			return b.String()
		}
		end += start
		b.WriteString(s[:start])
		if v, ok := lookup(s[start+2 : end]); ok {
			b.WriteString(v)
		} else {
			b.WriteString(s[start : end+1])
		}
		s = s[end+1:]
	}
}

func unresolved(s string) bool { return strings.Contains(s, "${") }
