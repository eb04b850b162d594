package coord

import (
	"strings"
	"unicode"
)

// Qualifier ranks. Release is the rank of a version with no qualifier.
const (
	rankAlpha = iota
	rankBeta
	rankMilestone
	rankRC
	rankSnapshot
	rankRelease
	rankSP
	rankUnknown
)

var qualifierRanks = map[string]int{
	"alpha":     rankAlpha,
	"a":         rankAlpha,
	"beta":      rankBeta,
	"b":         rankBeta,
	"milestone": rankMilestone,
	"m":         rankMilestone,
	"rc":        rankRC,
	"cr":        rankRC,
	"snapshot":  rankSnapshot,
	"":          rankRelease,
	"ga":        rankRelease,
	"final":     rankRelease,
	"release":   rankRelease,
	"sp":        rankSP,
}

type token struct {
	numeric bool
	text    string // digits without leading zeros, or a lower-cased qualifier
}

func (t token) isNull() bool {
	if t.numeric {
		return t.text == "0"
	}
	return qualifierRank(t.text) == rankRelease
}

func qualifierRank(q string) int {
	if r, ok := qualifierRanks[q]; ok {
		return r
	}
	return rankUnknown
}

// tokenize splits v into tokens and drops insignificant trailing ones.
func tokenize(v string) []token {
	var (
		tokens []token
		buf    strings.Builder
		digits bool
	)
	flush := func() {
		s := buf.String()
		buf.Reset()
		if digits {
			s = strings.TrimLeft(s, "0")
			if s == "" {
				s = "0"
			}
			tokens = append(tokens, token{numeric: true, text: s})
			return
		}
		tokens = append(tokens, token{text: s})
	}

	for i, r := range strings.ToLower(strings.TrimSpace(v)) {
		if r == '.' || r == '-' || r == '_' {
			flush()
			digits = false
			continue
		}
		isDigit := unicode.IsDigit(r)
		if i > 0 && buf.Len() > 0 && isDigit != digits {
			flush()
		}
		digits = isDigit
		buf.WriteRune(r)
	}
	flush()

	for len(tokens) > 0 && tokens[len(tokens)-1].isNull() {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

func compareNumeric(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func compareTokens(a, b token) int {
	switch {
	case a.numeric && b.numeric:
		return compareNumeric(a.text, b.text)
	case a.numeric:
		return 1
	case b.numeric:
		return -1
	}
	ra, rb := qualifierRank(a.text), qualifierRank(b.text)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if ra == rankUnknown {
		return strings.Compare(a.text, b.text)
	}
	return 0
}

// compareToNull compares a surplus token against the missing position of
// a shorter version.
func compareToNull(t token) int {
	if t.numeric {
		if t.text == "0" {
			return 0
		}
		return 1
	}
	r := qualifierRank(t.text)
	switch {
	case r < rankRelease:
		return -1
	case r > rankRelease:
		return 1
	}
	return 0
}

// Compare returns -1, 0 or +1 depending on whether version a sorts before,
// equal to, or after version b.
func Compare(a, b string) int {
	ta, tb := tokenize(a), tokenize(b)
	n := max(len(ta), len(tb))
	for i := 0; i < n; i++ {
		var c int
		switch {
		case i >= len(ta):
			c = -compareToNull(tb[i])
		case i >= len(tb):
			c = compareToNull(ta[i])
		default:
			c = compareTokens(ta[i], tb[i])
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// Less reports whether version a sorts before version b.
func Less(a, b string) bool { return Compare(a, b) < 0 }

// LatestOf returns the greatest version in versions. The boolean is false
// when versions is empty. Among versions that compare equal, the first one
// wins.
func LatestOf(versions []string) (string, bool) {
	if len(versions) == 0 {
		return "", false
	}
	latest := versions[0]
	for _, v := range versions[1:] {
		if Compare(v, latest) > 0 {
			latest = v
		}
	}
	return latest, true
}
