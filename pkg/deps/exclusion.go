package deps

import (
	"fmt"
	"strings"

	"github.com/matzehuels/jarflow/pkg/coord"
	"github.com/matzehuels/jarflow/pkg/errors"
)

// MatchPolicy decides how the populated fields of an [Exclusion] combine.
type MatchPolicy int

const (
	// MatchAny matches when any populated field equals the candidate's.
	MatchAny MatchPolicy = iota

	// MatchAll matches when every populated field equals the candidate's.
	MatchAll
)

func (p MatchPolicy) String() string {
	if p == MatchAll {
		return "all"
	}
	return "any"
}

// ParseMatchPolicy accepts "any"/"or" and "all"/"and". An empty string is
// [MatchAny].
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "or":
		return MatchAny, nil
	case "all", "and":
		return MatchAll, nil
	}
	return MatchAny, errors.New(errors.ErrCodeInvalidConfig, "unknown exclusion policy %q (want any or all)", s)
}

// Exclusion suppresses dependencies. Empty fields and "*" are unset.
type Exclusion struct {
	Group    string `json:"group,omitempty" toml:"group" yaml:"group,omitempty"`
	Artifact string `json:"artifact,omitempty" toml:"artifact" yaml:"artifact,omitempty"`
	Version  string `json:"version,omitempty" toml:"version" yaml:"version,omitempty"`

	// Declared marks rules read from a descriptor's <exclusions>. They
	// always match with [MatchAll].
	Declared bool `json:"declared,omitempty" toml:"-" yaml:"-"`
}

// ParseExclusion parses "group[:artifact[:version]]".
func ParseExclusion(s string) (Exclusion, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) > 3 {
		return Exclusion{}, errors.New(errors.ErrCodeInvalidInput, "invalid exclusion %q (expected group[:artifact[:version]])", s)
	}
	var e Exclusion
	fields := []*string{&e.Group, &e.Artifact, &e.Version}
	for i, p := range parts {
		*fields[i] = strings.TrimSpace(p)
	}
	if e.IsEmpty() {
		return Exclusion{}, errors.New(errors.ErrCodeInvalidInput, "exclusion %q has no fields", s)
	}
	return e, nil
}

func unset(s string) bool { return s == "" || s == "*" }

// IsEmpty reports whether no field is populated.
func (e Exclusion) IsEmpty() bool {
	return unset(e.Group) && unset(e.Artifact) && unset(e.Version)
}

// Matches reports whether e suppresses c under policy. An empty rule
// never matches.
func (e Exclusion) Matches(c coord.Coordinate, policy MatchPolicy) bool {
	if e.IsEmpty() {
		return false
	}
	if e.Declared {
		policy = MatchAll
	}

	checks := [][2]string{
		{e.Group, c.Group},
		{e.Artifact, c.Artifact},
		{e.Version, c.Version},
	}
	for _, chk := range checks {
		if unset(chk[0]) {
			continue
		}
		eq := strings.EqualFold(chk[0], chk[1])
		if policy == MatchAny && eq {
			return true
		}
		if policy == MatchAll && !eq {
			return false
		}
	}
	return policy == MatchAll
}

func (e Exclusion) String() string {
	field := func(s string) string {
		if unset(s) {
			return "*"
		}
		return s
	}
	return fmt.Sprintf("%s:%s:%s", field(e.Group), field(e.Artifact), field(e.Version))
}
