package deps

import (
	"github.com/matzehuels/jarflow/pkg/coord"
	"github.com/matzehuels/jarflow/pkg/repository"
)

// Relocation rewrites archive entries starting with From so they start
// with To. Relocations are only applied when loading, never while resolving.
type Relocation struct {
	From string `json:"from" toml:"from" yaml:"from"`
	To   string `json:"to" toml:"to" yaml:"to"`
}

// Dependency is a coordinate plus the rules its declarer attached to it.
// Values are never mutated after construction.
type Dependency struct {
	coord.Coordinate

	// Relocations are applied to the downloaded archive before loading.
	Relocations []Relocation `json:"relocations,omitempty"`

	// Exclusions suppress matching direct and transitive children.
	Exclusions []Exclusion `json:"exclusions,omitempty"`

	// Repositories are searched after the inherited ones when resolving
	// this dependency's children.
	Repositories []repository.Repository `json:"repositories,omitempty"`
}

// Option configures a Dependency built by [NewDependency].
type Option func(*Dependency)

// NewDependency builds a root dependency.
func NewDependency(group, artifact, version string, opts ...Option) Dependency {
	return FromCoordinate(coord.New(group, artifact, version), opts...)
}

// FromCoordinate builds a root dependency from an existing coordinate.
func FromCoordinate(c coord.Coordinate, opts ...Option) Dependency {
	d := Dependency{Coordinate: c}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// WithExclusion attaches an arbitrary exclusion rule.
func WithExclusion(e Exclusion) Option {
	return func(d *Dependency) {
		if !e.IsEmpty() {
			d.Exclusions = append(d.Exclusions, e)
		}
	}
}

// Exclude suppresses every descendant in group.
func Exclude(group string) Option {
	return WithExclusion(Exclusion{Group: group})
}

// ExcludeArtifact attaches a rule with group and artifact populated. Under
// [MatchAny] this suppresses descendants matching either field.
func ExcludeArtifact(group, artifact string) Option {
	return WithExclusion(Exclusion{Group: group, Artifact: artifact})
}

// Relocate adds a relocation rule.
func Relocate(from, to string) Option {
	return func(d *Dependency) {
		d.Relocations = append(d.Relocations, Relocation{From: from, To: to})
	}
}

// WithRepositories adds repositories searched for this dependency's
// children, and for the dependency itself when it is a root.
func WithRepositories(repos ...repository.Repository) Option {
	return func(d *Dependency) {
		d.Repositories = repository.Merge(d.Repositories, repos)
	}
}

// HasRelocations reports whether loading needs a relocated copy.
func (d Dependency) HasRelocations() bool {
	return len(d.Relocations) > 0
}

// IsExcluded reports whether any of d's own rules matches c.
func (d Dependency) IsExcluded(c coord.Coordinate, policy MatchPolicy) bool {
	for _, e := range d.Exclusions {
		if e.Matches(c, policy) {
			return true
		}
	}
	return false
}
