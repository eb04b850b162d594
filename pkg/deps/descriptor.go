package deps

import (
	"context"

	"github.com/matzehuels/jarflow/pkg/coord"
	"github.com/matzehuels/jarflow/pkg/repository"
)

// PackagingPOM is the packaging of descriptors that have no archive.
const PackagingPOM = "pom"

// Descriptor is an effective descriptor: inheritance, interpolation and
// dependency management already applied.
type Descriptor struct {
	Coordinate coord.Coordinate `json:"coordinate"`

	// Packaging defaults to "jar".
	Packaging string `json:"packaging"`

	// ParentVersion is the version of the enclosing parent descriptor,
	// substituted for children that declare no version.
	ParentVersion string `json:"parent_version,omitempty"`

	Dependencies []Declared              `json:"dependencies,omitempty"`
	Repositories []repository.Repository `json:"repositories,omitempty"`
}

// Declared is a dependency as listed in a descriptor, before filtering.
type Declared struct {
	Group      string      `json:"group"`
	Artifact   string      `json:"artifact"`
	Version    string      `json:"version,omitempty"`
	Scope      string      `json:"scope,omitempty"`
	Optional   bool        `json:"optional,omitempty"`
	Exclusions []Exclusion `json:"exclusions,omitempty"`
}

// Interpreter turns raw descriptor text fetched from baseURL into an
// effective descriptor. An error means the document is unusable and the
// resolver moves on to the next repository.
type Interpreter interface {
	Interpret(ctx context.Context, text []byte, baseURL string) (*Descriptor, error)
}

// InterpreterFunc adapts a function to [Interpreter].
type InterpreterFunc func(ctx context.Context, text []byte, baseURL string) (*Descriptor, error)

func (f InterpreterFunc) Interpret(ctx context.Context, text []byte, baseURL string) (*Descriptor, error) {
	return f(ctx, text, baseURL)
}

// Fetcher retrieves a document by URL. Any error means "not available at
// this repository", except context errors, which abort resolution.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FetcherFunc adapts a function to [Fetcher].
type FetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}
