// Package session ties resolution, download, relocation and loading
// together for one caller.
//
// A [Session] owns the state that would otherwise be global: the
// repositories to search, the set of already loaded artifacts and the
// roots resolved so far. Sessions are independent of each other and safe
// for concurrent use.
//
// # Usage
//
//	s := session.New(resolver, downloader, session.Options{LibDir: "libs"})
//	s.AddRepositories(repository.MavenCentral())
//
//	res, err := s.Install(ctx, deps.NewDependency("com.google.guava", "guava", "32.1.3-jre",
//	    deps.Relocate("com.google", "shaded.com.google"),
//	))
//	if err != nil {
//	    return err // canceled
//	}
//	for _, a := range res.Failed() {
//	    log.Warn("not installed", "artifact", a.Location, "err", a.Err)
//	}
package session

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/jarflow/pkg/coord"
	"github.com/matzehuels/jarflow/pkg/deps"
	"github.com/matzehuels/jarflow/pkg/download"
	"github.com/matzehuels/jarflow/pkg/jar"
	"github.com/matzehuels/jarflow/pkg/repository"
)

// DefaultLibDir is used when Options.LibDir is empty.
const DefaultLibDir = "libs"

// Options configures a [Session].
type Options struct {
	// LibDir is the root of the local library directory.
	LibDir string

	// Parallelism is the number of range requests per artifact. Zero
	// uses the downloader's default.
	Parallelism int

	// Concurrency is the number of artifacts installed at once (default 1).
	Concurrency int

	// Redirect installs the newest version of conflicting artifacts
	// instead of every version found in the tree.
	Redirect bool

	// Relocator applies relocation rules (default: jar.PathRelocator).
	Relocator jar.Relocator

	// Loader receives installed archives (default: a ClasspathLoader).
	Loader Loader

	Logger *log.Logger
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.LibDir == "" {
		o.LibDir = DefaultLibDir
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.Relocator == nil {
		o.Relocator = jar.PathRelocator{}
	}
	if o.Loader == nil {
		o.Loader = NewClasspathLoader()
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Session is an independent resolution and installation context.
type Session struct {
	ID        string
	CreatedAt time.Time

	opts       Options
	resolver   *deps.Resolver
	downloader *download.Downloader
	library    jar.Library
	repos      *repository.Registry

	mu       sync.Mutex
	loaded   map[string]bool
	order    []deps.Dependency // loaded dependencies in load order
	inflight map[string]bool
	roots    []*deps.Node
}

// New creates a session.
func New(resolver *deps.Resolver, downloader *download.Downloader, opts Options) *Session {
	opts = opts.WithDefaults()
	return &Session{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now(),
		opts:       opts,
		resolver:   resolver,
		downloader: downloader,
		library:    jar.NewLibrary(opts.LibDir),
		repos:      repository.NewRegistry(),
		loaded:     make(map[string]bool),
		inflight:   make(map[string]bool),
	}
}

// Options returns the effective options.
func (s *Session) Options() Options { return s.opts }

// Library returns the local library directory.
func (s *Session) Library() jar.Library { return s.library }

// Loader returns the loader archives are handed to.
func (s *Session) Loader() Loader { return s.opts.Loader }

// AddRepositories appends repositories to the search list and returns how
// many were new.
func (s *Session) AddRepositories(repos ...repository.Repository) int {
	return s.repos.Add(repos...)
}

// Repositories returns the search list in order.
func (s *Session) Repositories() []repository.Repository {
	return s.repos.List()
}

// Resolve builds the dependency tree for roots against the session's
// repositories and records the root nodes.
func (s *Session) Resolve(ctx context.Context, roots ...deps.Dependency) (*deps.Result, error) {
	res, err := s.resolver.Resolve(ctx, roots, s.repos.List())
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.roots = append(s.roots, res.Tree.Roots...)
	s.mu.Unlock()
	return res, nil
}

// Dependencies returns the root nodes of every resolution in this session.
func (s *Session) Dependencies() []*deps.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*deps.Node(nil), s.roots...)
}

// IsLoaded reports whether c has been loaded in this session.
func (s *Session) IsLoaded(c coord.Coordinate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded[c.Location()]
}

// Loaded returns the loaded dependencies in load order.
func (s *Session) Loaded() []deps.Dependency {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]deps.Dependency(nil), s.order...)
}

// claim marks location as being installed. It returns false when the
// location is already loaded or another install is handling it.
func (s *Session) claim(location string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded[location] || s.inflight[location] {
		return false
	}
	s.inflight[location] = true
	return true
}

// release ends a claim, recording d as loaded when ok is set.
func (s *Session) release(d deps.Dependency, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, d.Location())
	if ok {
		s.loaded[d.Location()] = true
		s.order = append(s.order, d)
	}
}
