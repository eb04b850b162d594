package deps

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/jarflow/pkg/cache"
	"github.com/matzehuels/jarflow/pkg/coord"
	"github.com/matzehuels/jarflow/pkg/errors"
	"github.com/matzehuels/jarflow/pkg/observability"
	"github.com/matzehuels/jarflow/pkg/repository"
)

const DefaultMaxDepth = 64 // Default maximum tree depth

// Options configures a [Resolver].
type Options struct {
	MaxDepth int         // Maximum tree depth (default: 64)
	Policy   MatchPolicy // How exclusion fields combine (default: MatchAny)
	Refresh  bool        // Ignore cached descriptors

	// Cache stores descriptor documents; nil disables caching.
	Cache cache.Cache
	Keyer cache.Keyer

	Logger *log.Logger
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Cache == nil {
		opts.Cache = cache.NewNullCache()
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return opts
}

// Failure records a node that could not be resolved or expanded.
type Failure struct {
	Location string   `json:"location"`
	Path     []string `json:"path"` // root first
	Err      error    `json:"-"`
}

// Code returns the error code of the failure.
func (f Failure) Code() errors.Code { return errors.GetCode(f.Err) }

// Result is the outcome of [Resolver.Resolve].
type Result struct {
	Tree      *Tree
	Conflicts []Conflict
	Failures  []Failure
}

// Resolver builds dependency trees. A Resolver holds no per-call state and
// may be shared by concurrent callers.
type Resolver struct {
	fetcher Fetcher
	interp  Interpreter
	opts    Options
}

// NewResolver creates a resolver that downloads descriptors with f and
// interprets them with i.
func NewResolver(f Fetcher, i Interpreter, opts Options) *Resolver {
	return &Resolver{fetcher: f, interp: i, opts: opts.WithDefaults()}
}

// Options returns the effective options.
func (r *Resolver) Options() Options { return r.opts }

// Resolve builds the tree for roots, tags version conflicts and returns it.
// Per-node failures are collected in the result; the only error returned
// is a context error, in which case the result is nil.
func (r *Resolver) Resolve(ctx context.Context, roots []Dependency, repos []repository.Repository) (*Result, error) {
	hooks := observability.Resolve()
	hooks.OnResolveStart(ctx, len(roots))
	start := time.Now()

	w := &walk{Resolver: r, tree: NewTree(), onPath: make(map[string]bool)}
	for _, root := range roots {
		n := w.tree.AddRoot(root)
		if err := w.expand(ctx, n, repository.Merge(repos, root.Repositories), nil); err != nil {
			hooks.OnResolveComplete(ctx, w.tree.Len(), len(w.failures), time.Since(start), err)
			return nil, err
		}
	}

	res := &Result{
		Tree:      w.tree,
		Conflicts: TagConflicts(w.tree),
		Failures:  w.failures,
	}
	r.opts.Logger.Debug("resolved", "roots", len(roots), "nodes", w.tree.Len(),
		"failures", len(res.Failures), "conflicts", len(res.Conflicts))
	hooks.OnResolveComplete(ctx, w.tree.Len(), len(w.failures), time.Since(start), nil)
	return res, nil
}

// walk is the state of one Resolve call.
type walk struct {
	*Resolver
	tree     *Tree
	failures []Failure
	onPath   map[string]bool // locations on the current root-to-node path
}

func (w *walk) fail(ctx context.Context, n *Node, err error) {
	n.Err = err
	w.failures = append(w.failures, Failure{Location: n.Location(), Path: w.tree.Path(n), Err: err})
	observability.Resolve().OnNodeResolved(ctx, n.Location(), "", err)
}

// expand resolves n and recurses into its children. rules holds the
// exclusion lists of n's ancestors.
func (w *walk) expand(ctx context.Context, n *Node, repos []repository.Repository, rules [][]Exclusion) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	desc, repo, err := w.lookup(ctx, n.Dependency.Coordinate, repos)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		w.opts.Logger.Warn("unresolved", "coord", n.Location(), "err", errors.UserMessage(err))
		w.fail(ctx, n, err)
		return nil
	}

	n.Repository = repo.URL
	n.Packaging = desc.Packaging
	if !strings.EqualFold(desc.Packaging, PackagingPOM) {
		n.DownloadURL = n.Dependency.URL(repo.URL, "jar")
	}
	observability.Resolve().OnNodeResolved(ctx, n.Location(), repo.URL, nil)

	if n.Depth+1 >= w.opts.MaxDepth && len(desc.Dependencies) > 0 {
		w.fail(ctx, n, errors.New(errors.ErrCodeCycle, "depth limit %d reached at %s", w.opts.MaxDepth, n.Location()))
		return nil
	}

	childRepos := repository.Merge(repos, desc.Repositories)
	rules = append(rules[:len(rules):len(rules)], n.Dependency.Exclusions)

	w.onPath[n.Location()] = true
	defer delete(w.onPath, n.Location())

	for _, d := range desc.Dependencies {
		child, ok := w.child(n, desc, d, rules)
		if !ok {
			continue
		}
		cn := w.tree.AddChild(n, child)
		switch {
		case child.Version == "":
			w.fail(ctx, cn, errors.New(errors.ErrCodeMetadataMalformed, "%s:%s declared by %s has no version",
				child.Group, child.Artifact, n.Location()))
			continue
		case child.Coordinate.Validate() != nil:
			w.fail(ctx, cn, errors.Wrap(errors.ErrCodeMetadataMalformed, child.Coordinate.Validate(),
				"%s declares an invalid coordinate %q", n.Location(), cn.Location()))
			continue
		case w.onPath[cn.Location()]:
			w.fail(ctx, cn, errors.New(errors.ErrCodeCycle, "%s depends on itself through %s",
				cn.Location(), strings.Join(w.tree.Path(n), " -> ")))
			continue
		}
		if err := w.expand(ctx, cn, childRepos, rules); err != nil {
			return err
		}
	}
	return nil
}

// child filters a declared dependency and builds the child Dependency.
func (w *walk) child(parent *Node, desc *Descriptor, d Declared, rules [][]Exclusion) (Dependency, bool) {
	scope := strings.ToLower(strings.TrimSpace(d.Scope))
	if scope == "test" || scope == "provided" || d.Optional {
		return Dependency{}, false
	}

	version := d.Version
	if version == "" {
		version = desc.ParentVersion
	}
	dep := Dependency{
		Coordinate:   coord.New(d.Group, d.Artifact, version),
		Exclusions:   declaredExclusions(d.Exclusions),
		Repositories: desc.Repositories,
	}

	for _, set := range rules {
		for _, e := range set {
			if e.Matches(dep.Coordinate, w.opts.Policy) {
				w.opts.Logger.Debug("excluded", "coord", dep.Location(), "by", e.String(), "under", parent.Location())
				return Dependency{}, false
			}
		}
	}
	return dep, true
}

func declaredExclusions(in []Exclusion) []Exclusion {
	if len(in) == 0 {
		return nil
	}
	out := make([]Exclusion, len(in))
	for i, e := range in {
		e.Declared = true
		out[i] = e
	}
	return out
}

// lookup tries repos in order and returns the first descriptor the
// interpreter accepts.
func (w *walk) lookup(ctx context.Context, c coord.Coordinate, repos []repository.Repository) (*Descriptor, repository.Repository, error) {
	if len(repos) == 0 {
		return nil, repository.Repository{}, errors.New(errors.ErrCodeMetadataUnreachable, "no repositories to search for %s", c)
	}

	var lastErr error
	malformed := false
	for _, repo := range repos {
		data, cached, err := w.fetch(ctx, repo, c)
		if err != nil {
			if ctx.Err() != nil {
				return nil, repo, ctx.Err()
			}
			w.opts.Logger.Debug("descriptor not found", "coord", c.Location(), "repo", repo.URL, "err", err)
			lastErr = err
			continue
		}

		desc, err := w.interp.Interpret(ctx, data, repo.URL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, repo, ctx.Err()
			}
			w.opts.Logger.Debug("descriptor rejected", "coord", c.Location(), "repo", repo.URL, "err", err)
			if cached {
				_ = w.opts.Cache.Delete(ctx, w.opts.Keyer.DescriptorKey(repo.URL, c.Location()))
			}
			lastErr, malformed = err, true
			continue
		}
		if !cached {
			w.store(ctx, repo, c, data)
		}
		return desc, repo, nil
	}

	code := errors.ErrCodeMetadataUnreachable
	if malformed {
		code = errors.ErrCodeMetadataMalformed
	}
	return nil, repository.Repository{}, errors.Wrap(code, lastErr,
		"no repository provided a usable descriptor for %s (tried %d)", c, len(repos))
}

func (w *walk) fetch(ctx context.Context, repo repository.Repository, c coord.Coordinate) ([]byte, bool, error) {
	key := w.opts.Keyer.DescriptorKey(repo.URL, c.Location())
	hooks := observability.Cache()
	if !w.opts.Refresh {
		if data, ok, err := w.opts.Cache.Get(ctx, key); err == nil && ok {
			hooks.OnCacheHit(ctx, "pom")
			return data, true, nil
		}
		hooks.OnCacheMiss(ctx, "pom")
	}
	data, err := w.fetcher.Fetch(ctx, c.URL(repo.URL, "pom"))
	if err == nil && len(data) == 0 {
		err = errors.New(errors.ErrCodeMetadataUnreachable, "empty descriptor")
	}
	return data, false, err
}

func (w *walk) store(ctx context.Context, repo repository.Repository, c coord.Coordinate, data []byte) {
	key := w.opts.Keyer.DescriptorKey(repo.URL, c.Location())
	if err := w.opts.Cache.Set(ctx, key, data, cache.TTLFor(c)); err != nil {
		w.opts.Logger.Debug("cache write failed", "coord", c.Location(), "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "pom", len(data))
}
