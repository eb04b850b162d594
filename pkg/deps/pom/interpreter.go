package pom

import (
	"context"
	"strings"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matzehuels/jarflow/pkg/cache"
	"github.com/matzehuels/jarflow/pkg/coord"
	"github.com/matzehuels/jarflow/pkg/deps"
	"github.com/matzehuels/jarflow/pkg/errors"
	"github.com/matzehuels/jarflow/pkg/observability"
	"github.com/matzehuels/jarflow/pkg/repository"
)

const (
	DefaultMaxParentDepth = 16  // Maximum <parent> chain length
	DefaultLRUSize        = 256 // Memoized parent models
)

// Options configures an [Interpreter].
type Options struct {
	// Fallback repositories are searched for parents and imported BOMs
	// after the repository the child came from. Default: Maven Central.
	Fallback []repository.Repository

	// Cache stores raw parent documents; nil disables it.
	Cache cache.Cache
	Keyer cache.Keyer

	LRUSize        int
	MaxParentDepth int

	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.Fallback == nil {
		o.Fallback = []repository.Repository{repository.MavenCentral()}
	}
	if o.Cache == nil {
		o.Cache = cache.NewNullCache()
	}
	if o.Keyer == nil {
		o.Keyer = cache.NewDefaultKeyer()
	}
	if o.LRUSize <= 0 {
		o.LRUSize = DefaultLRUSize
	}
	if o.MaxParentDepth <= 0 {
		o.MaxParentDepth = DefaultMaxParentDepth
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Interpreter implements [deps.Interpreter] for POM documents. It is safe
// for concurrent use.
type Interpreter struct {
	fetcher deps.Fetcher
	opts    Options
	models  *lru.Cache[string, *model]
}

var _ deps.Interpreter = (*Interpreter)(nil)

// New creates an interpreter that fetches parents and BOMs with f.
func New(f deps.Fetcher, opts Options) (*Interpreter, error) {
	opts = opts.withDefaults()
	models, err := lru.New[string, *model](opts.LRUSize)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parent cache")
	}
	return &Interpreter{fetcher: f, opts: opts, models: models}, nil
}

// Interpret parses text and returns its effective descriptor. baseURL is
// the repository the document came from.
func (i *Interpreter) Interpret(ctx context.Context, text []byte, baseURL string) (*deps.Descriptor, error) {
	p, err := parse(text)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadataMalformed, err, "parse descriptor from %s", baseURL)
	}
	m, err := i.build(ctx, p, baseURL, 0)
	if err != nil {
		return nil, err
	}
	if m.groupID == "" || m.artifactID == "" || m.version == "" {
		return nil, errors.New(errors.ErrCodeMetadataMalformed,
			"descriptor from %s lacks coordinates (%s:%s:%s)", baseURL, m.groupID, m.artifactID, m.version)
	}
	return i.describe(ctx, m, baseURL)
}

// build merges p with its parent chain. depth counts parents followed so
// far, including those followed for BOM imports.
func (i *Interpreter) build(ctx context.Context, p *project, baseURL string, depth int) (*model, error) {
	if p.Parent == nil {
		return newModel(p, nil), nil
	}
	if depth >= i.opts.MaxParentDepth {
		return nil, errors.New(errors.ErrCodeCycle, "parent chain of %s:%s exceeds %d levels",
			p.GroupID, p.ArtifactID, i.opts.MaxParentDepth)
	}
	ref := coord.New(p.Parent.GroupID, p.Parent.ArtifactID, p.Parent.Version)
	parent, err := i.parent(ctx, ref, baseURL, depth+1)
	if err != nil {
		return nil, err
	}
	return newModel(p, parent), nil
}

func (i *Interpreter) parent(ctx context.Context, c coord.Coordinate, baseURL string, depth int) (*model, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMetadataMalformed, err, "invalid parent reference")
	}
	if m, ok := i.models.Get(c.Location()); ok {
		return m, nil
	}
	data, repoURL, err := i.fetch(ctx, c, baseURL)
	if err != nil {
		return nil, err
	}
	p, err := parse(data)
	if err != nil {
		_ = i.opts.Cache.Delete(ctx, i.opts.Keyer.DescriptorKey(repoURL, c.Location()))
		return nil, errors.Wrap(errors.ErrCodeMetadataMalformed, err, "parse parent %s", c)
	}
	m, err := i.build(ctx, p, repoURL, depth)
	if err != nil {
		return nil, err
	}
	i.models.Add(c.Location(), m)
	return m, nil
}

// fetch retrieves c's document from baseURL, then from the fallbacks. It
// returns the repository that served it.
func (i *Interpreter) fetch(ctx context.Context, c coord.Coordinate, baseURL string) ([]byte, string, error) {
	repos := repository.Merge([]repository.Repository{repository.New(baseURL, "")}, i.opts.Fallback)
	hooks := observability.Cache()

	var lastErr error
	for _, repo := range repos {
		key := i.opts.Keyer.DescriptorKey(repo.URL, c.Location())
		if data, ok, err := i.opts.Cache.Get(ctx, key); err == nil && ok {
			hooks.OnCacheHit(ctx, "pom")
			return data, repo.URL, nil
		}
		hooks.OnCacheMiss(ctx, "pom")

		data, err := i.fetcher.Fetch(ctx, c.URL(repo.URL, "pom"))
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", ctx.Err()
			}
			i.opts.Logger.Debug("parent not found", "coord", c.Location(), "repo", repo.URL, "err", err)
			lastErr = err
			continue
		}
		if err := i.opts.Cache.Set(ctx, key, data, cache.TTLFor(c)); err == nil {
			hooks.OnCacheSet(ctx, "pom", len(data))
		}
		return data, repo.URL, nil
	}
	return nil, "", errors.Wrap(errors.ErrCodeMetadataUnreachable, lastErr, "fetch %s", c)
}

// describe interpolates m and applies dependency management.
func (i *Interpreter) describe(ctx context.Context, m *model, baseURL string) (*deps.Descriptor, error) {
	expand := m.expander()

	managed, err := i.management(ctx, m, baseURL, 0)
	if err != nil {
		return nil, err
	}

	desc := &deps.Descriptor{
		Coordinate:    coord.New(expand(m.groupID), expand(m.artifactID), expand(m.version)),
		Packaging:     expand(m.packaging),
		ParentVersion: expand(m.parentVersion),
	}
	if desc.Packaging == "" {
		desc.Packaging = "jar"
	}
	if unresolved(desc.ParentVersion) {
		desc.ParentVersion = ""
	}

	for _, d := range m.dependencies {
		d = expandDependency(d, expand)
		if unresolved(d.GroupID) || unresolved(d.ArtifactID) || d.GroupID == "" || d.ArtifactID == "" {
			i.opts.Logger.Debug("skipping dependency with unresolved coordinates", "dep", d.key(), "in", desc.Coordinate.Location())
			continue
		}
		if mg, ok := managed[d.key()]; ok {
			if d.Version == "" {
				d.Version = mg.Version
			}
			if d.Scope == "" {
				d.Scope = mg.Scope
			}
			if len(d.Exclusions) == 0 {
				d.Exclusions = mg.Exclusions
			}
		}
		if unresolved(d.Version) {
			d.Version = ""
		}
		desc.Dependencies = append(desc.Dependencies, declared(d))
	}

	for _, r := range m.repositories {
		url := expand(r.URL)
		if unresolved(url) || errors.ValidateURL(url) != nil {
			continue
		}
		desc.Repositories = append(desc.Repositories, repository.New(url, r.ID))
	}
	desc.Repositories = repository.Merge(desc.Repositories)
	return desc, nil
}

// management returns the effective managed dependencies keyed by
// group:artifact. Local entries win over imported BOMs, earlier imports
// over later ones. depth counts nested imports.
func (i *Interpreter) management(ctx context.Context, m *model, baseURL string, depth int) (map[string]dependency, error) {
	expand := m.expander()
	out := make(map[string]dependency)
	var imports []dependency
	for _, d := range m.managed {
		d = expandDependency(d, expand)
		if strings.EqualFold(d.Scope, "import") && (d.Type == "pom" || d.Type == "") {
			imports = append(imports, d)
			continue
		}
		if _, ok := out[d.key()]; !ok {
			out[d.key()] = d
		}
	}

	if len(imports) > 0 && depth >= i.opts.MaxParentDepth {
		i.opts.Logger.Warn("bom imports nested too deeply", "depth", depth)
		return out, nil
	}
	for _, imp := range imports {
		bom, err := i.importBOM(ctx, imp, baseURL, depth+1)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			i.opts.Logger.Warn("bom import failed", "bom", imp.key()+":"+imp.Version, "err", err)
			continue
		}
		for k, d := range bom {
			if _, ok := out[k]; !ok {
				out[k] = d
			}
		}
	}
	return out, nil
}

func (i *Interpreter) importBOM(ctx context.Context, d dependency, baseURL string, depth int) (map[string]dependency, error) {
	c := coord.New(d.GroupID, d.ArtifactID, d.Version)
	m, err := i.parent(ctx, c, baseURL, 0)
	if err != nil {
		return nil, err
	}
	return i.management(ctx, m, baseURL, depth)
}

func expandDependency(d dependency, expand func(string) string) dependency {
	d.GroupID = expand(d.GroupID)
	d.ArtifactID = expand(d.ArtifactID)
	d.Version = expand(d.Version)
	d.Type = expand(d.Type)
	d.Scope = expand(d.Scope)
	d.Optional = expand(d.Optional)
	if len(d.Exclusions) > 0 {
		ex := make([]exclusion, len(d.Exclusions))
		for j, e := range d.Exclusions {
			ex[j] = exclusion{GroupID: expand(strings.TrimSpace(e.GroupID)), ArtifactID: expand(strings.TrimSpace(e.ArtifactID))}
		}
		d.Exclusions = ex
	}
	return d
}

func declared(d dependency) deps.Declared {
	out := deps.Declared{
		Group:    d.GroupID,
		Artifact: d.ArtifactID,
		Version:  d.Version,
		Scope:    d.Scope,
		Optional: strings.EqualFold(d.Optional, "true"),
	}
	for _, e := range d.Exclusions {
		rule := deps.Exclusion{Group: e.GroupID, Artifact: e.ArtifactID, Declared: true}
		if !rule.IsEmpty() {
			out.Exclusions = append(out.Exclusions, rule)
		}
	}
	return out
}
