// Package config loads jarflow settings from TOML or YAML files, a .env
// file and JARFLOW_* environment variables.
//
// Precedence, lowest first: [Default], the config file, the environment,
// then command-line flags (applied by the caller through [Config.Merge]).
//
//	lib_dir = "libs"
//	parallelism = 8
//	batch_timeout = "30m"
//
//	[[repository]]
//	url = "https://repo1.maven.org/maven2/"
//
//	[[dependency]]
//	coordinate = "com.google.guava:guava:32.1.3-jre"
//	exclude = ["com.google.code.findbugs"]
//	relocate = [{ from = "com.google", to = "shaded.com.google" }]
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/jarflow/pkg/coord"
	"github.com/matzehuels/jarflow/pkg/deps"
	"github.com/matzehuels/jarflow/pkg/download"
	"github.com/matzehuels/jarflow/pkg/errors"
	"github.com/matzehuels/jarflow/pkg/mirror"
	"github.com/matzehuels/jarflow/pkg/repository"
	"github.com/matzehuels/jarflow/pkg/session"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

// History store backends.
const (
	StoreFile  = "file"
	StoreMongo = "mongo"
	StoreNone  = "none"
)

const appName = "jarflow"

// Config is the complete tool configuration.
type Config struct {
	LibDir            string        `toml:"lib_dir" yaml:"lib_dir"`
	Parallelism       int           `toml:"parallelism" yaml:"parallelism"`
	Concurrency       int           `toml:"concurrency" yaml:"concurrency"`
	BatchTimeout      time.Duration `toml:"batch_timeout" yaml:"batch_timeout"`
	MaxDepth          int           `toml:"max_depth" yaml:"max_depth"`
	ExclusionPolicy   string        `toml:"exclusion_policy" yaml:"exclusion_policy"`
	RedirectConflicts bool          `toml:"redirect_conflicts" yaml:"redirect_conflicts"`

	Repositories []repository.Repository `toml:"repository" yaml:"repositories"`
	Dependencies []Dependency            `toml:"dependency" yaml:"dependencies"`

	Cache  CacheConfig   `toml:"cache" yaml:"cache"`
	Mirror mirror.Config `toml:"mirror" yaml:"mirror"`
	Store  StoreConfig   `toml:"store" yaml:"store"`
}

// Dependency is a root declared in a config file.
type Dependency struct {
	Coordinate string            `toml:"coordinate" yaml:"coordinate"`
	Exclude    []string          `toml:"exclude" yaml:"exclude"`
	Relocate   []deps.Relocation `toml:"relocate" yaml:"relocate"`
	Repository []string          `toml:"repository" yaml:"repository"`
}

// CacheConfig selects the descriptor cache backend.
type CacheConfig struct {
	Backend   string `toml:"backend" yaml:"backend"` // file, redis or none
	Dir       string `toml:"dir" yaml:"dir"`
	LRUSize   int    `toml:"lru_size" yaml:"lru_size"`
	RedisAddr string `toml:"redis_addr" yaml:"redis_addr"`
	RedisDB   int    `toml:"redis_db" yaml:"redis_db"`
	Password  string `toml:"redis_password" yaml:"redis_password"`
	Scope     string `toml:"scope" yaml:"scope"` // key prefix for shared backends
}

// StoreConfig selects where resolution history is kept.
type StoreConfig struct {
	Backend  string `toml:"backend" yaml:"backend"` // file, mongo or none
	Dir      string `toml:"dir" yaml:"dir"`
	MongoURI string `toml:"mongo_uri" yaml:"mongo_uri"`
	Database string `toml:"database" yaml:"database"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		LibDir:          session.DefaultLibDir,
		Parallelism:     download.DefaultParallelism,
		Concurrency:     1,
		BatchTimeout:    download.DefaultBatchTimeout,
		MaxDepth:        deps.DefaultMaxDepth,
		ExclusionPolicy: deps.MatchAny.String(),
		Cache: CacheConfig{
			Backend: CacheFile,
			LRUSize: 512,
		},
		Store: StoreConfig{Backend: StoreFile},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.LibDir) == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "lib_dir is required")
	}
	if c.Parallelism <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "parallelism must be positive")
	}
	if c.Concurrency <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "concurrency must be positive")
	}
	if c.BatchTimeout <= 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "batch_timeout must be positive")
	}
	if _, err := deps.ParseMatchPolicy(c.ExclusionPolicy); err != nil {
		return err
	}
	for _, r := range c.Repositories {
		if r.URL == "" {
			if _, ok := repository.Lookup(r.Name); !ok {
				return errors.New(errors.ErrCodeInvalidConfig, "repository %q has no url", r.Name)
			}
			continue
		}
		if err := errors.ValidateURL(r.URL); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "repository %q", r.URL)
		}
	}
	for _, d := range c.Dependencies {
		if _, err := d.Build(); err != nil {
			return err
		}
	}
	switch c.Cache.Backend {
	case CacheFile, CacheNone, "":
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "cache.redis_addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown cache backend %q", c.Cache.Backend)
	}
	switch c.Store.Backend {
	case StoreFile, StoreNone, "":
	case StoreMongo:
		if c.Store.MongoURI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "store.mongo_uri is required for the mongo backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig, "unknown store backend %q", c.Store.Backend)
	}
	if c.Mirror.Enabled() && c.Mirror.Bucket == "" {
		return errors.New(errors.ErrCodeInvalidConfig, "mirror.bucket is required when mirror.endpoint is set")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored; lists are appended.
func (c Config) Merge(override Config) Config {
	if override.LibDir != "" {
		c.LibDir = override.LibDir
	}
	if override.Parallelism != 0 {
		c.Parallelism = override.Parallelism
	}
	if override.Concurrency != 0 {
		c.Concurrency = override.Concurrency
	}
	if override.BatchTimeout != 0 {
		c.BatchTimeout = override.BatchTimeout
	}
	if override.MaxDepth != 0 {
		c.MaxDepth = override.MaxDepth
	}
	if override.ExclusionPolicy != "" {
		c.ExclusionPolicy = override.ExclusionPolicy
	}
	if override.RedirectConflicts {
		c.RedirectConflicts = true
	}
	if len(override.Repositories) > 0 {
		c.Repositories = append(append([]repository.Repository(nil), c.Repositories...), override.Repositories...)
	}
	if len(override.Dependencies) > 0 {
		c.Dependencies = append(append([]Dependency(nil), c.Dependencies...), override.Dependencies...)
	}

	if override.Cache.Backend != "" {
		c.Cache.Backend = override.Cache.Backend
	}
	if override.Cache.Dir != "" {
		c.Cache.Dir = override.Cache.Dir
	}
	if override.Cache.LRUSize != 0 {
		c.Cache.LRUSize = override.Cache.LRUSize
	}
	if override.Cache.RedisAddr != "" {
		c.Cache.RedisAddr = override.Cache.RedisAddr
	}
	if override.Cache.RedisDB != 0 {
		c.Cache.RedisDB = override.Cache.RedisDB
	}
	if override.Cache.Password != "" {
		c.Cache.Password = override.Cache.Password
	}
	if override.Cache.Scope != "" {
		c.Cache.Scope = override.Cache.Scope
	}

	if override.Mirror.Endpoint != "" {
		c.Mirror.Endpoint = override.Mirror.Endpoint
	}
	if override.Mirror.Region != "" {
		c.Mirror.Region = override.Mirror.Region
	}
	if override.Mirror.AccessKey != "" {
		c.Mirror.AccessKey = override.Mirror.AccessKey
	}
	if override.Mirror.SecretKey != "" {
		c.Mirror.SecretKey = override.Mirror.SecretKey
	}
	if override.Mirror.Bucket != "" {
		c.Mirror.Bucket = override.Mirror.Bucket
	}
	if override.Mirror.Prefix != "" {
		c.Mirror.Prefix = override.Mirror.Prefix
	}
	if override.Mirror.UseSSL {
		c.Mirror.UseSSL = true
	}

	if override.Store.Backend != "" {
		c.Store.Backend = override.Store.Backend
	}
	if override.Store.Dir != "" {
		c.Store.Dir = override.Store.Dir
	}
	if override.Store.MongoURI != "" {
		c.Store.MongoURI = override.Store.MongoURI
	}
	if override.Store.Database != "" {
		c.Store.Database = override.Store.Database
	}
	return c
}

// Policy returns the parsed exclusion policy.
func (c Config) Policy() deps.MatchPolicy {
	p, _ := deps.ParseMatchPolicy(c.ExclusionPolicy)
	return p
}

// Repos returns the configured repositories, resolving well-known names.
// Maven Central is used when none are configured.
func (c Config) Repos() []repository.Repository {
	var out []repository.Repository
	for _, r := range c.Repositories {
		if r.URL == "" {
			if known, ok := repository.Lookup(r.Name); ok {
				out = append(out, known)
			}
			continue
		}
		out = append(out, repository.New(r.URL, r.Name))
	}
	if len(out) == 0 {
		return []repository.Repository{repository.MavenCentral()}
	}
	return repository.Merge(out)
}

// Roots builds the declared root dependencies.
func (c Config) Roots() ([]deps.Dependency, error) {
	out := make([]deps.Dependency, 0, len(c.Dependencies))
	for _, d := range c.Dependencies {
		dep, err := d.Build()
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}

// Build converts the declaration into a root dependency.
func (d Dependency) Build() (deps.Dependency, error) {
	c, err := coord.Parse(d.Coordinate)
	if err != nil {
		return deps.Dependency{}, err
	}
	var opts []deps.Option
	for _, s := range d.Exclude {
		e, err := deps.ParseExclusion(s)
		if err != nil {
			return deps.Dependency{}, err
		}
		opts = append(opts, deps.WithExclusion(e))
	}
	for _, r := range d.Relocate {
		if r.From == "" || r.To == "" {
			return deps.Dependency{}, errors.New(errors.ErrCodeInvalidConfig, "%s: relocation needs from and to", d.Coordinate)
		}
		opts = append(opts, deps.Relocate(r.From, r.To))
	}
	for _, u := range d.Repository {
		repo, err := ParseRepository(u)
		if err != nil {
			return deps.Dependency{}, err
		}
		opts = append(opts, deps.WithRepositories(repo))
	}
	return deps.FromCoordinate(c, opts...), nil
}

// ParseRepository accepts a well-known repository name or an http(s) URL.
func ParseRepository(s string) (repository.Repository, error) {
	s = strings.TrimSpace(s)
	if repo, ok := repository.Lookup(s); ok {
		return repo, nil
	}
	if err := errors.ValidateURL(s); err != nil {
		return repository.Repository{}, err
	}
	return repository.New(s, ""), nil
}

// ParseRelocation parses "from=to".
func ParseRelocation(s string) (deps.Relocation, error) {
	from, to, ok := strings.Cut(s, "=")
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if !ok || from == "" || to == "" {
		return deps.Relocation{}, errors.New(errors.ErrCodeInvalidInput, "invalid relocation %q (expected from=to)", s)
	}
	return deps.Relocation{From: from, To: to}, nil
}

// CacheDir returns the descriptor cache directory, following XDG
// (~/.cache/jarflow/) unless cache.dir is set.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
