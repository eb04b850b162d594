package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/jarflow/internal/config"
	"github.com/matzehuels/jarflow/pkg/buildinfo"
	"github.com/matzehuels/jarflow/pkg/cache"
	"github.com/matzehuels/jarflow/pkg/deps"
	"github.com/matzehuels/jarflow/pkg/deps/pom"
	"github.com/matzehuels/jarflow/pkg/download"
	"github.com/matzehuels/jarflow/pkg/history"
	"github.com/matzehuels/jarflow/pkg/observability"
	"github.com/matzehuels/jarflow/pkg/session"
	"github.com/matzehuels/jarflow/pkg/transport"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "jarflow"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	trace      bool
	noCache    bool
	cfg        config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "jarflow resolves Maven dependencies and fetches them in parallel",
		Long:         `jarflow resolves a coordinate's transitive dependency tree against Maven-layout repositories, flags version conflicts and downloads the archives with parallel byte-range requests.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default: ./jarflow.toml, .yaml or .yml)")
	flags.BoolVar(&c.trace, "trace", false, "log every resolve, download, cache and HTTP event")
	flags.BoolVar(&c.noCache, "no-cache", false, "disable the descriptor cache")

	root.AddCommand(c.resolveCommand())
	root.AddCommand(c.fetchCommand())
	root.AddCommand(c.downloadCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.classesCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.historyCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration and attaches the logger to the command
// context. It runs before every subcommand.
func (c *CLI) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.noCache {
		cfg.Cache.Backend = config.CacheNone
	}
	c.cfg = cfg

	if c.trace {
		c.Logger.SetLevel(log.DebugLevel)
		observability.NewLogHooks(c.Logger).Register()
	}
	cmd.SetContext(withLogger(cmd.Context(), c.Logger))
	return nil
}

// =============================================================================
// Workspace - wired components for one command
// =============================================================================

// workspace is everything a command needs to resolve and install.
type workspace struct {
	cfg        config.Config
	cache      cache.Cache
	client     *transport.Client
	resolver   *deps.Resolver
	downloader *download.Downloader
	session    *session.Session
}

// open wires the configured components. progress, when non-nil, receives
// every downloader event.
func (c *CLI) open(ctx context.Context, cfg config.Config, progress func(download.Event)) (*workspace, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := loggerFromContext(ctx)

	descCache, err := cfg.OpenCache(ctx)
	if err != nil {
		return nil, err
	}

	client := transport.New(transport.Options{})
	repos := cfg.Repos()
	keyer := cfg.Keyer()

	interp, err := pom.New(client, pom.Options{
		Fallback: repos,
		Cache:    descCache,
		Keyer:    keyer,
		Logger:   logger,
	})
	if err != nil {
		_ = descCache.Close()
		return nil, err
	}

	resolver := deps.NewResolver(client, interp, deps.Options{
		MaxDepth: cfg.MaxDepth,
		Policy:   cfg.Policy(),
		Cache:    descCache,
		Keyer:    keyer,
		Logger:   logger,
	})
	downloader := download.New(client, download.Options{
		Parallelism:  cfg.Parallelism,
		BatchTimeout: cfg.BatchTimeout,
		Progress:     progress,
		Logger:       logger,
	})
	s := session.New(resolver, downloader, session.Options{
		LibDir:      cfg.LibDir,
		Parallelism: cfg.Parallelism,
		Concurrency: cfg.Concurrency,
		Redirect:    cfg.RedirectConflicts,
		Logger:      logger,
	})
	s.AddRepositories(repos...)

	return &workspace{
		cfg:        cfg,
		cache:      descCache,
		client:     client,
		resolver:   resolver,
		downloader: downloader,
		session:    s,
	}, nil
}

func (w *workspace) Close() error {
	return w.cache.Close()
}

// record stores a resolution in the configured history store. Failures
// are logged, never returned.
func (c *CLI) record(ctx context.Context, w *workspace, roots []deps.Dependency, res *deps.Result, took time.Duration) string {
	logger := loggerFromContext(ctx)
	store, err := w.cfg.OpenStore(ctx)
	if err != nil {
		logger.Warn("history unavailable", "err", err)
		return ""
	}
	if store == nil {
		return ""
	}
	defer store.Close()

	repos := w.session.Repositories()
	urls := make([]string, len(repos))
	for i, r := range repos {
		urls[i] = r.URL
	}
	rec := history.NewRecord(w.session.ID, roots, urls, res, took)
	if err := store.Put(ctx, rec); err != nil {
		logger.Warn("history write failed", "err", err)
		return ""
	}
	return rec.ID
}
