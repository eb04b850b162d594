package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/jarflow/internal/config"
	"github.com/matzehuels/jarflow/pkg/coord"
	"github.com/matzehuels/jarflow/pkg/deps"
	"github.com/matzehuels/jarflow/pkg/download"
	"github.com/matzehuels/jarflow/pkg/errors"
	"github.com/matzehuels/jarflow/pkg/mirror"
	"github.com/matzehuels/jarflow/pkg/session"
)

type fetchFlags struct {
	rootFlags
	libDir      string
	parallelism int
	concurrency int
	redirect    bool
	tui         bool
	mirror      bool
	noHistory   bool
}

// fetchCommand creates the fetch command.
func (c *CLI) fetchCommand() *cobra.Command {
	var f fetchFlags
	cmd := &cobra.Command{
		Use:   "fetch [group:artifact:version...]",
		Short: "Resolve and download every artifact of the tree",
		Long: `Fetch resolves the roots, then downloads each distinct artifact into the library
directory with parallel range requests. Archives already on disk are reused. Roots
with relocation rules also get a relocated copy next to the original.`,
		Example: `  jarflow fetch com.google.guava:guava:32.1.3-jre -p 8
  jarflow fetch org.ow2.asm:asm:9.6 --relocate org.objectweb=shaded.org.objectweb
  jarflow fetch --tui --mirror`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runFetch(cmd, args, f)
		},
	}
	f.register(cmd)
	flags := cmd.Flags()
	flags.StringVarP(&f.libDir, "lib-dir", "o", "", "library directory (default from config: libs)")
	flags.IntVarP(&f.parallelism, "parallelism", "p", 0, "range requests per archive")
	flags.IntVarP(&f.concurrency, "concurrency", "c", 0, "archives downloaded at once")
	flags.BoolVar(&f.redirect, "redirect", false, "install only the newest version of conflicting artifacts")
	flags.BoolVar(&f.tui, "tui", false, "show live chunk progress")
	flags.BoolVar(&f.mirror, "mirror", false, "publish fetched archives to the configured S3 mirror")
	flags.BoolVar(&f.noHistory, "no-history", false, "do not record this resolution")
	return cmd
}

func (f fetchFlags) config(base config.Config, args []string) (config.Config, error) {
	cfg, err := f.apply(base, args)
	if err != nil {
		return cfg, err
	}
	return cfg.Merge(config.Config{
		LibDir:            f.libDir,
		Parallelism:       f.parallelism,
		Concurrency:       f.concurrency,
		RedirectConflicts: f.redirect,
	}), nil
}

func (c *CLI) runFetch(cmd *cobra.Command, args []string, f fetchFlags) error {
	ctx := cmd.Context()
	cfg, err := f.config(c.cfg, args)
	if err != nil {
		return err
	}
	roots, err := cfg.Roots()
	if err != nil {
		return err
	}

	var m *mirror.Mirror
	if f.mirror {
		if !cfg.Mirror.Enabled() {
			return errors.New(errors.ErrCodeInvalidConfig, "--mirror needs a [mirror] section or JARFLOW_MIRROR_ENDPOINT")
		}
		if m, err = mirror.New(cfg.Mirror, loggerFromContext(ctx)); err != nil {
			return err
		}
	}

	var res *session.InstallResult
	var w *workspace
	prog := newProgress(loggerFromContext(ctx))
	if f.tui {
		res, w, err = c.installWithTUI(ctx, cfg, roots)
	} else {
		res, w, err = c.install(ctx, cfg, roots)
	}
	if w != nil {
		defer w.Close()
	}
	if err != nil {
		return err
	}

	var id string
	if !f.noHistory {
		id = c.record(ctx, w, roots, res.Resolution, prog.elapsed())
	}

	printInstallResult(res, cfg.LibDir)
	if m != nil {
		publish(ctx, w, m, res)
	}
	if id != "" {
		printNextStep("Saved as", "jarflow history show "+id)
	}

	if failed := res.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d of %d artifacts failed", len(failed), len(res.Artifacts))
	}
	return nil
}

// install runs a plain install with a spinner.
func (c *CLI) install(ctx context.Context, cfg config.Config, roots []deps.Dependency) (*session.InstallResult, *workspace, error) {
	counter := &download.Counter{}
	w, err := c.open(ctx, cfg, counter.Observe)
	if err != nil {
		return nil, nil, err
	}

	spinner := newSpinner(ctx, "Fetching "+rootNames(roots)+"...")
	spinner.Start()
	res, err := w.session.Install(ctx, roots...)
	spinner.Stop()
	if err != nil {
		return nil, w, err
	}

	done, failed, bytes := counter.Snapshot()
	loggerFromContext(ctx).Debug("chunks", "done", done, "failed", failed, "bytes", download.FormatSize(bytes))
	return res, w, nil
}

func printInstallResult(res *session.InstallResult, libDir string) {
	var downloaded, reused, skipped int
	var bytes int64
	for _, a := range res.Artifacts {
		switch {
		case a.Err != nil:
			printError("%s %s", a.Location, StyleDim.Render(errors.UserMessage(a.Err)))
		case a.Skipped:
			skipped++
		case a.Downloaded:
			downloaded++
			bytes += a.Download.Size
			detail := download.FormatSize(a.Download.Size)
			if !a.Download.Ranged {
				detail += ", sequential"
			}
			printSuccess("%s %s", a.Location, StyleDim.Render(detail))
		default:
			reused++
		}
		if a.Relocated {
			printFile(a.Loaded)
		}
	}

	printStats(res.Resolution)
	printFailures(res.Resolution.Failures)
	printNewline()
	printKeyValue("downloaded", fmt.Sprintf("%d (%s)", downloaded, download.FormatSize(bytes)))
	printKeyValue("reused", fmt.Sprint(reused))
	if skipped > 0 {
		printKeyValue("skipped", fmt.Sprint(skipped))
	}
	printKeyValue("library", libDir)
}

// publish mirrors every installed archive and its descriptor.
func publish(ctx context.Context, w *workspace, m *mirror.Mirror, res *session.InstallResult) {
	logger := loggerFromContext(ctx)
	nodes := make(map[string]*deps.Node)
	for _, n := range res.Resolution.Tree.Flatten() {
		if _, ok := nodes[n.Location()]; !ok {
			nodes[n.Location()] = n
		}
	}

	var published, present int
	for _, a := range res.Artifacts {
		if a.Err != nil || a.Skipped {
			continue
		}
		c, err := coord.Parse(a.Location)
		if err != nil {
			continue
		}
		if ok, err := m.Has(ctx, c); err != nil {
			logger.Debug("mirror lookup failed", "artifact", a.Location, "err", err)
		} else if ok {
			present++
			continue
		}
		if _, err := m.PublishArchive(ctx, c, a.Path); err != nil {
			printWarning("mirror %s: %v", a.Location, err)
			continue
		}
		if n := nodes[a.Location]; n != nil && n.Repository != "" {
			data, err := w.client.Fetch(ctx, c.URL(n.Repository, "pom"))
			if err == nil {
				_, err = m.PublishDescriptor(ctx, c, data)
			}
			if err != nil {
				logger.Warn("descriptor not mirrored", "artifact", a.Location, "err", err)
			}
		}
		published++
	}
	printSuccess("Mirrored %d artifacts to s3://%s", published, m.Bucket())
	if present > 0 {
		printKeyValue("already mirrored", fmt.Sprint(present))
	}
}
