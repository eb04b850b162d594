package session

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/jarflow/pkg/deps"
	"github.com/matzehuels/jarflow/pkg/download"
	"github.com/matzehuels/jarflow/pkg/errors"
	"github.com/matzehuels/jarflow/pkg/jar"
)

// Installed is the outcome for one artifact.
type Installed struct {
	Location string
	Path     string // archive on disk
	Loaded   string // path handed to the loader; the relocated copy if any

	Downloaded bool // fetched during this call
	Relocated  bool
	Skipped    bool // already loaded in this session

	Download *download.Result
	Err      error
}

// InstallResult is the outcome of [Session.Install].
type InstallResult struct {
	Resolution *deps.Result
	Artifacts  []Installed
}

// Failed returns the artifacts that could not be installed.
func (r *InstallResult) Failed() []Installed {
	var out []Installed
	for _, a := range r.Artifacts {
		if a.Err != nil {
			out = append(out, a)
		}
	}
	return out
}

// Install resolves roots, then downloads, relocates and loads every
// distinct artifact of the tree that this session has not loaded yet.
// Archives already present in the library directory are not downloaded
// again. Failures are reported per artifact; the returned error is only
// set when ctx ends.
func (s *Session) Install(ctx context.Context, roots ...deps.Dependency) (*InstallResult, error) {
	res, err := s.Resolve(ctx, roots...)
	if err != nil {
		return nil, err
	}
	for _, f := range res.Failures {
		s.opts.Logger.Warn("unresolved dependency", "dep", f.Location, "err", errors.UserMessage(f.Err))
	}

	nodes := deps.Artifacts(res.Tree, s.opts.Redirect)
	out := &InstallResult{Resolution: res, Artifacts: make([]Installed, len(nodes))}

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, n := range nodes {
		g.Go(func() error {
			out.Artifacts[i] = s.install(ctx, n)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Session) install(ctx context.Context, n *deps.Node) Installed {
	d := n.Dependency
	a := Installed{Location: d.Location()}
	path, err := s.library.Path(d.Coordinate)
	if err != nil {
		a.Err = err
		return a
	}
	a.Path = path

	if !s.claim(a.Location) {
		a.Skipped = true
		return a
	}
	ok := false
	defer func() { s.release(d, ok) }()

	if err := ctx.Err(); err != nil {
		a.Err = err
		return a
	}

	if !s.library.Has(d.Coordinate) {
		s.opts.Logger.Info("downloading", "artifact", a.Location, "url", n.DownloadURL)
		res, err := s.downloader.Download(ctx, n.DownloadURL, a.Path, s.opts.Parallelism)
		a.Download = res
		if err != nil {
			a.Err = err
			return a
		}
		a.Downloaded = true
		s.opts.Logger.Debug("downloaded", "artifact", a.Location, "size", download.FormatSize(res.Size), "took", res.Duration)
	}

	a.Loaded = a.Path
	if d.HasRelocations() {
		dst, err := s.library.RelocatedPath(d.Coordinate)
		if err != nil {
			a.Err = err
			return a
		}
		if err := s.opts.Relocator.Relocate(a.Path, dst, d.Relocations); err != nil {
			a.Err = errors.Wrap(errors.ErrCodeInternal, err, "relocate %s", a.Location)
			return a
		}
		a.Loaded, a.Relocated = dst, true
	}

	if err := s.opts.Loader.Load(a.Loaded); err != nil {
		a.Err = errors.Wrap(errors.ErrCodeInternal, err, "load %s", a.Location)
		return a
	}
	ok = true
	return a
}

// SearchClasses lists classes starting with prefix across every loaded
// archive, in load order. For each dependency the plain archive is read
// when present, else the relocated copy.
func (s *Session) SearchClasses(prefix string) ([]string, error) {
	var out []string
	for _, d := range s.Loaded() {
		path, ok := s.library.Locate(d.Coordinate)
		if !ok {
			continue
		}
		classes, err := jar.Classes(path, prefix)
		if err != nil {
			return out, err
		}
		out = append(out, classes...)
	}
	return out, nil
}
