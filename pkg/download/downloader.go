package download

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/jarflow/pkg/errors"
	"github.com/matzehuels/jarflow/pkg/observability"
	"github.com/matzehuels/jarflow/pkg/transport"
)

const (
	DefaultParallelism  = 4         // Concurrent range requests per file
	DefaultBatchTimeout = time.Hour // Ceiling for one whole download
)

// TempSuffix is appended to the destination path to name the part directory.
const TempSuffix = "_temp"

// Options configures a [Downloader].
type Options struct {
	// Parallelism is used when Download is called with parallelism <= 0.
	Parallelism int

	// BatchTimeout bounds one Download call including the merge.
	BatchTimeout time.Duration

	// KeepParts leaves the part directory in place after a failure.
	KeepParts bool

	// Progress receives events as chunks complete. It may be called from
	// several goroutines at once.
	Progress func(Event)

	Logger *log.Logger
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.Parallelism <= 0 {
		o.Parallelism = DefaultParallelism
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = DefaultBatchTimeout
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// EventKind identifies a progress [Event].
type EventKind int

const (
	EventStart       EventKind = iota // Probe done; Bytes is the total size or -1
	EventChunkDone                    // Index finished; Bytes were written
	EventChunkFailed                  // Index failed; Err is set
	EventMerged                       // Destination written; Bytes is its size
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "start"
	case EventChunkDone:
		return "chunk-done"
	case EventChunkFailed:
		return "chunk-failed"
	case EventMerged:
		return "merged"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event reports download progress.
type Event struct {
	Kind   EventKind
	URL    string
	Index  int
	Chunks int
	Bytes  int64
	Err    error
}

// Task is one range request and its outcome.
type Task struct {
	Range
	Part  string // part file path
	Bytes int64  // bytes written
	Err   error
}

// FailedChunk records a task that did not complete.
type FailedChunk struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}

// Result describes one Download call.
type Result struct {
	URL         string        `json:"url"`
	Dest        string        `json:"dest"`
	Size        int64         `json:"size"` // bytes written to Dest
	Parallelism int           `json:"parallelism"`
	Ranged      bool          `json:"ranged"` // false after a sequential fallback
	Tasks       []Task        `json:"-"`
	Failed      []FailedChunk `json:"failed,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// OK reports whether the destination was written.
func (r *Result) OK() bool { return len(r.Failed) == 0 }

// Downloader fetches files with concurrent range requests. It holds no
// per-download state and is safe for concurrent use.
type Downloader struct {
	client *transport.Client
	opts   Options
}

// New creates a downloader that issues requests through client.
func New(client *transport.Client, opts Options) *Downloader {
	return &Downloader{client: client, opts: opts.WithDefaults()}
}

// Options returns the effective options.
func (d *Downloader) Options() Options { return d.opts }

// Download fetches url into dest using up to parallelism concurrent range
// requests. The returned Result is non-nil whenever err is produced by the
// transfer itself; callers inspect Result.Failed for per-chunk errors.
func (d *Downloader) Download(ctx context.Context, url, dest string, parallelism int) (*Result, error) {
	if parallelism <= 0 {
		parallelism = d.opts.Parallelism
	}
	if err := errors.ValidateURL(url); err != nil {
		return nil, err
	}

	start := time.Now()
	batchCtx, cancel := context.WithTimeout(ctx, d.opts.BatchTimeout)
	defer cancel()

	res := &Result{URL: url, Dest: dest, Parallelism: parallelism}
	hooks := observability.Download()

	size := d.probe(batchCtx, url)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	ranges := Partition(size, parallelism)
	if ranges == nil {
		if parallelism > 1 {
			d.opts.Logger.Warn("range requests unavailable, downloading sequentially", "url", url)
		}
		ranges = []Range{{Index: 0, Start: 0, End: -1}} // length unknown
		res.Parallelism = 1
	} else {
		res.Ranged = true
		res.Parallelism = min(parallelism, len(ranges))
	}

	hooks.OnDownloadStart(ctx, url, size, res.Parallelism)
	d.emit(Event{Kind: EventStart, URL: url, Chunks: len(ranges), Bytes: size})
	d.opts.Logger.Debug("download started", "url", url, "size", FormatSize(size), "chunks", len(ranges))

	tempDir := dest + TempSuffix
	err := d.transfer(batchCtx, res, ranges, tempDir)
	if err == nil {
		err = d.merge(res, dest)
	}

	res.Duration = time.Since(start)
	if err != nil {
		if !d.opts.KeepParts {
			_ = os.RemoveAll(tempDir)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else if stderrors.Is(batchCtx.Err(), context.DeadlineExceeded) {
			err = errors.Wrap(errors.ErrCodeBatchTimeout, err, "download of %s exceeded %s", url, d.opts.BatchTimeout)
		}
		hooks.OnDownloadComplete(ctx, url, 0, res.Duration, err)
		return res, err
	}

	_ = os.RemoveAll(tempDir)
	hooks.OnDownloadComplete(ctx, url, res.Size, res.Duration, nil)
	d.emit(Event{Kind: EventMerged, URL: url, Chunks: len(ranges), Bytes: res.Size})
	d.opts.Logger.Debug("download complete", "url", url, "size", FormatSize(res.Size), "took", res.Duration)
	return res, nil
}

// probe returns the resource size when range requests are usable, else -1.
func (d *Downloader) probe(ctx context.Context, url string) int64 {
	info, err := d.client.Head(ctx, url)
	if err != nil {
		d.opts.Logger.Debug("head probe failed", "url", url, "err", err)
		return -1
	}
	if !info.AcceptsRanges || info.Size <= 0 {
		return -1
	}
	return info.Size
}

func (d *Downloader) transfer(ctx context.Context, res *Result, ranges []Range, tempDir string) error {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeChunkTransfer, err, "create part directory")
	}

	name := filepath.Base(res.Dest)
	res.Tasks = make([]Task, len(ranges))
	for i, r := range ranges {
		res.Tasks[i] = Task{Range: r, Part: filepath.Join(tempDir, fmt.Sprintf("%s.part%d", name, i))}
	}

	var g errgroup.Group
	g.SetLimit(res.Parallelism)
	for i := range res.Tasks {
		task := &res.Tasks[i]
		g.Go(func() error {
			task.Bytes, task.Err = d.fetchPart(ctx, res.URL, task, res.Ranged)
			observability.Download().OnChunkComplete(ctx, res.URL, task.Index, task.Bytes, task.Err)
			if task.Err != nil {
				d.opts.Logger.Debug("chunk failed", "url", res.URL, "index", task.Index, "err", task.Err)
				d.emit(Event{Kind: EventChunkFailed, URL: res.URL, Index: task.Index, Chunks: len(ranges), Err: task.Err})
				return task.Err
			}
			d.emit(Event{Kind: EventChunkDone, URL: res.URL, Index: task.Index, Chunks: len(ranges), Bytes: task.Bytes})
			return nil
		})
	}
	first := g.Wait()

	for _, t := range res.Tasks {
		if t.Err != nil {
			res.Failed = append(res.Failed, FailedChunk{Index: t.Index, Error: t.Err.Error()})
		}
	}
	if first != nil {
		return errors.Wrap(errors.ErrCodeChunkTransfer, first, "%d of %d chunks failed for %s",
			len(res.Failed), len(res.Tasks), res.URL)
	}
	return nil
}

func (d *Downloader) fetchPart(ctx context.Context, url string, task *Task, ranged bool) (int64, error) {
	var (
		resp *transport.Response
		err  error
	)
	if ranged {
		resp, err = d.client.GetRange(ctx, url, task.Start, task.End)
	} else {
		resp, err = d.client.Get(ctx, url)
	}
	if err != nil {
		return 0, fmt.Errorf("chunk %d: %w", task.Index, err)
	}
	defer resp.Body.Close()

	f, err := os.Create(task.Part)
	if err != nil {
		return 0, fmt.Errorf("chunk %d: create part: %w", task.Index, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return n, fmt.Errorf("chunk %d: write part: %w", task.Index, err)
	}
	if ranged && n != task.Len() {
		return n, fmt.Errorf("chunk %d: short read: got %d of %d bytes", task.Index, n, task.Len())
	}
	return n, nil
}

// merge concatenates the parts in index order into dest.
func (d *Downloader) merge(res *Result, dest string) error {
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeMerge, err, "create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(dest)+".*.tmp")
	if err != nil {
		return errors.Wrap(errors.ErrCodeMerge, err, "create temp file")
	}
	tmpName := tmp.Name()

	var total int64
	for _, t := range res.Tasks {
		n, err := appendFile(tmp, t.Part)
		total += n
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return errors.Wrap(errors.ErrCodeMerge, err, "append part %d", t.Index)
		}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeMerge, err, "close temp file")
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(errors.ErrCodeMerge, err, "rename into %s", dest)
	}
	res.Size = total
	return nil
}

func appendFile(w io.Writer, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return io.Copy(w, f)
}

func (d *Downloader) emit(e Event) {
	if d.opts.Progress != nil {
		d.opts.Progress(e)
	}
}

// Counter aggregates progress events. It is safe for concurrent use and
// its Observe method can be passed as [Options.Progress].
type Counter struct {
	mu     sync.Mutex
	done   int
	failed int
	bytes  int64
}

// Observe records e.
func (c *Counter) Observe(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Kind {
	case EventChunkDone:
		c.done++
		c.bytes += e.Bytes
	case EventChunkFailed:
		c.failed++
	}
}

// Snapshot returns the chunks completed and failed and the bytes received.
func (c *Counter) Snapshot() (done, failed int, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done, c.failed, c.bytes
}
