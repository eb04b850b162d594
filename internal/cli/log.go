// Package cli implements the jarflow command-line interface.
//
// Commands resolve Maven coordinates, fetch their archives into a local
// library directory, draw the dependency graph, search loaded classes and
// serve the library as a repository. The CLI is built using cobra and logs
// through charmbracelet/log.
//
// # Commands
//
//   - resolve: Print the transitive dependency tree and version conflicts
//   - fetch: Resolve and download every artifact (--tui for live progress)
//   - download: Fetch a single URL with parallel range requests
//   - graph: Render the tree as DOT, SVG, PDF or PNG
//   - classes: List class names in installed archives
//   - serve: Expose the library directory as a Maven repository
//   - cache, history: Manage the descriptor cache and past resolutions
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging and --trace
// for one line per resolve, download, cache and HTTP event. Loggers are
// passed through context.Context.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger writes to w with "HH:MM:SS.ms" timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress measures one operation and logs its completion.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// elapsed is rounded to the millisecond.
func (p *progress) elapsed() time.Duration {
	return time.Since(p.start).Round(time.Millisecond)
}

// done logs msg at info level with keyvals and the elapsed time, e.g.
// "resolved nodes=42 took=1.234s".
func (p *progress) done(msg string, keyvals ...any) {
	p.logger.Info(msg, append(keyvals, "took", p.elapsed())...)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx for loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
