package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a logger at debug level. It implements all
// hook interfaces and is what the CLI registers under --trace.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks logging to l, or to log.Default() when l is nil.
func NewLogHooks(l *log.Logger) *LogHooks {
	if l == nil {
		l = log.Default()
	}
	return &LogHooks{logger: l.WithPrefix("trace")}
}

// Register installs h for every hook category.
func (h *LogHooks) Register() {
	SetResolveHooks(h)
	SetDownloadHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) OnResolveStart(_ context.Context, roots int) {
	h.logger.Debug("resolve start", "roots", roots)
}

func (h *LogHooks) OnNodeResolved(_ context.Context, location, repo string, err error) {
	if err != nil {
		h.logger.Debug("node unresolved", "coord", location, "err", err)
		return
	}
	h.logger.Debug("node resolved", "coord", location, "repo", repo)
}

func (h *LogHooks) OnResolveComplete(_ context.Context, nodes, failures int, d time.Duration, err error) {
	h.logger.Debug("resolve complete", "nodes", nodes, "failures", failures, "took", d, "err", err)
}

func (h *LogHooks) OnDownloadStart(_ context.Context, url string, size int64, parallelism int) {
	h.logger.Debug("download start", "url", url, "size", size, "parallelism", parallelism)
}

func (h *LogHooks) OnChunkComplete(_ context.Context, url string, index int, bytes int64, err error) {
	h.logger.Debug("chunk complete", "url", url, "index", index, "bytes", bytes, "err", err)
}

func (h *LogHooks) OnDownloadComplete(_ context.Context, url string, bytes int64, d time.Duration, err error) {
	h.logger.Debug("download complete", "url", url, "bytes", bytes, "took", d, "err", err)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "size", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "took", d)
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ ResolveHooks  = (*LogHooks)(nil)
	_ DownloadHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
