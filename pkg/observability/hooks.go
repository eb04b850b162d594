// Package observability provides hooks for metrics, tracing, and logging.
//
// Libraries in jarflow emit events through globally registered hooks instead
// of depending on a specific metrics or tracing backend. The defaults are
// no-ops; main registers real implementations at startup.
//
//	func main() {
//	    observability.SetHTTPHooks(observability.NewLogHooks(logger))
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Resolve().OnNodeResolved(ctx, "g:a:1.0", repoURL, nil)
//	observability.Download().OnChunkComplete(ctx, url, 2, n, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Resolve Hooks
// =============================================================================

// ResolveHooks receives events from the transitive resolver.
type ResolveHooks interface {
	OnResolveStart(ctx context.Context, roots int)
	// OnNodeResolved fires once per tree node. repo is the repository that
	// supplied the descriptor, empty when err is non-nil.
	OnNodeResolved(ctx context.Context, location, repo string, err error)
	OnResolveComplete(ctx context.Context, nodes, failures int, duration time.Duration, err error)
}

// =============================================================================
// Download Hooks
// =============================================================================

// DownloadHooks receives events from the range downloader.
type DownloadHooks interface {
	OnDownloadStart(ctx context.Context, url string, size int64, parallelism int)
	OnChunkComplete(ctx context.Context, url string, index int, bytes int64, err error)
	OnDownloadComplete(ctx context.Context, url string, bytes int64, duration time.Duration, err error)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache lookups.
type CacheHooks interface {
	OnCacheHit(ctx context.Context, keyType string)
	OnCacheMiss(ctx context.Context, keyType string)
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from the repository transport.
type HTTPHooks interface {
	OnRequest(ctx context.Context, method, host, path string)
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)
	// OnError records a transport failure (refused connection, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopResolveHooks is a no-op implementation of ResolveHooks.
type NoopResolveHooks struct{}

func (NoopResolveHooks) OnResolveStart(context.Context, int)                               {}
func (NoopResolveHooks) OnNodeResolved(context.Context, string, string, error)             {}
func (NoopResolveHooks) OnResolveComplete(context.Context, int, int, time.Duration, error) {}

// NoopDownloadHooks is a no-op implementation of DownloadHooks.
type NoopDownloadHooks struct{}

func (NoopDownloadHooks) OnDownloadStart(context.Context, string, int64, int)        {}
func (NoopDownloadHooks) OnChunkComplete(context.Context, string, int, int64, error) {}
func (NoopDownloadHooks) OnDownloadComplete(context.Context, string, int64, time.Duration, error) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	resolveHooks  ResolveHooks  = NoopResolveHooks{}
	downloadHooks DownloadHooks = NoopDownloadHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	httpHooks     HTTPHooks     = NoopHTTPHooks{}
	hooksMu       sync.RWMutex
)

// SetResolveHooks registers resolver hooks. A nil argument is ignored.
func SetResolveHooks(h ResolveHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		resolveHooks = h
	}
}

// SetDownloadHooks registers downloader hooks. A nil argument is ignored.
func SetDownloadHooks(h DownloadHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		downloadHooks = h
	}
}

// SetCacheHooks registers cache hooks. A nil argument is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. A nil argument is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Resolve returns the registered resolver hooks.
func Resolve() ResolveHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return resolveHooks
}

// Download returns the registered downloader hooks.
func Download() DownloadHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return downloadHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	resolveHooks = NoopResolveHooks{}
	downloadHooks = NoopDownloadHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
