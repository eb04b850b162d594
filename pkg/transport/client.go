package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/matzehuels/jarflow/pkg/buildinfo"
	"github.com/matzehuels/jarflow/pkg/observability"
)

// Sentinel errors.
var (
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for transport failures and unexpected statuses.
	ErrNetwork = errors.New("network error")

	// ErrRangeNotHonored is returned when a ranged GET is not answered
	// with 206 Partial Content.
	ErrRangeNotHonored = errors.New("range request not honored")
)

// maxDocumentSize caps [Client.Fetch] bodies. Descriptors are small; a
// multi-megabyte answer means the URL points at something else.
const maxDocumentSize = 8 << 20

// Options configures a [Client].
type Options struct {
	// Timeout bounds a whole Fetch and the wait for response headers on
	// every other request. Default: 30s.
	Timeout time.Duration

	// MaxIdleConnsPerHost sizes the keep-alive pool. Parallel range
	// downloads open one connection per chunk. Default: 32.
	MaxIdleConnsPerHost int

	// Headers are sent with every request. A User-Agent is always set.
	Headers map[string]string
}

// DefaultOptions returns the defaults described on [Options].
func DefaultOptions() Options {
	return Options{
		Timeout:             30 * time.Second,
		MaxIdleConnsPerHost: 32,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.MaxIdleConnsPerHost <= 0 {
		o.MaxIdleConnsPerHost = d.MaxIdleConnsPerHost
	}
	return o
}

// FileInfo is the result of a HEAD probe.
type FileInfo struct {
	// Size is the Content-Length, or -1 when the server did not send one.
	Size int64

	// AcceptsRanges is true when the server advertised "Accept-Ranges: bytes".
	AcceptsRanges bool

	ETag         string
	ContentType  string
	LastModified time.Time
}

// Response is a streaming response body.
type Response struct {
	Body          io.ReadCloser
	ContentLength int64
}

// Client performs repository requests. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	opts    Options
	headers map[string]string
}

// New creates a client with its own connection pool.
func New(opts Options) *Client {
	opts = opts.withDefaults()
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          opts.MaxIdleConnsPerHost * 2,
		MaxIdleConnsPerHost:   opts.MaxIdleConnsPerHost,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: opts.Timeout,
		DisableCompression:    true, // ranges must address raw bytes
	}
	return NewWithHTTPClient(&http.Client{Transport: tr}, opts)
}

// NewWithHTTPClient wraps an existing *http.Client, e.g. one returned by
// httptest.Server.Client.
func NewWithHTTPClient(hc *http.Client, opts Options) *Client {
	opts = opts.withDefaults()
	headers := map[string]string{"User-Agent": buildinfo.UserAgent()}
	for k, v := range opts.Headers {
		headers[k] = v
	}
	return &Client{http: hc, opts: opts, headers: headers}
}

// Fetch GETs url and returns the body. Only 200 is success; 404 maps to
// [ErrNotFound] and everything else to [ErrNetwork].
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp.StatusCode, url)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrNetwork, url, err)
	}
	if len(data) > maxDocumentSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrNetwork, url, maxDocumentSize)
	}
	return data, nil
}

// Head probes url.
func (c *Client) Head(ctx context.Context, url string) (*FileInfo, error) {
	resp, err := c.do(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, url)
	}

	info := &FileInfo{
		Size:          resp.ContentLength,
		AcceptsRanges: strings.EqualFold(strings.TrimSpace(resp.Header.Get("Accept-Ranges")), "bytes"),
		ETag:          cleanETag(resp.Header.Get("ETag")),
		ContentType:   resp.Header.Get("Content-Type"),
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			info.LastModified = t
		}
	}
	return info, nil
}

// GetRange requests the inclusive byte range [start, end] of url. Any
// status other than 206, or a Content-Range that differs from the
// requested range, is an error wrapping [ErrRangeNotHonored].
func (c *Client) GetRange(ctx context.Context, url string, start, end int64) (*Response, error) {
	hdr := map[string]string{"Range": fmt.Sprintf("bytes=%d-%d", start, end)}
	resp, err := c.do(ctx, http.MethodGet, url, hdr)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s bytes=%d-%d: status %d", ErrRangeNotHonored, url, start, end, resp.StatusCode)
	}
	gotStart, gotEnd, _, err := ParseContentRange(resp.Header.Get("Content-Range"))
	if err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s bytes=%d-%d: %v", ErrRangeNotHonored, url, start, end, err)
	}
	if gotStart != start || gotEnd != end {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s bytes=%d-%d: server sent bytes %d-%d",
			ErrRangeNotHonored, url, start, end, gotStart, gotEnd)
	}
	return &Response{Body: resp.Body, ContentLength: resp.ContentLength}, nil
}

// Get streams the whole resource at url. The caller closes the body.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	resp, err := c.do(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, statusError(resp.StatusCode, url)
	}
	return &Response{Body: resp.Body, ContentLength: resp.ContentLength}, nil
}

func (c *Client) do(ctx context.Context, method, url string, extra map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrNetwork, method, url, err)
	}
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))
	return resp, nil
}

func statusError(code int, url string) error {
	if code == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	return fmt.Errorf("%w: %s: status %d", ErrNetwork, url, code)
}

func cleanETag(etag string) string {
	etag = strings.TrimPrefix(etag, "W/")
	return strings.Trim(etag, `"`)
}

// ParseContentRange parses "bytes start-end/total". Total is -1 for "*".
func ParseContentRange(header string) (start, end, total int64, err error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes ")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range: %q", header)
	}
	rng, size, ok := strings.Cut(rest, "/")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range: %q", header)
	}
	s, e, ok := strings.Cut(rng, "-")
	if !ok {
		return 0, 0, 0, fmt.Errorf("invalid Content-Range: %q", header)
	}
	if start, err = strconv.ParseInt(s, 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid start byte: %w", err)
	}
	if end, err = strconv.ParseInt(e, 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid end byte: %w", err)
	}
	if size == "*" {
		return start, end, -1, nil
	}
	if total, err = strconv.ParseInt(size, 10, 64); err != nil {
		return 0, 0, 0, fmt.Errorf("invalid total bytes: %w", err)
	}
	return start, end, total, nil
}
