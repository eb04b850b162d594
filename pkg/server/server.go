// Package server exposes a local library directory as a Maven repository.
//
// Requests use the standard repository layout
// (/com/google/guava/guava/32.1.3-jre/guava-32.1.3-jre.jar) and are mapped
// onto the library's per-coordinate folders. GET and HEAD are supported,
// including byte ranges, so the server can feed jarflow's own parallel
// downloader. SHA-1 checksums are computed on request.
package server

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/jarflow/pkg/coord"
	jferrors "github.com/matzehuels/jarflow/pkg/errors"
	"github.com/matzehuels/jarflow/pkg/jar"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:8808"

// Options configures a [Server].
type Options struct {
	Addr   string
	Logger *log.Logger
}

// Server serves a [jar.Library].
type Server struct {
	lib    jar.Library
	opts   Options
	router chi.Router
}

// New creates a server for lib.
func New(lib jar.Library, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	s := &Server{lib: lib, opts: opts}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/api/artifacts", s.handleList)
	r.Get("/*", s.handleFile)
	r.Head("/*", s.handleFile)
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.opts.Logger.Info("serving repository", "addr", s.opts.Addr, "dir", s.lib.Dir)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.opts.Logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "bytes", ww.BytesWritten(), "took", time.Since(start))
	})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	p := chi.URLParam(r, "*")
	if base, ok := strings.CutSuffix(p, ".sha1"); ok {
		s.serveChecksum(w, r, base)
		return
	}

	path, err := s.lib.FromRepositoryPath(p)
	if err != nil {
		http.Error(w, jferrors.UserMessage(err), http.StatusBadRequest)
		return
	}
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil || !st.Mode().IsRegular() {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", contentType(path))
	http.ServeContent(w, r, filepath.Base(path), st.ModTime(), f)
}

func (s *Server) serveChecksum(w http.ResponseWriter, r *http.Request, p string) {
	path, err := s.lib.FromRepositoryPath(p)
	if err != nil {
		http.Error(w, jferrors.UserMessage(err), http.StatusBadRequest)
		return
	}
	sum, err := sha1File(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = io.WriteString(w, sum)
}

func sha1File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func contentType(path string) string {
	switch filepath.Ext(path) {
	case ".jar":
		return "application/java-archive"
	case ".pom", ".xml":
		return "application/xml"
	}
	return "application/octet-stream"
}

// Artifact is one entry of the /api/artifacts listing.
type Artifact struct {
	Coordinate coord.Coordinate `json:"coordinate"`
	Path       string           `json:"path"` // repository path of the archive
	Size       int64            `json:"size"`
	Relocated  bool             `json:"relocated"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	arts, err := ListArtifacts(s.lib)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(arts)
}

// ListArtifacts returns the archives stored in lib, sorted by location.
func ListArtifacts(lib jar.Library) ([]Artifact, error) {
	var out []Artifact
	groups, err := os.ReadDir(lib.Dir)
	if os.IsNotExist(err) {
		return out, nil
	}
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		for _, a := range subdirs(filepath.Join(lib.Dir, g.Name())) {
			for _, v := range subdirs(filepath.Join(lib.Dir, g.Name(), a)) {
				c := coord.New(g.Name(), a, v)
				path, err := lib.Path(c)
				if err != nil {
					continue
				}
				if st, err := os.Stat(path); err == nil && st.Mode().IsRegular() {
					relocated, _ := lib.RelocatedPath(c)
					out = append(out, Artifact{
						Coordinate: c,
						Path:       c.Path("jar"),
						Size:       st.Size(),
						Relocated:  relocated != "" && fileExists(relocated),
					})
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Coordinate.Location() < out[j].Coordinate.Location()
	})
	return out, nil
}

func subdirs(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
