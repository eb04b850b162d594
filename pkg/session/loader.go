package session

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Loader makes an installed archive available to its consumer.
type Loader interface {
	Load(path string) error
}

// LoaderFunc adapts a function to [Loader].
type LoaderFunc func(path string) error

func (f LoaderFunc) Load(path string) error { return f(path) }

// ClasspathLoader collects archive paths into a classpath.
type ClasspathLoader struct {
	mu    sync.Mutex
	paths []string
	seen  map[string]bool
}

// NewClasspathLoader returns an empty loader.
func NewClasspathLoader() *ClasspathLoader {
	return &ClasspathLoader{seen: make(map[string]bool)}
}

// Load appends path to the classpath. Loading the same path twice is a
// no-op.
func (l *ClasspathLoader) Load(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.seen[abs] {
		l.seen[abs] = true
		l.paths = append(l.paths, abs)
	}
	return nil
}

// Paths returns the loaded archives in load order.
func (l *ClasspathLoader) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

// String joins the paths with the platform list separator, ready for a
// -classpath argument.
func (l *ClasspathLoader) String() string {
	return strings.Join(l.Paths(), string(os.PathListSeparator))
}
