package repository

import "sync"

// Registry is a caller-owned, ordered and deduplicated repository list.
// It is safe for concurrent use; [Registry.List] returns a snapshot that
// later Adds do not affect.
type Registry struct {
	mu    sync.RWMutex
	repos []Repository
}

// NewRegistry returns a registry seeded with repos.
func NewRegistry(repos ...Repository) *Registry {
	return &Registry{repos: Merge(repos)}
}

// Add appends repos that are not yet registered and reports how many were
// added.
func (r *Registry) Add(repos ...Repository) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	before := len(r.repos)
	r.repos = Merge(r.repos, repos)
	return len(r.repos) - before
}

// Contains reports whether a repository with url is registered.
func (r *Registry) Contains(url string) bool {
	url = Normalize(url)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, repo := range r.repos {
		if repo.URL == url {
			return true
		}
	}
	return false
}

// List returns a copy of the registered repositories in priority order.
func (r *Registry) List() []Repository {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Repository(nil), r.repos...)
}

// Len returns the number of registered repositories.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.repos)
}
