// Package cache stores fetched repository documents and resolution results.
//
// A [Cache] is a byte-oriented key/value store with per-entry TTLs. The
// resolver keeps descriptor documents (POM files) here so that repeated runs
// against the same repositories do not hit the network, and the CLI keeps
// resolution summaries keyed by root coordinates.
//
// Backends:
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [RedisCache]: shared cache for multi-instance deployments
//   - [LRUCache]: bounded in-memory layer, optionally in front of another cache
//   - [NullCache]: caching disabled
//
// Keys are produced by a [Keyer] so callers never build key strings by hand.
package cache

import (
	"context"
	"time"

	"github.com/matzehuels/jarflow/pkg/coord"
)

// Default TTLs for cached entries.
const (
	// TTLDescriptor applies to released descriptor documents. Released
	// artifacts are immutable in Maven repositories, so this is long.
	TTLDescriptor = 7 * 24 * time.Hour

	// TTLSnapshot applies to descriptors whose version ends in -SNAPSHOT.
	TTLSnapshot = 10 * time.Minute

	// TTLResolution applies to cached resolution summaries.
	TTLResolution = 24 * time.Hour
)

// Cache is a key/value store for raw bytes.
type Cache interface {
	// Get returns the value for key. The boolean reports a hit; a miss is
	// not an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// Clearer is implemented by caches that can drop every entry at once.
type Clearer interface {
	// Clear removes all entries and returns how many were removed.
	Clear(ctx context.Context) (int, error)
}

// TTLFor returns the descriptor TTL appropriate for c.
func TTLFor(c coord.Coordinate) time.Duration {
	if c.IsSnapshot() {
		return TTLSnapshot
	}
	return TTLDescriptor
}
