package config

import (
	"context"

	"github.com/matzehuels/jarflow/pkg/cache"
	"github.com/matzehuels/jarflow/pkg/history"
)

// OpenCache builds the configured descriptor cache. File and Redis
// backends get an in-memory LRU in front of them.
func (c Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	var backend cache.Cache
	switch c.Cache.Backend {
	case CacheNone:
		return cache.NewNullCache(), nil
	case CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     c.Cache.RedisAddr,
			Password: c.Cache.Password,
			DB:       c.Cache.RedisDB,
		})
		if err != nil {
			return nil, err
		}
		backend = rc
	default:
		dir, err := c.CacheDir()
		if err != nil {
			return cache.NewNullCache(), nil
		}
		fc, err := cache.NewFileCache(dir)
		if err != nil {
			return nil, err
		}
		backend = fc
	}
	if c.Cache.LRUSize <= 0 {
		return backend, nil
	}
	return cache.NewLRUCache(c.Cache.LRUSize, backend), nil
}

// Keyer returns the descriptor cache keyer, prefixed with cache.scope
// when one is set.
func (c Config) Keyer() cache.Keyer {
	if c.Cache.Scope == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, c.Cache.Scope+":")
}

// OpenStore builds the configured history store. It returns nil when
// history is disabled.
func (c Config) OpenStore(ctx context.Context) (history.Store, error) {
	switch c.Store.Backend {
	case StoreNone:
		return nil, nil
	case StoreMongo:
		return history.NewMongoStore(ctx, history.MongoConfig{
			URI:      c.Store.MongoURI,
			Database: c.Store.Database,
		})
	default:
		return history.NewFileStore(c.Store.Dir)
	}
}
