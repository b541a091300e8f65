package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/ppiankov/marketscout/internal/model"
)

// Cache stores raw search responses keyed by query
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// SearchKey generates the cache key for one source query
func SearchKey(query model.SourceQuery) string {
	hash := sha256.Sum256([]byte(query.Recency.Token() + "\x00" + query.Query))
	return "marketscout:v1:" + hex.EncodeToString(hash[:])
}

// New builds the cache selected by the configuration.
// It returns nil when caching is disabled.
func New(cfg model.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	switch cfg.Backend {
	case "", "memory":
		return NewMemoryCache(cfg.TTL, 10*time.Minute), nil
	case "layered":
		return NewLayeredCache(cfg.TTL, cfg.Dir, cfg.TTL), nil
	case "redis":
		rc, err := NewRedisCache(RedisOptions{Addr: cfg.RedisAddr, DB: cfg.RedisDB, TTL: cfg.TTL})
		if err != nil {
			return nil, err
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend: %s", cfg.Backend)
	}
}
