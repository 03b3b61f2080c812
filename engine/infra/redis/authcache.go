package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/miniflow/miniflow/engine/apikey"
	"github.com/miniflow/miniflow/engine/auth"
	"github.com/miniflow/miniflow/engine/core"
	"github.com/miniflow/miniflow/pkg/logger"
	rds "github.com/redis/go-redis/v9"
)

// CachedKeyStore decorates an auth.KeyStore with a Redis-backed cache of
// lookup-prefix candidates, so a high-traffic API key is not reloaded from
// Postgres on every request. RecordUsage always hits the underlying store:
// usage counters are allowed to go stale within ttl, never silently dropped.
type CachedKeyStore struct {
	store  auth.KeyStore
	client *rds.Client
	ttl    time.Duration
}

const defaultAPIKeyCacheTTL = 30 * time.Second

// NewCachedKeyStore returns a Redis-backed caching decorator over store.
func NewCachedKeyStore(store auth.KeyStore, client *rds.Client, ttl time.Duration) auth.KeyStore {
	if ttl <= 0 {
		ttl = defaultAPIKeyCacheTTL
	}
	return &CachedKeyStore{store: store, client: client, ttl: ttl}
}

func (c *CachedKeyStore) prefixKey(prefix string) string { return "apikey:prefix:" + prefix }

func (c *CachedKeyStore) FindByLookupPrefix(ctx context.Context, prefix string) ([]*apikey.APIKey, error) {
	log := logger.FromContext(ctx)
	if c.client != nil {
		if s, err := c.client.Get(ctx, c.prefixKey(prefix)).Result(); err == nil && s != "" {
			var cached []*apikey.APIKey
			if uerr := json.Unmarshal([]byte(s), &cached); uerr == nil {
				return cached, nil
			} else if derr := c.client.Del(ctx, c.prefixKey(prefix)).Err(); derr != nil {
				log.Warn("redis: del prefix cache failed", "error", derr)
			}
		}
	}
	candidates, err := c.store.FindByLookupPrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}
	if c.client != nil {
		if b, jerr := json.Marshal(candidates); jerr == nil {
			if err := c.client.Set(ctx, c.prefixKey(prefix), b, c.ttl).Err(); err != nil {
				log.Warn("redis: set prefix cache failed", "error", err)
			}
		}
	}
	return candidates, nil
}

func (c *CachedKeyStore) RecordUsage(ctx context.Context, id core.ID) error {
	return c.store.RecordUsage(ctx, id)
}
