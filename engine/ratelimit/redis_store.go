package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

type rateKey struct {
	period time.Duration
	limit  int
}

// RedisStore is the distributed sliding-window implementation of Store,
// backed by ulule/limiter's Redis driver so counters are shared across every
// process running the input scheduler and HTTP surface.
type RedisStore struct {
	mu       sync.Mutex
	limiters map[rateKey]*limiter.Limiter
	store    limiter.Store
}

// NewRedisStore builds a RedisStore over client, prefixing every key with
// prefix to keep this accountant's keyspace isolated from other Redis users.
func NewRedisStore(client *redis.Client, prefix string) (*RedisStore, error) {
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix:   prefix,
		MaxRetry: 3,
	})
	if err != nil {
		return nil, fmt.Errorf("ratelimit: build redis store: %w", err)
	}
	return &RedisStore{limiters: make(map[rateKey]*limiter.Limiter), store: store}, nil
}

// limiterFor caches a limiter.Limiter per distinct (period, limit) pair,
// since different workspaces' plans can carry different thresholds for the
// same window.
func (s *RedisStore) limiterFor(period time.Duration, limit int) *limiter.Limiter {
	k := rateKey{period: period, limit: limit}
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.limiters[k]; ok {
		return l
	}
	l := limiter.New(s.store, limiter.Rate{Period: period, Limit: int64(limit)})
	s.limiters[k] = l
	return l
}

// Allow implements Store by consulting a per-period limiter.Limiter backed
// by the shared Redis store.
func (s *RedisStore) Allow(ctx context.Context, key string, period time.Duration, limit int) (bool, time.Duration, error) {
	l := s.limiterFor(period, limit)
	result, err := l.Get(ctx, key)
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit: redis get: %w", err)
	}
	if result.Reached {
		retryAfter := time.Until(time.Unix(0, result.Reset*int64(time.Second)))
		if retryAfter < 0 {
			retryAfter = 0
		}
		return false, retryAfter, nil
	}
	return true, 0, nil
}
