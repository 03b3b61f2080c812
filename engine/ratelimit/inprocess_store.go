package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/miniflow/miniflow/pkg/logger"
)

// entry holds one key's token bucket and its last access time, so unused
// buckets can be garbage collected.
type entry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// InProcessStore is a token-bucket approximation of the sliding-window
// contract, used when no Redis is configured (engine/ratelimit.Store is
// otherwise satisfied by a Redis-backed implementation). It is not a true
// sliding window — bursts are smoothed rather than hard-capped per period —
// but it bounds sustained throughput to limit/period and never requires an
// external dependency.
type InProcessStore struct {
	mu             sync.Mutex
	entries        map[string]*entry
	cleanupEvery   time.Duration
	entryExpiry    time.Duration
	done           chan struct{}
	stopOnce       sync.Once
}

// NewInProcessStore builds a store that sweeps idle buckets every
// cleanupEvery, expiring any bucket untouched for entryExpiry.
func NewInProcessStore(cleanupEvery, entryExpiry time.Duration) *InProcessStore {
	if cleanupEvery <= 0 {
		cleanupEvery = time.Hour
	}
	if entryExpiry <= 0 {
		entryExpiry = 24 * time.Hour
	}
	s := &InProcessStore{
		entries:      make(map[string]*entry),
		cleanupEvery: cleanupEvery,
		entryExpiry:  entryExpiry,
		done:         make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Stop ends the background cleanup goroutine.
func (s *InProcessStore) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// Allow implements Store using a token bucket sized so that, at steady
// state, it admits at most limit events per period.
func (s *InProcessStore) Allow(_ context.Context, key string, period time.Duration, limit int) (bool, time.Duration, error) {
	limiter := s.getLimiter(key, period, limit)
	if limiter.Allow() {
		return true, 0, nil
	}
	reservation := limiter.Reserve()
	delay := reservation.Delay()
	reservation.Cancel()
	return false, delay, nil
}

func (s *InProcessStore) getLimiter(key string, period time.Duration, limit int) *rate.Limiter {
	ratePerSecond := float64(limit) / period.Seconds()
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.lastAccess = time.Now()
		if e.limiter.Limit() != rate.Limit(ratePerSecond) {
			e.limiter.SetLimit(rate.Limit(ratePerSecond))
			e.limiter.SetBurst(limit)
		}
		return e.limiter
	}
	limiter := rate.NewLimiter(rate.Limit(ratePerSecond), limit)
	s.entries[key] = &entry{limiter: limiter, lastAccess: time.Now()}
	return limiter
}

func (s *InProcessStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

func (s *InProcessStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	expired := 0
	for key, e := range s.entries {
		if now.Sub(e.lastAccess) > s.entryExpiry {
			delete(s.entries, key)
			expired++
		}
	}
	if expired > 0 {
		logger.FromContext(context.Background()).
			With("expired_count", expired, "remaining_count", len(s.entries)).
			Debug("cleaned up expired rate limiter buckets")
	}
}
