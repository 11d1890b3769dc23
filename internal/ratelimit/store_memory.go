package ratelimit

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps a sliding window of request timestamps per key. It is
// per-process; use RedisStore when several replicas share one limit.
type InMemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		windows: make(map[string][]time.Time),
		now:     time.Now,
	}
}

func (s *InMemoryStore) Allow(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ts := trim(s.windows[key], now.Add(-window))

	if len(ts) >= limit {
		s.windows[key] = ts
		resetAt := now.Add(window)
		if len(ts) > 0 {
			resetAt = ts[0].Add(window)
		}
		return &Result{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}, nil
	}

	ts = append(ts, now)
	s.windows[key] = ts
	return &Result{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - len(ts),
		ResetAt:   ts[0].Add(window),
	}, nil
}

// trim drops timestamps at or before cutoff. ts is sorted.
func trim(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for ; i < len(ts); i++ {
		if ts[i].After(cutoff) {
			break
		}
	}
	return ts[i:]
}
