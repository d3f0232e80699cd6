// Package ratelimit provides sliding-window admission control for the
// order-creation path.
package ratelimit

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// Limiter admits or rejects a request for a key under a sliding window.
type Limiter interface {
	// Allow returns true if the request is permitted, counting it against
	// the key's window. Keys are tracked independently.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

const shardCount = 16

// MemoryLimiter is an in-process sliding-window limiter. Keys are sharded so
// contention on one user's window never blocks another's.
type MemoryLimiter struct {
	shards [shardCount]*shard
	now    func() time.Time
}

type shard struct {
	mu      sync.Mutex
	windows map[string][]int64
}

// NewMemoryLimiter creates an in-process limiter.
func NewMemoryLimiter() *MemoryLimiter {
	l := &MemoryLimiter{now: time.Now}
	for i := range l.shards {
		l.shards[i] = &shard{windows: make(map[string][]int64)}
	}
	return l
}

func (l *MemoryLimiter) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return l.shards[h.Sum32()%shardCount]
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	now := l.now().UnixNano()
	cutoff := now - window.Nanoseconds()

	s := l.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	stamps := s.windows[key]

	// Drop entries that have slid out of the window.
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		s.windows[key] = kept
		return false, nil
	}

	s.windows[key] = append(kept, now)
	return true, nil
}

// Prune removes keys whose whole window has expired. Called by the
// retention sweep to bound memory for one-shot users.
func (l *MemoryLimiter) Prune(window time.Duration) {
	cutoff := l.now().Add(-window).UnixNano()
	for _, s := range l.shards {
		s.mu.Lock()
		for key, stamps := range s.windows {
			live := false
			for _, ts := range stamps {
				if ts > cutoff {
					live = true
					break
				}
			}
			if !live {
				delete(s.windows, key)
			}
		}
		s.mu.Unlock()
	}
}
