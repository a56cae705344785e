package ratelimit

import (
	"sync"
	"time"

	"task-marketplace-api/internal/cache"
)

// bucket tracks events inside one window.
type bucket struct {
	count   int
	resetAt time.Time
}

// Limiter is a fixed-window counter backed by the in-process TTL cache. Used
// to throttle chat sends per (task, sender) key.
type Limiter struct {
	mu     sync.Mutex // guards the read-modify-write on counts
	counts *cache.TTLCache[string, bucket]
	limit  int
	window time.Duration
}

// New builds a Limiter allowing limit events per window for each key.
func New(limit int, window time.Duration) *Limiter {
	if limit < 1 {
		limit = 1
	}
	return &Limiter{
		counts: cache.New[string, bucket](),
		limit:  limit,
		window: window,
	}
}

// Allow reports whether another event is allowed for key and records it. The
// first event for a key opens its window; later events keep the original
// expiry, so the count resets a fixed interval after that first event.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.counts.Get(key)
	if !ok {
		l.counts.Set(key, bucket{count: 1, resetAt: time.Now().Add(l.window)}, l.window)
		return true
	}
	if b.count >= l.limit {
		return false
	}
	b.count++
	l.counts.Set(key, b, time.Until(b.resetAt))
	return true
}
