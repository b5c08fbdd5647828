// Package ratelimit implements a fixed-window request counter keyed by client and action.
package ratelimit

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"
)

// Bucket is the counter state for one key.
type Bucket struct {
	Count   int
	ResetAt time.Time
}

// Store persists buckets by key. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (Bucket, bool, error)
	Set(ctx context.Context, key string, b Bucket) error
}

// Verdict is the outcome of a Check.
type Verdict struct {
	OK bool
	// RetryAfter is the number of whole seconds until the window resets (>= 1).
	// It is only set when OK is false.
	RetryAfter int
}

const lockStripes = 64

// Limiter enforces fixed-window limits on top of a Store.
type Limiter struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
	locks  [lockStripes]sync.Mutex
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a limiter backed by store. A nil store uses a new MemoryStore.
func New(store Store, logger *slog.Logger, opts ...Option) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	l := &Limiter{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check records one request for key and reports whether it is within limit
// requests per window. It always returns a verdict: store failures admit the
// request and are logged.
func (l *Limiter) Check(ctx context.Context, key string, limit int, window time.Duration) Verdict {
	mu := &l.locks[stripe(key)]
	mu.Lock()
	defer mu.Unlock()

	now := l.now()

	b, ok, err := l.store.Get(ctx, key)
	if err != nil {
		l.logger.Warn("Rate limit store read failed, admitting request", "key", key, "error", err)
		return Verdict{OK: true}
	}

	if !ok || !now.Before(b.ResetAt) {
		l.save(ctx, key, Bucket{Count: 1, ResetAt: now.Add(window)})
		return Verdict{OK: true}
	}

	if b.Count < limit {
		b.Count++
		l.save(ctx, key, b)
		return Verdict{OK: true}
	}

	return Verdict{OK: false, RetryAfter: retryAfter(b.ResetAt.Sub(now))}
}

func (l *Limiter) save(ctx context.Context, key string, b Bucket) {
	if err := l.store.Set(ctx, key, b); err != nil {
		l.logger.Warn("Rate limit store write failed", "key", key, "error", err)
	}
}

// retryAfter rounds d up to whole seconds, floored at 1.
func retryAfter(d time.Duration) int {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}

func stripe(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % lockStripes
}
