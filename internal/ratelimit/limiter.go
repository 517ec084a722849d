// Package ratelimit implements a per-key fixed-window counter with a cooldown
// block once a key exceeds its quota.
package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"
)

// Config holds the limiter parameters.
type Config struct {
	MaxPerWindow int
	Window       time.Duration
	Cooldown     time.Duration
}

// DefaultConfig allows 45 requests per minute and blocks for three minutes
// after the quota is exceeded.
func DefaultConfig() Config {
	return Config{
		MaxPerWindow: 45,
		Window:       time.Minute,
		Cooldown:     3 * time.Minute,
	}
}

// Decision is the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (d Decision) RetryAfterSeconds() int {
	if d.RetryAfter <= 0 {
		return 0
	}
	return int(math.Ceil(d.RetryAfter.Seconds()))
}

type bucket struct {
	count        int
	windowStart  time.Time
	blockedUntil time.Time
}

// Limiter tracks one bucket per key. All state lives behind a single mutex.
type Limiter struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	return &Limiter{
		cfg:     cfg,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// WithClock replaces the limiter's time source. Call before first use.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Allow records one request for key and reports whether it may proceed.
//
// The window is fixed: it restarts on the first request after it has
// elapsed, not continuously. The request that pushes the count past
// MaxPerWindow is rejected and starts the cooldown.
func (l *Limiter) Allow(key string) Decision {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{windowStart: now}
		l.buckets[key] = b
	}

	if !b.blockedUntil.IsZero() {
		if b.blockedUntil.After(now) {
			return Decision{RetryAfter: b.blockedUntil.Sub(now)}
		}
		b.blockedUntil = time.Time{}
		b.count = 0
		b.windowStart = now
	}

	if now.Sub(b.windowStart) > l.cfg.Window {
		b.windowStart = now
		b.count = 0
	}

	b.count++
	if b.count > l.cfg.MaxPerWindow {
		b.blockedUntil = now.Add(l.cfg.Cooldown)
		return Decision{RetryAfter: l.cfg.Cooldown}
	}

	return Decision{Allowed: true}
}

// Sweep evicts buckets whose cooldown has elapsed and idle buckets whose
// window went stale more than two windows ago. It returns the number removed.
func (l *Limiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		switch {
		case !b.blockedUntil.IsZero():
			if b.blockedUntil.Before(now) {
				delete(l.buckets, key)
				removed++
			}
		case now.Sub(b.windowStart) > 2*l.cfg.Window:
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Run sweeps every interval until ctx is cancelled.
func (l *Limiter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				slog.Debug("rate limit buckets swept", "removed", n, "remaining", l.Len())
			}
		}
	}
}
