// Package ratelimit provides a per-user sliding-window rate limiter for
// slash commands.
package ratelimit

import (
	"sync"
	"time"
)

// Config controls the limiter.
type Config struct {
	// Enabled turns limiting on. A disabled limiter allows everything.
	Enabled bool
	// MaxRequests is the number of requests allowed per window.
	MaxRequests int
	// Window is the sliding window length.
	Window time.Duration
}

// Limiter tracks request timestamps per user inside a sliding window.
type Limiter struct {
	cfg Config

	mu       sync.Mutex
	requests map[string][]time.Time
	now      func() time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithNow overrides the clock; used in tests.
func WithNow(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter with the given config.
func New(cfg Config, opts ...Option) *Limiter {
	l := &Limiter{
		cfg:      cfg,
		requests: make(map[string][]time.Time),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow records a request for user and reports whether it is within the
// limit. When denied, wait is the time until the oldest in-window request
// expires.
func (l *Limiter) Allow(user string) (allowed bool, wait time.Duration) {
	if !l.cfg.Enabled {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.cfg.Window)

	kept := l.requests[user][:0]
	for _, ts := range l.requests[user] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.cfg.MaxRequests {
		l.requests[user] = kept
		return false, kept[0].Sub(cutoff)
	}

	l.requests[user] = append(kept, now)
	return true, 0
}

// Reset clears all recorded requests for user.
func (l *Limiter) Reset(user string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.requests, user)
}
