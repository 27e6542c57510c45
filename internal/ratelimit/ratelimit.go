// Package ratelimit enforces per-client request quotas.
//
// Each client key (normally the remote IP) may make at most `requests` calls
// in any rolling `window`. The limiter keeps the admission times of the last
// `requests` calls per key; a call is admitted when the oldest of them has
// left the window. Refused calls do not consume quota.
//
// State lives in process memory only. A janitor goroutine evicts clients whose
// newest admission has left the window, since they are back to a full quota.
// Call Close to stop it.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter decides whether a client may proceed.
type Limiter interface {
	Allow(key string) bool
}

// KeyedLimiter is a Limiter with one rolling window per key. It is safe for
// concurrent use; calls for the same key are serialized so none are lost.
type KeyedLimiter struct {
	requests int
	window   time.Duration
	sweep    time.Duration
	now      func() time.Time

	mu      sync.Mutex
	clients map[string][]time.Time

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a KeyedLimiter.
type Option func(*KeyedLimiter)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *KeyedLimiter) { l.now = now }
}

// WithoutJanitor disables background eviction. Sweep can still be called
// directly.
func WithoutJanitor() Option {
	return func(l *KeyedLimiter) { l.sweep = 0 }
}

// New creates a limiter admitting `requests` calls per rolling `window` per
// key and starts its janitor.
func New(requests int, window time.Duration, opts ...Option) *KeyedLimiter {
	if requests < 1 {
		requests = 1
	}
	l := &KeyedLimiter{
		requests: requests,
		window:   window,
		sweep:    window,
		now:      time.Now,
		clients:  make(map[string][]time.Time),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.sweep > 0 {
		go l.janitor(l.sweep)
	} else {
		close(l.done)
	}
	return l
}

// Allow records a call for key and reports whether it fits in the quota.
func (l *KeyedLimiter) Allow(key string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	hits := l.prune(key, now)
	if len(hits) >= l.requests {
		return false
	}
	l.clients[key] = append(hits, now)
	return true
}

// Sweep evicts clients with no admission inside the window and returns how
// many were removed.
func (l *KeyedLimiter) Sweep() int {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key := range l.clients {
		if len(l.prune(key, now)) == 0 {
			delete(l.clients, key)
			removed++
		}
	}
	return removed
}

// Close stops the janitor. It is safe to call more than once. Allow keeps
// working after Close.
func (l *KeyedLimiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}

// prune drops key's admissions at or before now-window and stores the result.
// Admissions are kept oldest first. Callers hold l.mu.
func (l *KeyedLimiter) prune(key string, now time.Time) []time.Time {
	hits := l.clients[key]
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	if i > 0 {
		hits = append(hits[:0], hits[i:]...)
		l.clients[key] = hits
	}
	return hits
}

func (l *KeyedLimiter) janitor(interval time.Duration) {
	defer close(l.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Sweep()
		case <-l.stop:
			return
		}
	}
}
