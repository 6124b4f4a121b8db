package ratelimit

import (
	"sync"
	"time"

	"ppn/exception"
)

// Config holds the knobs of a sliding-window limiter.
type Config struct {
	// MaxRequests is how many requests one key may make per window.
	MaxRequests int

	// Window is the length of the sliding window.
	Window time.Duration

	// CleanupInterval is how often idle keys are evicted.
	CleanupInterval time.Duration
}

// DefaultConfig returns the configuration the node uses unless told
// otherwise: 50 requests per second per client.
func DefaultConfig() Config {
	return Config{
		MaxRequests:     50,
		Window:          time.Second,
		CleanupInterval: 5 * time.Minute,
	}
}

// Limiter implements sliding-window rate limiting keyed by caller
// identity. The RPC layer keys it by client IP.
type Limiter struct {
	cfg Config

	mu       sync.Mutex
	requests map[string][]time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter creates a limiter and starts its eviction loop. Zero or
// negative config values fall back to the defaults.
func NewLimiter(cfg Config) *Limiter {
	defaults := DefaultConfig()
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = defaults.MaxRequests
	}
	if cfg.Window <= 0 {
		cfg.Window = defaults.Window
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = defaults.CleanupInterval
	}

	l := &Limiter{
		cfg:      cfg,
		requests: make(map[string][]time.Time),
		stop:     make(chan struct{}),
	}
	exception.SafeGo("ratelimit-cleanup", l.cleanupLoop)
	return l
}

// Allow reports whether a request from key fits in the current window,
// and records it when it does.
func (l *Limiter) Allow(key string) bool {
	now := time.Now()
	cutoff := now.Add(-l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	valid := l.requests[key][:0]
	for _, at := range l.requests[key] {
		if at.After(cutoff) {
			valid = append(valid, at)
		}
	}

	if len(valid) >= l.cfg.MaxRequests {
		l.requests[key] = valid
		return false
	}

	l.requests[key] = append(valid, now)
	return true
}

// Reset forgets everything recorded for key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.requests, key)
}

// Stop ends the eviction loop. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.stop:
			return
		}
	}
}

// evictIdle drops keys whose every request has aged out of the window,
// so one-off callers do not accumulate forever.
func (l *Limiter) evictIdle() {
	cutoff := time.Now().Add(-l.cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, times := range l.requests {
		live := false
		for _, at := range times {
			if at.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(l.requests, key)
		}
	}
}
