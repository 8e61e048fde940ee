// Package ratelimit provides admission control in front of the paid
// recognition endpoint: a concurrency cap plus a sliding-window request
// cap. Pruning is lazy on each check; the limiter runs no goroutines of
// its own.
package ratelimit

import (
	"sync"
	"time"
)

// Defaults for the recognition rate limiter.
const (
	DefaultMaxConcurrent = 3
	DefaultWindow        = time.Minute
	DefaultMaxRequests   = 30
)

// Stats is a snapshot of the limiter state.
type Stats struct {
	CurrentConcurrent int `json:"current_concurrent"`
	MaxConcurrent     int `json:"max_concurrent"`
	RequestsInWindow  int `json:"requests_in_window"`
	MaxRequests       int `json:"max_requests"`
}

// Limiter implements both admission gates. A request is admitted only
// when the concurrent count is below the cap AND the trailing window
// holds fewer than maxRequests timestamps.
type Limiter struct {
	mu                sync.Mutex
	currentConcurrent int
	timestamps        []time.Time
	maxConcurrent     int
	window            time.Duration
	maxRequests       int
	now               func() time.Time
}

// New creates a limiter. Non-positive arguments fall back to defaults.
func New(maxConcurrent int, window time.Duration, maxRequests int) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	return &Limiter{
		maxConcurrent: maxConcurrent,
		window:        window,
		maxRequests:   maxRequests,
		now:           time.Now,
	}
}

// CanAccept reports whether a new request would be admitted right now.
func (l *Limiter) CanAccept() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked()
	return l.currentConcurrent < l.maxConcurrent && len(l.timestamps) < l.maxRequests
}

// Start records an admitted request: increments the concurrent count
// and appends a window timestamp.
func (l *Limiter) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.currentConcurrent++
	l.timestamps = append(l.timestamps, l.now())
}

// End releases a concurrency slot. Floored at zero so a double End
// never corrupts the count.
func (l *Limiter) End() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentConcurrent > 0 {
		l.currentConcurrent--
	}
}

// Stats returns a snapshot after pruning the window.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked()
	return Stats{
		CurrentConcurrent: l.currentConcurrent,
		MaxConcurrent:     l.maxConcurrent,
		RequestsInWindow:  len(l.timestamps),
		MaxRequests:       l.maxRequests,
	}
}

// pruneLocked drops timestamps that fell out of the trailing window.
func (l *Limiter) pruneLocked() {
	cutoff := l.now().Add(-l.window)
	i := 0
	for i < len(l.timestamps) && !l.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[i:]...)
	}
}
