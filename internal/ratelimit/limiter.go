package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter manages rate limits for the upstream endpoints, keyed by endpoint name
type Limiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
}

// New creates a Limiter with no limits configured
func New() *Limiter {
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// Unlimited returns a Limiter that lets every event through. Handy in tests.
func Unlimited(names ...string) *Limiter {
	l := New()
	for _, name := range names {
		l.Set(name, rate.Inf, 1)
	}
	return l
}

// Set configures the limit for an endpoint. requestsPerSecond <= 0 removes
// the limit.
func (l *Limiter) Set(name string, requestsPerSecond rate.Limit, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if requestsPerSecond <= 0 {
		delete(l.limiters, name)
		return
	}
	if burst < 1 {
		burst = 1
	}
	l.limiters[name] = rate.NewLimiter(requestsPerSecond, burst)
}

// Wait blocks until the rate limiter permits an event for the given endpoint.
// It returns an error if the context is canceled before the event can proceed.
func (l *Limiter) Wait(ctx context.Context, name string) error {
	if l == nil {
		return nil
	}

	l.mu.RLock()
	limiter, exists := l.limiters[name]
	l.mu.RUnlock()

	if !exists {
		return nil
	}

	return limiter.Wait(ctx)
}

// Allow reports whether an event for the given endpoint may happen now
func (l *Limiter) Allow(name string) bool {
	if l == nil {
		return true
	}

	l.mu.RLock()
	limiter, exists := l.limiters[name]
	l.mu.RUnlock()

	if !exists {
		return true
	}

	return limiter.Allow()
}
