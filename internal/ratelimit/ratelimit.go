// Package ratelimit provides a token bucket limiter used to pace outbound
// requests to the source APIs.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket refilled at a fixed rate. Capacity equals the
// rate, so at most one second of burst is possible.
type Limiter struct {
	mu       sync.Mutex
	rate     float64 // tokens per second
	tokens   float64
	capacity float64
	last     time.Time
}

// New creates a limiter allowing rps requests per second. Non-positive rates
// are clamped to 1.
func New(rps float64) *Limiter {
	if rps <= 0 {
		rps = 1.0
	}
	return &Limiter{
		rate:     rps,
		tokens:   rps,
		capacity: rps,
		last:     time.Now(),
	}
}

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if l.take() {
			return nil
		}

		retry := time.Duration(float64(time.Second) / l.rate)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retry):
		}
	}
}

func (l *Limiter) take() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.tokens += now.Sub(l.last).Seconds() * l.rate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}
	l.last = now

	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		return true
	}
	return false
}
