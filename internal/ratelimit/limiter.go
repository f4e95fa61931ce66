// Package ratelimit gates outgoing requests to a configured number per
// rolling time window. One Limiter is shared by every worker in a run.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultWindow is the rolling window over which the request limit applies.
const DefaultWindow = time.Minute

// Limiter caps acquisitions to at most limit per rolling window. It combines
// two layers, in the manner of API connectors that both pace and cap:
//
//  1. A token-bucket pacer (x/time/rate) that spreads requests evenly
//     across the window instead of letting workers burn the whole quota in
//     a burst at the window start.
//  2. A hard windowed counter that guarantees no more than limit
//     acquisitions are counted in any window, whatever the pacer lets
//     through.
//
// A limit of zero disables both layers entirely; Acquire never blocks.
//
// All methods are safe for concurrent use. The counter mutex is never held
// across a sleep: waiting workers release it, sleep, then re-check the
// gate, since another worker may have consumed the freed slot first.
type Limiter struct {
	limit  int
	window time.Duration
	pacer  *rate.Limiter

	mu          sync.Mutex
	count       int
	windowStart time.Time

	now func() time.Time // injectable for tests
}

// New creates a limiter allowing perWindow acquisitions per rolling
// 60-second window. perWindow <= 0 disables rate limiting.
func New(perWindow int) *Limiter {
	return NewWithWindow(perWindow, DefaultWindow)
}

// NewWithWindow is New with an explicit window length. Tests use short
// windows to exercise expiry without real minutes passing.
func NewWithWindow(perWindow int, window time.Duration) *Limiter {
	l := &Limiter{
		limit:  perWindow,
		window: window,
		now:    time.Now,
	}
	if perWindow > 0 {
		l.pacer = rate.NewLimiter(rate.Every(window/time.Duration(perWindow)), 1)
	}
	return l
}

// Acquire blocks until issuing one more request would not exceed the limit
// within the trailing window, or until ctx is done. It returns immediately
// when the limiter is disabled.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.limit <= 0 {
		return nil
	}

	if err := l.pacer.Wait(ctx); err != nil {
		return err
	}

	for {
		l.mu.Lock()
		now := l.now()
		if now.Sub(l.windowStart) >= l.window {
			l.windowStart = now
			l.count = 0
		}
		if l.count < l.limit {
			l.count++
			l.mu.Unlock()
			return nil
		}
		wait := l.window - now.Sub(l.windowStart)
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
			// Re-check the gate: another worker may have taken the slot
			// that opened while we slept.
		}
	}
}

// Limit reports the configured per-window limit (0 = disabled).
func (l *Limiter) Limit() int { return l.limit }
