// Package backoff provides retry delay strategies for the validation
// pipeline. A fresh Strategy is created per identifier so that retry
// sequences never share delay state across concurrent workers.
package backoff

import (
	"math/rand"
	"sync"
	"time"
)

// minJitteredDelay is the floor applied after jitter so a retry never
// fires effectively immediately.
const minJitteredDelay = 100 * time.Millisecond

// Strategy defines how retry delays are calculated.
type Strategy interface {
	// NextDelay returns the duration to wait before the next retry attempt.
	// attemptNumber is 0-indexed (0 = first retry after the initial failure).
	NextDelay(attemptNumber int) time.Duration

	// Reset resets any internal state. Call it when starting a new task.
	Reset()
}

// exponential implements multiplier-based exponential backoff.
// Delay sequence: delay_0 = initialDelay; delay_i = min(delay_{i-1} * multiplier, maxDelay).
//
// Unlike power-of-two doubling, the multiplier is configurable (e.g. 1.5
// for a moderate progression), so the strategy carries the previous delay
// as state and each instance must stay confined to one retry sequence.
type exponential struct {
	initialDelay time.Duration
	maxDelay     time.Duration
	multiplier   float64
	prevDelay    time.Duration
	mu           sync.Mutex
}

// NewExponential creates a multiplier-based exponential backoff strategy.
// multiplier values below 1 are treated as 1 (constant delay).
func NewExponential(initialDelay time.Duration, multiplier float64, maxDelay time.Duration) Strategy {
	if multiplier < 1 {
		multiplier = 1
	}
	if maxDelay < initialDelay {
		maxDelay = initialDelay
	}
	return &exponential{
		initialDelay: initialDelay,
		maxDelay:     maxDelay,
		multiplier:   multiplier,
		prevDelay:    0,
	}
}

// NextDelay advances the sequence and returns the delay for this attempt.
func (eb *exponential) NextDelay(attemptNumber int) time.Duration {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if attemptNumber <= 0 || eb.prevDelay == 0 {
		eb.prevDelay = eb.initialDelay
		return eb.initialDelay
	}

	next := time.Duration(float64(eb.prevDelay) * eb.multiplier)
	if next > eb.maxDelay || next < 0 {
		next = eb.maxDelay
	}
	eb.prevDelay = next
	return next
}

// Reset restarts the sequence at the initial delay.
func (eb *exponential) Reset() {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.prevDelay = 0
}

// jittered decorates another strategy with random jitter to prevent
// thundering herd: concurrent workers that failed on the same server
// hiccup would otherwise all retry at the same instant.
//
// The returned delay is base * (1 ± jitterFactor), floored at 100ms.
// Jitter is applied on the way out only; the underlying deterministic
// sequence is never perturbed.
type jittered struct {
	base         Strategy
	jitterFactor float64 // 0.0 to 1.0 (e.g. 0.3 = ±30% jitter)
	rng          *rand.Rand
	mu           sync.Mutex // Protect RNG access for thread-safety
}

// NewJittered wraps base with ±jitterFactor randomisation.
// jitterFactor is clamped to [0, 1].
func NewJittered(base Strategy, jitterFactor float64) Strategy {
	return &jittered{
		base:         base,
		jitterFactor: clamp(jitterFactor, 0, 1),
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())), // #nosec G404 -- crypto rand not needed for backoff jitter
	}
}

func (jb *jittered) NextDelay(attemptNumber int) time.Duration {
	baseDelay := jb.base.NextDelay(attemptNumber)

	jb.mu.Lock()
	jitterMultiplier := 1.0 + (jb.rng.Float64()*2-1)*jb.jitterFactor
	jb.mu.Unlock()

	actualDelay := time.Duration(float64(baseDelay) * jitterMultiplier)
	if actualDelay < minJitteredDelay {
		return minJitteredDelay
	}
	return actualDelay
}

func (jb *jittered) Reset() {
	jb.base.Reset()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
