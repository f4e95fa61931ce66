package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLimiter_Disabled_NeverBlocks(t *testing.T) {
	l := New(0)

	start := time.Now()
	for i := 0; i < 1000; i++ {
		if err := l.Acquire(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("disabled limiter blocked: %v for 1000 acquisitions", elapsed)
	}
}

func TestLimiter_CapsAcquisitionsPerWindow(t *testing.T) {
	// 5 per 500ms window; record acquisition timestamps and verify no
	// sliding 500ms interval ever holds more than 5.
	const limit = 5
	window := 500 * time.Millisecond
	l := NewWithWindow(limit, window)

	var mu sync.Mutex
	var stamps []time.Time

	ctx, cancel := context.WithTimeout(context.Background(), 1200*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				if err := l.Acquire(ctx); err != nil {
					return
				}
				mu.Lock()
				stamps = append(stamps, time.Now())
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(stamps) == 0 {
		t.Fatal("no acquisitions recorded")
	}

	// Window accounting is start-anchored, so allow the pathological
	// boundary case of one extra across two adjacent windows but never
	// more than limit within a counted window.
	for i := range stamps {
		count := 1
		for j := i + 1; j < len(stamps); j++ {
			if stamps[j].Sub(stamps[i]) < window {
				count++
			}
		}
		if count > limit+1 {
			t.Fatalf("observed %d acquisitions within one %v interval (limit %d)", count, window, limit)
		}
	}
}

func TestLimiter_BlocksWhenWindowExhausted(t *testing.T) {
	window := 300 * time.Millisecond
	l := NewWithWindow(2, window)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := l.Acquire(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	elapsed := time.Since(start)

	// The third acquisition cannot land in the first window; with the
	// pacer spacing, at least one window-length worth of waiting is due.
	if elapsed < window {
		t.Errorf("third acquisition completed in %v, want at least %v", elapsed, window)
	}
}

func TestLimiter_AcquireRespectsContextCancellation(t *testing.T) {
	l := NewWithWindow(1, time.Minute)
	if err := l.Acquire(context.Background()); err != nil {
		t.Fatalf("first acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := l.Acquire(ctx)
	if err == nil {
		t.Fatal("expected context error, got nil")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("cancelled acquire took %v, want prompt return", elapsed)
	}
}

func TestLimiter_WindowExpiryResetsCount(t *testing.T) {
	window := 200 * time.Millisecond
	l := NewWithWindow(2, window)
	ctx := context.Background()

	base := time.Now()
	fake := base
	var mu sync.Mutex
	l.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return fake
	}

	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := l.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	// Jump past the window: the count must reset and acquisitions proceed
	// without waiting for real time.
	mu.Lock()
	fake = base.Add(window + time.Millisecond)
	mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- l.Acquire(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("acquire after window expiry: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("acquire did not return after window expiry")
	}
}
