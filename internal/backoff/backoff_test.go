package backoff

import (
	"sync"
	"testing"
	"time"
)

func TestExponential_Sequence(t *testing.T) {
	s := NewExponential(200*time.Millisecond, 1.5, 30*time.Second)

	want := []time.Duration{
		200 * time.Millisecond,
		300 * time.Millisecond,
		450 * time.Millisecond,
		675 * time.Millisecond,
	}
	for i, w := range want {
		if got := s.NextDelay(i); got != w {
			t.Errorf("NextDelay(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestExponential_CappedAtMaxDelay(t *testing.T) {
	s := NewExponential(1*time.Second, 2.0, 4*time.Second)

	want := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		4 * time.Second, // stays capped
		4 * time.Second,
	}
	for i, w := range want {
		if got := s.NextDelay(i); got != w {
			t.Errorf("NextDelay(%d) = %v, want %v", i, got, w)
		}
	}
}

func TestExponential_Reset(t *testing.T) {
	s := NewExponential(100*time.Millisecond, 2.0, time.Minute)

	s.NextDelay(0)
	s.NextDelay(1)
	s.NextDelay(2)
	s.Reset()

	if got := s.NextDelay(0); got != 100*time.Millisecond {
		t.Errorf("after Reset, NextDelay(0) = %v, want 100ms", got)
	}
	if got := s.NextDelay(1); got != 200*time.Millisecond {
		t.Errorf("after Reset, NextDelay(1) = %v, want 200ms", got)
	}
}

func TestExponential_MultiplierBelowOne(t *testing.T) {
	s := NewExponential(500*time.Millisecond, 0.5, time.Minute)

	// A multiplier below 1 degrades to a constant delay, never a shrinking one.
	for i := 0; i < 4; i++ {
		if got := s.NextDelay(i); got != 500*time.Millisecond {
			t.Errorf("NextDelay(%d) = %v, want constant 500ms", i, got)
		}
	}
}

func TestJittered_WithinBounds(t *testing.T) {
	base := NewExponential(1*time.Second, 1.5, 30*time.Second)
	s := NewJittered(base, 0.3)

	for i := 0; i < 50; i++ {
		s.Reset()
		d := s.NextDelay(0)
		lo := 700 * time.Millisecond
		hi := 1300 * time.Millisecond
		if d < lo || d > hi {
			t.Fatalf("jittered delay %v outside [%v, %v]", d, lo, hi)
		}
	}
}

func TestJittered_Floor(t *testing.T) {
	base := NewExponential(1*time.Millisecond, 1.5, time.Second)
	s := NewJittered(base, 0.3)

	for i := 0; i < 20; i++ {
		s.Reset()
		if d := s.NextDelay(0); d < 100*time.Millisecond {
			t.Fatalf("jittered delay %v below the 100ms floor", d)
		}
	}
}

func TestJittered_DoesNotPerturbBaseSequence(t *testing.T) {
	base := NewExponential(1*time.Second, 2.0, time.Minute)
	s := NewJittered(base, 0.3)

	s.NextDelay(0) // 1s base
	s.NextDelay(1) // 2s base
	d := s.NextDelay(2)

	// Third base delay is 4s regardless of what jitter returned before.
	lo := time.Duration(float64(4*time.Second) * 0.7)
	hi := time.Duration(float64(4*time.Second) * 1.3)
	if d < lo || d > hi {
		t.Errorf("NextDelay(2) = %v, want within [%v, %v]", d, lo, hi)
	}
}

func TestJittered_ConcurrentUse(t *testing.T) {
	s := NewJittered(NewExponential(time.Millisecond, 1.5, time.Second), 0.3)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = s.NextDelay(j % 5)
			}
		}()
	}
	wg.Wait()
}
