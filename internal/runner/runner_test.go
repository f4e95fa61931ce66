package runner

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/taxtools/viesbatch/internal/siren"
	"github.com/taxtools/viesbatch/internal/vies"
)

// fakeValidator resolves outcomes from a fixed table, optionally sleeping
// to simulate slow pipelines.
type fakeValidator struct {
	mu       sync.Mutex
	seen     map[siren.Identifier]int
	outcomes func(id siren.Identifier) vies.Outcome
	delay    time.Duration
	inflight atomic.Int32
	peak     atomic.Int32
}

func newFakeValidator(fn func(id siren.Identifier) vies.Outcome) *fakeValidator {
	return &fakeValidator{
		seen:     make(map[siren.Identifier]int),
		outcomes: fn,
	}
}

func (f *fakeValidator) Validate(ctx context.Context, id siren.Identifier, vat siren.VATNumber) vies.Outcome {
	cur := f.inflight.Add(1)
	for {
		p := f.peak.Load()
		if cur <= p || f.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	defer f.inflight.Add(-1)

	f.mu.Lock()
	f.seen[id]++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	return f.outcomes(id)
}

// memorySink collects outcomes under a lock.
type memorySink struct {
	mu       sync.Mutex
	outcomes []vies.Outcome
}

func (m *memorySink) Record(out vies.Outcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, out)
}

func (m *memorySink) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.outcomes)
}

func makeIdentifiers(t *testing.T, n int) []siren.Identifier {
	t.Helper()
	ids := make([]siren.Identifier, n)
	for i := range ids {
		id, err := siren.Parse(fmt.Sprintf("%09d", i))
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		ids[i] = id
	}
	return ids
}

func validOutcome(id siren.Identifier) vies.Outcome {
	return vies.Outcome{Identifier: id, VAT: id.VAT(), Kind: vies.OutcomeValid, Attempts: 1}
}

func TestPool_ExactlyOneOutcomePerIdentifier(t *testing.T) {
	const n = 200
	ids := makeIdentifiers(t, n)

	for _, workers := range []int{1, 2, 5, 16, n} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			v := newFakeValidator(validOutcome)
			sink := &memorySink{}
			p := New(v, sink, WithWorkers(workers))

			if err := p.Run(context.Background(), ids); err != nil {
				t.Fatalf("Run: %v", err)
			}

			if got := sink.len(); got != n {
				t.Fatalf("recorded %d outcomes, want %d", got, n)
			}

			v.mu.Lock()
			defer v.mu.Unlock()
			for _, id := range ids {
				if v.seen[id] != 1 {
					t.Errorf("identifier %s validated %d times, want exactly once", id, v.seen[id])
				}
			}
		})
	}
}

func TestPool_ConcurrencyBoundedByWorkerCount(t *testing.T) {
	const workers = 4
	v := newFakeValidator(validOutcome)
	v.delay = 20 * time.Millisecond
	p := New(v, &memorySink{}, WithWorkers(workers))

	if err := p.Run(context.Background(), makeIdentifiers(t, 40)); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if peak := v.peak.Load(); peak > workers {
		t.Errorf("observed %d concurrent validations, want at most %d", peak, workers)
	}
}

func TestPool_FailuresDoNotAbortBatch(t *testing.T) {
	ids := makeIdentifiers(t, 50)

	// Every fifth identifier exhausts its retries; the rest succeed.
	v := newFakeValidator(func(id siren.Identifier) vies.Outcome {
		if id[len(id)-1] == '5' || id[len(id)-1] == '0' {
			return vies.Outcome{
				Identifier: id,
				Kind:       vies.OutcomeError,
				Reason:     &vies.ExhaustedError{Attempts: 3},
				Attempts:   3,
			}
		}
		return validOutcome(id)
	})
	sink := &memorySink{}
	p := New(v, sink, WithWorkers(8))

	if err := p.Run(context.Background(), ids); err != nil {
		t.Fatalf("Run returned error for per-identifier failures: %v", err)
	}
	if got := sink.len(); got != len(ids) {
		t.Fatalf("recorded %d outcomes, want %d", got, len(ids))
	}
}

func TestPool_SlowFailingIdentifierDoesNotBlockOthers(t *testing.T) {
	ids := makeIdentifiers(t, 20)
	slow := ids[0]

	v := newFakeValidator(func(id siren.Identifier) vies.Outcome {
		return validOutcome(id)
	})
	base := v.outcomes
	v.outcomes = func(id siren.Identifier) vies.Outcome {
		if id == slow {
			time.Sleep(300 * time.Millisecond)
			return vies.Outcome{Identifier: id, Kind: vies.OutcomeError, Reason: &vies.ExhaustedError{Attempts: 5}}
		}
		return base(id)
	}

	sink := &memorySink{}
	var fastDone atomic.Int32
	p := New(v, sink,
		WithWorkers(4),
		WithOnResult(func(out vies.Outcome) {
			if out.Kind == vies.OutcomeValid {
				fastDone.Add(1)
			}
		}),
	)

	start := time.Now()
	if err := p.Run(context.Background(), ids); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if got := sink.len(); got != len(ids) {
		t.Fatalf("recorded %d outcomes, want %d", got, len(ids))
	}
	if fastDone.Load() != int32(len(ids)-1) {
		t.Errorf("fast identifiers completed: %d, want %d", fastDone.Load(), len(ids)-1)
	}
	// The whole batch is gated on the slow one, but not on N times it.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("batch took %v; slow identifier appears to have serialised the pool", elapsed)
	}
}

func TestPool_EmptyBatch(t *testing.T) {
	p := New(newFakeValidator(validOutcome), &memorySink{}, WithWorkers(4))
	if err := p.Run(context.Background(), nil); err != nil {
		t.Fatalf("Run on empty batch: %v", err)
	}
}

func TestPool_ContextCancellationStopsDispatch(t *testing.T) {
	ids := makeIdentifiers(t, 1000)
	v := newFakeValidator(validOutcome)
	v.delay = 10 * time.Millisecond
	sink := &memorySink{}
	p := New(v, sink, WithWorkers(2))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := p.Run(ctx, ids)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if got := sink.len(); got >= len(ids) {
		t.Errorf("cancellation did not stop dispatch: %d outcomes recorded", got)
	}
}

func TestPool_OnResultSeesEveryOutcome(t *testing.T) {
	ids := makeIdentifiers(t, 64)
	var results atomic.Int32
	p := New(newFakeValidator(validOutcome), &memorySink{},
		WithWorkers(8),
		WithOnResult(func(vies.Outcome) { results.Add(1) }),
	)

	if err := p.Run(context.Background(), ids); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results.Load() != int32(len(ids)) {
		t.Errorf("onResult called %d times, want %d", results.Load(), len(ids))
	}
}
