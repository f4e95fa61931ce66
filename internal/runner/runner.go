// Package runner fans a batch of identifiers out to a fixed pool of
// workers, each driving the compute-VAT → validate pipeline, and waits for
// the pool to drain before reporting completion.
package runner

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/taxtools/viesbatch/internal/siren"
	"github.com/taxtools/viesbatch/internal/vies"
)

// Validator performs the full retry-wrapped validation of one identifier.
// *vies.Driver satisfies it.
type Validator interface {
	Validate(ctx context.Context, id siren.Identifier, vat siren.VATNumber) vies.Outcome
}

// Sink receives exactly one outcome per identifier. *report.CSVSink
// satisfies it.
type Sink interface {
	Record(out vies.Outcome)
}

// Pool processes identifiers concurrently with a fixed number of workers.
// One identifier's failure never aborts the rest of the batch: the
// Validator converts every failure into an Outcome, so workers only stop
// on context cancellation.
type Pool struct {
	workers   int
	validator Validator
	sink      Sink
	onResult  func(out vies.Outcome)
}

// Option configures a Pool.
type Option func(*Pool)

// WithWorkers sets the number of concurrent workers.
// Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithOnResult installs an observer called once per terminal outcome,
// after the sink has recorded it. Used to advance progress reporting.
func WithOnResult(fn func(out vies.Outcome)) Option {
	return func(p *Pool) { p.onResult = fn }
}

// New creates a pool over the given validator and sink.
func New(v Validator, s Sink, opts ...Option) *Pool {
	p := &Pool{
		workers:   runtime.GOMAXPROCS(0),
		validator: v,
		sink:      s,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes every identifier exactly once, at most workers
// concurrently, and returns after all have produced an outcome. The only
// error it returns is context cancellation; per-identifier failures are
// outcomes, not errors.
//
// Cancellation is checked at the top of the dispatch loop and between
// tasks; an attempt already in flight is never interrupted mid-request by
// the pool itself.
func (p *Pool) Run(ctx context.Context, ids []siren.Identifier) error {
	if len(ids) == 0 {
		return nil
	}

	workers := min(p.workers, len(ids))
	tasks := make(chan siren.Identifier)

	var g errgroup.Group
	g.Go(func() error {
		defer close(tasks)
		for _, id := range ids {
			select {
			case tasks <- id:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			return p.worker(ctx, tasks)
		})
	}

	return g.Wait()
}

// worker drains the shared task channel until it closes or the context is
// cancelled. The channel guarantees no identifier is delivered twice and
// none skipped.
func (p *Pool) worker(ctx context.Context, tasks <-chan siren.Identifier) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id, ok := <-tasks:
			if !ok {
				return nil
			}

			out := p.validator.Validate(ctx, id, id.VAT())
			p.sink.Record(out)
			if p.onResult != nil {
				p.onResult(out)
			}
		}
	}
}
