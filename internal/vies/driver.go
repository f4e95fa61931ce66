package vies

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/taxtools/viesbatch/internal/backoff"
	"github.com/taxtools/viesbatch/internal/ratelimit"
	"github.com/taxtools/viesbatch/internal/siren"
)

// RetryFunc observes one transient failure that is about to be retried.
// attempt is 1-indexed (1 = first retry). Implementations must be fast and
// non-blocking; they run on the worker goroutine.
type RetryFunc func(id siren.Identifier, attempt int, kind FailureKind)

// Driver wraps one logical validation in a retry loop: acquire a rate
// limiter slot, perform the attempt, classify, and either return a
// terminal Outcome or back off and try again.
//
// Retries for one identifier are strictly sequential; concurrency across
// identifiers is the worker pool's job.
type Driver struct {
	client     *Client
	limiter    *ratelimit.Limiter
	newBackoff func() backoff.Strategy
	maxRetries int
	onRetry    RetryFunc
	log        zerolog.Logger
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithOnRetry installs a retry observer, e.g. console markers.
func WithOnRetry(fn RetryFunc) DriverOption {
	return func(d *Driver) { d.onRetry = fn }
}

// WithLogger sets the driver's logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) DriverOption {
	return func(d *Driver) { d.log = log }
}

// NewDriver creates a retry driver. newBackoff is invoked once per
// identifier so that delay state is never shared between concurrent
// validations. maxRetries is the number of retries after the initial
// attempt; a value of zero means exactly one attempt.
func NewDriver(
	client *Client,
	limiter *ratelimit.Limiter,
	newBackoff func() backoff.Strategy,
	maxRetries int,
	opts ...DriverOption,
) *Driver {
	if maxRetries < 0 {
		maxRetries = 0
	}
	d := &Driver{
		client:     client,
		limiter:    limiter,
		newBackoff: newBackoff,
		maxRetries: maxRetries,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Validate drives up to maxRetries+1 attempts for one identifier and
// always returns exactly one Outcome. Transient failures back off and
// retry; permanent failures and retry exhaustion terminate with an error
// outcome carrying the classification.
func (d *Driver) Validate(ctx context.Context, id siren.Identifier, vat siren.VATNumber) Outcome {
	strat := d.newBackoff()
	strat.Reset()

	var last *ServiceError

	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if err := d.limiter.Acquire(ctx); err != nil {
			return Outcome{Identifier: id, VAT: vat, Kind: OutcomeError, Reason: err, Attempts: attempt}
		}

		registered, err := d.client.Check(ctx, vat)
		if err == nil {
			kind := OutcomeInvalid
			if registered {
				kind = OutcomeValid
			}
			return Outcome{Identifier: id, VAT: vat, Kind: kind, Attempts: attempt + 1}
		}

		var se *ServiceError
		if !errors.As(err, &se) {
			se = &ServiceError{Kind: FailureNetwork, cause: err}
		}

		if !se.Kind.Transient() {
			d.log.Warn().Stringer("siren", id).Stringer("vat", vat).
				Int("attempt", attempt+1).Err(se).Msg("permanent failure")
			return Outcome{Identifier: id, VAT: vat, Kind: OutcomeError, Reason: se, Attempts: attempt + 1}
		}

		last = se
		if attempt == d.maxRetries {
			break
		}

		if d.onRetry != nil {
			d.onRetry(id, attempt+1, se.Kind)
		}

		delay := strat.NextDelay(attempt)
		d.log.Debug().Stringer("siren", id).Int("attempt", attempt+1).
			Stringer("kind", se.Kind).Dur("delay", delay).Msg("transient failure, backing off")

		select {
		case <-ctx.Done():
			return Outcome{Identifier: id, VAT: vat, Kind: OutcomeError, Reason: ctx.Err(), Attempts: attempt + 1}
		case <-time.After(delay):
		}
	}

	reason := &ExhaustedError{Attempts: d.maxRetries + 1, Last: last}
	d.log.Warn().Stringer("siren", id).Stringer("vat", vat).Err(reason).Msg("retries exhausted")
	return Outcome{Identifier: id, VAT: vat, Kind: OutcomeError, Reason: reason, Attempts: d.maxRetries + 1}
}
