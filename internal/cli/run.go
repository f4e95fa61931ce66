package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/taxtools/viesbatch/internal/backoff"
	"github.com/taxtools/viesbatch/internal/config"
	"github.com/taxtools/viesbatch/internal/logging"
	"github.com/taxtools/viesbatch/internal/proxy"
	"github.com/taxtools/viesbatch/internal/ratelimit"
	"github.com/taxtools/viesbatch/internal/report"
	"github.com/taxtools/viesbatch/internal/runner"
	"github.com/taxtools/viesbatch/internal/siren"
	"github.com/taxtools/viesbatch/internal/vies"
)

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Load(v)
	cfg.InputFile = args[0]
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Unreadable input is the one fatal condition; it aborts before any
	// dispatch begins.
	f, err := os.Open(cfg.InputFile)
	if err != nil {
		return fmt.Errorf("cannot read input file: %w", err)
	}
	lines, err := readInput(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	if cfg.DryRun {
		return dryRun(cmd.OutOrStdout(), lines)
	}

	return runBatch(cmd, cfg, lines)
}

func runBatch(cmd *cobra.Command, cfg config.Config, lines []inputLine) error {
	log, logCloser, err := logging.New(logging.Options{
		File:    cfg.LogFile,
		Verbose: cfg.Verbose,
		Quiet:   cfg.Quiet,
	})
	if err != nil {
		return err
	}
	defer func() { _ = logCloser.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := proxy.NewResolver(cfg.UseProxy)
	proxyURL, err := resolver.Resolve()
	if err != nil {
		return err
	}
	log.Debug().Str("proxy", proxy.Sanitize(proxyURL)).Msg("proxy configuration")

	limiter := ratelimit.New(cfg.RateLimit)
	client := vies.NewClient(cfg.Timeout, vies.WithProxy(resolver.Resolve))
	newBackoff := func() backoff.Strategy {
		return backoff.NewJittered(
			backoff.NewExponential(cfg.InitialDelay, cfg.Multiplier, cfg.MaxDelay),
			config.DefaultJitter,
		)
	}

	var reporter report.Reporter = report.NopReporter{}
	if !cfg.Quiet {
		reporter = report.NewConsoleReporter()
	}

	sink, err := report.NewCSVSink(cfg.ResolvedOutput(), log)
	if err != nil {
		return err
	}

	driver := vies.NewDriver(client, limiter, newBackoff, cfg.MaxRetries,
		vies.WithOnRetry(reporter.Retry),
		vies.WithLogger(log),
	)
	pool := runner.New(driver, sink,
		runner.WithWorkers(cfg.Workers),
		runner.WithOnResult(reporter.Done),
	)

	// Malformed input lines get their error outcome up front; they never
	// reach the pool.
	for _, l := range lines {
		if l.err != nil {
			sink.Record(vies.Outcome{
				Identifier: siren.Identifier(l.raw),
				Kind:       vies.OutcomeError,
				Reason:     l.err,
			})
		}
	}

	ids := identifiers(lines)
	log.Info().Str("input", cfg.InputFile).Int("identifiers", len(ids)).
		Int("workers", cfg.Workers).Int("rate_limit", cfg.RateLimit).
		Msg("starting batch")

	reporter.Start(len(ids))
	start := time.Now()
	runErr := pool.Run(ctx, ids)
	reporter.Finish()

	if cerr := sink.Close(); cerr != nil {
		return cerr
	}

	duration := time.Since(start)
	tally := sink.Totals()
	logEnd(log, cfg, tally, duration, len(ids))

	if !cfg.Quiet {
		renderSummary(cmd.OutOrStdout(), tally, cfg.ResolvedOutput(), duration)
	}
	return runErr
}

func logEnd(log zerolog.Logger, cfg config.Config, tally report.Tally, duration time.Duration, total int) {
	avg := time.Duration(0)
	if total > 0 {
		avg = duration / time.Duration(total)
	}
	log.Info().Str("input", cfg.InputFile).
		Int("valid", tally.Valid).Int("invalid", tally.Invalid).Int("failed", tally.Failed).
		Dur("duration", duration).Dur("avg_per_siren", avg).
		Msg("batch finished")
}
