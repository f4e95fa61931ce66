// Package report records validation outcomes: a CSV sink for definitive
// answers and a console reporter for progress and retry markers.
package report

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/taxtools/viesbatch/internal/vies"
)

// Header is the first line of the output CSV.
const Header = "siren;has_vat"

// Tally counts outcomes by terminal classification.
type Tally struct {
	Valid   int
	Invalid int
	Failed  int
}

// Total returns the number of recorded outcomes.
func (t Tally) Total() int { return t.Valid + t.Invalid + t.Failed }

// CSVSink persists one row per definitively answered identifier, in the
// order outcomes arrive. Error outcomes never reach the CSV; they are
// written to the log instead, so the file stays a clean boolean dataset.
//
// Record is safe for concurrent use; rows are written whole under one lock
// so an external reader never observes a partial record. Close must be
// called before the batch is reported complete: it flushes buffered rows
// and syncs the file.
type CSVSink struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	log    zerolog.Logger
	tally  Tally
	closed bool
}

// NewCSVSink creates (or truncates) the output file and writes the header.
func NewCSVSink(path string, log zerolog.Logger) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: create output file: %w", err)
	}
	w := bufio.NewWriter(f)
	if _, err := fmt.Fprintln(w, Header); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("report: write header: %w", err)
	}
	return &CSVSink{f: f, w: w, log: log}, nil
}

// Record stores exactly one outcome for one identifier. Valid and Invalid
// outcomes become CSV rows "<siren>;True" / "<siren>;False"; Error
// outcomes are logged at warn level with their reason.
func (s *CSVSink) Record(out vies.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	switch out.Kind {
	case vies.OutcomeValid:
		s.tally.Valid++
		_, _ = fmt.Fprintf(s.w, "%s;True\n", out.Identifier)
	case vies.OutcomeInvalid:
		s.tally.Invalid++
		_, _ = fmt.Fprintf(s.w, "%s;False\n", out.Identifier)
	default:
		s.tally.Failed++
		s.log.Warn().Stringer("siren", out.Identifier).
			Int("attempts", out.Attempts).Err(out.Reason).
			Msg("identifier failed, omitted from output file")
	}
}

// Totals returns the outcome counts recorded so far.
func (s *CSVSink) Totals() Tally {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tally
}

// Close flushes and syncs the output file. Safe to call once.
func (s *CSVSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if err := s.w.Flush(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("report: flush output: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		_ = s.f.Close()
		return fmt.Errorf("report: sync output: %w", err)
	}
	return s.f.Close()
}
