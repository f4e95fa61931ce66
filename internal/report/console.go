package report

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/taxtools/viesbatch/internal/siren"
	"github.com/taxtools/viesbatch/internal/vies"
)

// Reporter consumes progress events from the pipeline. Implementations
// must be safe for concurrent use; workers call Retry and Done directly.
type Reporter interface {
	// Start announces the batch size before dispatch begins.
	Start(total int)
	// Retry observes one transient failure about to be retried.
	Retry(id siren.Identifier, attempt int, kind vies.FailureKind)
	// Done observes one terminal outcome.
	Done(out vies.Outcome)
	// Finish is called once after the pool has drained.
	Finish()
}

// NopReporter discards all events; used in quiet mode and in tests.
type NopReporter struct{}

func (NopReporter) Start(int)                                     {}
func (NopReporter) Retry(siren.Identifier, int, vies.FailureKind) {}
func (NopReporter) Done(vies.Outcome)                             {}
func (NopReporter) Finish()                                       {}

// Retry markers, one per transient sub-kind so an operator can tell a
// struggling service from a broken proxy at a glance.
var (
	busyMark    = color.New(color.Faint)
	proxyMark   = color.New(color.FgYellow)
	networkMark = color.New(color.FgRed)
)

// ConsoleReporter renders a progress bar across the batch plus single-rune
// retry markers: "." service busy, "P" proxy failure, "R" network failure.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewConsoleReporter creates a reporter writing to stderr.
func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{out: os.Stderr}
}

func (c *ConsoleReporter) Start(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Validating"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("siren"),
		progressbar.OptionThrottle(100*time.Millisecond),
	)
}

func (c *ConsoleReporter) Retry(_ siren.Identifier, _ int, kind vies.FailureKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch kind {
	case vies.FailureProxy:
		_, _ = proxyMark.Fprint(c.out, "P")
	case vies.FailureNetwork:
		_, _ = networkMark.Fprint(c.out, "R")
	default:
		_, _ = busyMark.Fprint(c.out, ".")
	}
}

func (c *ConsoleReporter) Done(vies.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar != nil {
		_ = c.bar.Add(1)
	}
}

func (c *ConsoleReporter) Finish() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bar != nil {
		_ = c.bar.Finish()
		_, _ = fmt.Fprintln(c.out)
	}
}
