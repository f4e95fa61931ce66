package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/taxtools/viesbatch/internal/report"
)

var (
	bold      = color.New(color.Bold)
	greenText = color.New(color.FgGreen)
	redText   = color.New(color.FgRed)
)

// renderSummary prints the end-of-batch report: outcome counts, where the
// CSV landed and how long the run took.
func renderSummary(w io.Writer, tally report.Tally, outputFile string, duration time.Duration) {
	fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, "Batch complete")

	table := tablewriter.NewWriter(w)
	table.Header("Outcome", "Count")
	_ = table.Append(greenText.Sprint("valid"), fmt.Sprintf("%d", tally.Valid))
	_ = table.Append("invalid", fmt.Sprintf("%d", tally.Invalid))
	_ = table.Append(redText.Sprint("failed"), fmt.Sprintf("%d", tally.Failed))
	_ = table.Render()

	avg := time.Duration(0)
	if total := tally.Total(); total > 0 {
		avg = (duration / time.Duration(total)).Round(time.Millisecond)
	}
	fmt.Fprintf(w, "\n%d identifiers in %v (avg %v/siren)\n",
		tally.Total(), duration.Round(time.Millisecond), avg)
	fmt.Fprintf(w, "Results written to %s\n", outputFile)
	if tally.Failed > 0 {
		_, _ = redText.Fprintf(w, "%d identifiers failed; see the log for reasons\n", tally.Failed)
	}
}
