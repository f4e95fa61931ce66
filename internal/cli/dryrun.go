package cli

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
)

// dryRun renders the VAT number each identifier would be validated as,
// without touching the network. It doubles as a format check for the
// input file before a long run.
func dryRun(w io.Writer, lines []inputLine) error {
	fmt.Fprintln(w, "Dry run - no API calls will be made")
	fmt.Fprintln(w)

	table := tablewriter.NewWriter(w)
	table.Header("SIREN", "VAT Number", "Status")

	ok, bad := 0, 0
	for _, l := range lines {
		if l.err != nil {
			bad++
			_ = table.Append(l.raw, "N/A", fmt.Sprintf("ERROR: %v", l.err))
			continue
		}
		ok++
		_ = table.Append(l.id.String(), l.id.VAT().String(), "OK")
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal: %d identifiers (%d ok, %d rejected)\n", len(lines), ok, bad)
	fmt.Fprintln(w, "Re-run without --dry-run to validate against VIES.")
	return nil
}
