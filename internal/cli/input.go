package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/taxtools/viesbatch/internal/siren"
)

// inputLine is one non-blank, non-comment line of the input file, either
// parsed into an identifier or carrying its rejection.
type inputLine struct {
	raw string
	id  siren.Identifier
	err error
}

// readInput parses the identifier list. Blank lines and lines starting
// with '#' are skipped; malformed lines are kept with their error so the
// run can report them without dispatching network work for them.
func readInput(r io.Reader) ([]inputLine, error) {
	var lines []inputLine
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		id, err := siren.Parse(raw)
		lines = append(lines, inputLine{raw: raw, id: id, err: err})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cli: read input: %w", err)
	}
	return lines, nil
}

// identifiers returns the parseable identifiers from the input lines.
func identifiers(lines []inputLine) []siren.Identifier {
	ids := make([]siren.Identifier, 0, len(lines))
	for _, l := range lines {
		if l.err == nil {
			ids = append(ids, l.id)
		}
	}
	return ids
}
