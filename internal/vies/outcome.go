package vies

import (
	"github.com/taxtools/viesbatch/internal/siren"
)

// OutcomeKind is the terminal classification of one identifier's pipeline.
type OutcomeKind int

const (
	// OutcomeValid means the service confirmed the VAT number is registered.
	OutcomeValid OutcomeKind = iota
	// OutcomeInvalid means the service confirmed it is not registered.
	OutcomeInvalid
	// OutcomeError means no definitive answer could be obtained; Reason
	// carries the classification (permanent rejection or retry exhaustion).
	OutcomeError
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		return "invalid"
	default:
		return "error"
	}
}

// Outcome is the single result recorded per identifier, regardless of how
// many attempts were performed to obtain it.
type Outcome struct {
	Identifier siren.Identifier
	VAT        siren.VATNumber
	Kind       OutcomeKind
	Reason     error // non-nil exactly when Kind == OutcomeError
	Attempts   int   // request attempts performed (0 for dry runs / rejected input)
}

// Registered reports the service's boolean answer. Only meaningful when
// Kind is OutcomeValid or OutcomeInvalid.
func (o Outcome) Registered() bool { return o.Kind == OutcomeValid }
