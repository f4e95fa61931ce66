// Package siren models French SIREN business identifiers and their
// derived intra-EU VAT numbers.
//
// A SIREN is an opaque 9-digit registration number; leading zeros are
// significant, so identifiers are carried as strings end to end. The VAT
// number is a pure derivation and is never constructed independently:
//
//	VAT = "FR" + zeroPad2(key) + SIREN
//	key = (12 + 3*(SIREN mod 97)) mod 97
//
// The key formula is the official French administration checksum, which
// guarantees key is always in [0, 96] and renders as exactly two digits.
package siren

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Length is the exact number of digits in a SIREN.
const Length = 9

// ErrInvalidIdentifier is returned by Parse when the input is not exactly
// nine ASCII digits.
var ErrInvalidIdentifier = errors.New("siren: identifier must be exactly 9 digits")

// Identifier is a validated 9-digit SIREN. Construct via Parse; the zero
// value is not a valid identifier.
type Identifier string

// VATNumber is a French intra-EU VAT number derived from an Identifier,
// e.g. "FR38380129866". It is only ever produced by Identifier.VAT.
type VATNumber string

// Parse validates raw input as a SIREN identifier. Surrounding whitespace
// is trimmed; anything other than exactly nine ASCII digits is rejected.
//
// Example:
//
//	id, err := siren.Parse("380129866")
//	// id == siren.Identifier("380129866"), err == nil
func Parse(raw string) (Identifier, error) {
	s := strings.TrimSpace(raw)
	if len(s) != Length {
		return "", fmt.Errorf("%w: got %q", ErrInvalidIdentifier, s)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", fmt.Errorf("%w: got %q", ErrInvalidIdentifier, s)
		}
	}
	return Identifier(s), nil
}

// VAT derives the French VAT number for the identifier using the official
// checksum formula. The receiver must have been produced by Parse.
func (id Identifier) VAT() VATNumber {
	n, _ := strconv.ParseUint(string(id), 10, 64)
	key := (12 + 3*(n%97)) % 97
	return VATNumber(fmt.Sprintf("FR%02d%s", key, id))
}

func (id Identifier) String() string { return string(id) }

func (v VATNumber) String() string { return string(v) }
