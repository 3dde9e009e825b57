// Package address holds the validated, normalized search address.
package address

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/refdesk/refrank/internal/domain"
)

// Address is an immutable geocoding input: either structured components
// (street, city, state, zip) or a single free-text line.
type Address struct {
	street   string
	city     string
	state    string
	zip      string
	freeform string
}

// New builds an Address from structured components. Components are trimmed,
// the state is uppercased, and at least one component must be non-empty.
func New(street, city, state, zip string) (Address, error) {
	a := Address{
		street: collapseSpaces(street),
		city:   collapseSpaces(city),
		state:  strings.ToUpper(collapseSpaces(state)),
		zip:    collapseSpaces(zip),
	}
	if a.street == "" && a.city == "" && a.state == "" && a.zip == "" {
		return Address{}, fmt.Errorf("%w: address requires at least one component", domain.ErrInvalidInput)
	}
	return a, nil
}

// NewFreeform builds an Address from a single free-text line.
func NewFreeform(text string) (Address, error) {
	normalized := normalizeLine(text)
	if normalized == "" {
		return Address{}, fmt.Errorf("%w: address text is empty", domain.ErrInvalidInput)
	}
	return Address{freeform: normalized}, nil
}

// Street returns the street component ("" for free-form addresses).
func (a Address) Street() string { return a.street }

// City returns the city component.
func (a Address) City() string { return a.city }

// State returns the uppercased state component.
func (a Address) State() string { return a.state }

// Zip returns the postal code component.
func (a Address) Zip() string { return a.zip }

// IsFreeform reports whether the address was supplied as a single line.
func (a Address) IsFreeform() bool { return a.freeform != "" }

// Normalized renders the canonical geocoding string: components as
// "street, city, STATE ZIP" with empty parts skipped, free text with
// comma and whitespace artifacts collapsed. Used as the cache key.
func (a Address) Normalized() string {
	if a.freeform != "" {
		return a.freeform
	}

	parts := make([]string, 0, 3)
	if a.street != "" {
		parts = append(parts, a.street)
	}
	if a.city != "" {
		parts = append(parts, a.city)
	}
	if tail := strings.TrimSpace(a.state + " " + a.zip); tail != "" {
		parts = append(parts, tail)
	}

	// Components may themselves contain commas; run the joined string
	// through the same artifact collapse as free-form input.
	return normalizeLine(strings.Join(parts, ", "))
}

// HasStreetNumber reports whether the street (or the first free-form
// segment) starts with a house number. Addresses without one are still
// geocoded but resolve with low confidence.
func (a Address) HasStreetNumber() bool {
	street := a.street
	if a.freeform != "" {
		street, _, _ = strings.Cut(a.freeform, ",")
	}
	street = strings.TrimSpace(street)
	if street == "" {
		return false
	}
	return unicode.IsDigit(rune(street[0]))
}

func (a Address) String() string { return a.Normalized() }

// normalizeLine collapses comma artifacts: ", ," runs, doubled commas,
// leading/trailing commas and redundant whitespace.
func normalizeLine(s string) string {
	segments := strings.Split(s, ",")
	kept := segments[:0]
	for _, seg := range segments {
		if seg = collapseSpaces(seg); seg != "" {
			kept = append(kept, seg)
		}
	}
	return strings.Join(kept, ", ")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
