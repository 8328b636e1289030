package entry

import (
	"fmt"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// Reasons an entry is dropped at build time.
const (
	ReasonMissingLocation   = "missing location"
	ReasonEmpty             = "empty title and text"
	ReasonDuplicateLocation = "duplicate location"
)

// MalformedEntryError describes an entry skipped during a build. Ordinal is
// the entry's position in the input batch.
type MalformedEntryError struct {
	Ordinal  int
	Location string
	Reason   string
}

func (e *MalformedEntryError) Error() string {
	if e.Location == "" {
		return fmt.Sprintf("entry %d: %s", e.Ordinal, e.Reason)
	}
	return fmt.Sprintf("entry %d (%q): %s", e.Ordinal, e.Location, e.Reason)
}

func (e *MalformedEntryError) Unwrap() error {
	return apperrors.ErrMalformedEntry
}

// Validate checks the required fields of e. It does not detect duplicate
// locations; that needs the whole batch.
func Validate(ordinal int, e Entry) error {
	if strings.TrimSpace(e.Location) == "" {
		return &MalformedEntryError{Ordinal: ordinal, Reason: ReasonMissingLocation}
	}
	if strings.TrimSpace(e.Title) == "" && strings.TrimSpace(e.Text) == "" {
		return &MalformedEntryError{Ordinal: ordinal, Location: e.Location, Reason: ReasonEmpty}
	}
	return nil
}

// Normalize returns e with its category folded into the enumeration.
func Normalize(e Entry) Entry {
	e.Category = ParseCategory(string(e.Category))
	return e
}
