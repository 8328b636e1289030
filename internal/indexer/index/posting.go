package index

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
)

// Field identifies which part of an entry a posting was found in.
type Field uint8

const (
	FieldTitle Field = iota
	FieldText
)

func (f Field) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldText:
		return "text"
	default:
		return "unknown"
	}
}

// Weights are the per-field score multipliers recorded on postings.
type Weights struct {
	Title float64 `yaml:"title"`
	Text  float64 `yaml:"text"`
}

// DefaultWeights makes a title hit worth four body hits.
var DefaultWeights = Weights{Title: 4.0, Text: 1.0}

// Validate checks that title hits outweigh body hits.
func (w Weights) Validate() error {
	if w.Text <= 0 {
		return fmt.Errorf("text weight must be positive, got %v", w.Text)
	}
	if w.Title <= w.Text {
		return fmt.Errorf("title weight %v must exceed text weight %v", w.Title, w.Text)
	}
	return nil
}

func (w Weights) of(f Field) float64 {
	if f == FieldTitle {
		return w.Title
	}
	return w.Text
}

// Posting records that a term occurs Frequency times in one field of an
// entry.
type Posting struct {
	Entry     entry.ID `json:"entry"`
	Field     Field    `json:"field"`
	Frequency uint32   `json:"frequency"`
	Weight    float64  `json:"weight"`
}

// PostingList is sorted by Entry; for one entry the title posting comes
// before the text posting.
type PostingList []Posting

// EntryIDs returns the distinct entry IDs of the list in ascending order.
func (pl PostingList) EntryIDs() []entry.ID {
	ids := make([]entry.ID, 0, len(pl))
	for _, p := range pl {
		if n := len(ids); n > 0 && ids[n-1] == p.Entry {
			continue
		}
		ids = append(ids, p.Entry)
	}
	return ids
}

// TermEntry pairs a term with its postings.
type TermEntry struct {
	Term     string
	Postings PostingList
}
