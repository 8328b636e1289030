// Package index holds the immutable inverted index over an entry.Store and
// the Builder that produces it in a single pass.
package index

import (
	"sort"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

// Index maps terms to postings. It is never mutated after Build returns
// and is safe for concurrent readers without locking.
type Index struct {
	store     *entry.Store
	postings  map[string]PostingList
	titleKeys []string
	tok       *tokenizer.Tokenizer
	weights   Weights
	summary   BuildSummary
	builtAt   time.Time
	postCount int
}

// Store returns the entries the index was built over.
func (idx *Index) Store() *entry.Store {
	return idx.store
}

// Lookup returns the postings for an already normalised term, or nil. The
// returned list is shared and must not be modified.
func (idx *Index) Lookup(term string) PostingList {
	return idx.postings[term]
}

// DocFreq returns the number of distinct entries containing term.
func (idx *Index) DocFreq(term string) int {
	pl := idx.postings[term]
	n := 0
	for i, p := range pl {
		if i == 0 || pl[i-1].Entry != p.Entry {
			n++
		}
	}
	return n
}

// TitleKey returns the normalised title of id, as produced by TitleKey.
func (idx *Index) TitleKey(id entry.ID) string {
	return idx.titleKeys[id]
}

// Tokenizer returns the tokenizer used at build time. Queries must use the
// same one.
func (idx *Index) Tokenizer() *tokenizer.Tokenizer {
	return idx.tok
}

func (idx *Index) Weights() Weights {
	return idx.weights
}

func (idx *Index) TermCount() int {
	return len(idx.postings)
}

func (idx *Index) PostingCount() int {
	return idx.postCount
}

// Fingerprint identifies the indexed content; see entry.Store.Fingerprint.
func (idx *Index) Fingerprint() string {
	return idx.store.Fingerprint()
}

// Summary returns the report of the build that produced idx.
func (idx *Index) Summary() BuildSummary {
	return idx.summary
}

func (idx *Index) BuiltAt() time.Time {
	return idx.builtAt
}

// TopTerms returns the n terms with the most postings, ties by term.
func (idx *Index) TopTerms(n int) []TermEntry {
	entries := make([]TermEntry, 0, len(idx.postings))
	for term, pl := range idx.postings {
		entries = append(entries, TermEntry{Term: term, Postings: pl})
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].Postings) != len(entries[j].Postings) {
			return len(entries[i].Postings) > len(entries[j].Postings)
		}
		return entries[i].Term < entries[j].Term
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// TitleKey normalises a title or query for exact-title comparison: the
// non-compound terms joined by single spaces.
func TitleKey(tok *tokenizer.Tokenizer, text string) string {
	var b strings.Builder
	for t := range tok.Tokens(text) {
		if t.Compound {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(t.Term)
	}
	return b.String()
}
