// Package ranker scores resolved candidates and puts them in a total,
// deterministic order.
package ranker

import (
	"math"
	"sort"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
)

// DefaultStopWordWeight scales the contribution of stop-word terms.
const DefaultStopWordWeight = 0.25

// ScoredDoc is one ranked entry.
type ScoredDoc struct {
	Entry      entry.ID       `json:"-"`
	Location   string         `json:"location"`
	Category   entry.Category `json:"category"`
	Score      float64        `json:"score"`
	ExactTitle bool           `json:"exact_title,omitempty"`
}

// Options control a single Rank call.
type Options struct {
	// Limit caps the result count; 0 or less returns every candidate.
	Limit int
	// Categories, when non-empty, drops candidates of other categories.
	Categories     []entry.Category
	StopWordWeight float64
}

// Rank scores every candidate in res and returns them best first, along with
// the number of candidates that passed the category filter. Each term hit
// contributes
//
//	(titleFreq*titleWeight + textFreq*textWeight) * categoryWeight * termWeight
//
// Entries whose normalised title equals the query come first regardless of
// score. Ties fall to category priority and then location.
func Rank(idx *index.Index, res *parser.Resolution, opts Options) ([]ScoredDoc, int) {
	if idx == nil || res == nil || len(res.Candidates) == 0 {
		return []ScoredDoc{}, 0
	}
	stopWeight := opts.StopWordWeight
	if stopWeight <= 0 {
		stopWeight = DefaultStopWordWeight
	}
	var allowed map[entry.Category]struct{}
	if len(opts.Categories) > 0 {
		allowed = make(map[entry.Category]struct{}, len(opts.Categories))
		for _, c := range opts.Categories {
			allowed[c] = struct{}{}
		}
	}

	weights := idx.Weights()
	titleKey := res.Plan.TitleKey
	store := idx.Store()
	top := newTopK(opts.Limit)
	total := 0
	for _, cand := range res.Candidates {
		e := store.Get(cand.Entry)
		if allowed != nil {
			if _, ok := allowed[e.Category]; !ok {
				continue
			}
		}
		total++
		var score float64
		for _, h := range cand.Hits {
			tw := 1.0
			if res.Plan.Terms[h.Term].Stop {
				tw = stopWeight
			}
			score += (float64(h.Title)*weights.Title + float64(h.Text)*weights.Text) * tw
		}
		score *= e.Category.Weight()
		top.offer(ScoredDoc{
			Entry:      cand.Entry,
			Location:   e.Location,
			Category:   e.Category,
			Score:      math.Round(score*10000) / 10000,
			ExactTitle: titleKey != "" && idx.TitleKey(cand.Entry) == titleKey,
		})
	}
	return top.sorted(), total
}

// Less reports whether a ranks before b.
func Less(a, b ScoredDoc) bool {
	if a.ExactTitle != b.ExactTitle {
		return a.ExactTitle
	}
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if pa, pb := a.Category.Priority(), b.Category.Priority(); pa != pb {
		return pa < pb
	}
	return a.Location < b.Location
}

// Sort orders docs by Less.
func Sort(docs []ScoredDoc) {
	sort.Slice(docs, func(i, j int) bool {
		return Less(docs[i], docs[j])
	})
}
