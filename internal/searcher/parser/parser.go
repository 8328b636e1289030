// Package parser turns free-text queries into term groups and resolves them
// against an index into candidate entries with per-term match counts.
package parser

import (
	"slices"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

// Term is one distinct normalised query term.
type Term struct {
	Text     string `json:"text"`
	Stop     bool   `json:"stop,omitempty"`
	Compound bool   `json:"compound,omitempty"`
}

// Group is what one whitespace-delimited query word turned into. Parts and
// Compound index into QueryPlan.Terms; Compound is -1 when the word did not
// split.
type Group struct {
	Parts    []int `json:"parts"`
	Compound int   `json:"compound"`
}

// QueryPlan is the tokenised form of a query.
type QueryPlan struct {
	Raw      string  `json:"raw"`
	Terms    []Term  `json:"terms"`
	Groups   []Group `json:"groups"`
	TitleKey string  `json:"title_key"`
}

// Empty reports whether the query produced no terms.
func (p *QueryPlan) Empty() bool {
	return len(p.Terms) == 0
}

// TermTexts returns the terms in first-occurrence order.
func (p *QueryPlan) TermTexts() []string {
	out := make([]string, len(p.Terms))
	for i, t := range p.Terms {
		out[i] = t.Text
	}
	return out
}

// Key is a canonical form of the plan: two queries with the same key
// resolve and rank identically against any index.
func (p *QueryPlan) Key() string {
	groups := make([]string, len(p.Groups))
	for i, g := range p.Groups {
		parts := make([]string, len(g.Parts))
		for j, t := range g.Parts {
			parts[j] = p.Terms[t].Text
		}
		slices.Sort(parts)
		groups[i] = strings.Join(parts, "+")
		if g.Compound >= 0 {
			groups[i] += "=" + p.Terms[g.Compound].Text
		}
	}
	slices.Sort(groups)
	return strings.Join(groups, " ") + "|" + p.TitleKey
}

// Parse tokenises query with tok, which must be the tokenizer the index was
// built with.
func Parse(tok *tokenizer.Tokenizer, query string) *QueryPlan {
	plan := &QueryPlan{
		Raw:    query,
		Terms:  make([]Term, 0),
		Groups: make([]Group, 0),
	}
	termIdx := make(map[string]int)
	intern := func(t tokenizer.Token) int {
		if i, ok := termIdx[t.Term]; ok {
			return i
		}
		i := len(plan.Terms)
		termIdx[t.Term] = i
		plan.Terms = append(plan.Terms, Term{
			Text:     t.Term,
			Stop:     tokenizer.IsStopWord(t.Term),
			Compound: t.Compound,
		})
		return i
	}

	seenGroups := make(map[string]struct{})
	chunk := -1
	var cur *Group
	flush := func() {
		if cur == nil || (len(cur.Parts) == 0 && cur.Compound < 0) {
			return
		}
		sig := groupSignature(*cur)
		if _, dup := seenGroups[sig]; !dup {
			seenGroups[sig] = struct{}{}
			plan.Groups = append(plan.Groups, *cur)
		}
		cur = nil
	}
	for t := range tok.Tokens(query) {
		if t.Chunk != chunk {
			flush()
			chunk = t.Chunk
			cur = &Group{Compound: -1}
		}
		i := intern(t)
		if t.Compound {
			cur.Compound = i
		} else if !slices.Contains(cur.Parts, i) {
			cur.Parts = append(cur.Parts, i)
		}
	}
	flush()

	plan.TitleKey = index.TitleKey(tok, query)
	return plan
}

func groupSignature(g Group) string {
	b := make([]byte, 0, 4*(len(g.Parts)+1))
	for _, p := range g.Parts {
		b = strconv.AppendInt(b, int64(p), 10)
		b = append(b, ',')
	}
	b = append(b, '|')
	return string(strconv.AppendInt(b, int64(g.Compound), 10))
}
