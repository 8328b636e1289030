package parser

import (
	"slices"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

// MatchMode says how the candidates were found.
type MatchMode string

const (
	MatchNone MatchMode = "none"
	MatchAll  MatchMode = "all"
	MatchAny  MatchMode = "any"
)

// Policy tunes the fallback from AND to OR. MinGroupsForFallback is the
// number of query words an entry must contain at least one term of to be
// kept by the fallback; it is capped at the number of words.
type Policy struct {
	MinGroupsForFallback int `yaml:"minGroupsForFallback"`
}

// DefaultPolicy keeps any entry matching any term.
var DefaultPolicy = Policy{MinGroupsForFallback: 1}

// Hit is the per-field frequency of one query term in a candidate.
type Hit struct {
	Term  int    `json:"term"`
	Title uint32 `json:"title"`
	Text  uint32 `json:"text"`
}

// Candidate is one matched entry. Hits are ordered by term index.
type Candidate struct {
	Entry entry.ID `json:"entry"`
	Hits  []Hit    `json:"hits"`
}

// Resolution is the outcome of resolving a plan. Candidates are sorted by
// entry ID.
type Resolution struct {
	Plan       *QueryPlan
	Mode       MatchMode
	Candidates []Candidate
	// DocFreq is the number of entries containing each term, by term index.
	DocFreq []int
}

// Resolve finds the entries matching plan. An entry matches a group when it
// contains every part of the group or the group's compound. Entries matching
// all groups win; when there are none, every entry containing any term is a
// candidate, subject to policy. Terms missing from the index are ignored.
func Resolve(idx *index.Index, plan *QueryPlan, policy Policy) *Resolution {
	res := &Resolution{
		Plan:       plan,
		Mode:       MatchNone,
		Candidates: make([]Candidate, 0),
		DocFreq:    make([]int, len(plan.Terms)),
	}
	if idx == nil || plan.Empty() || len(plan.Groups) == 0 {
		return res
	}

	postings := make([]index.PostingList, len(plan.Terms))
	ids := make([][]entry.ID, len(plan.Terms))
	for i, t := range plan.Terms {
		postings[i] = idx.Lookup(t.Text)
		ids[i] = postings[i].EntryIDs()
		res.DocFreq[i] = len(ids[i])
	}

	var matched []entry.ID
	for gi, g := range plan.Groups {
		sat := groupEntries(g, ids)
		if gi == 0 {
			matched = sat
		} else {
			matched = intersect(matched, sat)
		}
		if len(matched) == 0 {
			break
		}
	}

	if len(matched) > 0 {
		res.Mode = MatchAll
	} else {
		matched = fallback(plan, ids, policy)
		if len(matched) > 0 {
			res.Mode = MatchAny
		}
	}
	res.Candidates = collectHits(matched, postings)
	return res
}

func groupEntries(g Group, ids [][]entry.ID) []entry.ID {
	var all []entry.ID
	for i, p := range g.Parts {
		if i == 0 {
			all = ids[p]
		} else {
			all = intersect(all, ids[p])
		}
	}
	if g.Compound < 0 {
		return all
	}
	return union(all, ids[g.Compound])
}

func fallback(plan *QueryPlan, ids [][]entry.ID, policy Policy) []entry.ID {
	need := policy.MinGroupsForFallback
	if need < 1 {
		need = 1
	}
	if need > len(plan.Groups) {
		need = len(plan.Groups)
	}

	if need == 1 {
		var out []entry.ID
		for _, list := range ids {
			out = union(out, list)
		}
		return out
	}

	counts := make(map[entry.ID]int)
	for _, g := range plan.Groups {
		var some []entry.ID
		for _, p := range g.Parts {
			some = union(some, ids[p])
		}
		if g.Compound >= 0 {
			some = union(some, ids[g.Compound])
		}
		for _, id := range some {
			counts[id]++
		}
	}
	out := make([]entry.ID, 0, len(counts))
	for id, n := range counts {
		if n >= need {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// collectHits walks each posting list once against the sorted candidate
// IDs.
func collectHits(matched []entry.ID, postings []index.PostingList) []Candidate {
	cands := make([]Candidate, len(matched))
	for i, id := range matched {
		cands[i].Entry = id
	}
	for term, pl := range postings {
		ci := 0
		for _, p := range pl {
			for ci < len(cands) && cands[ci].Entry < p.Entry {
				ci++
			}
			if ci == len(cands) {
				break
			}
			if cands[ci].Entry != p.Entry {
				continue
			}
			c := &cands[ci]
			if n := len(c.Hits); n == 0 || c.Hits[n-1].Term != term {
				c.Hits = append(c.Hits, Hit{Term: term})
			}
			h := &c.Hits[len(c.Hits)-1]
			if p.Field == index.FieldTitle {
				h.Title += p.Frequency
			} else {
				h.Text += p.Frequency
			}
		}
	}
	return cands
}
