// Package snippet cuts a short window of entry text around the first query
// match and records where the matched terms are so callers can highlight
// them.
package snippet

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

// DefaultRadius is the window size, in runes, on each side of the match.
const DefaultRadius = 80

const ellipsis = "…"

// Span is a half-open byte range in Snippet.Text.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Snippet is an excerpt with highlight positions.
type Snippet struct {
	Text       string `json:"text"`
	Highlights []Span `json:"highlights,omitempty"`
}

// Marked renders the snippet with openMark and closeMark around every
// highlight.
func (s Snippet) Marked(openMark, closeMark string) string {
	if len(s.Highlights) == 0 {
		return s.Text
	}
	var b strings.Builder
	b.Grow(len(s.Text) + len(s.Highlights)*(len(openMark)+len(closeMark)))
	last := 0
	for _, h := range s.Highlights {
		b.WriteString(s.Text[last:h.Start])
		b.WriteString(openMark)
		b.WriteString(s.Text[h.Start:h.End])
		b.WriteString(closeMark)
		last = h.End
	}
	b.WriteString(s.Text[last:])
	return b.String()
}

// Options configure extraction. Zero values take defaults.
type Options struct {
	Radius    int
	Tokenizer *tokenizer.Tokenizer
}

// Extract returns the part of text around the first token that is one of
// terms. Terms must already be normalised. When no term occurs it returns
// a highlight-free prefix of text. It never fails; empty text yields an
// empty snippet.
func Extract(text string, terms []string, opts Options) Snippet {
	if strings.TrimSpace(text) == "" {
		return Snippet{}
	}
	radius := opts.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}
	tok := opts.Tokenizer
	if tok == nil {
		tok = tokenizer.Default()
	}

	want := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		want[t] = struct{}{}
	}
	var matches []Span
	for t := range tok.Tokens(text) {
		if _, ok := want[t.Term]; ok {
			matches = append(matches, Span{Start: t.Start, End: t.End})
		}
	}

	if len(matches) == 0 {
		end := forwardRunes(text, 0, 2*radius)
		if end < len(text) {
			end = clipEnd(text, 0, end)
		}
		return render(text, 0, end, nil)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].End > matches[j].End
	})
	first := matches[0]

	start := backRunes(text, first.Start, radius)
	if start > 0 {
		start = clipStart(text, start, first.Start)
	}
	end := forwardRunes(text, first.End, radius)
	if end < len(text) {
		end = clipEnd(text, first.End, end)
	}
	return render(text, start, end, mergeSpans(matches, start, end))
}

func backRunes(s string, from, n int) int {
	for i := from; n > 0 && i > 0; n-- {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
		from = i
	}
	return from
}

func forwardRunes(s string, from, n int) int {
	for ; n > 0 && from < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[from:])
		from += size
	}
	return from
}

// clipStart moves start forward past a partial word, never beyond limit.
func clipStart(s string, start, limit int) int {
	r, _ := utf8.DecodeLastRuneInString(s[:start])
	if unicode.IsSpace(r) {
		return start
	}
	for i := start; i < limit; {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size
		if unicode.IsSpace(r) {
			return i
		}
	}
	return start
}

// clipEnd moves end back to the last space at or after floor, so the window
// does not cut a word.
func clipEnd(s string, floor, end int) int {
	r, _ := utf8.DecodeRuneInString(s[end:])
	if unicode.IsSpace(r) {
		return end
	}
	for i := end; i > floor; {
		r, size := utf8.DecodeLastRuneInString(s[:i])
		if unicode.IsSpace(r) {
			return i - size
		}
		i -= size
	}
	return end
}

// mergeSpans keeps the spans inside [start, end) and joins overlapping ones.
func mergeSpans(spans []Span, start, end int) []Span {
	out := make([]Span, 0, len(spans))
	for _, sp := range spans {
		if sp.Start < start || sp.End > end {
			continue
		}
		if n := len(out); n > 0 && sp.Start <= out[n-1].End {
			if sp.End > out[n-1].End {
				out[n-1].End = sp.End
			}
			continue
		}
		out = append(out, sp)
	}
	return out
}

// render writes text[start:end] with whitespace runs collapsed, adds an
// ellipsis on each cut side and maps spans to output offsets.
func render(text string, start, end int, spans []Span) Snippet {
	var b strings.Builder
	b.Grow(end - start + 2*len(ellipsis))
	if strings.TrimSpace(text[:start]) != "" {
		b.WriteString(ellipsis)
	}
	base := b.Len()

	n := end - start
	startAt := make([]int, n+1)
	endAt := make([]int, n+1)
	pendingSpace := false
	for i := start; i < end; {
		r, size := utf8.DecodeRuneInString(text[i:end])
		if unicode.IsSpace(r) {
			pendingSpace = b.Len() > base
			i += size
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		startAt[i-start] = b.Len()
		b.WriteString(text[i : i+size])
		i += size
		endAt[i-start] = b.Len()
	}
	if strings.TrimSpace(text[end:]) != "" {
		b.WriteString(ellipsis)
	}

	var highlights []Span
	for _, sp := range spans {
		highlights = append(highlights, Span{
			Start: startAt[sp.Start-start],
			End:   endAt[sp.End-start],
		})
	}
	return Snippet{Text: b.String(), Highlights: highlights}
}
