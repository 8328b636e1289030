// Package tokenizer provides text tokenisation for the search index.
// It folds case and diacritics, splits on whitespace and punctuation, and
// splits compounds such as "create-info" or "Geometry.Point" into their
// parts while also keeping the joined compound ("createinfo") as a token.
package tokenizer

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultMinLength is the shortest term, in runes, that is emitted.
const DefaultMinLength = 2

// Stop words still match; the ranker only weights them down.
var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Token is a single normalised term. Start and End are byte offsets of the
// source span in the original text. Chunk numbers the whitespace- or
// punctuation-delimited chunk the token came from; the parts of a compound
// and the compound itself share a chunk.
type Token struct {
	Term     string
	Position int
	Start    int
	End      int
	Chunk    int
	Compound bool
}

// Tokenizer turns text into tokens. The zero value is not usable; call New.
type Tokenizer struct {
	minLength int
}

// Option configures a Tokenizer.
type Option func(*Tokenizer)

// WithMinLength sets the minimum term length in runes. Values below 1 are
// ignored.
func WithMinLength(n int) Option {
	return func(t *Tokenizer) {
		if n >= 1 {
			t.minLength = n
		}
	}
}

// New creates a Tokenizer.
func New(opts ...Option) *Tokenizer {
	t := &Tokenizer{minLength: DefaultMinLength}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var defaultTokenizer = New()

// Default returns the shared Tokenizer with default options.
func Default() *Tokenizer {
	return defaultTokenizer
}

// Tokenize breaks text into tokens using the default options.
func Tokenize(text string) []Token {
	return defaultTokenizer.Tokenize(text)
}

// IsStopWord reports whether term is a low-information word.
func IsStopWord(term string) bool {
	_, ok := stopWords[term]
	return ok
}

// MinLength returns the configured minimum term length.
func (t *Tokenizer) MinLength() int {
	return t.minLength
}

// Tokenize collects Tokens(text).
func (t *Tokenizer) Tokenize(text string) []Token {
	tokens := make([]Token, 0, len(text)/6)
	for tok := range t.Tokens(text) {
		tokens = append(tokens, tok)
	}
	return tokens
}

// Tokens returns a lazy sequence of tokens in text order. Ranging over the
// sequence again restarts it from the beginning.
func (t *Tokenizer) Tokens(text string) iter.Seq[Token] {
	return func(yield func(Token) bool) {
		s := scanner{
			text:      text,
			minLength: t.minLength,
			fold:      newFolder(),
			yield:     yield,
		}
		s.run()
	}
}

type scanner struct {
	text      string
	minLength int
	fold      transform.Transformer
	yield     func(Token) bool
	pos       int
	chunk     int
}

func (s *scanner) run() {
	i := 0
	for i < len(s.text) {
		r, size := utf8.DecodeRuneInString(s.text[i:])
		if !inChunk(r) {
			i += size
			continue
		}
		start := i
		for i < len(s.text) {
			r, size = utf8.DecodeRuneInString(s.text[i:])
			if !inChunk(r) {
				break
			}
			i += size
		}
		if !s.emitChunk(start, i) {
			return
		}
	}
}

type part struct {
	term       string
	start, end int
}

// emitChunk yields the parts of text[start:end] and, when there is more
// than one part, their concatenation. It returns false once the consumer
// stops.
func (s *scanner) emitChunk(start, end int) bool {
	var parts []part
	partStart := -1
	for i := start; i <= end; {
		var r rune
		size := 1
		if i < end {
			r, size = utf8.DecodeRuneInString(s.text[i:end])
		}
		if i == end || isSecondary(r) {
			if partStart >= 0 {
				parts = append(parts, part{
					term:  s.normalize(s.text[partStart:i]),
					start: partStart,
					end:   i,
				})
				partStart = -1
			}
			if i == end {
				break
			}
		} else if partStart < 0 {
			partStart = i
		}
		i += size
	}
	if len(parts) == 0 {
		return true
	}

	firstPos := -1
	for _, p := range parts {
		if utf8.RuneCountInString(p.term) < s.minLength {
			continue
		}
		if firstPos < 0 {
			firstPos = s.pos
		}
		if !s.yield(Token{Term: p.term, Position: s.pos, Start: p.start, End: p.end, Chunk: s.chunk}) {
			return false
		}
		s.pos++
	}

	if len(parts) > 1 {
		var b strings.Builder
		for _, p := range parts {
			b.WriteString(p.term)
		}
		compound := b.String()
		if utf8.RuneCountInString(compound) >= s.minLength {
			if firstPos < 0 {
				firstPos = s.pos
				s.pos++
			}
			tok := Token{
				Term:     compound,
				Position: firstPos,
				Start:    parts[0].start,
				End:      parts[len(parts)-1].end,
				Chunk:    s.chunk,
				Compound: true,
			}
			if !s.yield(tok) {
				return false
			}
		}
	}
	s.chunk++
	return true
}

func (s *scanner) normalize(word string) string {
	if isASCII(word) {
		return strings.ToLower(word)
	}
	folded, _, err := transform.String(s.fold, word)
	if err != nil {
		return strings.ToLower(word)
	}
	return folded
}

// newFolder strips diacritics and applies Unicode case folding. Transformers
// carry state, so each scan gets its own.
func newFolder() transform.Transformer {
	return transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		cases.Fold(),
		norm.NFC,
	)
}

func inChunk(r rune) bool {
	return isWordRune(r) || isSecondary(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.Is(unicode.Mn, r)
}

// isSecondary reports the punctuation that splits a chunk into parts while
// keeping the joined compound.
func isSecondary(r rune) bool {
	switch r {
	case '-', '.', ',', '(', ')':
		return true
	}
	return false
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
