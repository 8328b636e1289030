package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func terms(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Term
	}
	return out
}

func TestTokenizeBasic(t *testing.T) {
	got := Tokenize("Foo is a type.")
	assert.Equal(t, []string{"foo", "is", "type"}, terms(got))
	assert.Equal(t, 0, got[0].Position)
	assert.Equal(t, 1, got[1].Position)
	assert.Equal(t, 2, got[2].Position)
}

func TestTokenizeCompound(t *testing.T) {
	got := Tokenize("create-info")
	require.Len(t, got, 3)
	assert.Equal(t, []string{"create", "info", "createinfo"}, terms(got))
	assert.False(t, got[0].Compound)
	assert.True(t, got[2].Compound)
	assert.Equal(t, got[0].Position, got[2].Position)
	assert.Equal(t, 0, got[2].Start)
	assert.Equal(t, len("create-info"), got[2].End)
	assert.Equal(t, got[0].Chunk, got[2].Chunk)
}

func TestTokenizeQualifiedName(t *testing.T) {
	text := "struct Point <: Geometry.Shape"
	got := Tokenize(text)
	assert.Equal(t, []string{"struct", "point", "geometry", "shape", "geometryshape"}, terms(got))
	shape := got[3]
	assert.Equal(t, "Shape", text[shape.Start:shape.End])
}

func TestTokenizeShortPartsStillFormCompound(t *testing.T) {
	got := Tokenize("x-ray f(x)")
	assert.Equal(t, []string{"ray", "xray", "fx"}, terms(got))
}

func TestTokenizeKeepsUnderscoreWords(t *testing.T) {
	got := Tokenize("is_inferable_length(spec::Spec)")
	assert.Equal(t, []string{"is_inferable_length", "spec", "is_inferable_lengthspec", "spec"}, terms(got))
}

func TestTokenizeFoldsCaseAndDiacritics(t *testing.T) {
	got := Tokenize("Ünïcode CAFÉ Ørsted")
	assert.Equal(t, []string{"unicode", "cafe", "ørsted"}, terms(got))
}

func TestTokenizeOffsetsPointIntoOriginal(t *testing.T) {
	text := "Résumé of Foo-Bar"
	for _, tok := range Tokenize(text) {
		require.LessOrEqual(t, tok.End, len(text))
		assert.NotEmpty(t, text[tok.Start:tok.End])
	}
}

func TestTokenizeEmptyAndPunctuation(t *testing.T) {
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("   \n\t"))
	assert.Empty(t, Tokenize("... --- ,,, ()"))
	assert.Empty(t, Tokenize("a b c"))
}

func TestStopWordsAreKept(t *testing.T) {
	got := Tokenize("the point of the polygon")
	assert.Equal(t, []string{"the", "point", "of", "the", "polygon"}, terms(got))
	assert.True(t, IsStopWord("the"))
	assert.False(t, IsStopWord("polygon"))
}

func TestWithMinLength(t *testing.T) {
	tok := New(WithMinLength(1))
	assert.Equal(t, []string{"a", "b"}, terms(tok.Tokenize("a b")))
	assert.Equal(t, 1, tok.MinLength())

	tok = New(WithMinLength(0))
	assert.Equal(t, DefaultMinLength, tok.MinLength())
}

func TestTokensIsRestartableAndLazy(t *testing.T) {
	seq := Default().Tokens("alpha beta gamma")
	first := make([]string, 0)
	for tok := range seq {
		first = append(first, tok.Term)
	}
	second := make([]string, 0)
	for tok := range seq {
		second = append(second, tok.Term)
	}
	assert.Equal(t, first, second)

	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestTokenizeDeterministic(t *testing.T) {
	text := "Function func that creates a handle from a create info structure create_info_struct."
	assert.Equal(t, Tokenize(text), Tokenize(text))
}
