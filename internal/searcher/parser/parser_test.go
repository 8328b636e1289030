package parser

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
)

func buildIndex(t *testing.T, entries ...entry.Entry) *index.Index {
	t.Helper()
	idx, _, err := index.NewBuilder().Build(context.Background(), entries)
	require.NoError(t, err)
	return idx
}

func locations(idx *index.Index, res *Resolution) []string {
	out := make([]string, len(res.Candidates))
	for i, c := range res.Candidates {
		out[i] = idx.Store().Get(c.Entry).Location
	}
	return out
}

func corpus(t *testing.T) *index.Index {
	return buildIndex(t,
		entry.Entry{Location: "#Foo", Title: "Foo", Text: "Foo is a type."},
		entry.Entry{Location: "#bar", Title: "bar", Text: "bar calls Foo internally."},
		entry.Entry{Location: "#split", Title: "split", Text: "create the info block"},
		entry.Entry{Location: "#joined", Title: "joined", Text: "see createinfo"},
		entry.Entry{Location: "#hyphen", Title: "hyphen", Text: "pass a create-info struct"},
		entry.Entry{Location: "#create", Title: "create", Text: "only create here"},
	)
}

func TestParseGroupsByWord(t *testing.T) {
	plan := Parse(tokenizer.Default(), "Create-Info  struct")
	assert.Equal(t, []string{"create", "info", "createinfo", "struct"}, plan.TermTexts())
	require.Len(t, plan.Groups, 2)
	assert.Equal(t, []int{0, 1}, plan.Groups[0].Parts)
	assert.Equal(t, 2, plan.Groups[0].Compound)
	assert.Equal(t, []int{3}, plan.Groups[1].Parts)
	assert.Equal(t, -1, plan.Groups[1].Compound)
	assert.True(t, plan.Terms[2].Compound)
	assert.Equal(t, "create info struct", plan.TitleKey)
}

func TestParseDeduplicates(t *testing.T) {
	plan := Parse(tokenizer.Default(), "foo FOO foo-bar")
	assert.Equal(t, []string{"foo", "bar", "foobar"}, plan.TermTexts())
	assert.Len(t, plan.Groups, 2)
}

func TestParseEmpty(t *testing.T) {
	for _, q := range []string{"", "   ", "a", "..."} {
		plan := Parse(tokenizer.Default(), q)
		assert.True(t, plan.Empty(), q)
		assert.Empty(t, plan.Groups, q)
	}
}

func TestPlanKey(t *testing.T) {
	tok := tokenizer.Default()
	a := Parse(tok, "Create-Info  struct")
	b := Parse(tok, "CREATE-info   Struct")
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, "create+info=createinfo struct|create info struct", a.Key())
	assert.NotEqual(t, a.Key(), Parse(tok, "struct create-info").Key())
}

func TestParseMarksStopWords(t *testing.T) {
	plan := Parse(tokenizer.Default(), "the polygon")
	require.Len(t, plan.Terms, 2)
	assert.True(t, plan.Terms[0].Stop)
	assert.False(t, plan.Terms[1].Stop)
}

func TestResolveAND(t *testing.T) {
	idx := corpus(t)
	res := Resolve(idx, Parse(idx.Tokenizer(), "foo bar"), DefaultPolicy)
	assert.Equal(t, MatchAll, res.Mode)
	assert.Equal(t, []string{"#bar"}, locations(idx, res))
}

func TestResolveCompoundMatchesPartsOrJoined(t *testing.T) {
	idx := corpus(t)
	res := Resolve(idx, Parse(idx.Tokenizer(), "create-info"), DefaultPolicy)
	assert.Equal(t, MatchAll, res.Mode)
	assert.ElementsMatch(t, []string{"#split", "#joined", "#hyphen"}, locations(idx, res))
}

func TestResolveFallsBackToOR(t *testing.T) {
	idx := corpus(t)
	res := Resolve(idx, Parse(idx.Tokenizer(), "foo qwertyuiop"), DefaultPolicy)
	assert.Equal(t, MatchAny, res.Mode)
	assert.Equal(t, []string{"#Foo", "#bar"}, locations(idx, res))
	assert.Equal(t, []int{2, 0}, res.DocFreq)
}

func TestResolveNoMatch(t *testing.T) {
	idx := corpus(t)
	res := Resolve(idx, Parse(idx.Tokenizer(), "zzz_nonexistent"), DefaultPolicy)
	assert.Equal(t, MatchNone, res.Mode)
	assert.Empty(t, res.Candidates)

	res = Resolve(idx, Parse(idx.Tokenizer(), ""), DefaultPolicy)
	assert.Equal(t, MatchNone, res.Mode)
	assert.NotNil(t, res.Candidates)
}

func TestResolveFallbackPolicy(t *testing.T) {
	idx := corpus(t)
	plan := Parse(idx.Tokenizer(), "foo create qwertyuiop")

	loose := Resolve(idx, plan, Policy{MinGroupsForFallback: 1})
	assert.Equal(t, MatchAny, loose.Mode)
	assert.Len(t, loose.Candidates, 5)

	// no entry has both foo and create
	strict := Resolve(idx, plan, Policy{MinGroupsForFallback: 2})
	assert.Equal(t, MatchNone, strict.Mode)

	// the threshold is capped at the number of words
	single := Resolve(idx, Parse(idx.Tokenizer(), "foo"), Policy{MinGroupsForFallback: 5})
	assert.Equal(t, MatchAll, single.Mode)
}

func TestResolveHits(t *testing.T) {
	idx := corpus(t)
	res := Resolve(idx, Parse(idx.Tokenizer(), "foo"), DefaultPolicy)
	require.Len(t, res.Candidates, 2)

	foo := res.Candidates[0]
	assert.Equal(t, "#Foo", idx.Store().Get(foo.Entry).Location)
	assert.Equal(t, []Hit{{Term: 0, Title: 1, Text: 1}}, foo.Hits)

	bar := res.Candidates[1]
	assert.Equal(t, []Hit{{Term: 0, Title: 0, Text: 1}}, bar.Hits)
}

func TestResolveIsIdempotent(t *testing.T) {
	idx := corpus(t)
	a := Resolve(idx, Parse(idx.Tokenizer(), "create info foo"), DefaultPolicy)
	b := Resolve(idx, Parse(idx.Tokenizer(), "create info foo"), DefaultPolicy)
	assert.Equal(t, a, b)
}

func TestSetOps(t *testing.T) {
	a := []entry.ID{1, 3, 5, 7}
	b := []entry.ID{2, 3, 7, 9}
	assert.Equal(t, []entry.ID{3, 7}, intersect(a, b))
	assert.Equal(t, []entry.ID{1, 2, 3, 5, 7, 9}, union(a, b))
	assert.Nil(t, intersect(a, nil))
	assert.Equal(t, a, union(a, nil))
}
