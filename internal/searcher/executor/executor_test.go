package executor

import (
	"context"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

func docs() []entry.Entry {
	return []entry.Entry{
		{Location: "#Foo", Page: "api.html", Title: "Foo", Text: "Foo is a type.", Category: entry.CategoryType},
		{Location: "#bar", Page: "api.html", Title: "bar", Text: "bar calls Foo internally.", Category: entry.CategoryFunction},
		{Location: "#split", Page: "guide.html", Title: "Creating things", Text: "create the info block", Category: entry.CategorySection},
		{Location: "#joined", Page: "guide.html", Title: "Joined", Text: "see createinfo", Category: entry.CategorySection},
	}
}

func newEngine(t *testing.T, entries []entry.Entry) *indexer.Engine {
	t.Helper()
	eng := indexer.NewEngine(index.NewBuilder(), metrics.NewNop())
	_, err := eng.Rebuild(context.Background(), entries)
	require.NoError(t, err)
	return eng
}

func TestExecuteBeforeFirstBuild(t *testing.T) {
	eng := indexer.NewEngine(index.NewBuilder(), metrics.NewNop())
	_, err := New(eng, Options{}).Execute(context.Background(), Request{Query: "foo"})
	assert.ErrorIs(t, err, apperrors.ErrIndexNotReady)
}

func TestExecuteRanksAndRenders(t *testing.T) {
	m := metrics.NewNop()
	ex := New(newEngine(t, docs()), Options{MarkOpen: "<b>", MarkClose: "</b>"}, WithMetrics(m))
	res, err := ex.Execute(context.Background(), Request{Query: "Foo"})
	require.NoError(t, err)

	assert.Equal(t, parser.MatchAll, res.Mode)
	assert.Equal(t, 2, res.TotalHits)
	require.Len(t, res.Results, 2)
	first := res.Results[0]
	assert.Equal(t, "#Foo", first.Location)
	assert.Equal(t, "api.html", first.Page)
	assert.Equal(t, "Foo", first.Title)
	assert.True(t, first.ExactTitle)
	assert.Equal(t, "Foo is a type.", first.Snippet)
	assert.Equal(t, "<b>Foo</b> is a type.", first.Marked)
	assert.Equal(t, "#bar", res.Results[1].Location)
	assert.Equal(t, []string{"foo"}, res.Terms)
	assert.Equal(t, map[string]int{"foo": 2}, res.TermStats)
	assert.Equal(t, uint64(1), res.Generation)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SearchQueriesTotal.WithLabelValues("all")))
}

func TestExecuteEveryTitleRanksFirstOnGeneratorOutput(t *testing.T) {
	f, err := os.Open("../../entry/testdata/documenter_search_index.js")
	require.NoError(t, err)
	defer f.Close()
	entries, err := entry.Decode(f)
	require.NoError(t, err)

	eng := newEngine(t, entries)
	ex := New(eng, Options{})
	all := eng.Current().Store().All()
	require.Len(t, all, 43)
	for _, en := range all {
		res, err := ex.Execute(context.Background(), Request{Query: en.Title})
		require.NoError(t, err, en.Title)
		require.NotEmpty(t, res.Results, en.Title)
		assert.Equal(t, en.Location, res.Results[0].Location, "query %q", en.Title)
	}
}

func TestExecuteEmptyQueries(t *testing.T) {
	ex := New(newEngine(t, docs()), Options{})
	for _, q := range []string{"", "   ", "!!", "zzzunknown"} {
		res, err := ex.Execute(context.Background(), Request{Query: q})
		require.NoError(t, err, q)
		assert.Empty(t, res.Results, q)
		assert.Zero(t, res.TotalHits, q)
		assert.Equal(t, parser.MatchNone, res.Mode, q)
	}
}

func TestExecuteLimitAndCategories(t *testing.T) {
	ex := New(newEngine(t, docs()), Options{DefaultLimit: 1, MaxLimit: 3})

	res, err := ex.Execute(context.Background(), Request{Query: "foo"})
	require.NoError(t, err)
	assert.Len(t, res.Results, 1)
	assert.Equal(t, 2, res.TotalHits)

	res, err = ex.Execute(context.Background(), Request{Query: "foo", Limit: 50})
	require.NoError(t, err)
	assert.Len(t, res.Results, 2)

	res, err = ex.Execute(context.Background(), Request{Query: "foo", Limit: 5, Categories: []entry.Category{entry.CategoryFunction}})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "#bar", res.Results[0].Location)
	assert.Equal(t, 1, res.TotalHits)

	_, err = ex.Execute(context.Background(), Request{Query: "foo", Limit: -1})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	assert.Equal(t, http.StatusBadRequest, apperrors.HTTPStatusCode(err))
}

func TestExecuteCompoundQuery(t *testing.T) {
	ex := New(newEngine(t, docs()), Options{})
	res, err := ex.Execute(context.Background(), Request{Query: "create-info"})
	require.NoError(t, err)
	var got []string
	for _, r := range res.Results {
		got = append(got, r.Location)
	}
	assert.ElementsMatch(t, []string{"#split", "#joined"}, got)
}

func TestExecuteFallsBackToAny(t *testing.T) {
	ex := New(newEngine(t, docs()), Options{})
	res, err := ex.Execute(context.Background(), Request{Query: "foo createinfo"})
	require.NoError(t, err)
	assert.Equal(t, parser.MatchAny, res.Mode)
	assert.Equal(t, 3, res.TotalHits)
}

func TestExecuteSeesNewIndexAfterSwap(t *testing.T) {
	eng := newEngine(t, docs())
	ex := New(eng, Options{})
	res, err := ex.Execute(context.Background(), Request{Query: "widget"})
	require.NoError(t, err)
	assert.Zero(t, res.TotalHits)

	_, err = eng.Append(context.Background(), []entry.Entry{{Location: "#w", Title: "Widget", Text: "a widget"}})
	require.NoError(t, err)
	res, err = ex.Execute(context.Background(), Request{Query: "widget"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TotalHits)
	assert.Equal(t, uint64(2), res.Generation)
}

type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (s *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, goredis.Nil
	}
	return v, nil
}

func (s *mapStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *mapStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *mapStore) FlushByPattern(context.Context, string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = make(map[string][]byte)
	return n, nil
}

func TestExecuteUsesCache(t *testing.T) {
	eng := newEngine(t, docs())
	store := &mapStore{data: make(map[string][]byte)}
	ex := New(eng, Options{}, WithCache(cache.New(store, time.Minute, nil)))

	first, err := ex.Execute(context.Background(), Request{Query: "foo"})
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := ex.Execute(context.Background(), Request{Query: "  FOO "})
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Results, second.Results)
	assert.Equal(t, first.TotalHits, second.TotalHits)

	_, err = eng.Append(context.Background(), []entry.Entry{{Location: "#foo2", Title: "more", Text: "foo again"}})
	require.NoError(t, err)
	third, err := ex.Execute(context.Background(), Request{Query: "foo"})
	require.NoError(t, err)
	assert.False(t, third.CacheHit, "new fingerprint, new key")
	assert.Equal(t, 3, third.TotalHits)
}
