// Package executor runs queries end to end against the index currently
// exposed by the engine: parse, resolve, rank, then cut snippets.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/snippet"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

// IndexSource exposes the current index together with its generation.
// *indexer.Engine satisfies it.
type IndexSource interface {
	Snapshot() (*index.Index, uint64)
}

// Request is one query.
type Request struct {
	Query string
	// Limit caps the results; 0 means the configured default.
	Limit      int
	Categories []entry.Category
}

// Result is one rendered hit.
type Result struct {
	Location   string         `json:"location"`
	Page       string         `json:"page"`
	Title      string         `json:"title"`
	Category   entry.Category `json:"category"`
	Snippet    string         `json:"snippet"`
	Highlights []snippet.Span `json:"highlights,omitempty"`
	Marked     string         `json:"marked,omitempty"`
	Score      float64        `json:"score"`
	ExactTitle bool           `json:"exact_title,omitempty"`
}

// SearchResult is the answer to a Request.
type SearchResult struct {
	Query       string           `json:"query"`
	Mode        parser.MatchMode `json:"mode"`
	Terms       []string         `json:"terms"`
	TotalHits   int              `json:"total_hits"`
	Results     []Result         `json:"results"`
	TermStats   map[string]int   `json:"term_stats"`
	Generation  uint64           `json:"generation"`
	Fingerprint string           `json:"fingerprint,omitempty"`
	CacheHit    bool             `json:"cache_hit"`
	Took        time.Duration    `json:"-"`
}

// Options tune the executor. Zero values take defaults.
type Options struct {
	DefaultLimit   int
	MaxLimit       int
	Policy         parser.Policy
	StopWordWeight float64
	SnippetRadius  int
	MarkOpen       string
	MarkClose      string
}

// DefaultOptions mirror the config defaults.
var DefaultOptions = Options{
	DefaultLimit:   10,
	MaxLimit:       100,
	Policy:         parser.DefaultPolicy,
	StopWordWeight: ranker.DefaultStopWordWeight,
	SnippetRadius:  snippet.DefaultRadius,
}

// Executor is safe for concurrent use. It takes no locks on the query path.
type Executor struct {
	source  IndexSource
	opts    Options
	cache   *cache.ResultCache
	metrics *metrics.Metrics
	sampler *tracing.Sampler
	logger  *slog.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithCache puts a result cache in front of resolve and rank.
func WithCache(c *cache.ResultCache) Option {
	return func(e *Executor) { e.cache = c }
}

// WithMetrics records query metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// WithSampler logs sampled query traces.
func WithSampler(s *tracing.Sampler) Option {
	return func(e *Executor) { e.sampler = s }
}

// New creates an Executor reading from source.
func New(source IndexSource, opts Options, options ...Option) *Executor {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultOptions.DefaultLimit
	}
	if opts.MaxLimit < opts.DefaultLimit {
		opts.MaxLimit = max(DefaultOptions.MaxLimit, opts.DefaultLimit)
	}
	if opts.Policy.MinGroupsForFallback <= 0 {
		opts.Policy = DefaultOptions.Policy
	}
	if opts.StopWordWeight <= 0 {
		opts.StopWordWeight = DefaultOptions.StopWordWeight
	}
	if opts.SnippetRadius <= 0 {
		opts.SnippetRadius = DefaultOptions.SnippetRadius
	}
	e := &Executor{
		source: source,
		opts:   opts,
		logger: slog.Default().With("component", "query-executor"),
	}
	for _, o := range options {
		o(e)
	}
	return e
}

// Execute answers req against the index current at call time. It fails
// only for a negative limit or when no index has been built yet; queries
// without terms or matches yield an empty result.
func (e *Executor) Execute(ctx context.Context, req Request) (*SearchResult, error) {
	start := time.Now()
	if req.Limit < 0 {
		return nil, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must not be negative, got %d", req.Limit)
	}
	limit := req.Limit
	if limit == 0 {
		limit = e.opts.DefaultLimit
	}
	limit = min(limit, e.opts.MaxLimit)

	idx, generation := e.source.Snapshot()
	if idx == nil {
		return nil, fmt.Errorf("executing query: %w", apperrors.ErrIndexNotReady)
	}

	ctx, span := tracing.StartSpan(ctx, "search", logger.RequestID(ctx))
	defer e.sampler.Finish(span)
	span.SetAttr("query", req.Query)

	plan := parser.Parse(idx.Tokenizer(), req.Query)
	result := &SearchResult{
		Query:       req.Query,
		Mode:        parser.MatchNone,
		Terms:       plan.TermTexts(),
		Results:     make([]Result, 0),
		TermStats:   make(map[string]int, len(plan.Terms)),
		Generation:  generation,
		Fingerprint: idx.Fingerprint(),
	}
	for _, t := range plan.Terms {
		result.TermStats[t.Text] = idx.DocFreq(t.Text)
	}
	if plan.Empty() {
		e.observe(result, "none", start)
		return result, nil
	}

	compute := func() (*cache.Page, error) {
		return e.rankPage(ctx, idx, plan, limit, req.Categories), nil
	}
	var page *cache.Page
	cacheStatus := "none"
	if e.cache != nil {
		key := cache.Key{
			Fingerprint: idx.Fingerprint(),
			Query:       plan.Key(),
			Limit:       limit,
			Categories:  categoryStrings(req.Categories),
		}
		var err error
		page, result.CacheHit, err = e.cache.GetOrCompute(ctx, key, compute)
		if err != nil {
			return nil, fmt.Errorf("computing ranked page: %w", err)
		}
		cacheStatus = "miss"
		if result.CacheHit {
			cacheStatus = "hit"
		}
	} else {
		page, _ = compute()
	}

	result.Mode = parser.MatchMode(page.Mode)
	result.TotalHits = page.TotalHits
	result.Results = e.render(ctx, idx, plan, page)
	span.SetAttr("mode", string(result.Mode))
	span.SetAttr("total_hits", result.TotalHits)
	span.SetAttr("cache", cacheStatus)

	e.observe(result, cacheStatus, start)
	e.logger.Debug("query executed",
		"request_id", logger.RequestID(ctx),
		"query", req.Query,
		"terms", result.Terms,
		"mode", result.Mode,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache", cacheStatus,
	)
	return result, nil
}

func (e *Executor) rankPage(ctx context.Context, idx *index.Index, plan *parser.QueryPlan, limit int, cats []entry.Category) *cache.Page {
	_, resolveSpan := tracing.StartChildSpan(ctx, "resolve")
	res := parser.Resolve(idx, plan, e.opts.Policy)
	resolveSpan.SetAttr("candidates", len(res.Candidates))
	resolveSpan.End()

	_, rankSpan := tracing.StartChildSpan(ctx, "rank")
	docs, total := ranker.Rank(idx, res, ranker.Options{
		Limit:          limit,
		Categories:     cats,
		StopWordWeight: e.opts.StopWordWeight,
	})
	rankSpan.SetAttr("returned", len(docs))
	rankSpan.End()

	page := &cache.Page{
		Mode:      string(res.Mode),
		TotalHits: total,
		Hits:      make([]cache.Hit, len(docs)),
	}
	if total == 0 {
		page.Mode = string(parser.MatchNone)
	}
	for i, d := range docs {
		page.Hits[i] = cache.Hit{Location: d.Location, Score: d.Score, ExactTitle: d.ExactTitle}
	}
	return page
}

func (e *Executor) render(ctx context.Context, idx *index.Index, plan *parser.QueryPlan, page *cache.Page) []Result {
	_, span := tracing.StartChildSpan(ctx, "snippet")
	defer span.End()

	terms := plan.TermTexts()
	store := idx.Store()
	out := make([]Result, 0, len(page.Hits))
	for _, h := range page.Hits {
		id, ok := store.Lookup(h.Location)
		if !ok {
			continue
		}
		en := store.Get(id)
		snip := snippet.Extract(en.Text, terms, snippet.Options{
			Radius:    e.opts.SnippetRadius,
			Tokenizer: idx.Tokenizer(),
		})
		r := Result{
			Location:   en.Location,
			Page:       en.Page,
			Title:      en.Title,
			Category:   en.Category,
			Snippet:    snip.Text,
			Highlights: snip.Highlights,
			Score:      h.Score,
			ExactTitle: h.ExactTitle,
		}
		if e.opts.MarkOpen != "" || e.opts.MarkClose != "" {
			r.Marked = snip.Marked(e.opts.MarkOpen, e.opts.MarkClose)
		}
		out = append(out, r)
	}
	span.SetAttr("snippets", len(out))
	return out
}

func (e *Executor) observe(r *SearchResult, cacheStatus string, start time.Time) {
	r.Took = time.Since(start)
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(string(r.Mode)).Inc()
	e.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(r.Took.Seconds())
	e.metrics.SearchResultsCount.Observe(float64(r.TotalHits))
}

func categoryStrings(cats []entry.Category) []string {
	out := make([]string, len(cats))
	for i, c := range cats {
		out[i] = string(c)
	}
	return out
}
