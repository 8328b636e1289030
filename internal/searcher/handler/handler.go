// Package handler exposes search, index and cache operations over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry/source"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

type SearchExecutor interface {
	Execute(ctx context.Context, req executor.Request) (*executor.SearchResult, error)
}

// IndexManager is the engine as seen by the handler.
type IndexManager interface {
	Snapshot() (*index.Index, uint64)
	Generation() uint64
	Rebuild(ctx context.Context, entries []entry.Entry) (*index.BuildSummary, error)
}

type Handler struct {
	executor  SearchExecutor
	engine    IndexManager
	source    source.Source
	sourceCfg config.SourceConfig
	cache     *cache.ResultCache
	collector *analytics.Collector
	logger    *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithSource enables POST /api/v1/index/rebuild.
func WithSource(src source.Source, cfg config.SourceConfig) Option {
	return func(h *Handler) {
		h.source = src
		h.sourceCfg = cfg
	}
}

// WithCache enables the cache endpoints.
func WithCache(c *cache.ResultCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithCollector tracks searches and rebuilds.
func WithCollector(c *analytics.Collector) Option {
	return func(h *Handler) { h.collector = c }
}

func New(exec SearchExecutor, engine IndexManager, opts ...Option) *Handler {
	h := &Handler{
		executor: exec,
		engine:   engine,
		logger:   slog.Default().With("component", "search-handler"),
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/index/stats", h.IndexStats)
	mux.HandleFunc("POST /api/v1/index/rebuild", h.Rebuild)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search handles GET /api/v1/search?q=&limit=&category=. A missing q is an
// empty query, not an error.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()
	req := executor.Request{Query: params.Get("q")}

	if limitStr := params.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		req.Limit = parsed
	}
	for _, raw := range params["category"] {
		for _, part := range strings.Split(raw, ",") {
			c := entry.Category(strings.ToLower(strings.TrimSpace(part)))
			if c == "" {
				continue
			}
			if !c.Known() {
				h.writeError(w, http.StatusBadRequest, "unknown category "+strconv.Quote(part))
				return
			}
			req.Categories = append(req.Categories, c)
		}
	}

	result, err := h.executor.Execute(ctx, req)
	if err != nil {
		h.writeErr(ctx, w, "search failed", err)
		return
	}

	logger.FromContext(ctx).Info("search completed",
		"query", req.Query,
		"mode", result.Mode,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache_hit", result.CacheHit,
		"latency_ms", result.Took.Milliseconds(),
	)
	if h.collector != nil {
		h.collector.TrackSearch(ctx, result)
	}
	h.writeJSON(w, http.StatusOK, result)
}

type indexStats struct {
	Ready       bool       `json:"ready"`
	Generation  uint64     `json:"generation"`
	Fingerprint string     `json:"fingerprint,omitempty"`
	Entries     int        `json:"entries"`
	Dropped     int        `json:"dropped"`
	Terms       int        `json:"terms"`
	Postings    int        `json:"postings"`
	BuiltAt     *time.Time `json:"built_at,omitempty"`
	TopTerms    []termStat `json:"top_terms,omitempty"`
}

type termStat struct {
	Term     string `json:"term"`
	Postings int    `json:"postings"`
}

// IndexStats handles GET /api/v1/index/stats[?top=N].
func (h *Handler) IndexStats(w http.ResponseWriter, r *http.Request) {
	idx, generation := h.engine.Snapshot()
	if idx == nil {
		h.writeJSON(w, http.StatusOK, indexStats{})
		return
	}
	summary := idx.Summary()
	builtAt := idx.BuiltAt()
	stats := indexStats{
		Ready:       true,
		Generation:  generation,
		Fingerprint: idx.Fingerprint(),
		Entries:     idx.Store().Len(),
		Dropped:     summary.Dropped,
		Terms:       idx.TermCount(),
		Postings:    idx.PostingCount(),
		BuiltAt:     &builtAt,
	}
	if topStr := r.URL.Query().Get("top"); topStr != "" {
		n, err := strconv.Atoi(topStr)
		if err != nil || n < 1 || n > 1000 {
			h.writeError(w, http.StatusBadRequest, "top must be between 1 and 1000")
			return
		}
		for _, te := range idx.TopTerms(n) {
			stats.TopTerms = append(stats.TopTerms, termStat{Term: te.Term, Postings: len(te.Postings)})
		}
	}
	h.writeJSON(w, http.StatusOK, stats)
}

type droppedEntry struct {
	Ordinal  int    `json:"ordinal"`
	Location string `json:"location,omitempty"`
	Reason   string `json:"reason"`
}

type rebuildResponse struct {
	Generation uint64              `json:"generation"`
	Summary    *index.BuildSummary `json:"summary"`
	Dropped    []droppedEntry      `json:"dropped_entries,omitempty"`
}

// Rebuild handles POST /api/v1/index/rebuild: reload from the configured
// source and swap. A failed rebuild leaves the current index serving. The
// load and build outlive the request: a client that times out or hangs up
// still gets the new index once it is built. Each load attempt is bounded
// by the source's load timeout.
func (h *Handler) Rebuild(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	if h.source == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no entry source configured")
		return
	}
	entries, err := source.LoadWithRetry(ctx, h.source, h.sourceCfg)
	if err != nil {
		h.writeErr(ctx, w, "loading entries failed", err)
		return
	}
	summary, err := h.engine.Rebuild(ctx, entries)
	if h.collector != nil {
		h.collector.TrackBuild(summary, h.engine.Generation(), err)
	}
	if err != nil {
		h.writeErr(ctx, w, "rebuild failed", err)
		return
	}
	resp := rebuildResponse{Generation: h.engine.Generation(), Summary: summary}
	for _, d := range summary.DroppedEntries() {
		resp.Dropped = append(resp.Dropped, droppedEntry{Ordinal: d.Ordinal, Location: d.Location, Reason: d.Reason})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	st := h.cache.Stats()
	total := st.Hits + st.Misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(st.Hits) / float64(total)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     st.Hits,
		"misses":   st.Misses,
		"errors":   st.Errors,
		"total":    total,
		"hit_rate": hitRate,
		"breaker":  st.Breaker,
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeErr maps err to a status. Client errors echo the error text; server
// errors are logged and answered with msg only.
func (h *Handler) writeErr(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(ctx).Error(msg, "error", err)
		if errors.Is(err, apperrors.ErrIndexNotReady) {
			msg = apperrors.ErrIndexNotReady.Error()
		}
		h.writeError(w, status, msg)
		return
	}
	h.writeError(w, status, err.Error())
}
