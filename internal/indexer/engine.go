// Package indexer owns the exposed search index. It builds immutable
// indexes from entry batches and swaps them in atomically so that queries
// never observe a partially built index.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// SwapListener is told about every successful swap. It runs on the
// building goroutine after the new index is visible.
type SwapListener func(idx *index.Index, generation uint64)

// Engine holds the current index. Readers call Snapshot or Current and
// keep using the returned index for as long as they need it; writers are
// serialized.
type Engine struct {
	current atomic.Pointer[snapshot]

	mu        sync.Mutex
	builder   *index.Builder
	entries   []entry.Entry
	listeners []SwapListener

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewEngine creates an Engine with no index. Current returns nil until the
// first successful Rebuild.
func NewEngine(builder *index.Builder, m *metrics.Metrics) *Engine {
	if builder == nil {
		builder = index.NewBuilder()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Engine{
		builder: builder,
		metrics: m,
		logger:  slog.Default().With("component", "indexer"),
	}
}

// OnSwap registers fn to run after each successful swap.
func (e *Engine) OnSwap(fn SwapListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// snapshot pairs an index with the generation it was swapped in as.
type snapshot struct {
	idx *index.Index
	gen uint64
}

// Snapshot returns the exposed index and its generation from one load.
// Before the first successful build it returns nil, 0.
func (e *Engine) Snapshot() (*index.Index, uint64) {
	s := e.current.Load()
	if s == nil {
		return nil, 0
	}
	return s.idx, s.gen
}

// Current returns the exposed index, or nil if none has been built.
func (e *Engine) Current() *index.Index {
	idx, _ := e.Snapshot()
	return idx
}

// Generation counts successful swaps.
func (e *Engine) Generation() uint64 {
	_, gen := e.Snapshot()
	return gen
}

// Ready reports whether an index is exposed.
func (e *Engine) Ready() bool {
	return e.current.Load() != nil
}

// Entries returns a copy of the raw entries behind the current index,
// including those the build dropped.
func (e *Engine) Entries() []entry.Entry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]entry.Entry, len(e.entries))
	copy(out, e.entries)
	return out
}

// Rebuild replaces the whole entry set. On failure, including
// ErrEmptyIndex, the previous index stays exposed.
func (e *Engine) Rebuild(ctx context.Context, entries []entry.Entry) (*index.BuildSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	batch := make([]entry.Entry, len(entries))
	copy(batch, entries)
	return e.buildLocked(ctx, batch)
}

// Append adds entries to the retained set and rebuilds the index over the
// union. Later entries never shadow earlier ones with the same location;
// duplicates are resolved the same way as within a single batch.
func (e *Engine) Append(ctx context.Context, entries []entry.Entry) (*index.BuildSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	batch := make([]entry.Entry, 0, len(e.entries)+len(entries))
	batch = append(batch, e.entries...)
	batch = append(batch, entries...)
	return e.buildLocked(ctx, batch)
}

func (e *Engine) buildLocked(ctx context.Context, batch []entry.Entry) (*index.BuildSummary, error) {
	start := time.Now()
	idx, summary, err := e.builder.Build(ctx, batch)
	e.metrics.IndexBuildDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		status := "error"
		if errors.Is(err, apperrors.ErrEmptyIndex) {
			status = "empty"
		}
		e.metrics.IndexBuildsTotal.WithLabelValues(status).Inc()
		e.logger.Error("index build failed, keeping previous index",
			"entries", len(batch),
			"generation", e.Generation(),
			"error", err,
		)
		return summary, fmt.Errorf("building index: %w", err)
	}

	e.entries = batch
	gen := e.Generation() + 1
	e.current.Store(&snapshot{idx: idx, gen: gen})

	e.metrics.IndexBuildsTotal.WithLabelValues("success").Inc()
	e.metrics.IndexEntries.Set(float64(summary.Indexed))
	e.metrics.IndexDroppedEntries.Set(float64(summary.Dropped))
	e.metrics.IndexTerms.Set(float64(summary.Terms))
	e.metrics.IndexGeneration.Set(float64(gen))

	e.logger.Info("index swapped",
		"generation", gen,
		"entries", summary.Indexed,
		"dropped", summary.Dropped,
		"terms", summary.Terms,
	)
	for _, fn := range e.listeners {
		fn(idx, gen)
	}
	return summary, nil
}
