package index

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
)

// BuildSummary reports one build. Errors aggregates every
// *entry.MalformedEntryError that caused an entry to be dropped.
type BuildSummary struct {
	Total       int           `json:"total"`
	Indexed     int           `json:"indexed"`
	Dropped     int           `json:"dropped"`
	Errors      error         `json:"-"`
	Terms       int           `json:"terms"`
	Postings    int           `json:"postings"`
	Fingerprint string        `json:"fingerprint"`
	Duration    time.Duration `json:"duration"`
}

// DroppedEntries unpacks Errors.
func (s BuildSummary) DroppedEntries() []*entry.MalformedEntryError {
	merr, ok := s.Errors.(*multierror.Error)
	if !ok || merr == nil {
		return nil
	}
	out := make([]*entry.MalformedEntryError, 0, len(merr.Errors))
	for _, err := range merr.Errors {
		if me, ok := err.(*entry.MalformedEntryError); ok {
			out = append(out, me)
		}
	}
	return out
}

// Builder turns an entry batch into an Index.
type Builder struct {
	tok     *tokenizer.Tokenizer
	weights Weights
	workers int
	logger  *slog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

func WithTokenizer(tok *tokenizer.Tokenizer) BuilderOption {
	return func(b *Builder) {
		if tok != nil {
			b.tok = tok
		}
	}
}

// WithWeights overrides DefaultWeights. Invalid weights are ignored.
func WithWeights(w Weights) BuilderOption {
	return func(b *Builder) {
		if w.Validate() == nil {
			b.weights = w
		}
	}
}

// WithWorkers bounds the goroutines tokenizing entries. n <= 0 uses
// GOMAXPROCS.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.workers = n
		}
	}
}

// NewBuilder creates a Builder.
func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		tok:     tokenizer.Default(),
		weights: DefaultWeights,
		workers: runtime.GOMAXPROCS(0),
		logger:  slog.Default().With("component", "index-builder"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

type analyzed struct {
	title    map[string]uint32
	text     map[string]uint32
	titleKey string
}

// Build validates entries, drops the malformed ones and indexes the rest.
// The result depends only on the entries' content, not on their order. If
// nothing survives validation it returns apperrors.ErrEmptyIndex together
// with the summary.
func (b *Builder) Build(ctx context.Context, entries []entry.Entry) (*Index, *BuildSummary, error) {
	start := time.Now()
	store, dropped := entry.NewStore(entries)

	summary := &BuildSummary{
		Total:       len(entries),
		Indexed:     store.Len(),
		Dropped:     len(dropped),
		Fingerprint: store.Fingerprint(),
	}
	var merr *multierror.Error
	for _, d := range dropped {
		b.logger.Debug("entry dropped",
			"ordinal", d.Ordinal,
			"location", d.Location,
			"reason", d.Reason,
		)
		merr = multierror.Append(merr, d)
	}
	summary.Errors = merr.ErrorOrNil()

	if store.Len() == 0 {
		summary.Duration = time.Since(start)
		return nil, summary, fmt.Errorf("%w: %d entries supplied, %d dropped",
			apperrors.ErrEmptyIndex, summary.Total, summary.Dropped)
	}

	docs, err := b.analyze(ctx, store)
	if err != nil {
		return nil, summary, fmt.Errorf("analyzing entries: %w", err)
	}

	idx := &Index{
		store:     store,
		postings:  make(map[string]PostingList),
		titleKeys: make([]string, store.Len()),
		tok:       b.tok,
		weights:   b.weights,
	}
	// IDs ascend, so every list ends up sorted by entry.
	for id, doc := range docs {
		eid := entry.ID(id)
		idx.titleKeys[id] = doc.titleKey
		for term, freq := range doc.title {
			idx.postings[term] = append(idx.postings[term], Posting{
				Entry:     eid,
				Field:     FieldTitle,
				Frequency: freq,
				Weight:    b.weights.of(FieldTitle),
			})
		}
		for term, freq := range doc.text {
			idx.postings[term] = append(idx.postings[term], Posting{
				Entry:     eid,
				Field:     FieldText,
				Frequency: freq,
				Weight:    b.weights.of(FieldText),
			})
		}
		idx.postCount += len(doc.title) + len(doc.text)
	}

	summary.Terms = len(idx.postings)
	summary.Postings = idx.postCount
	summary.Duration = time.Since(start)
	idx.summary = *summary
	idx.builtAt = time.Now()

	b.logger.Info("index built",
		"entries", summary.Indexed,
		"dropped", summary.Dropped,
		"terms", summary.Terms,
		"postings", summary.Postings,
		"fingerprint", summary.Fingerprint[:12],
		"duration", summary.Duration,
	)
	return idx, summary, nil
}

// analyze tokenizes every entry. Work is striped across workers; each
// worker writes only its own slots, so no locking is needed.
func (b *Builder) analyze(ctx context.Context, store *entry.Store) ([]analyzed, error) {
	n := store.Len()
	docs := make([]analyzed, n)
	workers := b.workers
	if workers > n {
		workers = n
	}
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for id := w; id < n; id += workers {
				if id%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				e := store.Get(entry.ID(id))
				docs[id] = analyzed{
					title:    b.termFreqs(e.Title),
					text:     b.termFreqs(e.Text),
					titleKey: TitleKey(b.tok, e.Title),
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return docs, nil
}

func (b *Builder) termFreqs(text string) map[string]uint32 {
	freqs := make(map[string]uint32)
	for tok := range b.tok.Tokens(text) {
		freqs[tok.Term]++
	}
	return freqs
}
