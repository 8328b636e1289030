package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
)

// Sink receives events locally, next to or instead of Kafka. *Aggregator
// is a Sink.
type Sink interface {
	Record(event any)
}

// Collector buffers events and publishes them to Kafka in batches, either
// when a batch fills up or every flush interval. Track never blocks: when
// the buffer is full the event is dropped and counted. Events tracked
// after Close are discarded.
type Collector struct {
	publisher     kafka.Publisher
	sink          Sink
	eventCh       chan any
	batchSize     int
	flushInterval time.Duration
	dropped       atomic.Int64
	logger        *slog.Logger
	done          chan struct{}

	mu      sync.RWMutex
	started bool
	closed  bool
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithSink also hands every tracked event to s, synchronously.
func WithSink(s Sink) CollectorOption {
	return func(c *Collector) { c.sink = s }
}

// WithBatching sets the batch size and flush interval.
func WithBatching(size int, interval time.Duration) CollectorOption {
	return func(c *Collector) {
		if size > 0 {
			c.batchSize = size
		}
		if interval > 0 {
			c.flushInterval = interval
		}
	}
}

// NewCollector creates a Collector. publisher may be nil, in which case
// events only reach the sink.
func NewCollector(publisher kafka.Publisher, bufferSize int, opts ...CollectorOption) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	c := &Collector{
		publisher:     publisher,
		eventCh:       make(chan any, bufferSize),
		batchSize:     100,
		flushInterval: time.Second,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start launches the publish loop. It returns immediately; the loop runs
// until ctx is cancelled or Close is called, flushing what is left.
func (c *Collector) Start(ctx context.Context) {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
	go func() {
		defer close(c.done)
		ticker := time.NewTicker(c.flushInterval)
		defer ticker.Stop()
		batch := make([]kafka.Event, 0, c.batchSize)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					c.flush(context.Background(), batch)
					return
				}
				batch = append(batch, toKafka(event))
				if len(batch) >= c.batchSize {
					c.flush(ctx, batch)
					batch = batch[:0]
				}
			case <-ticker.C:
				c.flush(ctx, batch)
				batch = batch[:0]
			case <-ctx.Done():
				batch = c.drainRemaining(batch)
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				c.flush(flushCtx, batch)
				cancel()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.eventCh),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track queues an event.
func (c *Collector) Track(event any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	if c.sink != nil {
		c.sink.Record(event)
	}
	if c.publisher == nil {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		if n := c.dropped.Add(1); n == 1 || n%1000 == 0 {
			c.logger.Warn("analytics event dropped (buffer full)", "dropped_total", n)
		}
	}
}

// TrackSearch records an executed query.
func (c *Collector) TrackSearch(ctx context.Context, res *executor.SearchResult) {
	c.Track(&SearchEvent{
		Type:       EventSearch,
		Query:      res.Query,
		Terms:      res.Terms,
		Mode:       string(res.Mode),
		TotalHits:  res.TotalHits,
		Returned:   len(res.Results),
		LatencyMs:  millis(res.Took),
		CacheHit:   res.CacheHit,
		Generation: res.Generation,
		Timestamp:  time.Now().UTC(),
		RequestID:  logger.RequestID(ctx),
	})
}

// TrackBuild records a finished index build. Pass the error the build
// returned; summary may be nil when it failed early.
func (c *Collector) TrackBuild(summary *index.BuildSummary, generation uint64, err error) {
	ev := &IndexEvent{
		Type:       EventIndex,
		Status:     "success",
		Generation: generation,
		Timestamp:  time.Now().UTC(),
	}
	if err != nil {
		ev.Status = "error"
	}
	if summary != nil {
		ev.Entries = summary.Indexed
		ev.Dropped = summary.Dropped
		ev.Terms = summary.Terms
		ev.LatencyMs = millis(summary.Duration)
	}
	c.Track(ev)
}

// Dropped returns how many events were discarded because the buffer was
// full.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events, flushes the buffer and waits for the loop.
// Calling it again, or before Start, only stops accepting events.
func (c *Collector) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	started := c.started
	close(c.eventCh)
	c.mu.Unlock()
	if started {
		<-c.done
	}
}

func (c *Collector) drainRemaining(batch []kafka.Event) []kafka.Event {
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, toKafka(event))
		default:
			return batch
		}
	}
}

func (c *Collector) flush(ctx context.Context, batch []kafka.Event) {
	if len(batch) == 0 || c.publisher == nil {
		return
	}
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("analytics batch publish failed", "batch_size", len(batch), "error", err)
		return
	}
	c.logger.Debug("analytics batch published", "events", len(batch))
}

func toKafka(event any) kafka.Event {
	key := "analytics"
	switch e := event.(type) {
	case *SearchEvent:
		key = string(e.Type)
	case *IndexEvent:
		key = string(e.Type)
	}
	return kafka.Event{Key: key, Value: event}
}
