// Package consumer reads entry batches from Kafka and applies them to the
// indexer engine, either replacing the entry set or appending to it.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

// EntryBatch is the message carried on the entries topic. Replace swaps
// the whole entry set; otherwise the entries are appended.
type EntryBatch struct {
	Entries []entry.Entry `json:"entries"`
	Replace bool          `json:"replace"`
	Source  string        `json:"source,omitempty"`
}

// Target is the part of indexer.Engine the consumer drives.
type Target interface {
	Rebuild(ctx context.Context, entries []entry.Entry) (*index.BuildSummary, error)
	Append(ctx context.Context, entries []entry.Entry) (*index.BuildSummary, error)
}

// IndexConsumer wraps a Kafka consumer to drive the indexing pipeline.
type IndexConsumer struct {
	consumer *kafka.Consumer
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer.
func New(kafkaConsumer *kafka.Consumer) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Start begins consuming Kafka messages. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer starting")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that applies each EntryBatch
// to target. Undecodable messages and batches that would leave the index
// empty are logged and committed; any other build failure is returned so
// the message is retried.
func HandleMessage(target Target, m *metrics.Metrics) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	if m == nil {
		m = metrics.NewNop()
	}
	return func(ctx context.Context, key []byte, value []byte) error {
		batch, err := kafka.DecodeJSON[EntryBatch](value)
		if err != nil {
			m.EntryBatchesTotal.WithLabelValues("malformed").Inc()
			logger.Error("failed to decode entry batch",
				"error", err,
				"key", string(key),
			)
			return nil
		}

		logger.Debug("processing entry batch",
			"source", batch.Source,
			"entries", len(batch.Entries),
			"replace", batch.Replace,
		)

		apply := target.Append
		if batch.Replace {
			apply = target.Rebuild
		}
		summary, err := apply(ctx, batch.Entries)
		if err != nil {
			if errors.Is(err, apperrors.ErrEmptyIndex) {
				m.EntryBatchesTotal.WithLabelValues("empty").Inc()
				logger.Warn("entry batch produced an empty index, skipped",
					"source", batch.Source,
					"entries", len(batch.Entries),
				)
				return nil
			}
			m.EntryBatchesTotal.WithLabelValues("error").Inc()
			return fmt.Errorf("applying entry batch from %q: %w", batch.Source, err)
		}

		m.EntryBatchesTotal.WithLabelValues("applied").Inc()
		logger.Info("entry batch applied",
			"source", batch.Source,
			"replace", batch.Replace,
			"indexed", summary.Indexed,
			"dropped", summary.Dropped,
		)
		return nil
	}
}
