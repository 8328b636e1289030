// Package source loads entry lists from the places a documentation build
// can leave them: a local file, an S3 object or a Postgres table.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// Source produces the full entry list.
type Source interface {
	Name() string
	Load(ctx context.Context) ([]entry.Entry, error)
}

// New builds the Source selected by cfg.Kind. pg is only used for the
// postgres kind and may be nil otherwise.
func New(ctx context.Context, cfg config.SourceConfig, pg *postgres.Client) (Source, error) {
	switch cfg.Kind {
	case "file":
		return &File{Path: cfg.Path}, nil
	case "s3":
		client, err := NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &S3{Client: client, Bucket: cfg.Bucket, Key: cfg.Key}, nil
	case "postgres":
		if pg == nil {
			return nil, fmt.Errorf("%w: postgres source needs a database connection", apperrors.ErrInvalidInput)
		}
		return &Postgres{DB: pg.DB, Table: cfg.Table}, nil
	default:
		return nil, fmt.Errorf("%w: unknown source kind %q", apperrors.ErrInvalidInput, cfg.Kind)
	}
}

// LoadWithRetry loads from src, bounding each attempt by cfg.LoadTimeout
// and retrying unavailable sources with exponential backoff. Malformed
// payloads are not retried.
func LoadWithRetry(ctx context.Context, src Source, cfg config.SourceConfig) ([]entry.Entry, error) {
	logger := slog.Default().With("component", "entry-source", "source", src.Name())
	var entries []entry.Entry
	err := resilience.Retry(ctx, "load "+src.Name(), resilience.RetryConfig{
		MaxAttempts:  cfg.RetryAttempts,
		InitialDelay: cfg.RetryBackoff,
		MaxDelay:     30 * time.Second,
	}, func() error {
		// An attempt that times out keeps running in the background, so it
		// only ever writes its own result.
		var attempt []entry.Entry
		err := resilience.WithTimeout(ctx, cfg.LoadTimeout, "load "+src.Name(), func(ctx context.Context) error {
			loaded, err := src.Load(ctx)
			if err != nil {
				if errors.Is(err, apperrors.ErrInvalidInput) {
					return resilience.Permanent(err)
				}
				return err
			}
			attempt = loaded
			return nil
		})
		if err == nil {
			entries = attempt
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info("entries loaded", "count", len(entries))
	return entries, nil
}

func unavailable(name string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperrors.ErrSourceUnavailable, name, err)
}
