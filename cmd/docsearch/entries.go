package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry/source"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

// addEntriesFlag registers --entries on cmd, bound to target.
func addEntriesFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVar(target, "entries", "", "entry list file (default: the configured source)")
}

// loadEntries reads path when set, otherwise the configured source. The
// postgres source opens and closes its own connection.
func loadEntries(ctx context.Context, cfg *config.Config, path string) ([]entry.Entry, error) {
	srcCfg := cfg.Source
	if path != "" {
		srcCfg.Kind = "file"
		srcCfg.Path = path
	}
	var pg *postgres.Client
	if srcCfg.Kind == "postgres" {
		var err error
		if pg, err = postgres.New(cfg.Postgres); err != nil {
			return nil, err
		}
		defer pg.Close()
	}
	src, err := source.New(ctx, srcCfg, pg)
	if err != nil {
		return nil, err
	}
	return source.LoadWithRetry(ctx, src, srcCfg)
}
