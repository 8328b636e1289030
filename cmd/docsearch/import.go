package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry/source"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

var flagImportEntries string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load an entry list into the Postgres table used by the postgres source",
	Args:  cobra.NoArgs,
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVar(&flagImportEntries, "entries", "", "entry list file to import")
	_ = importCmd.MarkFlagRequired("entries")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	entries, err := loadEntries(ctx, cfg, flagImportEntries)
	if err != nil {
		return err
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := source.Import(ctx, db, cfg.Source.Table, entries); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries into %s\n", len(entries), cfg.Source.Table)
	return nil
}
