package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

var (
	flagQueryEntries    string
	flagQueryLimit      int
	flagQueryCategories []string
	flagQueryJSON       bool
)

var queryCmd = &cobra.Command{
	Use:   "query <terms...>",
	Short: "Build the index once and run a single query against it",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runQuery,
}

func init() {
	addEntriesFlag(queryCmd, &flagQueryEntries)
	queryCmd.Flags().IntVarP(&flagQueryLimit, "limit", "n", 0, "maximum results (default: search.defaultLimit)")
	queryCmd.Flags().StringSliceVarP(&flagQueryCategories, "category", "c", nil, "only return entries of these categories")
	queryCmd.Flags().BoolVar(&flagQueryJSON, "json", false, "print the full result as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	req := executor.Request{Query: strings.Join(args, " "), Limit: flagQueryLimit}
	for _, raw := range flagQueryCategories {
		c := entry.Category(strings.ToLower(strings.TrimSpace(raw)))
		if !c.Known() {
			return fmt.Errorf("%w: unknown category %q", apperrors.ErrInvalidInput, raw)
		}
		req.Categories = append(req.Categories, c)
	}

	ctx := cmd.Context()
	entries, err := loadEntries(ctx, cfg, flagQueryEntries)
	if err != nil {
		return err
	}
	eng := newEngine(cfg, metrics.NewNop())
	if _, err := eng.Rebuild(ctx, entries); err != nil {
		return err
	}

	res, err := executor.New(eng, executorOptions(cfg)).Execute(ctx, req)
	if err != nil {
		return err
	}
	if flagQueryJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printResults(cmd.OutOrStdout(), res)
}

func printResults(out io.Writer, res *executor.SearchResult) error {
	if len(res.Results) == 0 {
		_, err := fmt.Fprintf(out, "No results for %q.\n", res.Query)
		return err
	}
	fmt.Fprintf(out, "%d of %d results for %q (%s match)\n\n", len(res.Results), res.TotalHits, res.Query, res.Mode)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tCATEGORY\tTITLE\tLOCATION")
	for _, r := range res.Results {
		fmt.Fprintf(tw, "%.4f\t%s\t%s\t%s\n", r.Score, r.Category, r.Title, r.Page+r.Location)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(out)
	for i, r := range res.Results {
		text := r.Marked
		if text == "" {
			text = r.Snippet
		}
		fmt.Fprintf(out, "%2d. %s\n    %s\n", i+1, r.Title, text)
	}
	return nil
}
