package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
)

var (
	flagInspectEntries string
	flagInspectTop     int
	flagInspectJSON    bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Build the index and report what was indexed and what was dropped",
	Args:  cobra.NoArgs,
	RunE:  runInspect,
}

func init() {
	addEntriesFlag(inspectCmd, &flagInspectEntries)
	inspectCmd.Flags().IntVar(&flagInspectTop, "top", 0, "also list the N terms with the most postings")
	inspectCmd.Flags().BoolVar(&flagInspectJSON, "json", false, "print the summary as JSON")
	rootCmd.AddCommand(inspectCmd)
}

type inspectReport struct {
	Summary  *index.BuildSummary `json:"summary"`
	Dropped  []string            `json:"dropped_entries,omitempty"`
	TopTerms map[string]int      `json:"top_terms,omitempty"`
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	entries, err := loadEntries(ctx, cfg, flagInspectEntries)
	if err != nil {
		return err
	}

	// An empty build still reports why everything was dropped.
	idx, summary, buildErr := newBuilder(cfg).Build(ctx, entries)
	if summary == nil {
		return buildErr
	}
	var top []index.TermEntry
	if idx != nil && flagInspectTop > 0 {
		top = idx.TopTerms(flagInspectTop)
	}

	out := cmd.OutOrStdout()
	if flagInspectJSON {
		report := inspectReport{Summary: summary}
		for _, d := range summary.DroppedEntries() {
			report.Dropped = append(report.Dropped, d.Error())
		}
		if len(top) > 0 {
			report.TopTerms = make(map[string]int, len(top))
			for _, te := range top {
				report.TopTerms[te.Term] = len(te.Postings)
			}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		return buildErr
	}
	if err := printSummary(out, summary, top); err != nil {
		return err
	}
	return buildErr
}

func printSummary(out io.Writer, s *index.BuildSummary, top []index.TermEntry) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "entries supplied\t%d\n", s.Total)
	fmt.Fprintf(tw, "entries indexed\t%d\n", s.Indexed)
	fmt.Fprintf(tw, "entries dropped\t%d\n", s.Dropped)
	fmt.Fprintf(tw, "distinct terms\t%d\n", s.Terms)
	fmt.Fprintf(tw, "postings\t%d\n", s.Postings)
	fmt.Fprintf(tw, "fingerprint\t%s\n", s.Fingerprint)
	fmt.Fprintf(tw, "build time\t%s\n", s.Duration)
	if err := tw.Flush(); err != nil {
		return err
	}

	if dropped := s.DroppedEntries(); len(dropped) > 0 {
		fmt.Fprintln(out, "\nDropped:")
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ORDINAL\tLOCATION\tREASON")
		for _, d := range dropped {
			loc := d.Location
			if loc == "" {
				loc = "-"
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\n", d.Ordinal, loc, d.Reason)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(top) > 0 {
		fmt.Fprintln(out, "\nTop terms:")
		tw = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, te := range top {
			fmt.Fprintf(tw, "%s\t%d\n", te.Term, len(te.Postings))
		}
		return tw.Flush()
	}
	return nil
}
