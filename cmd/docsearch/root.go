package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:          "docsearch",
	Short:        "Full-text search over static documentation entry lists",
	SilenceUsage: true,
	Long: `docsearch indexes the entry list emitted by a documentation generator
(search_index.js, {"docs": [...]} or a bare JSON array) and answers
multi-term queries with ranked, highlighted results.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (DS_* env vars override it)")
}

// Execute is called by main. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config and sets up the default logger. CLI commands
// other than serve log to stderr in text form.
func loadConfig(cli bool) (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cli {
		logger.SetupWriter(os.Stderr, "warn", "text")
	} else {
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	}
	return cfg, nil
}

func newBuilder(cfg *config.Config) *index.Builder {
	return index.NewBuilder(
		index.WithTokenizer(tokenizer.New(tokenizer.WithMinLength(cfg.Index.MinTokenLength))),
		index.WithWeights(index.Weights{Title: cfg.Index.TitleWeight, Text: cfg.Index.TextWeight}),
		index.WithWorkers(cfg.Index.Workers),
	)
}

func newEngine(cfg *config.Config, m *metrics.Metrics) *indexer.Engine {
	return indexer.NewEngine(newBuilder(cfg), m)
}

func executorOptions(cfg *config.Config) executor.Options {
	return executor.Options{
		DefaultLimit:   cfg.Search.DefaultLimit,
		MaxLimit:       cfg.Search.MaxLimit,
		Policy:         parser.Policy{MinGroupsForFallback: cfg.Search.MinGroupsForFallback},
		StopWordWeight: cfg.Search.StopWordWeight,
		SnippetRadius:  cfg.Snippet.Radius,
		MarkOpen:       cfg.Snippet.MarkOpen,
		MarkClose:      cfg.Snippet.MarkClose,
	}
}
