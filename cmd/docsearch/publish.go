package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
)

var (
	flagPublishEntries string
	flagPublishReplace bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Send an entry list to running servers over the entries topic",
	Args:  cobra.NoArgs,
	RunE:  runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&flagPublishEntries, "entries", "", "entry list file to publish")
	publishCmd.Flags().BoolVar(&flagPublishReplace, "replace", false, "replace the servers' entry set instead of appending")
	_ = publishCmd.MarkFlagRequired("entries")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("kafka is disabled; set kafka.enabled or DS_KAFKA_ENABLED")
	}
	ctx := cmd.Context()
	entries, err := loadEntries(ctx, cfg, flagPublishEntries)
	if err != nil {
		return err
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Entries)
	defer producer.Close()

	batch := consumer.EntryBatch{Entries: entries, Replace: flagPublishReplace, Source: flagPublishEntries}
	if err := producer.Publish(ctx, kafka.Event{Key: flagPublishEntries, Value: batch}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published %d entries to %s (replace=%t)\n",
		len(entries), cfg.Kafka.Topics.Entries, flagPublishReplace)
	return nil
}
