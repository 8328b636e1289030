package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/entry/source"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/docsearch/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/tracing"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the entry list, build the index and serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config) error {
	slog.Info("starting docsearch", "port", cfg.Server.Port, "source", cfg.Source.Kind)

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownMetrics(shutdownCtx)
		}()
	}

	// Postgres is needed by the postgres source and by analytics snapshots.
	var db *postgres.Client
	if cfg.Source.Kind == "postgres" || (cfg.Analytics.Enabled && cfg.Analytics.SnapshotInterval > 0) {
		var err error
		db, err = postgres.New(cfg.Postgres)
		if err != nil {
			if cfg.Source.Kind == "postgres" {
				return err
			}
			slog.Warn("postgres unavailable, analytics snapshots disabled", "error", err)
		} else {
			defer db.Close()
		}
	}

	src, err := source.New(ctx, cfg.Source, db)
	if err != nil {
		return err
	}

	engine := newEngine(cfg, m)
	var resultCache *cache.ResultCache
	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			resultCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}
	engine.OnSwap(func(idx *index.Index, generation uint64) {
		slog.Info("serving new index generation", "generation", generation, "fingerprint", idx.Fingerprint())
	})

	entries, err := source.LoadWithRetry(ctx, src, cfg.Source)
	if err != nil {
		return fmt.Errorf("loading initial entries: %w", err)
	}
	summary, err := engine.Rebuild(ctx, entries)
	if err != nil {
		return fmt.Errorf("building initial index: %w", err)
	}

	// With Kafka, the aggregator reads the analytics topic so every replica's
	// searches are counted once; without it, events are fed to it directly.
	var collector *analytics.Collector
	var agg *analytics.Aggregator
	if cfg.Analytics.Enabled {
		var publisher kafka.Publisher
		var collectorOpts []analytics.CollectorOption
		if cfg.Kafka.Enabled {
			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.Analytics)
			defer producer.Close()
			publisher = producer
			agg = analytics.NewAggregator(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Analytics,
				func(ctx context.Context, key, value []byte) error {
					return analytics.HandleEvent(agg)(ctx, key, value)
				}))
			go func() {
				if err := agg.Start(ctx); err != nil {
					slog.Error("analytics aggregator error", "error", err)
				}
			}()
		} else {
			agg = analytics.NewAggregator(nil)
			collectorOpts = append(collectorOpts, analytics.WithSink(agg))
		}
		collectorOpts = append(collectorOpts, analytics.WithBatching(cfg.Analytics.BatchSize, cfg.Analytics.FlushInterval))
		collector = analytics.NewCollector(publisher, cfg.Analytics.BufferSize, collectorOpts...)
		collector.Start(ctx)
		defer collector.Close()
		collector.TrackBuild(summary, engine.Generation(), nil)

		if db != nil && cfg.Analytics.SnapshotInterval > 0 {
			store := aggregator.NewStore(db)
			if err := store.EnsureSchema(ctx); err != nil {
				slog.Warn("analytics snapshot schema unavailable", "error", err)
			} else {
				store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
			}
		}
	}

	if cfg.Kafka.Enabled {
		feed := consumer.New(kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.Entries,
			consumer.HandleMessage(trackedTarget{engine, collector}, m),
			kafka.WithGroup(cfg.Kafka.ConsumerGroup+"-"+uuid.NewString())))
		go func() {
			if err := feed.Start(ctx); err != nil {
				slog.Error("entry consumer error", "error", err)
			}
		}()
	}

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		idx, generation := engine.Snapshot()
		if idx == nil {
			return health.Down("no index built yet")
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("generation %d, %d entries", generation, idx.Store().Len()),
		}
	})
	if cfg.Redis.Enabled {
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if redisClient == nil {
				return health.Degraded("not connected")
			}
			if err := redisClient.Ping(ctx); err != nil {
				return health.Degraded(err.Error())
			}
			return health.Up()
		})
	}
	if db != nil {
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := db.Ping(ctx); err != nil {
				if cfg.Source.Kind == "postgres" {
					return health.Degraded("source unreachable, serving last index: " + err.Error())
				}
				return health.Degraded(err.Error())
			}
			return health.Up()
		})
	}

	var execOpts []executor.Option
	execOpts = append(execOpts, executor.WithMetrics(m), executor.WithSampler(tracing.NewSampler(cfg.Tracing)))
	var handlerOpts []handler.Option
	handlerOpts = append(handlerOpts, handler.WithSource(src, cfg.Source))
	if resultCache != nil {
		execOpts = append(execOpts, executor.WithCache(resultCache))
		handlerOpts = append(handlerOpts, handler.WithCache(resultCache))
	}
	if collector != nil {
		handlerOpts = append(handlerOpts, handler.WithCollector(collector))
	}
	exec := executor.New(engine, executorOptions(cfg), execOpts...)

	mux := http.NewServeMux()
	handler.New(exec, engine, handlerOpts...).Register(mux)
	if agg != nil {
		mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(agg, collector).Stats)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.Server.CORSOrigins
	chain := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.Metrics(m),
		middleware.CORS(cors),
	}
	if cfg.Server.RateLimit > 0 {
		limiter := ratelimit.New(cfg.Server.RateLimit, cfg.Server.RateWindow)
		defer limiter.Stop()
		chain = append(chain, middleware.RateLimit(limiter))
	}
	if len(cfg.Server.AdminKeys) == 0 {
		slog.Warn("no admin keys configured, rebuild and cache invalidation are open")
	}
	chain = append(chain,
		middleware.AdminKey(cfg.Server.AdminKeys),
		middleware.Timeout(cfg.Server.RequestTimeout),
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Chain(mux, chain...),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ListenAndServe returns as soon as Shutdown starts; in-flight requests
	// still use the collector and cache, so the deferred closes wait for it.
	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("docsearch listening", "addr", server.Addr, "generation", engine.Generation())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving http: %w", err)
	}
	<-shutdownDone
	slog.Info("docsearch stopped")
	return nil
}

// trackedTarget reports feed-driven builds to analytics.
type trackedTarget struct {
	engine    *indexer.Engine
	collector *analytics.Collector
}

func (t trackedTarget) Rebuild(ctx context.Context, entries []entry.Entry) (*index.BuildSummary, error) {
	summary, err := t.engine.Rebuild(ctx, entries)
	t.track(summary, err)
	return summary, err
}

func (t trackedTarget) Append(ctx context.Context, entries []entry.Entry) (*index.BuildSummary, error) {
	summary, err := t.engine.Append(ctx, entries)
	t.track(summary, err)
	return summary, err
}

func (t trackedTarget) track(summary *index.BuildSummary, err error) {
	if t.collector != nil {
		t.collector.TrackBuild(summary, t.engine.Generation(), err)
	}
}
