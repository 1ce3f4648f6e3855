// Command oxidexd runs the oxidex indexing and search server: an in-memory
// inverted index with TF-IDF ranking over files on the local filesystem,
// fronted by an HTTP API with optional caching, analytics, and a filesystem
// watcher that keeps the index current.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mwaghorn2000/oxidex/internal/analytics"
	"github.com/mwaghorn2000/oxidex/internal/cache"
	"github.com/mwaghorn2000/oxidex/internal/engine"
	"github.com/mwaghorn2000/oxidex/internal/handler"
	"github.com/mwaghorn2000/oxidex/internal/ingest"
	"github.com/mwaghorn2000/oxidex/internal/service"
	"github.com/mwaghorn2000/oxidex/internal/watcher"
	"github.com/mwaghorn2000/oxidex/pkg/config"
	"github.com/mwaghorn2000/oxidex/pkg/health"
	"github.com/mwaghorn2000/oxidex/pkg/kafka"
	"github.com/mwaghorn2000/oxidex/pkg/logger"
	"github.com/mwaghorn2000/oxidex/pkg/metrics"
	"github.com/mwaghorn2000/oxidex/pkg/middleware"
	pkgredis "github.com/mwaghorn2000/oxidex/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg); err != nil {
		slog.Error("oxidexd exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.WithComponent("main")
	m := metrics.New()

	// Query cache. A Redis failure downgrades to the in-process LRU rather
	// than failing startup.
	var (
		queryCache  cache.Query
		redisClient *pkgredis.Client
	)
	switch cfg.Cache.Backend {
	case "redis":
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			log.Warn("redis unavailable, falling back to in-memory cache", "error", err)
			mem, memErr := cache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL)
			if memErr != nil {
				return memErr
			}
			queryCache = mem
		} else {
			redisClient = client
			defer redisClient.Close()
			queryCache = cache.NewRedis(client, cfg.Redis)
		}
	case "memory":
		mem, err := cache.NewMemory(cfg.Cache.Size, cfg.Cache.TTL)
		if err != nil {
			return err
		}
		queryCache = mem
	case "none":
	}

	// Analytics over Kafka, enabled only when brokers are configured.
	var (
		collector  *analytics.Collector
		aggregator *analytics.Aggregator
	)
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, 0)
		collector.Start(ctx)
		defer collector.Close()

		aggregator = analytics.NewAggregator()
		consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, aggregator.Handler())
		go func() {
			if err := aggregator.Start(ctx, consumer); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("analytics aggregator stopped", "error", err)
			}
		}()
	}

	svcOpts := []service.Option{
		service.WithMetrics(m),
		service.WithLimits(cfg.Search.DefaultLimit, cfg.Search.MaxResults),
	}
	if queryCache != nil {
		svcOpts = append(svcOpts, service.WithCache(queryCache))
	}
	if collector != nil {
		svcOpts = append(svcOpts, service.WithCollector(collector))
	}
	svc := service.New(engine.New(), svcOpts...)

	// Seed the index from the configured roots before serving traffic.
	if len(cfg.Ingest.Roots) > 0 {
		result, err := ingest.NewRunner(svc, cfg.Ingest).Run(ctx)
		if err != nil {
			return fmt.Errorf("initial ingest: %w", err)
		}
		log.Info("initial ingest finished", "indexed", result.Indexed, "failed", result.Failed)
	}

	if cfg.Watcher.Enabled && len(cfg.Ingest.Roots) > 0 {
		w, err := watcher.New(svc, cfg.Watcher, cfg.Ingest.SkipHidden, watcher.WithMetrics(m))
		if err != nil {
			return fmt.Errorf("creating watcher: %w", err)
		}
		for _, root := range cfg.Ingest.Roots {
			if err := w.Watch(root); err != nil {
				return fmt.Errorf("watching %s: %w", root, err)
			}
		}
		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("watcher stopped", "error", err)
			}
		}()
	}

	checker := health.NewChecker()
	checker.Register("engine", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents, %d terms", svc.TotalDocs(), svc.TermCount()),
		}
	})
	if redisClient != nil {
		checker.RegisterOptional("redis", func(ctx context.Context) health.ComponentHealth {
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	mux := http.NewServeMux()
	handler.New(svc).Register(mux)
	if aggregator != nil {
		mux.HandleFunc("GET /api/v1/analytics/stats", analytics.NewHandler(aggregator).Stats)
	}
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var root http.Handler = mux
	root = middleware.Metrics(m)(root)
	root = middleware.RequestID(root)
	root = middleware.Timeout(cfg.Server.WriteTimeout)(root)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	var stopMetrics func(context.Context) error
	if cfg.Metrics.Enabled {
		stopMetrics = metrics.StartServer(cfg.Metrics.Port)
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if stopMetrics != nil {
		if err := stopMetrics(shutdownCtx); err != nil {
			log.Warn("metrics shutdown failed", "error", err)
		}
	}
	// Give a final moment for buffered analytics events to drain.
	time.Sleep(100 * time.Millisecond)
	log.Info("shutdown complete")
	return nil
}
