package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/catalog"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/feed"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/repository"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/adapters/requests"
	service "github.com/mvanderlyn27/odyssey-backend-sub003/internal/app"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/config"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/ranking"
	"github.com/mvanderlyn27/odyssey-backend-sub003/internal/domain/scoring"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/logger"
	"github.com/mvanderlyn27/odyssey-backend-sub003/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
	feedBuffer             = 256
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := run(); err != nil {
		logger.Get().Error(context.Background(), "ranking service exited", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	ref, err := catalog.LoadFile(ctx, cfg.CatalogPath)
	if err != nil {
		return err
	}

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.Warn(ctx, "closing store failed", logger.Error(err))
		}
	}()

	// Rank-ups go to an in-process pub/sub; a consumer logs them as the feed.
	pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: feedBuffer}, watermill.NewSlogLogger(slog.Default()))
	publisher := feed.NewPublisher(pubsub, feed.WithTopic(cfg.FeedTopic), feed.WithLogger(logger.Named("feed")))
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn(ctx, "closing feed failed", logger.Error(err))
		}
	}()
	go func() {
		if err := feed.Consume(ctx, pubsub, cfg.FeedTopic, logRankUp(logger.Named("feed"))); err != nil {
			log.Error(ctx, "feed consumer stopped", logger.Error(err))
		}
	}()

	svc := service.New(
		service.WithLogger(logger.Named("service")),
		service.WithReference(ref),
		service.WithStore(store),
		service.WithPublisher(publisher),
		service.WithEngine(newEngine(cfg)),
		service.WithWorkerCount(cfg.WorkerCount),
		service.WithQueueSize(cfg.QueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithCalculationTimeout(cfg.CalculationTimeout()),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}

	// Requests arrive on the same pub/sub; intake stops on signal before Stop drains.
	intake := requests.NewConsumer(pubsub, svc.Submit,
		requests.WithTopic(cfg.RequestTopic),
		requests.WithLogger(logger.Named("requests")),
	)
	go func() {
		if err := intake.Run(ctx); err != nil {
			log.Error(ctx, "request intake stopped", logger.Error(err))
			stop()
		}
	}()

	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           newMux(svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "starting ops server", logger.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "ops server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := svc.Stop(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "service shutdown failed", logger.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "ops server shutdown failed", logger.Error(err))
	}
	log.Info(shutdownCtx, "stopped")
	return nil
}

// buildStore opens the configured rank store. The returned func releases it.
func buildStore(ctx context.Context, cfg *config.Config) (repository.Store, func() error, error) {
	switch cfg.Store {
	case config.StorePostgres:
		store := repository.NewBunStore(
			repository.OpenPostgres(cfg.PostgresDSN),
			repository.WithBunLogger(logger.Named("postgres")),
		)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, store.Close, nil
	default:
		return repository.NewMemoryStore(), func() error { return nil }, nil
	}
}

func newEngine(cfg *config.Config) *ranking.Engine {
	calc := scoring.NewCalculator(
		scoring.WithMaxPoints(cfg.MaxPoints),
		scoring.WithLogger(logger.Named("scoring")),
	)
	return ranking.NewEngine(
		ranking.WithCalculator(calc),
		ranking.WithLogger(logger.Named("engine")),
	)
}

func logRankUp(l logger.Logger) feed.Handler {
	return func(ctx context.Context, ev ranking.RankUp) error {
		l.Info(ctx, "rank up",
			logger.String("user_id", ev.UserID),
			logger.String("kind", string(ev.Kind)),
			logger.String("entity", ev.DisplayName),
			logger.String("from", ev.OldTier),
			logger.String("to", ev.NewSubTier))
		return nil
	}
}

// newMux serves /metrics and /healthz. Health is 503 until the service runs.
func newMux(svc *service.Service) *http.ServeMux {
	reg := metrics.GetRegistry()
	// Registered once per process; a second mux reuses the collectors.
	_ = reg.Register(collectors.NewGoCollector())
	_ = reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		stats := svc.GetStats(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if started, _ := stats["started"].(bool); !started {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(stats)
	})
	return mux
}

// startServiceMetricsUpdater refreshes gauges derived from service stats.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(ctx, svc)
		}
	}
}

func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	stats := svc.GetStats(ctx)
	if workers, ok := stats["workerCount"].(int); ok {
		metrics.UpdateWorkerCount(workers)
	}
}
