package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	httpadapter "github.com/rangeguard/zone-conflict-notifier/internal/adapter/http"
	kafkaadapter "github.com/rangeguard/zone-conflict-notifier/internal/adapter/kafka"
	"github.com/rangeguard/zone-conflict-notifier/internal/adapter/sqlite"
	"github.com/rangeguard/zone-conflict-notifier/internal/config"
	"github.com/rangeguard/zone-conflict-notifier/internal/fanout"
	"github.com/rangeguard/zone-conflict-notifier/internal/geometry"
	"github.com/rangeguard/zone-conflict-notifier/internal/observability"
	"github.com/rangeguard/zone-conflict-notifier/internal/pipeline"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	store, err := sqlite.Open(cfg.DBPath, sqlite.NewRouteCache(cfg.RouteCacheSize, metrics), logger)
	if err != nil {
		logger.Error("failed to open store", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}

	// Notifications go either to Kafka or straight into the local inbox.
	var (
		sink   fanout.NotificationSink = store
		writer *kafkaadapter.Writer
	)
	if cfg.NotificationSink == config.SinkKafka {
		writer = kafkaadapter.NewWriter(cfg, logger)
		sink = writer
	}
	logger.Info("notification sink selected", "sink", cfg.NotificationSink)

	dispatcher := fanout.NewDispatcher(cfg.FanoutWorkers, cfg.FanoutQueueSize, logger, metrics)
	service := fanout.NewService(store, sink, dispatcher, geometry.NewPlanar(), logger, metrics)

	reader := kafkaadapter.NewReader(cfg, logger)
	transformer := pipeline.NewTransformer(cfg.DefaultBufferMeters)

	p := pipeline.New(reader, transformer, service, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, service, store, httpadapter.RateLimit{
		Rate:               cfg.RateLimit,
		TrustForwardHeader: cfg.TrustForwardHeader,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start trigger pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		logger.Error("fanout shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}
