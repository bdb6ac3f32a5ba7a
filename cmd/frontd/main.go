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
	httpadapter "github.com/couchcryptid/storm-front-detection/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/storm-front-detection/internal/adapter/kafka"
	"github.com/couchcryptid/storm-front-detection/internal/adapter/netcdf"
	"github.com/couchcryptid/storm-front-detection/internal/config"
	"github.com/couchcryptid/storm-front-detection/internal/fronts"
	"github.com/couchcryptid/storm-front-detection/internal/observability"
	"github.com/couchcryptid/storm-front-detection/internal/pipeline"
	"github.com/couchcryptid/storm-front-detection/internal/terrain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	detectors, err := fronts.DefaultRegistry(cfg.Thermal, cfg.WindShift).Select(cfg.Methods)
	if err != nil {
		logger.Error("failed to select detectors", "error", err)
		os.Exit(1)
	}

	// Terrain filter is feature-flagged via TERRAIN_FILE.
	var filter *pipeline.TerrainFilter
	if cfg.TerrainEnabled {
		file, err := netcdf.OpenTerrain(cfg.TerrainFile)
		if err != nil {
			logger.Error("failed to open terrain file", "path", cfg.TerrainFile, "error", err)
			os.Exit(1)
		}
		filter = &pipeline.TerrainFilter{
			Provider:     terrain.NewCachedProvider(file, cfg.TerrainCacheSize, metrics),
			MaxElevation: cfg.TerrainMaxElevation,
		}
		metrics.TerrainEnabled.Set(1)
		logger.Info("terrain filter enabled",
			"path", cfg.TerrainFile, "max_elevation", cfg.TerrainMaxElevation, "cache_size", cfg.TerrainCacheSize)
	} else {
		logger.Info("terrain filter disabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	transformer := pipeline.NewTransformer(detectors, filter, logger, metrics)

	p := pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, nil, logger)

	// Start HTTP server. Readiness stays false until the first batch loads.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := kafkaadapter.WaitForBrokers(ctx, cfg.KafkaBrokers, cfg.KafkaWaitTimeout, logger); err != nil {
		logger.Error("kafka unavailable", "error", err)
		_ = srv.Shutdown(context.Background())
		os.Exit(1)
	}

	// Start detection pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	logger.Info("front detection service started", "methods", cfg.Methods, "source", cfg.KafkaSourceTopic, "sink", cfg.KafkaSinkTopic)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}

	logger.Info("shutdown complete")
}
