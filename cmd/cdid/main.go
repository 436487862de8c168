// Command cdid runs the drought indicator service: it consumes analysis
// requests from Kafka, runs the requested indicator, persists the artifacts,
// and publishes run results.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/droughtwatch/cdi-etl/internal/adapter/era5"
	"github.com/droughtwatch/cdi-etl/internal/adapter/gdo"
	httpadapter "github.com/droughtwatch/cdi-etl/internal/adapter/http"
	kafkaadapter "github.com/droughtwatch/cdi-etl/internal/adapter/kafka"
	"github.com/droughtwatch/cdi-etl/internal/artifact"
	"github.com/droughtwatch/cdi-etl/internal/config"
	"github.com/droughtwatch/cdi-etl/internal/indicator"
	"github.com/droughtwatch/cdi-etl/internal/observability"
	"github.com/droughtwatch/cdi-etl/internal/pipeline"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional, env overrides apply)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize artifact store", "error", err)
		os.Exit(1)
	}

	baselineStart, baselineEnd := cfg.Baseline()
	settings := indicator.Settings{
		BaselineStart: baselineStart,
		BaselineEnd:   baselineEnd,
		Backend:       cfg.Data.Backend,
	}
	deps := indicator.Deps{
		Reanalysis: era5.NewClient(cfg.ERA5.BaseURL, cfg.ERA5.APIKey, logger, metrics),
		Archive:    gdo.NewReader(cfg.Data.InputDir, logger, metrics),
		Store:      store,
		Logger:     logger,
		Metrics:    metrics,
	}

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	runner := pipeline.NewRunner(settings, deps)

	p := pipeline.New(reader, runner, writer, logger, metrics, cfg.Pipeline.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTP.Addr, p, logger)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Pipeline.ShutdownTimeout)
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

// newStore picks the artifact backend: an S3-compatible bucket when MinIO is
// enabled, the local output directory otherwise.
func newStore(ctx context.Context, cfg *config.Config) (artifact.Store, error) {
	if cfg.MinIO.Enabled {
		return artifact.NewObjectStore(ctx, artifact.ObjectStoreConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Region:    cfg.MinIO.Region,
			UseSSL:    cfg.MinIO.UseSSL,
		})
	}
	return artifact.NewFSStore(cfg.Data.OutputDir)
}
