package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"

	"github.com/couchcryptid/geostack-pipeline/internal/adapter/csvio"
	httpadapter "github.com/couchcryptid/geostack-pipeline/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/geostack-pipeline/internal/adapter/kafka"
	"github.com/couchcryptid/geostack-pipeline/internal/adapter/netcdf"
	"github.com/couchcryptid/geostack-pipeline/internal/config"
	"github.com/couchcryptid/geostack-pipeline/internal/domain"
	"github.com/couchcryptid/geostack-pipeline/internal/interp"
	"github.com/couchcryptid/geostack-pipeline/internal/observability"
	"github.com/couchcryptid/geostack-pipeline/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogFormat, cfg.LogLevel)
	metrics := observability.NewMetrics()
	runID := uuid.NewString()[:8]

	engine, err := interp.New(interp.Options{
		Method:    domain.Method(cfg.Interpolation.Method),
		Model:     interp.Model(cfg.Interpolation.VariogramModel),
		MinPoints: cfg.Interpolation.MinPoints,
		IDWPower:  cfg.Interpolation.IDWPower,
	}, logger)
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	writer, err := netcdf.NewWriter(cfg.Run.OutputDir, runID)
	if err != nil {
		logger.Error("failed to prepare output directory", "error", err)
		os.Exit(1)
	}

	// Outcome publishing is feature-flagged via KAFKA_ENABLED.
	var publisher pipeline.OutcomePublisher
	var kafkaPub *kafkaadapter.Publisher
	if cfg.Kafka.Enabled {
		kafkaPub = kafkaadapter.NewPublisher(cfg.Kafka, runID, logger)
		publisher = kafkaPub
		logger.Info("outcome publishing enabled", "topic", cfg.Kafka.OutcomeTopic)
	} else {
		logger.Info("outcome publishing disabled")
	}

	coord := pipeline.New(cfg, engine, writer, publisher, metrics, logger, runID)

	srv := httpadapter.NewServer(cfg.Server.Addr, coord.Status, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Monitoring endpoints stay up for the duration of the run.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	exitCode := 0
	if err := run(ctx, cfg, coord, logger, runID); err != nil {
		logger.Error("run failed", "run_id", runID, "error", err)
		exitCode = 1
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete", "run_id", runID)
	os.Exit(exitCode)
}

func run(ctx context.Context, cfg *config.Config, coord *pipeline.Coordinator, logger *slog.Logger, runID string) error {
	ds, err := csvio.Load(cfg.Input.CSVPath, csvio.Options{
		IDColumn:   cfg.Input.IDColumn,
		LatColumn:  cfg.Input.LatColumn,
		LonColumn:  cfg.Input.LonColumn,
		DateColumn: cfg.Input.DateColumn,
		Variables:  cfg.Input.Variables,
	}, logger)
	if err != nil {
		return err
	}

	report, err := coord.Run(ctx, ds)
	if err != nil {
		return err
	}

	path, err := report.Write(cfg.Run.OutputDir)
	if err != nil {
		return err
	}
	logger.Info("run report written", "run_id", runID, "path", path)
	return nil
}
