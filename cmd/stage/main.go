// Command stage loads the latest BOM daily observation archive into the
// PostgreSQL staging tables and exits. Re-running it over the same or an
// overlapping archive never duplicates rows.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/TravisH0301/weather-analysis/internal/adapter/httpadapter"
	kafkaadapter "github.com/TravisH0301/weather-analysis/internal/adapter/kafka"
	minioadapter "github.com/TravisH0301/weather-analysis/internal/adapter/minio"
	"github.com/TravisH0301/weather-analysis/internal/adapter/postgres"
	"github.com/TravisH0301/weather-analysis/internal/archive"
	"github.com/TravisH0301/weather-analysis/internal/config"
	"github.com/TravisH0301/weather-analysis/internal/observability"
	"github.com/TravisH0301/weather-analysis/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		return 1
	}
	defer db.Close()

	if err := postgres.EnsureSchema(ctx, db); err != nil {
		logger.Error("schema setup failed", "error", err)
		return 1
	}

	source, err := newSource(cfg, logger)
	if err != nil {
		logger.Error("archive source setup failed", "error", err)
		return 1
	}

	var reporter pipeline.Reporter
	if cfg.ReportingEnabled() {
		writer := kafkaadapter.NewReportWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		reporter = writer
		logger.Info("run reports enabled", "topic", cfg.KafkaReportTopic)
	} else {
		logger.Info("run reports disabled")
	}

	p := pipeline.New(source, postgres.NewLoader(db, cfg.BatchSize, logger), reporter,
		clockwork.NewRealClock(), logger, metrics, pipeline.Options{
			Filter: archive.Filter{
				Enabled: cfg.RegionFilterEnabled,
				Regions: cfg.AllowedRegions,
				MinYear: cfg.MinYear,
			},
			Exceptions:   cfg.StateExceptions,
			Location:     cfg.LoadLocation,
			ParseWorkers: cfg.ParseWorkers,
		})

	// The HTTP endpoints only live as long as the run.
	var srv *httpadapter.Server
	if cfg.HTTPAddr != "" {
		srv = httpadapter.NewServer(cfg.HTTPAddr, p, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	_, runErr := p.Run(ctx)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}

	if runErr != nil {
		return 1
	}
	logger.Info("shutdown complete")
	return 0
}

func newSource(cfg *config.Config, logger *slog.Logger) (pipeline.ArchiveSource, error) {
	if cfg.ArchiveSource == config.SourceMinIO {
		src, err := minioadapter.NewSource(cfg.MinIO, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	}
	return archive.FileSource{Path: cfg.ArchivePath}, nil
}
