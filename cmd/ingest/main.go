// Command ingest runs the weather ingestion chain once: validate outlets,
// fetch the configured historical date range from the Open-Meteo archive API
// per outlet, bulk load the readings, then run the quality gate. The process
// exits non-zero when any stage fails; an external scheduler owns retries.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/outlet-weather-etl/internal/adapter/http"
	"github.com/couchcryptid/outlet-weather-etl/internal/adapter/openmeteo"
	"github.com/couchcryptid/outlet-weather-etl/internal/config"
	"github.com/couchcryptid/outlet-weather-etl/internal/observability"
	"github.com/couchcryptid/outlet-weather-etl/internal/pipeline"
	"github.com/couchcryptid/outlet-weather-etl/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("ingest run failed", "error", err)
		os.Exit(1)
	}
	logger.Info("ingest run succeeded")
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		return err
	}

	mode, err := store.ParseWriteMode(cfg.WriteMode)
	if err != nil {
		return err
	}

	retry := openmeteo.NewRetryPolicy(cfg.FetchMaxAttempts, cfg.FetchRetryDelay)
	client := openmeteo.NewClient(cfg.WeatherBaseURL, cfg.FetchTimeout, retry, logger)
	loader := store.NewLoader(st, cfg.LoadChunkSize, logger)
	gate := store.NewQualityGate(st, logger)

	ingest := pipeline.NewIngest(st, client, loader, gate, logger, metrics, clockwork.NewRealClock(), pipeline.IngestConfig{
		StartDate: cfg.WeatherStartDate,
		EndDate:   cfg.WeatherEndDate,
		WriteMode: mode,
		Pause:     cfg.FetchPause,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, ingest, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}()

	logger.Info("starting weather ingestion",
		"start_date", cfg.WeatherStartDate,
		"end_date", cfg.WeatherEndDate,
		"write_mode", cfg.WriteMode,
	)
	return ingest.Run(ctx)
}
