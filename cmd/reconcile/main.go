// Command reconcile recomputes the order reconciliation fact: it joins the
// transactional daily order counts with the snapshot source, classifies
// every (date, listing) pair with a quality flag, and replaces the
// order_reconciliation table. Discrepancies are recorded, not fatal, unless
// the configured large-discrepancy limit is exceeded.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

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
		logger.Error("reconcile run failed", "error", err)
		os.Exit(1)
	}
	logger.Info("reconcile run succeeded")
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

	reconcile := pipeline.NewReconcile(st, st, logger, metrics, clockwork.NewRealClock(), cfg.LargeDiscrepancyLimit)
	return reconcile.Run(ctx)
}
