// Package pipeline contains the run-to-completion drivers for the two
// stage chains: weather ingestion (validate → fetch → load → quality gate)
// and order reconciliation. An external scheduler invokes each driver as a
// discrete unit and owns stage-level retry; the drivers are restartable and
// idempotent, and the only value crossing the fetch/validate boundary is the
// explicit FetchResult row count.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/outlet-weather-etl/internal/domain"
	"github.com/couchcryptid/outlet-weather-etl/internal/observability"
	"github.com/couchcryptid/outlet-weather-etl/internal/store"
)

// OutletSource provides the candidate outlet set.
type OutletSource interface {
	Outlets(ctx context.Context) ([]domain.Outlet, error)
	CountReadings(ctx context.Context) (int64, error)
}

// WeatherFetcher retrieves one outlet's hourly series.
type WeatherFetcher interface {
	FetchLocation(ctx context.Context, outlet domain.Outlet, startDate, endDate string) ([]domain.Reading, error)
}

// ReadingLoader persists fetched readings.
type ReadingLoader interface {
	Load(ctx context.Context, readings []domain.Reading, mode store.WriteMode) (store.LoadStats, error)
}

// GateRunner validates the persisted table against the fetched row count.
type GateRunner interface {
	Run(ctx context.Context, baseline, fetched int64) error
}

// IngestConfig carries the run parameters the driver needs.
type IngestConfig struct {
	StartDate string
	EndDate   string
	WriteMode store.WriteMode

	// Pause is an optional politeness delay between outlet requests.
	Pause time.Duration
}

// Ingest drives the weather chain: validate outlets, fetch per outlet with
// retry, bulk load, then run the quality gate. Every stage is gated on the
// previous one succeeding; any fatal error makes the whole run fail.
type Ingest struct {
	source  OutletSource
	fetcher WeatherFetcher
	loader  ReadingLoader
	gate    GateRunner
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock
	cfg     IngestConfig

	ready atomic.Bool
}

// NewIngest creates the ingestion driver.
func NewIngest(
	source OutletSource,
	fetcher WeatherFetcher,
	loader ReadingLoader,
	gate GateRunner,
	logger *slog.Logger,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	cfg IngestConfig,
) *Ingest {
	return &Ingest{
		source:  source,
		fetcher: fetcher,
		loader:  loader,
		gate:    gate,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
		cfg:     cfg,
	}
}

// CheckReadiness reports whether the run has passed its precondition stage.
func (p *Ingest) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("ingest run has not validated outlets yet")
	}
	return nil
}

// Run executes the full weather chain once. Returns nil only when every
// stage, including all four quality checks, succeeded.
func (p *Ingest) Run(ctx context.Context) error {
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	outlets, err := p.validateOutlets(ctx)
	if err != nil {
		return err
	}
	p.ready.Store(true)

	result, err := p.fetchAll(ctx, outlets)
	if err != nil {
		return err
	}

	baseline, err := p.load(ctx, result)
	if err != nil {
		return err
	}

	return p.validate(ctx, baseline, result)
}

// validateOutlets filters the candidate set to usable coordinates and fails
// the run before any network call when nothing survives.
func (p *Ingest) validateOutlets(ctx context.Context) ([]domain.Outlet, error) {
	defer p.observeStage("validate")()

	outlets, err := p.source.Outlets(ctx)
	if err != nil {
		return nil, err
	}
	if len(outlets) == 0 {
		return nil, errors.New("no outlets found: run the seed load first")
	}

	valid := domain.ValidOutlets(outlets)
	p.metrics.OutletsValidated.Set(float64(len(valid)))
	p.logger.Info("outlet validation",
		"total", len(outlets),
		"valid", len(valid),
		"invalid", len(outlets)-len(valid),
	)

	if len(valid) == 0 {
		return nil, errors.New("no outlets have valid coordinates")
	}
	return valid, nil
}

// fetchAll retrieves every validated outlet's series sequentially. An outlet
// whose retries are exhausted is skipped with a logged gap; the stage fails
// only when no outlet succeeds.
func (p *Ingest) fetchAll(ctx context.Context, outlets []domain.Outlet) (domain.FetchResult, error) {
	defer p.observeStage("fetch")()

	var result domain.FetchResult
	var fetchErrs *multierror.Error

	for i, outlet := range outlets {
		if err := ctx.Err(); err != nil {
			return domain.FetchResult{}, err
		}

		readings, err := p.fetcher.FetchLocation(ctx, outlet, p.cfg.StartDate, p.cfg.EndDate)
		if err != nil {
			p.logger.Warn("outlet fetch failed, skipping",
				"outlet_id", outlet.ID,
				"error", err,
			)
			p.metrics.FetchRequests.WithLabelValues("failure").Inc()
			p.metrics.OutletsSkipped.Inc()
			result.FailedOutlets++
			fetchErrs = multierror.Append(fetchErrs, fmt.Errorf("outlet %d: %w", outlet.ID, err))
			continue
		}

		p.metrics.FetchRequests.WithLabelValues("success").Inc()
		p.metrics.RowsFetched.Add(float64(len(readings)))
		result.Readings = append(result.Readings, readings...)
		result.RowCount += int64(len(readings))

		if p.cfg.Pause > 0 && i < len(outlets)-1 {
			p.clock.Sleep(p.cfg.Pause)
		}
	}

	if result.RowCount == 0 {
		if err := fetchErrs.ErrorOrNil(); err != nil {
			return domain.FetchResult{}, fmt.Errorf("no weather data fetched: %w", err)
		}
		return domain.FetchResult{}, errors.New("no weather data fetched")
	}

	p.logger.Info("fetch complete",
		"rows", result.RowCount,
		"outlets_ok", len(outlets)-result.FailedOutlets,
		"outlets_skipped", result.FailedOutlets,
	)
	return result, nil
}

// load persists the run's readings and returns the pre-load baseline count
// used by the row-count integrity check.
func (p *Ingest) load(ctx context.Context, result domain.FetchResult) (int64, error) {
	defer p.observeStage("load")()

	baseline, err := p.source.CountReadings(ctx)
	if err != nil {
		return 0, err
	}
	if p.cfg.WriteMode == store.Initialize {
		baseline = 0
	}

	stats, err := p.loader.Load(ctx, result.Readings, p.cfg.WriteMode)
	p.metrics.RowsCommitted.Add(float64(stats.Committed))
	p.metrics.ChunksWritten.Add(float64(stats.Chunks))
	if err != nil {
		return 0, fmt.Errorf("load stage: %w", err)
	}
	return baseline, nil
}

// validate runs the quality gate against the persisted table, passing the
// fetched row count across the stage boundary as an explicit value.
func (p *Ingest) validate(ctx context.Context, baseline int64, result domain.FetchResult) error {
	defer p.observeStage("quality_gate")()

	err := p.gate.Run(ctx, baseline, result.RowCount)
	if err != nil {
		var checkErr *store.CheckError
		if errors.As(err, &checkErr) {
			p.metrics.QualityCheckFailures.WithLabelValues(checkErr.Result.Name).Inc()
		}
		return err
	}
	return nil
}

func (p *Ingest) observeStage(stage string) func() {
	start := p.clock.Now()
	return func() {
		p.metrics.StageDuration.WithLabelValues(stage).Observe(p.clock.Since(start).Seconds())
	}
}
