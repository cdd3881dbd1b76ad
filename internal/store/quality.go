package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/couchcryptid/outlet-weather-etl/internal/domain"
)

// Check names, in gate execution order.
const (
	CheckRowCount    = "row_count_integrity"
	CheckNulls       = "null_detection"
	CheckRanges      = "range_validation"
	CheckReferential = "referential_integrity"
)

// Accepted measurement ranges. Rows outside any of them are unusable for
// downstream analysis and fail the gate.
const (
	minTemperature = -50.0
	maxTemperature = 50.0
	minHumidity    = 0.0
	maxHumidity    = 100.0
	minWindSpeed   = 0.0
	maxWindSpeed   = 200.0
)

// criticalColumns must contain no nulls; a null in any of them fails the
// gate. Checked in this order so the diagnostic names the first bad column.
var criticalColumns = []string{"outlet_id", "datetime", "temperature_2m"}

// optionalColumns produce a warning when null but never fail the run.
var optionalColumns = []string{"relative_humidity_2m", "wind_speed_10m"}

// CheckResult is the verdict of one quality check. A failed result carries a
// human-readable reason naming the exact violating count; the pipeline
// driver is responsible for turning it into a halted run.
type CheckResult struct {
	Name           string
	Passed         bool
	Reason         string
	ViolatingCount int64
}

// CheckError is the fatal form of a failed CheckResult.
type CheckError struct {
	Result CheckResult
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("quality gate failed %s: %s", e.Result.Name, e.Result.Reason)
}

// QualityGate validates the persisted weather table after a load. Four
// checks run in a fixed order and the first failure aborts the run; no check
// result is ever downgraded to a warning.
type QualityGate struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewQualityGate creates a gate over the store's weather table.
func NewQualityGate(s *Store, logger *slog.Logger) *QualityGate {
	return &QualityGate{db: s.DB, logger: logger}
}

// Run executes all four checks. baseline is the weather row count captured
// before this run's load; fetched is the FetchResult row count handed across
// the stage boundary. Returns a *CheckError for the first failing check, or
// a plain error if a check query itself fails.
func (g *QualityGate) Run(ctx context.Context, baseline, fetched int64) error {
	checks := []func(context.Context) (CheckResult, error){
		func(ctx context.Context) (CheckResult, error) { return g.RowCountIntegrity(ctx, baseline, fetched) },
		g.NullDetection,
		g.RangeValidation,
		g.ReferentialIntegrity,
	}

	for _, check := range checks {
		res, err := check(ctx)
		if err != nil {
			return fmt.Errorf("quality gate: %w", err)
		}
		if !res.Passed {
			return &CheckError{Result: res}
		}
		g.logger.Info("quality check passed", "check", res.Name)
	}

	g.logSummary(ctx)
	return nil
}

// RowCountIntegrity verifies that the rows persisted by this run equal the
// fetched row count.
func (g *QualityGate) RowCountIntegrity(ctx context.Context, baseline, fetched int64) (CheckResult, error) {
	current, err := g.count(ctx, "SELECT COUNT(*) FROM weather")
	if err != nil {
		return CheckResult{}, err
	}

	persisted := current - baseline
	if persisted == fetched {
		return CheckResult{Name: CheckRowCount, Passed: true}, nil
	}

	lost := fetched - persisted
	if lost < 0 {
		lost = -lost
	}
	return CheckResult{
		Name:           CheckRowCount,
		ViolatingCount: lost,
		Reason: fmt.Sprintf("fetched %d records but %d were persisted; lost %d records",
			fetched, persisted, lost),
	}, nil
}

// NullDetection verifies the critical columns contain no nulls. Nulls in
// optional columns are reported by the gate's summary as warnings instead.
func (g *QualityGate) NullDetection(ctx context.Context) (CheckResult, error) {
	for _, col := range criticalColumns {
		nulls, err := g.count(ctx, fmt.Sprintf("SELECT COUNT(*) FROM weather WHERE %s IS NULL", col))
		if err != nil {
			return CheckResult{}, err
		}
		if nulls > 0 {
			return CheckResult{
				Name:           CheckNulls,
				ViolatingCount: nulls,
				Reason:         fmt.Sprintf("found %d records with NULL %s", nulls, col),
			}, nil
		}
	}

	for _, col := range optionalColumns {
		nulls, err := g.count(ctx, fmt.Sprintf("SELECT COUNT(*) FROM weather WHERE %s IS NULL", col))
		if err != nil {
			return CheckResult{}, err
		}
		if nulls > 0 {
			g.logger.Warn("nulls in optional column", "column", col, "count", nulls)
		}
	}

	return CheckResult{Name: CheckNulls, Passed: true}, nil
}

// RangeValidation verifies every reading is within realistic measurement
// ranges: temperature [-50, 50] °C, humidity [0, 100] %, wind [0, 200] km/h.
func (g *QualityGate) RangeValidation(ctx context.Context) (CheckResult, error) {
	var breakdown struct {
		BadTemperature int64
		BadHumidity    int64
		BadWind        int64
		Total          int64
	}
	err := g.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN temperature_2m < ? OR temperature_2m > ? THEN 1 ELSE 0 END), 0)             AS bad_temperature,
			COALESCE(SUM(CASE WHEN relative_humidity_2m < ? OR relative_humidity_2m > ? THEN 1 ELSE 0 END), 0) AS bad_humidity,
			COALESCE(SUM(CASE WHEN wind_speed_10m < ? OR wind_speed_10m > ? THEN 1 ELSE 0 END), 0)             AS bad_wind,
			COALESCE(SUM(CASE WHEN temperature_2m < ? OR temperature_2m > ?
				OR relative_humidity_2m < ? OR relative_humidity_2m > ?
				OR wind_speed_10m < ? OR wind_speed_10m > ? THEN 1 ELSE 0 END), 0)                             AS total
		FROM weather`,
		minTemperature, maxTemperature,
		minHumidity, maxHumidity,
		minWindSpeed, maxWindSpeed,
		minTemperature, maxTemperature,
		minHumidity, maxHumidity,
		minWindSpeed, maxWindSpeed,
	).Scan(&breakdown).Error
	if err != nil {
		return CheckResult{}, fmt.Errorf("range validation query: %w", err)
	}

	if breakdown.Total == 0 {
		return CheckResult{Name: CheckRanges, Passed: true}, nil
	}
	return CheckResult{
		Name:           CheckRanges,
		ViolatingCount: breakdown.Total,
		Reason: fmt.Sprintf("found %d records outside realistic ranges (temperature: %d, humidity: %d, wind: %d)",
			breakdown.Total, breakdown.BadTemperature, breakdown.BadHumidity, breakdown.BadWind),
	}, nil
}

// ReferentialIntegrity verifies every reading references an existing outlet.
func (g *QualityGate) ReferentialIntegrity(ctx context.Context) (CheckResult, error) {
	orphans, err := g.count(ctx, `
		SELECT COUNT(*)
		FROM weather w
		LEFT JOIN outlets o ON w.outlet_id = o.id
		WHERE o.id IS NULL`)
	if err != nil {
		return CheckResult{}, err
	}

	if orphans == 0 {
		return CheckResult{Name: CheckReferential, Passed: true}, nil
	}
	return CheckResult{
		Name:           CheckReferential,
		ViolatingCount: orphans,
		Reason:         fmt.Sprintf("found %d weather records referencing non-existent outlet ids", orphans),
	}, nil
}

func (g *QualityGate) count(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := g.db.WithContext(ctx).Raw(query).Scan(&n).Error; err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	return n, nil
}

// logSummary reports the persisted date range and outlet coverage after all
// checks pass. Informational only.
func (g *QualityGate) logSummary(ctx context.Context) {
	db := g.db.WithContext(ctx)

	var oldest, newest domain.Reading
	var outlets int64
	if err := db.Model(&domain.Reading{}).Order("datetime ASC").Limit(1).Find(&oldest).Error; err != nil {
		g.logger.Warn("summary query failed", "error", err)
		return
	}
	if err := db.Model(&domain.Reading{}).Order("datetime DESC").Limit(1).Find(&newest).Error; err != nil {
		g.logger.Warn("summary query failed", "error", err)
		return
	}
	if err := db.Model(&domain.Reading{}).Distinct("outlet_id").Count(&outlets).Error; err != nil {
		g.logger.Warn("summary query failed", "error", err)
		return
	}

	g.logger.Info("all quality checks passed",
		"min_datetime", oldest.Datetime.Format(time.RFC3339),
		"max_datetime", newest.Datetime.Format(time.RFC3339),
		"unique_outlets", outlets,
	)
}
