package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/outlet-weather-etl/internal/domain"
	"github.com/couchcryptid/outlet-weather-etl/internal/observability"
)

// CountSource provides the two independently produced daily order counts.
type CountSource interface {
	TransactionalCounts(ctx context.Context) (map[domain.CountKey]int64, error)
	SnapshotCounts(ctx context.Context) (map[domain.CountKey]int64, error)
}

// FactWriter replaces the reconciliation fact with a fresh record set.
type FactWriter interface {
	ReplaceReconciliation(ctx context.Context, records []domain.ReconciledRecord) error
}

// Reconcile drives the order reconciliation stage: read both count sources,
// classify every (date, listing) pair, and replace the fact table. The
// computation is a full recompute and idempotent; running it twice on the
// same inputs produces byte-identical record sets.
type Reconcile struct {
	counts  CountSource
	facts   FactWriter
	logger  *slog.Logger
	metrics *observability.Metrics
	clock   clockwork.Clock

	// largeDiscrepancyLimit elevates discrepancies to a run failure when the
	// number of large_discrepancy records exceeds it. 0 disables escalation.
	largeDiscrepancyLimit int
}

// NewReconcile creates the reconciliation driver.
func NewReconcile(
	counts CountSource,
	facts FactWriter,
	logger *slog.Logger,
	metrics *observability.Metrics,
	clock clockwork.Clock,
	largeDiscrepancyLimit int,
) *Reconcile {
	return &Reconcile{
		counts:                counts,
		facts:                 facts,
		logger:                logger,
		metrics:               metrics,
		clock:                 clock,
		largeDiscrepancyLimit: largeDiscrepancyLimit,
	}
}

// Run recomputes the reconciliation fact. Discrepancies are recorded as
// quality flags, not failures; the run fails only when the configured
// large-discrepancy limit is exceeded, and even then only after the fact
// table has been written.
func (r *Reconcile) Run(ctx context.Context) error {
	defer r.observeStage("reconcile")()
	r.metrics.PipelineRunning.Set(1)
	defer r.metrics.PipelineRunning.Set(0)

	transactional, err := r.counts.TransactionalCounts(ctx)
	if err != nil {
		return err
	}
	snapshot, err := r.counts.SnapshotCounts(ctx)
	if err != nil {
		return err
	}

	records := domain.Classify(transactional, snapshot)

	flagCounts := make(map[domain.QualityFlag]int64, 4)
	for _, rec := range records {
		flagCounts[rec.DataQualityFlag]++
		r.metrics.ReconciledRecords.WithLabelValues(string(rec.DataQualityFlag)).Inc()
	}

	if err := r.facts.ReplaceReconciliation(ctx, records); err != nil {
		return err
	}

	r.logger.Info("reconciliation complete",
		"records", len(records),
		"match", flagCounts[domain.FlagMatch],
		"snapshot_missing", flagCounts[domain.FlagSnapshotMissing],
		"minor_discrepancy", flagCounts[domain.FlagMinorDiscrepancy],
		"large_discrepancy", flagCounts[domain.FlagLargeDiscrepancy],
	)

	if large := flagCounts[domain.FlagLargeDiscrepancy]; r.largeDiscrepancyLimit > 0 && large > int64(r.largeDiscrepancyLimit) {
		return fmt.Errorf("reconciliation produced %d large_discrepancy records, exceeding the limit of %d",
			large, r.largeDiscrepancyLimit)
	}
	return nil
}

func (r *Reconcile) observeStage(stage string) func() {
	start := r.clock.Now()
	return func() {
		r.metrics.StageDuration.WithLabelValues(stage).Observe(r.clock.Since(start).Seconds())
	}
}
