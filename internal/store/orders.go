package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/couchcryptid/outlet-weather-etl/internal/domain"
)

// ordersBatchSize bounds memory while streaming order rows for counting.
const ordersBatchSize = 5000

// TransactionalCounts derives the authoritative daily order count per
// (date, listing) by counting individual order rows. Date truncation happens
// in Go so the same code path serves both supported drivers.
func (s *Store) TransactionalCounts(ctx context.Context) (map[domain.CountKey]int64, error) {
	counts := make(map[domain.CountKey]int64)

	var batch []domain.Order
	err := s.DB.WithContext(ctx).FindInBatches(&batch, ordersBatchSize, func(_ *gorm.DB, _ int) error {
		for _, o := range batch {
			key := domain.CountKey{
				Date:      o.OrderDate.UTC().Format(time.DateOnly),
				ListingID: o.ListingID,
			}
			counts[key]++
		}
		return nil
	}).Error
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}
	return counts, nil
}

// SnapshotCounts reads the pre-aggregated snapshot source. Negative raw
// counts are a known upstream defect and are floored to zero here, before
// the classifier ever sees them.
func (s *Store) SnapshotCounts(ctx context.Context) (map[domain.CountKey]int64, error) {
	var snapshots []domain.ListingSnapshot
	if err := s.DB.WithContext(ctx).Find(&snapshots).Error; err != nil {
		return nil, fmt.Errorf("load listing snapshots: %w", err)
	}

	counts := make(map[domain.CountKey]int64, len(snapshots))
	var floored int64
	for _, snap := range snapshots {
		count := snap.OrderCount
		if count < 0 {
			count = 0
			floored++
		}
		key := domain.CountKey{
			Date:      snap.SnapshotDate.UTC().Format(time.DateOnly),
			ListingID: snap.ListingID,
		}
		counts[key] = count
	}

	if floored > 0 {
		s.logger.Warn("negative snapshot counts floored to zero", "count", floored)
	}
	return counts, nil
}

// reconcileChunkSize bounds the multi-row INSERT into the fact table.
const reconcileChunkSize = 500

// ReplaceReconciliation replaces the order_reconciliation fact with this
// run's records. Delete and insert share one transaction, so readers never
// observe a partially reconciled fact.
func (s *Store) ReplaceReconciliation(ctx context.Context, records []domain.ReconciledRecord) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM order_reconciliation").Error; err != nil {
			return fmt.Errorf("clear reconciliation fact: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&records, reconcileChunkSize).Error; err != nil {
			return fmt.Errorf("insert reconciliation fact: %w", err)
		}
		return nil
	})
}
