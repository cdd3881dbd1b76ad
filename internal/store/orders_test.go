package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outlet-weather-etl/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTransactionalCounts_AggregatesByDateAndListing(t *testing.T) {
	s := newTestStore(t)
	orders := []domain.Order{
		{ID: 1, ListingID: 10, OrderDate: day(2023, 6, 1)},
		{ID: 2, ListingID: 10, OrderDate: day(2023, 6, 1)},
		{ID: 3, ListingID: 10, OrderDate: day(2023, 6, 2)},
		{ID: 4, ListingID: 20, OrderDate: day(2023, 6, 1)},
	}
	require.NoError(t, s.DB.Create(&orders).Error)

	counts, err := s.TransactionalCounts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[domain.CountKey]int64{
		{Date: "2023-06-01", ListingID: 10}: 2,
		{Date: "2023-06-02", ListingID: 10}: 1,
		{Date: "2023-06-01", ListingID: 20}: 1,
	}, counts)
}

func TestTransactionalCounts_TruncatesTimestampsToDate(t *testing.T) {
	s := newTestStore(t)
	// Orders at different times of the same UTC day collapse into one key.
	orders := []domain.Order{
		{ID: 1, ListingID: 10, OrderDate: time.Date(2023, 6, 1, 0, 15, 0, 0, time.UTC)},
		{ID: 2, ListingID: 10, OrderDate: time.Date(2023, 6, 1, 23, 45, 0, 0, time.UTC)},
	}
	require.NoError(t, s.DB.Create(&orders).Error)

	counts, err := s.TransactionalCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[domain.CountKey{Date: "2023-06-01", ListingID: 10}])
}

func TestTransactionalCounts_EmptyTable(t *testing.T) {
	s := newTestStore(t)

	counts, err := s.TransactionalCounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestSnapshotCounts_FloorsNegativeToZero(t *testing.T) {
	s := newTestStore(t)
	snapshots := []domain.ListingSnapshot{
		{ListingID: 10, SnapshotDate: day(2023, 6, 1), OrderCount: 5},
		{ListingID: 20, SnapshotDate: day(2023, 6, 1), OrderCount: -3},
	}
	require.NoError(t, s.DB.Create(&snapshots).Error)

	counts, err := s.SnapshotCounts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[domain.CountKey]int64{
		{Date: "2023-06-01", ListingID: 10}: 5,
		{Date: "2023-06-01", ListingID: 20}: 0,
	}, counts)
}

func TestReplaceReconciliation_ReplacesPriorFact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []domain.ReconciledRecord{
		{Date: "2023-06-01", ListingID: 10, DailyOrders: 2, SnapshotVsActualDiff: 2, DataQualityFlag: domain.FlagSnapshotMissing},
		{Date: "2023-06-01", ListingID: 20, DailyOrders: 1, SnapshotVsActualDiff: 1, DataQualityFlag: domain.FlagSnapshotMissing},
	}
	require.NoError(t, s.ReplaceReconciliation(ctx, first))

	snapCount := int64(3)
	second := []domain.ReconciledRecord{
		{Date: "2023-06-02", ListingID: 10, DailyOrders: 3, DailyOrdersFromSnapshot: &snapCount, SnapshotVsActualDiff: 0, DataQualityFlag: domain.FlagMatch},
	}
	require.NoError(t, s.ReplaceReconciliation(ctx, second))

	var persisted []domain.ReconciledRecord
	require.NoError(t, s.DB.Find(&persisted).Error)
	require.Len(t, persisted, 1)
	assert.Equal(t, "2023-06-02", persisted[0].Date)
	assert.Equal(t, domain.FlagMatch, persisted[0].DataQualityFlag)
	require.NotNil(t, persisted[0].DailyOrdersFromSnapshot)
	assert.Equal(t, int64(3), *persisted[0].DailyOrdersFromSnapshot)
}

func TestReplaceReconciliation_EmptyRunClearsFact(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceReconciliation(ctx, []domain.ReconciledRecord{
		{Date: "2023-06-01", ListingID: 10, DailyOrders: 1, SnapshotVsActualDiff: 1, DataQualityFlag: domain.FlagSnapshotMissing},
	}))
	require.NoError(t, s.ReplaceReconciliation(ctx, nil))

	var count int64
	require.NoError(t, s.DB.Model(&domain.ReconciledRecord{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
