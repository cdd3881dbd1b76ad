//go:build integration

package integration_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outlet-weather-etl/internal/domain"
	"github.com/couchcryptid/outlet-weather-etl/internal/observability"
	"github.com/couchcryptid/outlet-weather-etl/internal/pipeline"
	"github.com/couchcryptid/outlet-weather-etl/internal/store"
)

func newReconcileFixture(t *testing.T) (*store.Store, *pipeline.Reconcile) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "reconcile.db")
	st, err := store.Open("sqlite", dsn, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate())

	r := pipeline.NewReconcile(st, st, discardLogger(), observability.NewMetricsForTesting(), clockwork.NewRealClock(), 0)
	return st, r
}

func seedOrders(t *testing.T, st *store.Store, listingID int64, date time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, st.DB.Create(&domain.Order{
			ListingID: listingID,
			OrderDate: date.Add(time.Duration(i) * time.Minute),
		}).Error)
	}
}

func TestReconcilePipeline_EndToEnd(t *testing.T) {
	st, r := newReconcileFixture(t)
	day := time.Date(2023, 6, 1, 9, 0, 0, 0, time.UTC)

	seedOrders(t, st, 10, day, 5)  // matches its snapshot
	seedOrders(t, st, 20, day, 9)  // snapshot says 4: minor discrepancy of 5
	seedOrders(t, st, 30, day, 2)  // no snapshot row
	seedOrders(t, st, 40, day, 12) // snapshot says 2: large discrepancy of 10

	snapshots := []domain.ListingSnapshot{
		{ListingID: 10, SnapshotDate: day, OrderCount: 5},
		{ListingID: 20, SnapshotDate: day, OrderCount: 4},
		{ListingID: 40, SnapshotDate: day, OrderCount: 2},
		{ListingID: 50, SnapshotDate: day, OrderCount: -7}, // floored to 0, no orders
	}
	require.NoError(t, st.DB.Create(&snapshots).Error)

	require.NoError(t, r.Run(context.Background()))

	var records []domain.ReconciledRecord
	require.NoError(t, st.DB.Order("date, listing_id").Find(&records).Error)
	require.Len(t, records, 5)

	byListing := make(map[int64]domain.ReconciledRecord, len(records))
	for _, rec := range records {
		assert.Equal(t, "2023-06-01", rec.Date)
		byListing[rec.ListingID] = rec
	}

	assert.Equal(t, domain.FlagMatch, byListing[10].DataQualityFlag)
	assert.Equal(t, int64(0), byListing[10].SnapshotVsActualDiff)

	assert.Equal(t, domain.FlagMinorDiscrepancy, byListing[20].DataQualityFlag)
	assert.Equal(t, int64(5), byListing[20].SnapshotVsActualDiff)

	assert.Equal(t, domain.FlagSnapshotMissing, byListing[30].DataQualityFlag)
	assert.Nil(t, byListing[30].DailyOrdersFromSnapshot)
	assert.Equal(t, int64(2), byListing[30].SnapshotVsActualDiff)

	assert.Equal(t, domain.FlagLargeDiscrepancy, byListing[40].DataQualityFlag)
	assert.Equal(t, int64(10), byListing[40].SnapshotVsActualDiff)

	// Snapshot-only listing appears with zero transactional orders and a
	// floored snapshot count.
	assert.Equal(t, domain.FlagMatch, byListing[50].DataQualityFlag)
	assert.Equal(t, int64(0), byListing[50].DailyOrders)
	require.NotNil(t, byListing[50].DailyOrdersFromSnapshot)
	assert.Equal(t, int64(0), *byListing[50].DailyOrdersFromSnapshot)
}

func TestReconcilePipeline_RerunIsIdempotent(t *testing.T) {
	st, r := newReconcileFixture(t)
	day := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	seedOrders(t, st, 10, day, 3)
	require.NoError(t, st.DB.Create(&domain.ListingSnapshot{
		ListingID: 10, SnapshotDate: day, OrderCount: 3,
	}).Error)

	require.NoError(t, r.Run(context.Background()))
	require.NoError(t, r.Run(context.Background()))

	var count int64
	require.NoError(t, st.DB.Model(&domain.ReconciledRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
