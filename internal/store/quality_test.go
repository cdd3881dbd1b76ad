package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/outlet-weather-etl/internal/domain"
)

func seedReadings(t *testing.T, s *Store, readings ...domain.Reading) {
	t.Helper()
	require.NoError(t, s.DB.Create(&readings).Error)
}

func cleanReading(outletID int64, hour int) domain.Reading {
	return domain.Reading{
		OutletID:         outletID,
		Datetime:         time.Date(2023, 6, 1, hour, 0, 0, 0, time.UTC),
		Temperature:      ptr(21.5),
		RelativeHumidity: ptr(60),
		WindSpeed:        ptr(12),
	}
}

func requireCheckError(t *testing.T, err error) CheckResult {
	t.Helper()
	require.Error(t, err)
	checkErr, ok := err.(*CheckError)
	require.True(t, ok, "expected *CheckError, got %T: %v", err, err)
	return checkErr.Result
}

func TestQualityGate_AllChecksPass(t *testing.T) {
	s := newTestStore(t)
	seedOutlets(t, s, domain.Outlet{ID: 1, Name: "Alpha", Latitude: ptr(52.5), Longitude: ptr(13.4)})
	seedReadings(t, s, cleanReading(1, 0), cleanReading(1, 1), cleanReading(1, 2))

	gate := NewQualityGate(s, discardLogger())
	err := gate.Run(context.Background(), 0, 3)
	require.NoError(t, err)
}

func TestQualityGate_RowCountMismatchFailsFirst(t *testing.T) {
	s := newTestStore(t)
	seedOutlets(t, s, domain.Outlet{ID: 1, Name: "Alpha", Latitude: ptr(52.5), Longitude: ptr(13.4)})
	// Two rows persisted, five claimed fetched. One row is also out of range,
	// but the gate must report the row count failure before reaching ranges.
	bad := cleanReading(1, 1)
	bad.Temperature = ptr(999)
	seedReadings(t, s, cleanReading(1, 0), bad)

	gate := NewQualityGate(s, discardLogger())
	res := requireCheckError(t, gate.Run(context.Background(), 0, 5))

	assert.Equal(t, CheckRowCount, res.Name)
	assert.Equal(t, int64(3), res.ViolatingCount)
	assert.Equal(t, "fetched 5 records but 2 were persisted; lost 3 records", res.Reason)
}

func TestQualityGate_RowCountUsesBaselineUnderAppend(t *testing.T) {
	s := newTestStore(t)
	seedOutlets(t, s, domain.Outlet{ID: 1, Name: "Alpha", Latitude: ptr(52.5), Longitude: ptr(13.4)})
	// Ten rows predate this run; this run persisted two and fetched two.
	for h := 0; h < 10; h++ {
		seedReadings(t, s, cleanReading(1, h))
	}
	seedReadings(t, s, cleanReading(1, 10), cleanReading(1, 11))

	gate := NewQualityGate(s, discardLogger())
	res, err := gate.RowCountIntegrity(context.Background(), 10, 2)
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestQualityGate_NullCriticalColumnFails(t *testing.T) {
	s := newTestStore(t)
	seedOutlets(t, s, domain.Outlet{ID: 1, Name: "Alpha", Latitude: ptr(52.5), Longitude: ptr(13.4)})
	noTemp := cleanReading(1, 1)
	noTemp.Temperature = nil
	alsoNoTemp := cleanReading(1, 2)
	alsoNoTemp.Temperature = nil
	seedReadings(t, s, cleanReading(1, 0), noTemp, alsoNoTemp)

	gate := NewQualityGate(s, discardLogger())
	res := requireCheckError(t, gate.Run(context.Background(), 0, 3))

	assert.Equal(t, CheckNulls, res.Name)
	assert.Equal(t, int64(2), res.ViolatingCount)
	assert.Equal(t, "found 2 records with NULL temperature_2m", res.Reason)
}

func TestQualityGate_NullOptionalColumnPasses(t *testing.T) {
	s := newTestStore(t)
	seedOutlets(t, s, domain.Outlet{ID: 1, Name: "Alpha", Latitude: ptr(52.5), Longitude: ptr(13.4)})
	gappy := cleanReading(1, 0)
	gappy.RelativeHumidity = nil
	gappy.WindSpeed = nil
	seedReadings(t, s, gappy)

	gate := NewQualityGate(s, discardLogger())
	err := gate.Run(context.Background(), 0, 1)
	require.NoError(t, err)
}

func TestQualityGate_RangeViolationCountsExactRows(t *testing.T) {
	s := newTestStore(t)
	seedOutlets(t, s, domain.Outlet{ID: 1, Name: "Alpha", Latitude: ptr(52.5), Longitude: ptr(13.4)})

	hotRow := cleanReading(1, 1)
	hotRow.Temperature = ptr(999)
	wetRow := cleanReading(1, 2)
	wetRow.RelativeHumidity = ptr(130)
	// One row violating two ranges still counts once in the total.
	doubleRow := cleanReading(1, 3)
	doubleRow.Temperature = ptr(-80)
	doubleRow.WindSpeed = ptr(450)
	seedReadings(t, s, cleanReading(1, 0), hotRow, wetRow, doubleRow)

	gate := NewQualityGate(s, discardLogger())
	res := requireCheckError(t, gate.Run(context.Background(), 0, 4))

	assert.Equal(t, CheckRanges, res.Name)
	assert.Equal(t, int64(3), res.ViolatingCount)
	assert.Equal(t, "found 3 records outside realistic ranges (temperature: 2, humidity: 1, wind: 1)", res.Reason)
}

func TestQualityGate_BoundaryValuesAreInRange(t *testing.T) {
	s := newTestStore(t)
	seedOutlets(t, s, domain.Outlet{ID: 1, Name: "Alpha", Latitude: ptr(52.5), Longitude: ptr(13.4)})

	cold := cleanReading(1, 0)
	cold.Temperature = ptr(-50)
	hot := cleanReading(1, 1)
	hot.Temperature = ptr(50)
	hot.RelativeHumidity = ptr(100)
	hot.WindSpeed = ptr(200)
	still := cleanReading(1, 2)
	still.RelativeHumidity = ptr(0)
	still.WindSpeed = ptr(0)
	seedReadings(t, s, cold, hot, still)

	gate := NewQualityGate(s, discardLogger())
	res, err := gate.RangeValidation(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Passed)
}

func TestQualityGate_OrphanReadingFailsReferentialIntegrity(t *testing.T) {
	s := newTestStore(t)
	seedOutlets(t, s, domain.Outlet{ID: 1, Name: "Alpha", Latitude: ptr(52.5), Longitude: ptr(13.4)})
	seedReadings(t, s, cleanReading(1, 0), cleanReading(99, 1), cleanReading(99, 2))

	gate := NewQualityGate(s, discardLogger())
	res := requireCheckError(t, gate.Run(context.Background(), 0, 3))

	assert.Equal(t, CheckReferential, res.Name)
	assert.Equal(t, int64(2), res.ViolatingCount)
	assert.Equal(t, "found 2 weather records referencing non-existent outlet ids", res.Reason)
}

func TestQualityGate_EmptyTableWithZeroFetchedPasses(t *testing.T) {
	s := newTestStore(t)

	gate := NewQualityGate(s, discardLogger())
	err := gate.Run(context.Background(), 0, 0)
	require.NoError(t, err)
}
