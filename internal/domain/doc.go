// Package domain models outlet weather ingestion and order reconciliation.
//
// # Data Sources
//
// Hourly weather series come from the Open-Meteo historical archive API
// (https://open-meteo.com/en/docs/historical-weather-api). One request per
// outlet covers the configured closed date range and returns parallel arrays:
// one timestamp array plus one array per requested variable. Timestamps are
// ISO local-format strings ("2006-01-02T15:04") requested with timezone=UTC,
// so they are parsed as naive UTC instants. Values pass through unchanged:
// temperature in °C, relative humidity in %, wind speed in km/h.
//
// Order counts come from two independent sources:
//
//   - Transactional: COUNT of individual order rows per (date, listing).
//     Authoritative.
//   - Snapshot: a separately pre-aggregated count per (date, listing).
//     Known to be defective — values may be negative (floored to zero at
//     read time) or missing entirely for a pair.
//
// # Reconciliation
//
// For every (date, listing) pair present in either source the classifier
// assigns exactly one quality flag, first matching rule wins:
//
//	snapshot missing            → snapshot_missing
//	|transactional-snapshot| >5 → large_discrepancy
//	difference in [1,5]         → minor_discrepancy
//	otherwise                   → match
//
// The signed diff is always transactional − snapshot (− 0 when missing);
// positive means the transactional source recorded more orders.
// Classification is a pure function: identical inputs produce byte-identical
// output, ordered by date then listing id.
package domain
