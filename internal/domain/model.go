package domain

import "time"

// Outlet is a physical site with geographic coordinates, the unit of weather
// observation. Outlets are written by the upstream seed load and read-only to
// the ingestion core.
type Outlet struct {
	ID        int64    `gorm:"column:id;primaryKey"`
	Name      string   `gorm:"column:name"`
	Latitude  *float64 `gorm:"column:latitude"`
	Longitude *float64 `gorm:"column:longitude"`
}

// TableName maps Outlet to the outlets table.
func (Outlet) TableName() string { return "outlets" }

// HasValidCoordinates reports whether the outlet can be used for a weather
// request: both coordinates present, each within its geographic range, and
// not the (0, 0) placeholder the upstream load uses for unknown locations.
func (o Outlet) HasValidCoordinates() bool {
	if o.Latitude == nil || o.Longitude == nil {
		return false
	}
	lat, lon := *o.Latitude, *o.Longitude
	if lat == 0 && lon == 0 {
		return false
	}
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// ValidOutlets filters the candidate set to outlets with usable coordinates.
func ValidOutlets(outlets []Outlet) []Outlet {
	valid := make([]Outlet, 0, len(outlets))
	for _, o := range outlets {
		if o.HasValidCoordinates() {
			valid = append(valid, o)
		}
	}
	return valid
}

// Reading is one hourly weather sample for one outlet. Rows are immutable
// once written: the store only appends or fully replaces, never updates.
// Measurement columns are nullable because the archive API returns null for
// gaps in its record; the quality gate decides which nulls are fatal.
type Reading struct {
	OutletID         int64     `gorm:"column:outlet_id"`
	Datetime         time.Time `gorm:"column:datetime"`
	Temperature      *float64  `gorm:"column:temperature_2m"`
	RelativeHumidity *float64  `gorm:"column:relative_humidity_2m"`
	WindSpeed        *float64  `gorm:"column:wind_speed_10m"`
}

// TableName maps Reading to the weather table.
func (Reading) TableName() string { return "weather" }

// FetchResult accumulates the readings produced by one fetch invocation
// across all validated outlets. It exists only for the duration of one
// pipeline execution and is the single channel of information passed from
// the fetch stage into the quality gate.
type FetchResult struct {
	Readings []Reading
	RowCount int64

	// FailedOutlets counts outlets skipped after exhausting retries.
	FailedOutlets int
}

// Order is one transactional order record. Orders are seeded upstream;
// the reconciliation stage only counts them.
type Order struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	ListingID int64     `gorm:"column:listing_id"`
	OrderDate time.Time `gorm:"column:order_date"`
}

// TableName maps Order to the orders table.
func (Order) TableName() string { return "orders" }

// ListingSnapshot is one pre-aggregated daily order count from the snapshot
// source. OrderCount may be negative in raw form; the store floors it to
// zero at read time before it reaches the classifier.
type ListingSnapshot struct {
	ListingID    int64     `gorm:"column:listing_id"`
	SnapshotDate time.Time `gorm:"column:snapshot_date"`
	OrderCount   int64     `gorm:"column:order_count"`
}

// TableName maps ListingSnapshot to the listing_snapshots table.
func (ListingSnapshot) TableName() string { return "listing_snapshots" }

// ReconciledRecord is one row of the reconciliation fact: a (date, listing)
// pair with both source counts, the signed difference, and the quality flag.
// Records are created fresh on every reconciliation run and never mutated.
type ReconciledRecord struct {
	Date                    string      `gorm:"column:date"`
	ListingID               int64       `gorm:"column:listing_id"`
	DailyOrders             int64       `gorm:"column:daily_orders"`
	DailyOrdersFromSnapshot *int64      `gorm:"column:daily_orders_from_snapshot"`
	SnapshotVsActualDiff    int64       `gorm:"column:snapshot_vs_actual_diff"`
	DataQualityFlag         QualityFlag `gorm:"column:data_quality_flag"`
}

// TableName maps ReconciledRecord to the order_reconciliation table.
func (ReconciledRecord) TableName() string { return "order_reconciliation" }
