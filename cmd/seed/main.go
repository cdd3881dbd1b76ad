// Command seed loads the upstream CSV extracts into the relational store and
// creates the schema. It is the "upstream load" the ingestion core treats as
// an external collaborator: outlets, transactional orders, and listing
// snapshots all enter the database here.
//
// Usage:
//
//	go run ./cmd/seed \
//	  -outlets data/outlets.csv \
//	  -orders data/orders.csv \
//	  -snapshots data/listing_snapshots.csv
//
// Expected headers:
//
//	outlets.csv:           id,name,latitude,longitude   (empty coordinate → NULL)
//	orders.csv:            id,listing_id,order_date     (ISO date)
//	listing_snapshots.csv: listing_id,snapshot_date,order_count
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/couchcryptid/outlet-weather-etl/internal/config"
	"github.com/couchcryptid/outlet-weather-etl/internal/domain"
	"github.com/couchcryptid/outlet-weather-etl/internal/observability"
	"github.com/couchcryptid/outlet-weather-etl/internal/store"
)

const insertBatchSize = 500

func main() {
	if err := run(); err != nil {
		slog.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	outletsPath := flag.String("outlets", "", "path to outlets CSV")
	ordersPath := flag.String("orders", "", "path to orders CSV")
	snapshotsPath := flag.String("snapshots", "", "path to listing snapshots CSV")
	flag.Parse()

	if *outletsPath == "" && *ordersPath == "" && *snapshotsPath == "" {
		flag.Usage()
		return fmt.Errorf("nothing to load: pass at least one of -outlets, -orders, -snapshots")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := observability.NewLogger(cfg)

	st, err := store.Open(cfg.DatabaseDriver, cfg.DatabaseDSN, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		return err
	}

	if *outletsPath != "" {
		n, err := loadOutlets(st, *outletsPath)
		if err != nil {
			return fmt.Errorf("load outlets: %w", err)
		}
		logger.Info("outlets loaded", "rows", n)
	}
	if *ordersPath != "" {
		n, err := loadOrders(st, *ordersPath)
		if err != nil {
			return fmt.Errorf("load orders: %w", err)
		}
		logger.Info("orders loaded", "rows", n)
	}
	if *snapshotsPath != "" {
		n, err := loadSnapshots(st, *snapshotsPath)
		if err != nil {
			return fmt.Errorf("load snapshots: %w", err)
		}
		logger.Info("listing snapshots loaded", "rows", n)
	}
	return nil
}

func loadOutlets(st *store.Store, path string) (int, error) {
	rows, err := readCSV(path, []string{"id", "name", "latitude", "longitude"})
	if err != nil {
		return 0, err
	}

	outlets := make([]domain.Outlet, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("row %d: bad id %q", i+2, row[0])
		}
		lat, err := parseNullableFloat(row[2])
		if err != nil {
			return 0, fmt.Errorf("row %d: bad latitude %q", i+2, row[2])
		}
		lon, err := parseNullableFloat(row[3])
		if err != nil {
			return 0, fmt.Errorf("row %d: bad longitude %q", i+2, row[3])
		}
		outlets = append(outlets, domain.Outlet{ID: id, Name: row[1], Latitude: lat, Longitude: lon})
	}

	if err := st.DB.CreateInBatches(&outlets, insertBatchSize).Error; err != nil {
		return 0, err
	}
	return len(outlets), nil
}

func loadOrders(st *store.Store, path string) (int, error) {
	rows, err := readCSV(path, []string{"id", "listing_id", "order_date"})
	if err != nil {
		return 0, err
	}

	orders := make([]domain.Order, 0, len(rows))
	for i, row := range rows {
		id, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("row %d: bad id %q", i+2, row[0])
		}
		listingID, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("row %d: bad listing_id %q", i+2, row[1])
		}
		date, err := time.ParseInLocation(time.DateOnly, row[2], time.UTC)
		if err != nil {
			return 0, fmt.Errorf("row %d: bad order_date %q", i+2, row[2])
		}
		orders = append(orders, domain.Order{ID: id, ListingID: listingID, OrderDate: date})
	}

	if err := st.DB.CreateInBatches(&orders, insertBatchSize).Error; err != nil {
		return 0, err
	}
	return len(orders), nil
}

func loadSnapshots(st *store.Store, path string) (int, error) {
	rows, err := readCSV(path, []string{"listing_id", "snapshot_date", "order_count"})
	if err != nil {
		return 0, err
	}

	snapshots := make([]domain.ListingSnapshot, 0, len(rows))
	for i, row := range rows {
		listingID, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("row %d: bad listing_id %q", i+2, row[0])
		}
		date, err := time.ParseInLocation(time.DateOnly, row[1], time.UTC)
		if err != nil {
			return 0, fmt.Errorf("row %d: bad snapshot_date %q", i+2, row[1])
		}
		count, err := strconv.ParseInt(row[2], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("row %d: bad order_count %q", i+2, row[2])
		}
		snapshots = append(snapshots, domain.ListingSnapshot{ListingID: listingID, SnapshotDate: date, OrderCount: count})
	}

	if err := st.DB.CreateInBatches(&snapshots, insertBatchSize).Error; err != nil {
		return 0, err
	}
	return len(snapshots), nil
}

// readCSV loads a CSV file and verifies its header, returning the data rows.
func readCSV(path string, header []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	all, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("empty file %s", path)
	}

	got := all[0]
	if len(got) != len(header) {
		return nil, fmt.Errorf("expected header %v, got %v", header, got)
	}
	for i := range header {
		if got[i] != header[i] {
			return nil, fmt.Errorf("expected header %v, got %v", header, got)
		}
	}
	return all[1:], nil
}

func parseNullableFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
