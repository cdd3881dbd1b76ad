// Package store is the relational layer: connection management, schema
// migration, the chunked bulk loader, the quality gate queries, and the
// reconciliation fact writer. Postgres backs production; the sqlite driver
// backs tests and local runs.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/couchcryptid/outlet-weather-etl/internal/domain"
)

// Store wraps the shared database handle.
type Store struct {
	DB     *gorm.DB
	logger *slog.Logger
}

// Open connects to the database and verifies connectivity. driver is
// "postgres" or "sqlite".
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}

	return &Store{DB: db, logger: logger}, nil
}

// Migrate creates or updates the schema for all tables this core touches.
func (s *Store) Migrate() error {
	return s.DB.AutoMigrate(
		&domain.Outlet{},
		&domain.Reading{},
		&domain.Order{},
		&domain.ListingSnapshot{},
		&domain.ReconciledRecord{},
	)
}

// Outlets returns the full outlet set, ordered by id. Filtering to valid
// coordinates is the caller's responsibility.
func (s *Store) Outlets(ctx context.Context) ([]domain.Outlet, error) {
	var outlets []domain.Outlet
	if err := s.DB.WithContext(ctx).Order("id").Find(&outlets).Error; err != nil {
		return nil, fmt.Errorf("load outlets: %w", err)
	}
	return outlets, nil
}

// CountReadings returns the current row count of the weather table. The
// ingest driver records it before loading so the quality gate can compare
// this run's persisted delta against the fetched count.
func (s *Store) CountReadings(ctx context.Context) (int64, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&domain.Reading{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return count, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
