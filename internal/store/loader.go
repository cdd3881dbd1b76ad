package store

import (
	"context"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"github.com/couchcryptid/outlet-weather-etl/internal/domain"
)

// WriteMode selects the loader's write strategy. It is always supplied by
// the caller, never inferred from table state: inferring "first run" from
// table existence is a latent race when two runs overlap.
type WriteMode int

const (
	// Append adds this run's rows to whatever is already persisted.
	Append WriteMode = iota
	// Initialize deletes all existing rows before inserting. Readers may
	// observe an empty table between the delete and the first chunk; the
	// external scheduler guarantees no reader runs mid-load.
	Initialize
)

// String returns the mode name used in logs and config.
func (m WriteMode) String() string {
	if m == Initialize {
		return "initialize"
	}
	return "append"
}

// ParseWriteMode converts the config value to a WriteMode.
func ParseWriteMode(s string) (WriteMode, error) {
	switch s {
	case "initialize":
		return Initialize, nil
	case "append":
		return Append, nil
	default:
		return Append, fmt.Errorf("unknown write mode %q", s)
	}
}

// LoadStats reports what the loader actually committed, as opposed to what
// it was handed. Committed is the load-bearing number: the quality gate
// checks it against the fetched row count downstream.
type LoadStats struct {
	Committed int64
	Chunks    int
}

// Loader persists fetched readings into the weather table in chunks. Each
// chunk is one multi-row INSERT, atomic on its own; a chunk failure stops
// the load and the stats report only the rows committed before it.
type Loader struct {
	db        *gorm.DB
	chunkSize int
	logger    *slog.Logger
}

// NewLoader creates a bulk loader writing chunkSize rows per insert.
func NewLoader(s *Store, chunkSize int, logger *slog.Logger) *Loader {
	return &Loader{db: s.DB, chunkSize: chunkSize, logger: logger}
}

// Load writes the readings using the given mode and returns exactly how many
// rows were committed. A partial failure returns both the stats so far and
// the error; it never claims success for rows that did not land.
func (l *Loader) Load(ctx context.Context, readings []domain.Reading, mode WriteMode) (LoadStats, error) {
	db := l.db.WithContext(ctx)

	if mode == Initialize {
		if err := db.Exec("DELETE FROM weather").Error; err != nil {
			return LoadStats{}, fmt.Errorf("initialize weather table: %w", err)
		}
		l.logger.Info("existing weather rows deleted")
	}

	var stats LoadStats
	for start := 0; start < len(readings); start += l.chunkSize {
		end := start + l.chunkSize
		if end > len(readings) {
			end = len(readings)
		}
		chunk := readings[start:end]

		if err := db.Create(&chunk).Error; err != nil {
			return stats, fmt.Errorf("insert chunk %d (%d rows, %d committed so far): %w",
				stats.Chunks+1, len(chunk), stats.Committed, err)
		}
		stats.Committed += int64(len(chunk))
		stats.Chunks++
	}

	l.logger.Info("bulk load complete",
		"mode", mode.String(),
		"rows_committed", stats.Committed,
		"chunks", stats.Chunks,
	)
	return stats, nil
}
