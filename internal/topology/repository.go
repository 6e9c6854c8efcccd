package topology

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/orehall/ironpin-core/internal/vpin"
)

// SQLiteModuleRepository persists the discovered module table so health
// reporting can flag modules that disappeared across a restart.
type SQLiteModuleRepository struct {
	db *sql.DB
}

// NewSQLiteModuleRepository creates a new SQLite-backed module repository.
func NewSQLiteModuleRepository(db *sql.DB) *SQLiteModuleRepository {
	return &SQLiteModuleRepository{db: db}
}

// SaveTable replaces the persisted snapshot with the given table.
func (r *SQLiteModuleRepository) SaveTable(ctx context.Context, records []ModuleRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning module snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM module_records"); err != nil {
		return fmt.Errorf("clearing module snapshot: %w", err)
	}

	query := `
		INSERT INTO module_records (type, idx, channels, detected_at, last_seen)
		VALUES (?, ?, ?, ?, ?)`
	for _, rec := range records {
		_, err := tx.ExecContext(ctx, query,
			int(rec.Type),
			rec.Index,
			rec.Channels,
			rec.DetectedAt.UTC().Format(time.RFC3339),
			rec.LastSeen.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("inserting module record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing module snapshot: %w", err)
	}
	return nil
}

// LoadTable retrieves the persisted module snapshot.
func (r *SQLiteModuleRepository) LoadTable(ctx context.Context) ([]ModuleRecord, error) {
	query := `
		SELECT type, idx, channels, detected_at, last_seen
		FROM module_records
		ORDER BY type, idx`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying module records: %w", err)
	}
	defer rows.Close()

	var records []ModuleRecord
	for rows.Next() {
		var rec ModuleRecord
		var typ int
		var detectedAt, lastSeen string
		if err := rows.Scan(&typ, &rec.Index, &rec.Channels, &detectedAt, &lastSeen); err != nil {
			return nil, fmt.Errorf("scanning module record: %w", err)
		}
		rec.Type = vpin.ModuleType(typ)
		if rec.DetectedAt, err = time.Parse(time.RFC3339, detectedAt); err != nil {
			return nil, fmt.Errorf("parsing detected_at: %w", err)
		}
		if rec.LastSeen, err = time.Parse(time.RFC3339, lastSeen); err != nil {
			return nil, fmt.Errorf("parsing last_seen: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating module records: %w", err)
	}
	return records, nil
}
