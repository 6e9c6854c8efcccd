package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/orehall/ironpin-core/internal/vpin"
)

// SQLiteConfigRepository implements ConfigRepository using SQLite.
//
// One row per configured pin, keyed by the packed handle. Upserts keep
// Save idempotent so the supervisor's background flush can retry freely.
type SQLiteConfigRepository struct {
	db *sql.DB
}

// NewSQLiteConfigRepository creates a new SQLite-backed config repository.
// The db parameter should be an open SQLite connection with migrations
// applied.
func NewSQLiteConfigRepository(db *sql.DB) *SQLiteConfigRepository {
	return &SQLiteConfigRepository{db: db}
}

// Save inserts or replaces a pin's configuration.
func (r *SQLiteConfigRepository) Save(ctx context.Context, id vpin.PinID, cfg PinConfig) error {
	query := `
		INSERT INTO pin_configs (
			pin_id, mode, pwm_freq, debounce_ms, beta, ref_ohms,
			hold_value, derate_ms, both_edges, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pin_id) DO UPDATE SET
			mode = excluded.mode,
			pwm_freq = excluded.pwm_freq,
			debounce_ms = excluded.debounce_ms,
			beta = excluded.beta,
			ref_ohms = excluded.ref_ohms,
			hold_value = excluded.hold_value,
			derate_ms = excluded.derate_ms,
			both_edges = excluded.both_edges,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		int64(id),
		int(cfg.Mode),
		cfg.PWMFreq,
		cfg.DebounceMs,
		cfg.Beta,
		cfg.RefOhms,
		cfg.HoldValue,
		cfg.DerateMs,
		boolToInt(cfg.BothEdges),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving pin config: %w", err)
	}
	return nil
}

// Delete removes a pin's persisted configuration. Deleting a pin that
// was never persisted is not an error.
func (r *SQLiteConfigRepository) Delete(ctx context.Context, id vpin.PinID) error {
	_, err := r.db.ExecContext(ctx, "DELETE FROM pin_configs WHERE pin_id = ?", int64(id))
	if err != nil {
		return fmt.Errorf("deleting pin config: %w", err)
	}
	return nil
}

// LoadAll retrieves every persisted pin configuration.
func (r *SQLiteConfigRepository) LoadAll(ctx context.Context) (map[vpin.PinID]PinConfig, error) {
	query := `
		SELECT pin_id, mode, pwm_freq, debounce_ms, beta, ref_ohms,
			hold_value, derate_ms, both_edges
		FROM pin_configs`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying pin configs: %w", err)
	}
	defer rows.Close()

	configs := make(map[vpin.PinID]PinConfig)
	for rows.Next() {
		var pinID int64
		var mode, bothEdges int
		var cfg PinConfig
		if err := rows.Scan(
			&pinID,
			&mode,
			&cfg.PWMFreq,
			&cfg.DebounceMs,
			&cfg.Beta,
			&cfg.RefOhms,
			&cfg.HoldValue,
			&cfg.DerateMs,
			&bothEdges,
		); err != nil {
			return nil, fmt.Errorf("scanning pin config: %w", err)
		}
		cfg.Mode = vpin.PinMode(mode)
		cfg.BothEdges = bothEdges != 0
		configs[vpin.PinID(pinID)] = cfg
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pin configs: %w", err)
	}
	return configs, nil
}

// boolToInt converts a boolean to 0/1 for SQLite storage.
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
