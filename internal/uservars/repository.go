package uservars

import (
	"context"
	"database/sql"
	"fmt"
)

// Variable kinds in the user_vars table.
const (
	kindBool = "bool"
	kindInt  = "int"
)

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed variable repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SaveBool upserts a boolean variable.
func (r *SQLiteRepository) SaveBool(ctx context.Context, index int, value bool) error {
	v := 0
	if value {
		v = 1
	}
	return r.save(ctx, kindBool, index, v)
}

// SaveInt upserts an integer variable.
func (r *SQLiteRepository) SaveInt(ctx context.Context, index, value int) error {
	return r.save(ctx, kindInt, index, value)
}

func (r *SQLiteRepository) save(ctx context.Context, kind string, index, value int) error {
	query := `
		INSERT INTO user_vars (kind, idx, value)
		VALUES (?, ?, ?)
		ON CONFLICT(kind, idx) DO UPDATE SET value = excluded.value`
	if _, err := r.db.ExecContext(ctx, query, kind, index, value); err != nil {
		return fmt.Errorf("saving %s variable %d: %w", kind, index, err)
	}
	return nil
}

// LoadAll retrieves every persisted variable.
func (r *SQLiteRepository) LoadAll(ctx context.Context) (map[int]bool, map[int]int, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT kind, idx, value FROM user_vars")
	if err != nil {
		return nil, nil, fmt.Errorf("querying user variables: %w", err)
	}
	defer rows.Close()

	bools := make(map[int]bool)
	ints := make(map[int]int)
	for rows.Next() {
		var kind string
		var index, value int
		if err := rows.Scan(&kind, &index, &value); err != nil {
			return nil, nil, fmt.Errorf("scanning user variable: %w", err)
		}
		switch kind {
		case kindBool:
			bools[index] = value != 0
		case kindInt:
			ints[index] = value
		}
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating user variables: %w", err)
	}
	return bools, ints, nil
}
