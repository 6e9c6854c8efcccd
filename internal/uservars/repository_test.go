package uservars

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the user_vars table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	schema := `
		CREATE TABLE user_vars (
			kind TEXT NOT NULL,
			idx INTEGER NOT NULL,
			value INTEGER NOT NULL,
			PRIMARY KEY (kind, idx)
		) STRICT;
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func TestSQLiteRepository_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	if err := repo.SaveBool(ctx, 3, true); err != nil {
		t.Fatalf("SaveBool error: %v", err)
	}
	if err := repo.SaveInt(ctx, 3, -17); err != nil {
		t.Fatalf("SaveInt error: %v", err)
	}
	// Same index, different kinds: the two must not collide.
	bools, ints, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if !bools[3] {
		t.Error("bool 3 = false, want true")
	}
	if ints[3] != -17 {
		t.Errorf("int 3 = %d, want -17", ints[3])
	}
}

func TestSQLiteRepository_SaveIsUpsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	repo.SaveInt(ctx, 0, 1)
	repo.SaveInt(ctx, 0, 2)

	_, ints, err := repo.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll error: %v", err)
	}
	if len(ints) != 1 || ints[0] != 2 {
		t.Errorf("ints = %v, want single value 2", ints)
	}
}
