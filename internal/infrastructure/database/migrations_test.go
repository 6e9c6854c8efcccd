package database

import (
	"context"
	"embed"
	"testing"
)

//go:embed testdata/*.sql
var testMigrations embed.FS

// useTestMigrations points the package at the testdata migration set
// for the duration of one test.
func useTestMigrations(t *testing.T) {
	t.Helper()
	prevFS, prevDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = testMigrations, "testdata"
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = prevFS, prevDir
	})
}

func appliedCount(t *testing.T, db *DB) int {
	t.Helper()
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n); err != nil {
		t.Fatalf("counting applied migrations: %v", err)
	}
	return n
}

func TestMigrate_AppliesAllPending(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if got := appliedCount(t, db); got != 2 {
		t.Errorf("applied migrations = %d, want 2", got)
	}

	// The migrated schema must be usable.
	_, err := db.Exec(
		"INSERT INTO pin_events (pin, value, recorded_at) VALUES (?, ?, ?)",
		"u0/adio/p3", 1, "2026-01-05T10:00:00Z",
	)
	if err != nil {
		t.Errorf("insert into migrated table: %v", err)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("first Migrate: %v", err)
	}
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	if got := appliedCount(t, db); got != 2 {
		t.Errorf("applied migrations after rerun = %d, want 2", got)
	}
}

func TestMigrateDown_RollsBackLatest(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}

	if got := appliedCount(t, db); got != 1 {
		t.Errorf("applied migrations after rollback = %d, want 1", got)
	}

	var latest string
	if err := db.QueryRow("SELECT version FROM schema_migrations").Scan(&latest); err != nil {
		t.Fatalf("reading remaining version: %v", err)
	}
	if latest != "20260105_100000" {
		t.Errorf("remaining version = %s, want 20260105_100000", latest)
	}
}

func TestMigrateDown_EmptyLedger(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)

	// Nothing applied, not even the ledger table. A clean no-op.
	if err := db.MigrateDown(context.Background()); err != nil {
		t.Errorf("MigrateDown on fresh database: %v", err)
	}
}

func TestLoadMigrations_PairsAndSorts(t *testing.T) {
	useTestMigrations(t)

	migrations, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations: %v", err)
	}
	if len(migrations) != 2 {
		t.Fatalf("len = %d, want 2", len(migrations))
	}
	if migrations[0].Version != "20260105_100000" || migrations[1].Version != "20260106_143000" {
		t.Errorf("versions out of order: %s, %s", migrations[0].Version, migrations[1].Version)
	}
	for _, m := range migrations {
		if m.UpSQL == "" {
			t.Errorf("migration %s missing up script", m.Version)
		}
		if m.DownSQL == "" {
			t.Errorf("migration %s missing down script", m.Version)
		}
	}
	if migrations[0].Name != "pin_events" {
		t.Errorf("name = %s, want pin_events", migrations[0].Name)
	}
}

func TestSplitMigrationFile(t *testing.T) {
	tests := []struct {
		filename string
		version  string
		name     string
		up       bool
		ok       bool
	}{
		{"20260301_120000_initial_schema.up.sql", "20260301_120000", "initial_schema", true, true},
		{"20260301_120000_initial_schema.down.sql", "20260301_120000", "initial_schema", false, true},
		{"20260105_100000_pin_events.up.sql", "20260105_100000", "pin_events", true, true},
		{"README.md", "", "", false, false},
		{"20260301_120000_missing_direction.sql", "", "", false, false},
		{"noversion.up.sql", "", "", false, false},
	}
	for _, tt := range tests {
		version, name, up, ok := splitMigrationFile(tt.filename)
		if version != tt.version || name != tt.name || up != tt.up || ok != tt.ok {
			t.Errorf("splitMigrationFile(%q) = (%q, %q, %v, %v), want (%q, %q, %v, %v)",
				tt.filename, version, name, up, ok, tt.version, tt.name, tt.up, tt.ok)
		}
	}
}
