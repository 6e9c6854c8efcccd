package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirPermissions  = 0750
	filePermissions = 0600

	// openTimeout bounds the connectivity check inside Open.
	openTimeout = 5 * time.Second
)

// Config is the database section of config.yaml.
type Config struct {
	// Path is the SQLite database file. Its directory is created on
	// first run.
	Path string

	// WALMode enables write-ahead logging so reads proceed during the
	// supervisor's config flushes.
	WALMode bool

	// BusyTimeout is the lock wait in seconds before a query fails
	// with "database is locked".
	BusyTimeout int
}

// dsn renders the go-sqlite3 connection string with the configured
// pragmas baked in.
func (c Config) dsn() string {
	s := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", c.Path, c.BusyTimeout*1000)
	if c.WALMode {
		s += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return s
}

// DB is the shared SQLite handle behind every IronPin repository: pin
// configs, user variables and the module table snapshot. It embeds
// sql.DB, so the standard query API is available directly.
type DB struct {
	*sql.DB
	path string
}

// Open connects to the configured SQLite file, creating the file and
// its directory on first run, and verifies the connection with a ping.
//
// The pool is pinned to a single connection: SQLite allows one writer,
// and the supervisor's flush is the only steady-state writer anyway.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", cfg.dsn())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // best effort on the error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// Controller state is nobody else's business. The chmod is best
	// effort; on first run the file may appear after the first write.
	_ = os.Chmod(cfg.Path, filePermissions)

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck verifies the connection answers a trivial query.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
