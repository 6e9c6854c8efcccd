// Package database owns the SQLite file that keeps IronPin state across
// restarts: pin configurations, user variables and the last known module
// table.
//
// Open returns a *DB with the connection pinned to a single writer, WAL
// mode and a busy timeout from config.yaml, and the file chmodded to
// 0600. Migrate applies the embedded schema migrations (registered by
// the migrations package) in version order, one transaction per step,
// tracked in the schema_migrations table.
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
