/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package migration provides a versioned schema migration engine with
// checksum verification and cross-process locking.
//
// Change units are files named m<14-digit-version>_<name>.sql whose SHA-256
// checksums are recorded in a state table when applied. The Migrator
// reconciles the files against the table, applies pending units in ascending
// version order and reverts applied units in strict reverse order, all under
// a lock implemented as a sentinel row in the same table.
//
// Key features:
//   - Checksum verification detects modified or missing migration files
//   - Cross-process lock with bounded wait and guaranteed release
//   - Programmatic Go migrations and plain SQL file migrations
//   - Dry-run planning without taking the lock
//   - Multi-dialect support (MySQL, PostgreSQL, pgx, SQLite, MSSQL)
//
// Basic usage:
//
//	func applyMigrations(ctx context.Context, db *sql.DB, logger log.FieldLogger) error {
//	    registry := migration.NewRegistry()
//	    if err := migration.RegisterSQLMigrations(registry, "migrations"); err != nil {
//	        return err
//	    }
//	    migrator, err := migration.NewMigrator(db, migratekit.DialectPostgres, "migrations", registry, logger)
//	    if err != nil {
//	        return err
//	    }
//	    _, err = migrator.Up(ctx, migration.NoLimit)
//	    return err
//	}
//
// See package-level examples for more advanced usage patterns.
package migration
