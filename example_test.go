package migratekit_test

import (
	"context"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/acronis/go-appkit/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/acronis/go-migratekit"
	"github.com/acronis/go-migratekit/migration"

	// Import the `sqlite` package for registering the error classifiers for SQLite
	// (duplicate-key detection is what makes the migration lock work).
	_ "github.com/acronis/go-migratekit/sqlite"
)

func Example() {
	// Configure the database using the migratekit.Config struct.
	// In this example, we're using SQLite. Adjust Dialect and config fields for your target DB.
	cfg := &migratekit.Config{
		Dialect:      migratekit.DialectSQLite,
		SQLite:       migratekit.SQLiteConfig{Path: ":memory:"},
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	// Open the database connection.
	// The 2nd parameter is a boolean that indicates whether to ping the database.
	db, err := migratekit.Open(cfg, true)
	if err != nil {
		stdlog.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	// Prepare a directory with migration files. Normally it ships with the service.
	migrationsDir, err := os.MkdirTemp("", "migrations")
	if err != nil {
		stdlog.Fatal(err)
	}
	defer os.RemoveAll(migrationsDir)
	migrationSQL := "-- +up\nCREATE TABLE users (id INTEGER PRIMARY KEY);\n-- +down\nDROP TABLE users;\n"
	if err = os.WriteFile(
		filepath.Join(migrationsDir, "m20240301000001_create_users.sql"), []byte(migrationSQL), 0o600); err != nil {
		stdlog.Fatal(err)
	}

	logger, loggerClose := log.NewLogger(&log.Config{Output: log.OutputStderr, Level: log.LevelInfo})
	defer loggerClose()

	// Register the migrations and apply everything pending on startup.
	registry := migration.NewRegistry()
	if err = migration.RegisterSQLMigrations(registry, migrationsDir); err != nil {
		stdlog.Fatal(err)
	}
	if _, err = migration.RunStartupMigrations(
		context.Background(), db, cfg.Dialect, migrationsDir, registry, logger); err != nil {
		stdlog.Fatal(err)
	}

	// Output:
}
