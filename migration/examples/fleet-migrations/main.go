/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	stdlog "log"
	"os"

	"github.com/acronis/go-appkit/log"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/acronis/go-migratekit"
	"github.com/acronis/go-migratekit/migration"
	_ "github.com/acronis/go-migratekit/mysql"
	_ "github.com/acronis/go-migratekit/pgx"
	_ "github.com/acronis/go-migratekit/postgres"
	_ "github.com/acronis/go-migratekit/sqlite"
)

func main() {
	if err := run(); err != nil {
		stdlog.Fatal(err)
	}
}

func run() error {
	var migrateDown bool
	flag.BoolVar(&migrateDown, "down", false, "revert migrations instead of applying them")
	var steps int
	flag.IntVar(&steps, "steps", 0, "limit the number of migrations to run (down defaults to 1)")
	var showStatus bool
	flag.BoolVar(&showStatus, "status", false, "print migration status and exit")
	var dryRun bool
	flag.BoolVar(&dryRun, "dry-run", false, "print what would run without executing")
	var driverName string
	flag.StringVar(&driverName, "driver", "sqlite3", "driver name, supported values: mysql, postgres, pgx, sqlite3")
	var migrationsDir string
	flag.StringVar(&migrationsDir, "dir", "migrations", "directory with migration files")
	flag.Parse()

	dialect, err := parseDialectFromDriver(driverName)
	if err != nil {
		return err
	}

	dbConn, err := sql.Open(driverName, os.Getenv("DB_DSN"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer dbConn.Close()

	logger, loggerClose := log.NewLogger(&log.Config{Output: log.OutputStderr, Level: log.LevelInfo})
	defer loggerClose()

	registry := migration.NewRegistry()
	if err = migration.RegisterSQLMigrations(registry, migrationsDir); err != nil {
		return fmt.Errorf("register migrations: %w", err)
	}
	migrator, err := migration.NewMigrator(dbConn, dialect, migrationsDir, registry, logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	switch {
	case showStatus:
		return printStatus(ctx, migrator)
	case dryRun:
		return printPlan(ctx, migrator, migrateDown, steps)
	case migrateDown:
		count, err := migrator.Down(ctx, steps)
		if err != nil {
			return err
		}
		fmt.Printf("reverted %d migration(s)\n", count)
		return nil
	default:
		count, err := migrator.Up(ctx, steps)
		if err != nil {
			return err
		}
		fmt.Printf("applied %d migration(s)\n", count)
		return nil
	}
}

func printStatus(ctx context.Context, migrator *migration.Migrator) error {
	status, err := migrator.Status(ctx)
	if err != nil {
		return err
	}
	for _, rec := range status.Applied {
		fmt.Printf("applied  m%d_%s at %s\n", rec.Version, rec.Name, rec.AppliedAt.Format("2006-01-02 15:04:05"))
	}
	for _, p := range status.Pending {
		fmt.Printf("pending  m%d_%s\n", p.Version, p.Name)
	}
	if status.IsUpToDate() {
		fmt.Println("database is up to date")
	}
	return nil
}

func printPlan(ctx context.Context, migrator *migration.Migrator, down bool, steps int) error {
	if down {
		plan, err := migrator.PlanDown(ctx, steps)
		if err != nil {
			return err
		}
		for _, rec := range plan {
			fmt.Printf("would revert m%d_%s\n", rec.Version, rec.Name)
		}
		return nil
	}
	plan, err := migrator.PlanUp(ctx, steps)
	if err != nil {
		return err
	}
	for _, p := range plan {
		fmt.Printf("would apply m%d_%s\n", p.Version, p.Name)
	}
	return nil
}

func parseDialectFromDriver(driverName string) (migratekit.Dialect, error) {
	switch driverName {
	case "mysql":
		return migratekit.DialectMySQL, nil
	case "postgres":
		return migratekit.DialectPostgres, nil
	case "pgx":
		return migratekit.DialectPgx, nil
	case "sqlite3":
		return migratekit.DialectSQLite, nil
	default:
		return "", fmt.Errorf("unknown driver name: %s", driverName)
	}
}
