/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/mysql"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlserver"

	"github.com/acronis/go-migratekit"
)

// DefaultTableName is the default name of the migration state table.
const DefaultTableName = "lifeguard_migrations"

// SQLExecutor executes SQL statements.
// Implemented by *sql.DB, *sql.Tx and *sql.Conn.
type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

const (
	mysqlCreateStateTableSQLTmpl = `CREATE TABLE IF NOT EXISTS %s (
	version BIGINT NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	checksum CHAR(64) NOT NULL,
	applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	execution_time_ms BIGINT NULL,
	success BOOLEAN NOT NULL,
	KEY idx_%s_applied_at (applied_at)
)`

	postgresCreateStateTableSQLTmpl = `CREATE TABLE IF NOT EXISTS %s (
	version BIGINT NOT NULL PRIMARY KEY,
	name TEXT NOT NULL,
	checksum CHAR(64) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	execution_time_ms BIGINT NULL,
	success BOOLEAN NOT NULL
)`
	postgresCreateAppliedAtIndexSQLTmpl = `CREATE INDEX IF NOT EXISTS idx_%s_applied_at ON %s (applied_at)`

	sqliteCreateStateTableSQLTmpl = `CREATE TABLE IF NOT EXISTS %s (
	version INTEGER NOT NULL PRIMARY KEY,
	name TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMP NOT NULL,
	execution_time_ms INTEGER NULL,
	success BOOLEAN NOT NULL
)`
	sqliteCreateAppliedAtIndexSQLTmpl = `CREATE INDEX IF NOT EXISTS idx_%s_applied_at ON %s (applied_at)`

	mssqlCreateStateTableSQLTmpl = `IF NOT EXISTS (SELECT * FROM sysobjects WHERE name='%s' AND xtype='U')
CREATE TABLE %s (
	version BIGINT NOT NULL PRIMARY KEY,
	name NVARCHAR(255) NOT NULL,
	checksum CHAR(64) NOT NULL,
	applied_at DATETIME2 NOT NULL DEFAULT SYSUTCDATETIME(),
	execution_time_ms BIGINT NULL,
	success BIT NOT NULL
)`
	mssqlCreateAppliedAtIndexSQLTmpl = `IF NOT EXISTS (SELECT * FROM sys.indexes WHERE name = 'idx_%s_applied_at')
CREATE INDEX idx_%s_applied_at ON %s (applied_at)`
)

// StateStore reads and writes the migration state table.
// It works on any of the supported dialects and builds its DML with goqu.
type StateStore struct {
	db        *sql.DB
	dialect   migratekit.Dialect
	tableName string
	gq        goqu.DialectWrapper
}

// StateStoreOption is an option for the StateStore.
type StateStoreOption func(s *StateStore)

// WithTableName overrides the default name of the migration state table.
func WithTableName(tableName string) StateStoreOption {
	return func(s *StateStore) {
		s.tableName = tableName
	}
}

// NewStateStore creates a new StateStore for the passed database handle and dialect.
func NewStateStore(db *sql.DB, dialect migratekit.Dialect, options ...StateStoreOption) (*StateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	goquDialect, err := goquDialectName(dialect)
	if err != nil {
		return nil, err
	}
	store := &StateStore{db: db, dialect: dialect, tableName: DefaultTableName, gq: goqu.Dialect(goquDialect)}
	for _, opt := range options {
		opt(store)
	}
	return store, nil
}

func goquDialectName(dialect migratekit.Dialect) (string, error) {
	switch dialect {
	case migratekit.DialectMySQL:
		return "mysql", nil
	case migratekit.DialectPostgres, migratekit.DialectPgx:
		return "postgres", nil
	case migratekit.DialectSQLite:
		return "sqlite3", nil
	case migratekit.DialectMSSQL:
		return "sqlserver", nil
	}
	return "", fmt.Errorf("unsupported dialect %q", dialect)
}

// TableName returns the name of the migration state table.
func (s *StateStore) TableName() string {
	return s.tableName
}

// Initialize creates the state table and its applied_at index if they do not exist yet.
// It is safe to call on every startup.
func (s *StateStore) Initialize(ctx context.Context) error {
	var stmts []string
	switch s.dialect {
	case migratekit.DialectMySQL:
		stmts = []string{fmt.Sprintf(mysqlCreateStateTableSQLTmpl, s.tableName, s.tableName)}
	case migratekit.DialectPostgres, migratekit.DialectPgx:
		stmts = []string{
			fmt.Sprintf(postgresCreateStateTableSQLTmpl, s.tableName),
			fmt.Sprintf(postgresCreateAppliedAtIndexSQLTmpl, s.tableName, s.tableName),
		}
	case migratekit.DialectSQLite:
		stmts = []string{
			fmt.Sprintf(sqliteCreateStateTableSQLTmpl, s.tableName),
			fmt.Sprintf(sqliteCreateAppliedAtIndexSQLTmpl, s.tableName, s.tableName),
		}
	case migratekit.DialectMSSQL:
		stmts = []string{
			fmt.Sprintf(mssqlCreateStateTableSQLTmpl, s.tableName, s.tableName),
			fmt.Sprintf(mssqlCreateAppliedAtIndexSQLTmpl, s.tableName, s.tableName, s.tableName),
		}
	default:
		return fmt.Errorf("unsupported dialect %q", s.dialect)
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("initialize migration state table %s: %w", s.tableName, err)
		}
	}
	return nil
}

// QueryApplied returns all applied migration records ordered by ascending version.
// The lock sentinel row is excluded.
func (s *StateStore) QueryApplied(ctx context.Context) ([]AppliedRecord, error) {
	query, args, err := s.gq.From(s.tableName).
		Select("version", "name", "checksum", "applied_at", "execution_time_ms", "success").
		Where(goqu.C("version").Gt(0)).
		Order(goqu.C("version").Asc()).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build query for applied migrations: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	var records []AppliedRecord
	for rows.Next() {
		var rec AppliedRecord
		var appliedAt interface{}
		var execTimeMs sql.NullInt64
		if err = rows.Scan(&rec.Version, &rec.Name, &rec.Checksum, &appliedAt, &execTimeMs, &rec.Success); err != nil {
			return nil, fmt.Errorf("scan applied migration record: %w", err)
		}
		if rec.AppliedAt, err = parseTimestamp(appliedAt); err != nil {
			return nil, fmt.Errorf("scan applied migration record: %w", err)
		}
		if execTimeMs.Valid {
			ms := execTimeMs.Int64
			rec.ExecutionTimeMs = &ms
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return records, nil
}

// Insert writes a migration record. The executor may be the store's own
// database handle or a transaction the caller runs the migration in.
func (s *StateStore) Insert(ctx context.Context, executor SQLExecutor, rec AppliedRecord) error {
	record := goqu.Record{
		"version":    rec.Version,
		"name":       rec.Name,
		"checksum":   rec.Checksum,
		"applied_at": rec.AppliedAt,
		"success":    rec.Success,
	}
	if rec.ExecutionTimeMs != nil {
		record["execution_time_ms"] = *rec.ExecutionTimeMs
	} else {
		record["execution_time_ms"] = nil
	}
	query, args, err := s.gq.Insert(s.tableName).Rows(record).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("build insert for migration record: %w", err)
	}
	if _, err = executor.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert migration record version %d: %w", rec.Version, err)
	}
	return nil
}

// Delete removes the record with the passed version and reports whether it existed.
func (s *StateStore) Delete(ctx context.Context, executor SQLExecutor, version int64) (bool, error) {
	query, args, err := s.gq.Delete(s.tableName).Where(goqu.C("version").Eq(version)).Prepared(true).ToSQL()
	if err != nil {
		return false, fmt.Errorf("build delete for migration record: %w", err)
	}
	result, err := executor.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete migration record version %d: %w", version, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete migration record version %d: %w", version, err)
	}
	return affected > 0, nil
}

// IsDuplicateKeyError reports whether err is a primary-key or unique-constraint
// violation from the store's driver. The driver's classifier package must be
// imported for classification to work.
func (s *StateStore) IsDuplicateKeyError(err error) bool {
	isDuplicateKey := migratekit.GetIsDuplicateKey(s.db.Driver())
	return isDuplicateKey != nil && isDuplicateKey(err)
}

// timestampLayouts are the textual forms applied_at comes back in from drivers
// that do not return time.Time directly.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func parseTimestamp(v interface{}) (time.Time, error) {
	switch tv := v.(type) {
	case time.Time:
		return tv, nil
	case []byte:
		return parseTimestampString(string(tv))
	case string:
		return parseTimestampString(tv)
	}
	return time.Time{}, fmt.Errorf("unsupported applied_at value of type %T", v)
}

func parseTimestampString(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported applied_at value %q", s)
}
