/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package migratekit is a toolkit for driving relational schema migrations across
// a fleet of processes that share one database. The root package carries the
// database plumbing (dialects, configuration, connection opening, transaction
// helpers, driver error classification); the actual migration engine lives in
// the migration subpackage, and the dependency orderer in depgraph.
package migratekit

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/acronis/go-appkit/retry"
	"github.com/cenkalti/backoff/v4"
)

// Dialect defines the SQL dialect of the target database.
type Dialect string

// Supported SQL dialects.
const (
	DialectMySQL    Dialect = "mysql"
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
	DialectPgx      Dialect = "pgx"
	DialectMSSQL    Dialect = "mssql"
)

// Default values for connection pool parameters.
const (
	DefaultMaxOpenConns    = 16
	DefaultMaxIdleConns    = 8
	DefaultConnMaxLifetime = 10 * time.Minute
)

// Open opens a database connection using parameters from the passed configuration
// and configures the connection pool. If ping is true, the connection is verified
// with a ping before returning.
func Open(cfg *Config, ping bool) (*sql.DB, error) {
	driverName, dsn := cfg.DriverNameAndDSN()
	if driverName == "" {
		return nil, fmt.Errorf("unsupported sql dialect %q", cfg.Dialect)
	}

	dbConn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database (dialect %s): %w", cfg.Dialect, err)
	}

	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime))

	if ping {
		if err = dbConn.Ping(); err != nil {
			_ = dbConn.Close()
			return nil, fmt.Errorf("ping database (dialect %s): %w", cfg.Dialect, err)
		}
	}

	return dbConn, nil
}

type doInTxOptions struct {
	retryPolicy retry.Policy
}

// DoInTxOption is a functional option for DoInTx.
type DoInTxOption func(*doInTxOptions)

// WithRetryPolicy makes DoInTx retry the whole transaction according to the passed
// policy when fn returns an error that the driver's registered IsRetryable function
// classifies as transient (deadlock, serialization failure, and so on).
func WithRetryPolicy(policy retry.Policy) DoInTxOption {
	return func(o *doInTxOptions) {
		o.retryPolicy = policy
	}
}

// DoInTx begins a transaction, calls fn, and commits it if fn returns nil.
// On error or panic the transaction is rolled back and the error (or panic)
// is propagated.
func DoInTx(ctx context.Context, dbConn *sql.DB, fn func(tx *sql.Tx) error, options ...DoInTxOption) error {
	var opts doInTxOptions
	for _, opt := range options {
		opt(&opts)
	}

	if opts.retryPolicy == nil {
		return doInTxOnce(ctx, dbConn, fn)
	}

	isRetryable := GetIsRetryable(dbConn.Driver())
	if isRetryable == nil {
		return doInTxOnce(ctx, dbConn, fn)
	}

	operation := func() error {
		if err := doInTxOnce(ctx, dbConn, fn); err != nil {
			if isRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		return nil
	}
	err := backoff.Retry(operation, backoff.WithContext(opts.retryPolicy.NewBackOff(), ctx))
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Err
	}
	return err
}

func doInTxOnce(ctx context.Context, dbConn *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := dbConn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// driver feature registries
//
// Driver subpackages (postgres, pgx, mysql, sqlite, mssql) register error
// classifiers here from their init functions. Importing a driver subpackage
// (typically with a blank import) is what enables classification for that
// driver; without it GetIsRetryable/GetIsDuplicateKey return nil.

// Classifiers are keyed by the driver's dynamic type: sql.DB.Driver() returns the
// globally registered driver instance while callers register with a fresh value.

var (
	driverFuncsMu       sync.RWMutex
	isRetryableFuncs    = map[reflect.Type]func(error) bool{}
	isDuplicateKeyFuncs = map[reflect.Type]func(error) bool{}
)

// RegisterIsRetryableFunc registers a function that reports whether an error
// returned by the passed driver is transient and worth retrying.
func RegisterIsRetryableFunc(drv driver.Driver, fn func(error) bool) {
	driverFuncsMu.Lock()
	defer driverFuncsMu.Unlock()
	isRetryableFuncs[reflect.TypeOf(drv)] = fn
}

// GetIsRetryable returns the retryable-error classifier registered for the driver,
// or nil if none was registered.
func GetIsRetryable(drv driver.Driver) func(error) bool {
	driverFuncsMu.RLock()
	defer driverFuncsMu.RUnlock()
	return isRetryableFuncs[reflect.TypeOf(drv)]
}

// UnregisterAllIsRetryableFuncs removes the retryable-error classifier for the driver.
// It exists for test isolation.
func UnregisterAllIsRetryableFuncs(drv driver.Driver) {
	driverFuncsMu.Lock()
	defer driverFuncsMu.Unlock()
	delete(isRetryableFuncs, reflect.TypeOf(drv))
}

// RegisterIsDuplicateKeyFunc registers a function that reports whether an error
// returned by the passed driver is a unique or primary key constraint violation.
// The migration lock coordinator relies on this to tell "lock already held" apart
// from genuine database failures.
func RegisterIsDuplicateKeyFunc(drv driver.Driver, fn func(error) bool) {
	driverFuncsMu.Lock()
	defer driverFuncsMu.Unlock()
	isDuplicateKeyFuncs[reflect.TypeOf(drv)] = fn
}

// GetIsDuplicateKey returns the duplicate-key classifier registered for the driver,
// or nil if none was registered.
func GetIsDuplicateKey(drv driver.Driver) func(error) bool {
	driverFuncsMu.RLock()
	defer driverFuncsMu.RUnlock()
	return isDuplicateKeyFuncs[reflect.TypeOf(drv)]
}
