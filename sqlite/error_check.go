/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package sqlite provides error classification for the mattn/go-sqlite3 driver.
// Import it (typically blank) to enable retry and lock-contention detection
// when the "sqlite3" driver is used.
package sqlite

import (
	"errors"

	"github.com/mattn/go-sqlite3"

	"github.com/acronis/go-migratekit"
)

func init() {
	migratekit.RegisterIsRetryableFunc(&sqlite3.SQLiteDriver{}, func(err error) bool {
		var sqliteErr sqlite3.Error
		if !errors.As(err, &sqliteErr) {
			return false
		}
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	})
	migratekit.RegisterIsDuplicateKeyFunc(&sqlite3.SQLiteDriver{}, func(err error) bool {
		var sqliteErr sqlite3.Error
		if !errors.As(err, &sqliteErr) {
			return false
		}
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	})
}
