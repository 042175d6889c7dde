/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package mysql provides error classification for the go-sql-driver/mysql driver.
// Import it (typically blank) to enable retry and lock-contention detection
// when the "mysql" driver is used.
package mysql

import (
	"errors"

	"github.com/go-sql-driver/mysql"

	"github.com/acronis/go-migratekit"
)

// MySQL server error numbers the package acts upon.
const (
	ErrNumDupEntry        = 1062
	ErrNumLockWaitTimeout = 1205
	ErrNumDeadlock        = 1213
)

func init() {
	migratekit.RegisterIsRetryableFunc(&mysql.MySQLDriver{}, func(err error) bool {
		num := errNumber(err)
		return num == ErrNumDeadlock || num == ErrNumLockWaitTimeout
	})
	migratekit.RegisterIsDuplicateKeyFunc(&mysql.MySQLDriver{}, func(err error) bool {
		return errNumber(err) == ErrNumDupEntry
	})
}

func errNumber(err error) uint16 {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number
	}
	return 0
}
