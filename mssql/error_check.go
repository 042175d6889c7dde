/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package mssql provides error classification for the microsoft/go-mssqldb driver.
// Import it (typically blank) to enable retry and lock-contention detection
// when the "sqlserver" driver is used.
package mssql

import (
	"errors"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/acronis/go-migratekit"
)

// SQL Server error numbers the package acts upon.
const (
	ErrNumDuplicateKey       = 2601
	ErrNumUniqueKeyViolation = 2627
	ErrNumDeadlockVictim     = 1205
)

func init() {
	migratekit.RegisterIsRetryableFunc(&mssql.Driver{}, func(err error) bool {
		return errNumber(err) == ErrNumDeadlockVictim
	})
	migratekit.RegisterIsDuplicateKeyFunc(&mssql.Driver{}, func(err error) bool {
		num := errNumber(err)
		return num == ErrNumDuplicateKey || num == ErrNumUniqueKeyViolation
	})
}

func errNumber(err error) int32 {
	var mssqlErr mssql.Error
	if errors.As(err, &mssqlErr) {
		return mssqlErr.Number
	}
	return 0
}
