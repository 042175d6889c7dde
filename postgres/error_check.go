/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package postgres provides error classification for the lib/pq Postgres driver.
// Import it (typically blank) to enable retry and lock-contention detection
// when the "postgres" driver is used.
package postgres

import (
	"errors"

	"github.com/lib/pq"

	"github.com/acronis/go-migratekit"
)

// ErrCode is a Postgres error code (see the "errcodes" appendix in the Postgres docs).
type ErrCode string

// Postgres error codes the package acts upon.
const (
	ErrCodeUniqueViolation      ErrCode = "23505"
	ErrCodeSerializationFailure ErrCode = "40001"
	ErrCodeDeadlockDetected     ErrCode = "40P01"
)

func init() {
	migratekit.RegisterIsRetryableFunc(&pq.Driver{}, func(err error) bool {
		code := errCode(err)
		return code == ErrCodeDeadlockDetected || code == ErrCodeSerializationFailure
	})
	migratekit.RegisterIsDuplicateKeyFunc(&pq.Driver{}, func(err error) bool {
		return errCode(err) == ErrCodeUniqueViolation
	})
}

func errCode(err error) ErrCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return ErrCode(pqErr.Code)
	}
	return ""
}
