/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package pgx provides error classification for the pgx stdlib driver.
// Import it (typically blank) to enable retry and lock-contention detection
// when the "pgx" driver is used.
package pgx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	pg "github.com/jackc/pgx/v5/stdlib"

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
	migratekit.RegisterIsRetryableFunc(&pg.Driver{}, func(err error) bool {
		code := errCode(err)
		return code == ErrCodeDeadlockDetected || code == ErrCodeSerializationFailure
	})
	migratekit.RegisterIsDuplicateKeyFunc(&pg.Driver{}, func(err error) bool {
		return errCode(err) == ErrCodeUniqueViolation
	})
}

func errCode(err error) ErrCode {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return ErrCode(pgErr.Code)
	}
	return ""
}
