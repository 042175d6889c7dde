/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package pgx

import (
	"database/sql/driver"
	"fmt"
	gotesting "testing"

	"github.com/jackc/pgx/v5/pgconn"
	pg "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-migratekit"
)

func TestPgxIsRetryable(t *gotesting.T) {
	isRetryable := migratekit.GetIsRetryable(&pg.Driver{})
	require.NotNil(t, isRetryable)
	// enum all retriable errors
	retriable := []ErrCode{
		ErrCodeDeadlockDetected,
		ErrCodeSerializationFailure,
	}
	for _, code := range retriable {
		var err error
		err = &pgconn.PgError{Code: string(code)}
		require.True(t, isRetryable(err))
		err = fmt.Errorf("wrapped error: %w", err)
		require.True(t, isRetryable(err))
	}

	require.False(t, isRetryable(&pgconn.PgError{Code: string(ErrCodeUniqueViolation)}))
	require.False(t, isRetryable(driver.ErrBadConn))
}

func TestPgxIsDuplicateKey(t *gotesting.T) {
	isDuplicateKey := migratekit.GetIsDuplicateKey(&pg.Driver{})
	require.NotNil(t, isDuplicateKey)

	var err error
	err = &pgconn.PgError{Code: string(ErrCodeUniqueViolation)}
	require.True(t, isDuplicateKey(err))
	err = fmt.Errorf("wrapped error: %w", err)
	require.True(t, isDuplicateKey(err))

	require.False(t, isDuplicateKey(&pgconn.PgError{Code: string(ErrCodeSerializationFailure)}))
	require.False(t, isDuplicateKey(driver.ErrBadConn))
}
