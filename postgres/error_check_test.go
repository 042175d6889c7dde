/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package postgres

import (
	"database/sql/driver"
	"fmt"
	gotesting "testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-migratekit"
)

func TestPostgresIsRetryable(t *gotesting.T) {
	isRetryable := migratekit.GetIsRetryable(&pq.Driver{})
	require.NotNil(t, isRetryable)
	// enum all retriable errors
	retriable := []ErrCode{
		ErrCodeDeadlockDetected,
		ErrCodeSerializationFailure,
	}
	for _, code := range retriable {
		var err error
		err = &pq.Error{Code: pq.ErrorCode(code)}
		require.True(t, isRetryable(err))
		err = fmt.Errorf("wrapped error: %w", err)
		require.True(t, isRetryable(err))
	}

	require.False(t, isRetryable(&pq.Error{Code: pq.ErrorCode(ErrCodeUniqueViolation)}))
	require.False(t, isRetryable(driver.ErrBadConn))
}

func TestPostgresIsDuplicateKey(t *gotesting.T) {
	isDuplicateKey := migratekit.GetIsDuplicateKey(&pq.Driver{})
	require.NotNil(t, isDuplicateKey)

	var err error
	err = &pq.Error{Code: pq.ErrorCode(ErrCodeUniqueViolation)}
	require.True(t, isDuplicateKey(err))
	err = fmt.Errorf("wrapped error: %w", err)
	require.True(t, isDuplicateKey(err))

	require.False(t, isDuplicateKey(&pq.Error{Code: pq.ErrorCode(ErrCodeDeadlockDetected)}))
	require.False(t, isDuplicateKey(driver.ErrBadConn))
}
