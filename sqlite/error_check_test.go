/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package sqlite

import (
	"database/sql/driver"
	"fmt"
	gotesting "testing"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-migratekit"
)

func TestSQLiteIsRetryable(t *gotesting.T) {
	isRetryable := migratekit.GetIsRetryable(&sqlite3.SQLiteDriver{})
	require.NotNil(t, isRetryable)
	// enum all retriable errors
	for _, code := range []sqlite3.ErrNo{sqlite3.ErrBusy, sqlite3.ErrLocked} {
		var err error
		err = sqlite3.Error{Code: code}
		require.True(t, isRetryable(err))
		err = fmt.Errorf("wrapped error: %w", err)
		require.True(t, isRetryable(err))
	}

	require.False(t, isRetryable(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	require.False(t, isRetryable(driver.ErrBadConn))
}

func TestSQLiteIsDuplicateKey(t *gotesting.T) {
	isDuplicateKey := migratekit.GetIsDuplicateKey(&sqlite3.SQLiteDriver{})
	require.NotNil(t, isDuplicateKey)

	for _, extended := range []sqlite3.ErrNoExtended{sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey} {
		var err error
		err = sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: extended}
		require.True(t, isDuplicateKey(err))
		err = fmt.Errorf("wrapped error: %w", err)
		require.True(t, isDuplicateKey(err))
	}

	require.False(t, isDuplicateKey(sqlite3.Error{Code: sqlite3.ErrBusy}))
	require.False(t, isDuplicateKey(driver.ErrBadConn))
}
