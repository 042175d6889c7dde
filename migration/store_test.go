/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package migration_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-migratekit"
	"github.com/acronis/go-migratekit/migration"
	_ "github.com/acronis/go-migratekit/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	db.SetMaxOpenConns(1)
	return db
}

func newTestStore(t *testing.T, db *sql.DB, options ...migration.StateStoreOption) *migration.StateStore {
	t.Helper()
	store, err := migration.NewStateStore(db, migratekit.DialectSQLite, options...)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(context.Background()))
	return store
}

func TestStateStoreInitializeIdempotent(t *testing.T) {
	db := openTestDB(t)
	store := newTestStore(t, db)
	require.NoError(t, store.Initialize(context.Background()))
	require.NoError(t, store.Initialize(context.Background()))

	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", store.TableName()).Scan(&tableName)
	require.NoError(t, err)
	assert.Equal(t, migration.DefaultTableName, tableName)
}

func TestStateStoreCustomTableName(t *testing.T) {
	db := openTestDB(t)
	store := newTestStore(t, db, migration.WithTableName("custom_migrations"))
	assert.Equal(t, "custom_migrations", store.TableName())

	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='custom_migrations'").Scan(&tableName)
	require.NoError(t, err)
}

func TestStateStoreInsertAndQueryApplied(t *testing.T) {
	db := openTestDB(t)
	store := newTestStore(t, db)
	ctx := context.Background()

	ms := int64(42)
	records := []migration.AppliedRecord{
		{Version: 3, Name: "third", Checksum: "c3", AppliedAt: time.Now().UTC(), Success: true},
		{Version: 1, Name: "first", Checksum: "c1", AppliedAt: time.Now().UTC(), ExecutionTimeMs: &ms, Success: true},
		{Version: 2, Name: "second", Checksum: "c2", AppliedAt: time.Now().UTC(), Success: true},
	}
	for _, rec := range records {
		require.NoError(t, store.Insert(ctx, db, rec))
	}
	// Sentinel lock row must never show up as an applied migration.
	require.NoError(t, store.Insert(ctx, db, migration.AppliedRecord{
		Version: -1, Name: "LOCK", Checksum: "token", AppliedAt: time.Now().UTC(), Success: true,
	}))

	applied, err := store.QueryApplied(ctx)
	require.NoError(t, err)
	require.Len(t, applied, 3)
	assert.Equal(t, int64(1), applied[0].Version)
	assert.Equal(t, int64(2), applied[1].Version)
	assert.Equal(t, int64(3), applied[2].Version)

	require.NotNil(t, applied[0].ExecutionTimeMs)
	assert.Equal(t, int64(42), *applied[0].ExecutionTimeMs)
	assert.Nil(t, applied[1].ExecutionTimeMs)
	assert.True(t, applied[0].Success)
	assert.Equal(t, "first", applied[0].Name)
	assert.Equal(t, "c1", applied[0].Checksum)
	assert.False(t, applied[0].AppliedAt.IsZero())
}

func TestStateStoreDelete(t *testing.T) {
	db := openTestDB(t)
	store := newTestStore(t, db)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, db, migration.AppliedRecord{
		Version: 1, Name: "first", Checksum: "c1", AppliedAt: time.Now().UTC(), Success: true,
	}))

	existed, err := store.Delete(ctx, db, 1)
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = store.Delete(ctx, db, 1)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestStateStoreDuplicateKeyClassification(t *testing.T) {
	db := openTestDB(t)
	store := newTestStore(t, db)
	ctx := context.Background()

	rec := migration.AppliedRecord{Version: 1, Name: "first", Checksum: "c1", AppliedAt: time.Now().UTC(), Success: true}
	require.NoError(t, store.Insert(ctx, db, rec))

	err := store.Insert(ctx, db, rec)
	require.Error(t, err)
	assert.True(t, store.IsDuplicateKeyError(err))
	assert.False(t, store.IsDuplicateKeyError(context.Canceled))
}
