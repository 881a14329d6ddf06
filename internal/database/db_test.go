package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCatalogDB(t *testing.T) *DB {
	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "catalog.db"),
		Profile: ProfileStandard,
		Name:    "catalog",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func TestDB_MigrateCreatesSchema(t *testing.T) {
	db := newCatalogDB(t)

	// Re-running migration is a no-op thanks to IF NOT EXISTS.
	require.NoError(t, db.Migrate())

	_, err := db.Exec(`INSERT INTO products (id, title, base_price, max_price, selling_price, created_at, updated_at)
		VALUES ('p1', 'Widget', '8.00', '15.00', '10.00', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestDB_HealthCheck(t *testing.T) {
	db := newCatalogDB(t)

	require.NoError(t, db.HealthCheck(context.Background()))
	require.NoError(t, db.QuickCheck(context.Background()))
}

func TestWithTransaction_Commit(t *testing.T) {
	db := newCatalogDB(t)

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO products (id, title, base_price, max_price, selling_price, created_at, updated_at)
			VALUES ('p1', 'Widget', '8.00', '15.00', '10.00', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
		return err
	})
	require.NoError(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestWithTransaction_RollbackOnError(t *testing.T) {
	db := newCatalogDB(t)

	err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, execErr := tx.Exec(`INSERT INTO products (id, title, base_price, max_price, selling_price, created_at, updated_at)
			VALUES ('p1', 'Widget', '8.00', '15.00', '10.00', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
		require.NoError(t, execErr)
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "abort")

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count))
	assert.Equal(t, 0, count, "insert must be rolled back")
}

func TestDB_BackupTo(t *testing.T) {
	db := newCatalogDB(t)

	_, err := db.Exec(`INSERT INTO products (id, title, base_price, max_price, selling_price, created_at, updated_at)
		VALUES ('p1', 'Widget', '8.00', '15.00', '10.00', '2026-01-01T00:00:00Z', '2026-01-01T00:00:00Z')`)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "catalog-backup.db")
	require.NoError(t, db.BackupTo(dest))

	// Running again overwrites the stale backup rather than failing.
	require.NoError(t, db.BackupTo(dest))

	backup, err := New(Config{Path: dest, Profile: ProfileStandard, Name: "catalog"})
	require.NoError(t, err)
	defer backup.Close()

	var count int
	require.NoError(t, backup.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count))
	assert.Equal(t, 1, count)
}
