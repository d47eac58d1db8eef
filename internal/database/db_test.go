package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "portfolio.db"),
		Profile: ProfileLedger,
		Name:    "portfolio",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func TestBuildConnectionString(t *testing.T) {
	ledger := buildConnectionString("/data/portfolio.db", ProfileLedger)
	assert.Contains(t, ledger, "/data/portfolio.db?_pragma=journal_mode(WAL)")
	assert.Contains(t, ledger, "synchronous(FULL)")
	assert.Contains(t, ledger, "_txlock=immediate")
	assert.Contains(t, ledger, "busy_timeout(5000)")

	standard := buildConnectionString("/data/other.db", ProfileStandard)
	assert.Contains(t, standard, "synchronous(NORMAL)")
	assert.NotContains(t, standard, "_txlock")
}

func TestNew_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "portfolio.db")

	db, err := New(Config{Path: path, Name: "portfolio"})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, ProfileStandard, db.Profile())
	assert.Equal(t, "portfolio", db.Name())
	assert.Equal(t, path, db.Path())
	_, err = os.Stat(filepath.Dir(path))
	assert.NoError(t, err)
}

func TestMigrate_IsRepeatable(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Migrate())

	var count int
	err := db.Conn().QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('portfolios','closed_trades')",
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMigrate_UnknownSchema(t *testing.T) {
	db, err := New(Config{Path: filepath.Join(t.TempDir(), "x.db"), Name: "unknown"})
	require.NoError(t, err)
	defer db.Close()

	assert.Error(t, db.Migrate())
}

func TestWithTransaction(t *testing.T) {
	db := openTestDB(t)
	insert := "INSERT INTO portfolios (account_id, document, created_at, updated_at) VALUES (?, '{}', 'now', 'now')"

	countRows := func() int {
		var n int
		require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM portfolios").Scan(&n))
		return n
	}

	t.Run("commits on success", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			_, err := tx.Exec(insert, "ACC-1")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 1, countRows())
	})

	t.Run("rolls back on error and keeps the cause", func(t *testing.T) {
		sentinel := errors.New("boom")
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			if _, err := tx.Exec(insert, "ACC-2"); err != nil {
				return err
			}
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, countRows())
	})

	t.Run("rolls back on panic", func(t *testing.T) {
		err := WithTransaction(db.Conn(), func(tx *sql.Tx) error {
			_, _ = tx.Exec(insert, "ACC-3")
			panic("unexpected")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "panic in transaction")
		assert.Equal(t, 1, countRows())
	})

	t.Run("nil connection", func(t *testing.T) {
		assert.Error(t, WithTransaction(nil, func(*sql.Tx) error { return nil }))
	})
}

func TestHealthCheckAndCheckpoint(t *testing.T) {
	db := openTestDB(t)

	assert.NoError(t, db.HealthCheck(context.Background()))
	assert.NoError(t, db.WALCheckpoint(""))
	assert.NoError(t, db.WALCheckpoint("PASSIVE"))
}

func TestVacuumInto(t *testing.T) {
	db := openTestDB(t)
	_, err := db.Conn().Exec("INSERT INTO portfolios (account_id, document, created_at, updated_at) VALUES ('ACC-1', '{}', 'now', 'now')")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "snapshot.db")
	require.NoError(t, db.VacuumInto(context.Background(), dest))

	copyDB, err := New(Config{Path: dest, Name: "portfolio"})
	require.NoError(t, err)
	defer copyDB.Close()

	var n int
	require.NoError(t, copyDB.Conn().QueryRow("SELECT COUNT(*) FROM portfolios").Scan(&n))
	assert.Equal(t, 1, n)
}
