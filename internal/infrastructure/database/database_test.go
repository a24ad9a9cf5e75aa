package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskmaster/wbs/internal/infrastructure/config"
)

func TestNewMemory_Migrates(t *testing.T) {
	db, err := NewMemory()
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, DialectSQLite, db.Dialect)
	require.NoError(t, db.HealthCheck())

	version, dirty, err := db.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	// Running again is a no-op.
	require.NoError(t, db.MigrateUp())

	info := db.GetConnectionInfo()
	assert.Equal(t, "sqlite", info["driver"])
}

func TestMigrateDown(t *testing.T) {
	db, err := New(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "nested", "wbs.db"),
	})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.MigrateUp())
	require.NoError(t, db.MigrateDown(0))

	version, _, err := db.MigrationVersion()
	require.NoError(t, err)
	assert.Zero(t, version)

	var tables int
	require.NoError(t, db.DB.Get(&tables, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'wbs_tasks'`))
	assert.Zero(t, tables)
}

func TestIsUniqueViolation(t *testing.T) {
	db, err := NewMemory()
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	_, err = db.DB.ExecContext(ctx,
		`INSERT INTO projects (owner_id, name, color, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		"3f7c1a9e-0000-4000-8000-000000000001", "p", "#1976d2", now, now)
	require.NoError(t, err)

	insertTask := `INSERT INTO wbs_tasks (project_id, code, name, level, sort_order, created_at, updated_at)
		VALUES (1, ?, ?, 1, ?, ?, ?)`
	_, err = db.DB.ExecContext(ctx, insertTask, "1", "a", 1, now, now)
	require.NoError(t, err)

	_, err = db.DB.ExecContext(ctx, insertTask, "1b", "b", 1, now, now)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	_, err = db.DB.ExecContext(ctx, insertTask, "2", "c", 0, now, now)
	require.Error(t, err)
	assert.False(t, IsUniqueViolation(err), "check constraint is not a unique violation")

	assert.False(t, IsUniqueViolation(assert.AnError))
}

func TestWithTransaction_RollsBack(t *testing.T) {
	db, err := NewMemory()
	require.NoError(t, err)
	defer db.Close()

	err = db.WithTransaction(context.Background(), func(tx *sqlx.Tx) error {
		if _, err := tx.Exec(`INSERT INTO projects (owner_id, name) VALUES ('u', 'p')`); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	var count int
	require.NoError(t, db.DB.Get(&count, `SELECT COUNT(*) FROM projects`))
	assert.Zero(t, count)
}

func TestDialect(t *testing.T) {
	d, err := ParseDialect("postgres")
	require.NoError(t, err)
	assert.Equal(t, " FOR UPDATE", d.ForUpdate(""))
	assert.Equal(t, " FOR UPDATE OF t", d.ForUpdate("t"))

	assert.Empty(t, DialectSQLite.ForUpdate("t"))

	_, err = ParseDialect("oracle")
	assert.Error(t, err)
}
