package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDBSQLiteMigratesTwice(t *testing.T) {
	ctx := context.Background()
	db, err := NewDB(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Migrate(ctx))
	assert.True(t, db.Healthy(ctx))

	var n int
	require.NoError(t, db.Client.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('students', 'schedules', 'attendance_records')`).Scan(&n))
	assert.Equal(t, 3, n)
}

func TestNewDBUnknownDriver(t *testing.T) {
	_, err := NewDB(context.Background(), "oracle", "x")
	assert.Error(t, err)
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, ":memory:?_foreign_keys=on&_busy_timeout=5000", sqliteDSN(":memory:"))
	assert.Equal(t, "file:a.db?cache=shared&_foreign_keys=on&_busy_timeout=5000", sqliteDSN("file:a.db?cache=shared"))
	assert.Equal(t, "a.db?_foreign_keys=1", sqliteDSN("a.db?_foreign_keys=1"))
}
