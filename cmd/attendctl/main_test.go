package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceattend/internal/auth"
	"faceattend/internal/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "cli-test-key")
	t.Setenv("JWT_ISSUER", "cli-test")

	out, err := execute(t, "token", "alice")
	require.NoError(t, err)

	claims, err := auth.Parse(strings.TrimSpace(out), "cli-test-key", "cli-test")
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, auth.RoleOperator, claims.Role)
}

func TestScheduleImportAndRosterCheck(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "attend.db")
	file := filepath.Join(dir, "schedules.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
schedules:
  - day: Monday
    start: "09:00"
    late: "09:15"
    end: "09:30"
  - day: fri
    start: "13:00"
    late: "13:10"
    end: "14:00"
`), 0o600))

	out, err := execute(t, "schedule", "import", file, "--db-driver", "sqlite3", "--database-url", dbPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Monday")
	assert.Contains(t, out, "Friday")

	db, err := store.NewDB(context.Background(), store.DriverSQLite, dbPath)
	require.NoError(t, err)
	_, err = db.Client.Exec(`INSERT INTO students (id, name, embeddings) VALUES ('a', 'Ann', '[[1,0],[0.9,0.1]]'), ('b', 'Ben', 'oops')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err = execute(t, "roster", "check", "--db-driver", "sqlite3", "--database-url", dbPath)
	assert.Error(t, err)
	assert.Contains(t, out, "enrolled:   2")
	assert.Contains(t, out, "references: 2")
	assert.Contains(t, out, "skipped:    1")

	out, err = execute(t, "attendance", "list", "--db-driver", "sqlite3", "--database-url", dbPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "present 0, late 0, absent 0")
}
