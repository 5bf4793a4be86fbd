package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite3"
)

// DB wraps sql.DB for Postgres (pgx) or SQLite.
type DB struct {
	Client *sql.DB
	Driver string
}

// NewDB opens a connection with sane defaults and applies the schema.
func NewDB(ctx context.Context, driver, connString string) (*DB, error) {
	switch driver {
	case DriverPostgres, "postgres":
		driver = DriverPostgres
	case DriverSQLite, "sqlite":
		driver = DriverSQLite
		connString = sqliteDSN(connString)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := sql.Open(driver, connString)
	if err != nil {
		return nil, err
	}
	if driver == DriverSQLite {
		// One writer; also keeps ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	}
	d := &DB{Client: db, Driver: driver}
	if err := db.PingContext(ctx); err != nil {
		return d, fmt.Errorf("ping db: %w", err)
	}
	if err := d.Migrate(ctx); err != nil {
		return d, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_busy_timeout=5000"
}

const schema = `
CREATE TABLE IF NOT EXISTS students (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	surname     TEXT NOT NULL DEFAULT '',
	father_name TEXT NOT NULL DEFAULT '',
	faculty     TEXT NOT NULL DEFAULT '',
	direction   TEXT NOT NULL DEFAULT '',
	group_name  TEXT NOT NULL DEFAULT '',
	embeddings  TEXT NOT NULL DEFAULT '[]',
	created_at  {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS schedules (
	id         TEXT PRIMARY KEY,
	day        INTEGER NOT NULL UNIQUE,
	start_time TEXT NOT NULL,
	late_time  TEXT NOT NULL,
	end_time   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS attendance_records (
	id         TEXT PRIMARY KEY,
	student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
	day        TEXT NOT NULL,
	status     TEXT NOT NULL,
	arrival_at {{timestamp}} NULL,
	confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	UNIQUE (student_id, day)
);

CREATE INDEX IF NOT EXISTS idx_attendance_day ON attendance_records(day);

CREATE TABLE IF NOT EXISTS cameras (
	camera_id  TEXT PRIMARY KEY,
	created_at {{timestamp}} NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS refresh_tokens (
	camera_id  TEXT NOT NULL REFERENCES cameras(camera_id) ON DELETE CASCADE,
	token      TEXT NOT NULL,
	expires_at {{timestamp}} NOT NULL,
	revoked    BOOLEAN NOT NULL DEFAULT FALSE
);
`

// Migrate creates missing tables. It is safe to run on every start.
func (d *DB) Migrate(ctx context.Context) error {
	ts := "TIMESTAMPTZ"
	if d.Driver == DriverSQLite {
		ts = "DATETIME"
	}
	_, err := d.Client.ExecContext(ctx, strings.ReplaceAll(schema, "{{timestamp}}", ts))
	return err
}

// Healthy pings the database.
func (d *DB) Healthy(ctx context.Context) bool {
	if d == nil || d.Client == nil {
		return false
	}
	return d.Client.PingContext(ctx) == nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	if d == nil || d.Client == nil {
		return nil
	}
	return d.Client.Close()
}
