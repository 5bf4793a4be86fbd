package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"faceattend/internal/model"
)

// SQLRepository persists attendance in Postgres (pgx) or SQLite.
// Queries use $N placeholders, which both drivers accept.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository creates a repo.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

const recordColumns = `a.id, a.student_id, a.day, a.status, a.arrival_at, a.confidence, s.name, s.surname, s.group_name, s.faculty`

// Upsert writes the first sighting of the day or raises the stored confidence.
func (r *SQLRepository) Upsert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, bool, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	var arrival any
	if rec.ArrivalAt != nil {
		arrival = rec.ArrivalAt.UTC()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_records AS a (id, student_id, day, status, arrival_at, confidence)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (student_id, day) DO UPDATE SET
			confidence = CASE WHEN excluded.confidence > a.confidence THEN excluded.confidence ELSE a.confidence END
		RETURNING id, student_id, day, status, arrival_at, confidence
	`, rec.ID, rec.StudentID, rec.Day, string(rec.Status), arrival, rec.Confidence)

	var out model.AttendanceRecord
	var status string
	var arrivalRaw any
	if err := row.Scan(&out.ID, &out.StudentID, &out.Day, &status, &arrivalRaw, &out.Confidence); err != nil {
		return model.AttendanceRecord{}, false, fmt.Errorf("upsert attendance: %w", err)
	}
	out.Status = model.Status(status)
	t, err := scanTime(arrivalRaw)
	if err != nil {
		return model.AttendanceRecord{}, false, err
	}
	out.ArrivalAt = t
	return out, out.ID == rec.ID, nil
}

// InsertAbsent marks every listed student without a record on day as Absent.
func (r *SQLRepository) InsertAbsent(ctx context.Context, day string, studentIDs []string) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attendance_records (id, student_id, day, status, arrival_at, confidence)
		VALUES ($1, $2, $3, $4, NULL, 0)
		ON CONFLICT (student_id, day) DO NOTHING
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	created := 0
	for _, id := range studentIDs {
		res, err := stmt.ExecContext(ctx, uuid.NewString(), id, day, string(model.StatusAbsent))
		if err != nil {
			return 0, fmt.Errorf("mark %s absent: %w", id, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			created += int(n)
		}
	}
	return created, tx.Commit()
}

// Counts tallies the day's records by status.
func (r *SQLRepository) Counts(ctx context.Context, day string) (Counts, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM attendance_records WHERE day = $1 GROUP BY status
	`, day)
	if err != nil {
		return Counts{}, err
	}
	defer rows.Close()
	return scanCounts(rows)
}

// Summarize tallies every record matching f by status. Limit and Offset are ignored.
func (r *SQLRepository) Summarize(ctx context.Context, f Filter) (Counts, error) {
	where, args := filterWhere(f)
	rows, err := r.db.QueryContext(ctx, `SELECT a.status, COUNT(*) FROM attendance_records a
		JOIN students s ON s.id = a.student_id`+where+` GROUP BY a.status`, args...)
	if err != nil {
		return Counts{}, err
	}
	defer rows.Close()
	return scanCounts(rows)
}

func scanCounts(rows *sql.Rows) (Counts, error) {
	var c Counts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return Counts{}, err
		}
		switch model.Status(status) {
		case model.StatusPresent:
			c.Present = n
		case model.StatusLate:
			c.Late = n
		case model.StatusAbsent:
			c.Absent = n
		}
	}
	return c, rows.Err()
}

// Recent returns the latest arrivals of the day.
func (r *SQLRepository) Recent(ctx context.Context, day string, limit int) ([]model.AttendanceRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM attendance_records a
		JOIN students s ON s.id = a.student_id
		WHERE a.day = $1 AND a.arrival_at IS NOT NULL
		ORDER BY a.arrival_at DESC
		LIMIT $2
	`, day, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// List returns records with basic filters, newest day first.
func (r *SQLRepository) List(ctx context.Context, f Filter) ([]model.AttendanceRecord, error) {
	if f.Limit <= 0 {
		f.Limit = 500
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	where, args := filterWhere(f)
	query := `SELECT ` + recordColumns + ` FROM attendance_records a JOIN students s ON s.id = a.student_id` + where
	query += " ORDER BY a.day DESC, s.surname, s.name LIMIT $" + strconv.Itoa(len(args)+1) + " OFFSET $" + strconv.Itoa(len(args)+2)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// filterWhere renders the WHERE part of f over attendance_records a joined with students s.
func filterWhere(f Filter) (string, []any) {
	args := []any{}
	clauses := []string{}
	add := func(clause string, v any) {
		args = append(args, v)
		clauses = append(clauses, clause+" $"+strconv.Itoa(len(args)))
	}
	if f.From != "" {
		add("a.day >=", f.From)
	}
	if f.To != "" {
		add("a.day <=", f.To)
	}
	if f.Group != "" {
		add("s.group_name =", f.Group)
	}
	if f.Faculty != "" {
		add("s.faculty =", f.Faculty)
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanRecords(rows *sql.Rows) ([]model.AttendanceRecord, error) {
	var res []model.AttendanceRecord
	for rows.Next() {
		var rec model.AttendanceRecord
		var status, name, surname string
		var arrivalRaw any
		if err := rows.Scan(&rec.ID, &rec.StudentID, &rec.Day, &status, &arrivalRaw, &rec.Confidence,
			&name, &surname, &rec.Group, &rec.Faculty); err != nil {
			return nil, err
		}
		rec.Status = model.Status(status)
		rec.Name = model.Student{Name: name, Surname: surname}.DisplayName()
		t, err := scanTime(arrivalRaw)
		if err != nil {
			return nil, err
		}
		rec.ArrivalAt = t
		res = append(res, rec)
	}
	return res, rows.Err()
}

// timeLayouts covers how SQLite drivers hand back timestamps stored as text.
var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

func scanTime(v any) (*time.Time, error) {
	var s string
	switch t := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return &t, nil
	case string:
		s = t
	case []byte:
		s = string(t)
	default:
		return nil, fmt.Errorf("unexpected time value %T", v)
	}
	s = strings.TrimSuffix(s, "Z")
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unparseable time %q", s)
}
