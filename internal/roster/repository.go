package roster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"faceattend/internal/embedding"
	"faceattend/internal/model"
)

var ErrNotFound = errors.New("not found")

// Repository persists students and weekday schedules.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const studentColumns = `id, name, surname, father_name, faculty, direction, group_name`

func scanStudent(row interface{ Scan(...any) error }, st *model.Student) error {
	return row.Scan(&st.ID, &st.Name, &st.Surname, &st.FatherName, &st.Faculty, &st.Direction, &st.Group)
}

// SaveStudent creates or replaces a student together with its reference embeddings.
func (r *Repository) SaveStudent(ctx context.Context, st model.Student, embeddings []byte) (model.Student, error) {
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO students (id, name, surname, father_name, faculty, direction, group_name, embeddings)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name,
			surname = excluded.surname,
			father_name = excluded.father_name,
			faculty = excluded.faculty,
			direction = excluded.direction,
			group_name = excluded.group_name,
			embeddings = excluded.embeddings,
			updated_at = $9
	`, st.ID, st.Name, st.Surname, st.FatherName, st.Faculty, st.Direction, st.Group, string(embeddings), time.Now().UTC())
	if err != nil {
		return model.Student{}, fmt.Errorf("save student: %w", err)
	}
	return st, nil
}

// DeleteStudent removes a student; attendance rows go with it.
func (r *Repository) DeleteStudent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("student %s: %w", id, ErrNotFound)
	}
	return nil
}

// GetStudent returns a single student by id.
func (r *Repository) GetStudent(ctx context.Context, id string) (model.Student, error) {
	var st model.Student
	err := scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id), &st)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Student{}, fmt.Errorf("student %s: %w", id, ErrNotFound)
	}
	return st, err
}

// ListStudents returns all students in roster order.
func (r *Repository) ListStudents(ctx context.Context) ([]model.Student, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []model.Student
	for rows.Next() {
		var st model.Student
		if err := scanStudent(rows, &st); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// StudentIDs returns every enrolled student id.
func (r *Repository) StudentIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM students ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Enrollments returns each student's raw stored embeddings in roster order.
// Parsing is left to the embedding store so one bad row cannot fail the query.
func (r *Repository) Enrollments(ctx context.Context) ([]embedding.Enrollment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, surname, embeddings FROM students ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []embedding.Enrollment
	for rows.Next() {
		var st model.Student
		var raw string
		if err := rows.Scan(&st.ID, &st.Name, &st.Surname, &raw); err != nil {
			return nil, err
		}
		out = append(out, embedding.Enrollment{StudentID: st.ID, DisplayName: st.DisplayName(), Raw: []byte(raw)})
	}
	return out, rows.Err()
}

// SaveSchedule creates the schedule of a weekday or replaces its times.
func (r *Repository) SaveSchedule(ctx context.Context, s model.Schedule) (model.Schedule, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO schedules (id, day, start_time, late_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (day) DO UPDATE SET
			start_time = excluded.start_time,
			late_time = excluded.late_time,
			end_time = excluded.end_time
		RETURNING id
	`, s.ID, int(s.Day), s.Start.String(), s.Late.String(), s.End.String())
	if err := row.Scan(&s.ID); err != nil {
		return model.Schedule{}, fmt.Errorf("save schedule: %w", err)
	}
	return s, nil
}

// ScheduleForDay returns nil, nil when the weekday has no schedule.
func (r *Repository) ScheduleForDay(ctx context.Context, day time.Weekday) (*model.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, day, start_time, late_time, end_time FROM schedules WHERE day = $1`, int(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list, err := scanSchedules(rows)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return &list[0], nil
}

// ListSchedules returns the schedules ordered by weekday.
func (r *Repository) ListSchedules(ctx context.Context) ([]model.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, day, start_time, late_time, end_time FROM schedules ORDER BY day`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// DeleteSchedule removes the schedule of a weekday.
func (r *Repository) DeleteSchedule(ctx context.Context, day time.Weekday) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE day = $1`, int(day))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("schedule for %s: %w", day, ErrNotFound)
	}
	return nil
}

func scanSchedules(rows *sql.Rows) ([]model.Schedule, error) {
	var out []model.Schedule
	for rows.Next() {
		var s model.Schedule
		var day int
		var start, late, end string
		if err := rows.Scan(&s.ID, &day, &start, &late, &end); err != nil {
			return nil, err
		}
		s.Day = time.Weekday(day)
		var err error
		if s.Start, err = model.ParseTimeOfDay(start); err != nil {
			return nil, err
		}
		if s.Late, err = model.ParseTimeOfDay(late); err != nil {
			return nil, err
		}
		if s.End, err = model.ParseTimeOfDay(end); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
