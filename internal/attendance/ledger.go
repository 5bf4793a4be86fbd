package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"faceattend/internal/deadline"
	"faceattend/internal/model"
)

// Outcome describes what a Record call did.
type Outcome struct {
	Record  model.AttendanceRecord
	Created bool
}

// RecentEntry is a status-list row as shown to operators.
type RecentEntry struct {
	StudentID  string       `json:"student_id"`
	Name       string       `json:"name"`
	Time       string       `json:"time"`
	Status     model.Status `json:"status"`
	Confidence string       `json:"probability"`
}

// Report is the status of one day.
type Report struct {
	Day     string        `json:"day"`
	Present int           `json:"present"`
	Late    int           `json:"late"`
	Absent  int           `json:"absent"`
	Total   int           `json:"total"`
	Recent  []RecentEntry `json:"recent_records"`
}

// Ledger applies the attendance rules on top of a Repository:
// the first sighting of the day fixes status and arrival, later sightings
// can only raise the stored confidence.
type Ledger struct {
	repo  Repository
	names func(studentID string) string
	loc   *time.Location
	log   zerolog.Logger
}

// NewLedger creates a ledger. names may be nil; loc defaults to time.Local.
func NewLedger(repo Repository, names func(string) string, loc *time.Location, log zerolog.Logger) *Ledger {
	if loc == nil {
		loc = time.Local
	}
	return &Ledger{repo: repo, names: names, loc: loc, log: log}
}

// Location is the zone day keys are computed in.
func (l *Ledger) Location() *time.Location { return l.loc }

// Day returns the ledger day key of t.
func (l *Ledger) Day(t time.Time) string { return model.DayKey(t.In(l.loc)) }

// Record notes that studentID was recognized at now with the given confidence.
// Repeated calls for the same student and day are harmless.
func (l *Ledger) Record(ctx context.Context, w deadline.Window, studentID string, now time.Time, confidence float64) (Outcome, error) {
	if studentID == "" {
		return Outcome{}, errors.New("student id required")
	}
	arrival := now
	rec := model.AttendanceRecord{
		StudentID:  studentID,
		Day:        l.Day(now),
		Status:     w.Classify(now),
		ArrivalAt:  &arrival,
		Confidence: confidence,
	}
	stored, created, err := l.repo.Upsert(ctx, rec)
	if err != nil {
		return Outcome{}, fmt.Errorf("record attendance for %s: %w", studentID, err)
	}
	if created {
		l.log.Info().Str("student_id", studentID).Str("status", string(stored.Status)).
			Float64("confidence", stored.Confidence).Msg("attendance recorded")
	}
	return Outcome{Record: stored, Created: created}, nil
}

// CloseSession marks every student without a record on day as Absent.
// Calling it again for the same day changes nothing.
func (l *Ledger) CloseSession(ctx context.Context, day string, studentIDs []string) (int, error) {
	n, err := l.repo.InsertAbsent(ctx, day, studentIDs)
	if err != nil {
		return 0, fmt.Errorf("close session %s: %w", day, err)
	}
	l.log.Info().Str("day", day).Int("absent", n).Msg("session closed")
	return n, nil
}

// Status reports the counts of day and its latest arrivals. total is the roster size;
// students without a record count as absent.
func (l *Ledger) Status(ctx context.Context, day string, total, recent int) (Report, error) {
	c, err := l.repo.Counts(ctx, day)
	if err != nil {
		return Report{}, err
	}
	recs, err := l.repo.Recent(ctx, day, recent)
	if err != nil {
		return Report{}, err
	}

	absent := total - c.Present - c.Late
	if absent < 0 {
		absent = 0
	}
	rep := Report{
		Day:     day,
		Present: c.Present,
		Late:    c.Late,
		Absent:  absent,
		Total:   total,
		Recent:  make([]RecentEntry, 0, len(recs)),
	}
	for _, r := range recs {
		name := r.Name
		if name == "" && l.names != nil {
			name = l.names(r.StudentID)
		}
		rep.Recent = append(rep.Recent, RecentEntry{
			StudentID:  r.StudentID,
			Name:       name,
			Time:       r.ArrivalAt.In(l.loc).Format("15:04:05"),
			Status:     r.Status,
			Confidence: fmt.Sprintf("%.2f%%", r.Confidence*100),
		})
	}
	return rep, nil
}

// List passes through to the repository.
func (l *Ledger) List(ctx context.Context, f Filter) ([]model.AttendanceRecord, error) {
	return l.repo.List(ctx, f)
}

// Summarize totals the records matching f by status.
func (l *Ledger) Summarize(ctx context.Context, f Filter) (Counts, error) {
	return l.repo.Summarize(ctx, f)
}
