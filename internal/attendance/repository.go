package attendance

import (
	"context"

	"faceattend/internal/model"
)

// Counts tallies records of one day by status.
type Counts struct {
	Present int `json:"present"`
	Late    int `json:"late"`
	Absent  int `json:"absent"`
}

// Filter narrows attendance listings. Empty fields match everything.
type Filter struct {
	From    string // inclusive day key
	To      string // inclusive day key
	Group   string
	Faculty string
	Limit   int
	Offset  int
}

// Repository persists attendance records. Upsert must be atomic per (student, day).
type Repository interface {
	// Upsert inserts rec unless a record for (rec.StudentID, rec.Day) exists. An existing
	// record keeps its status and arrival; its confidence is raised to rec.Confidence
	// only when that is strictly greater. It returns the stored row and whether it was created.
	Upsert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, bool, error)
	// InsertAbsent creates Absent rows for students without any record on day.
	InsertAbsent(ctx context.Context, day string, studentIDs []string) (int, error)
	Counts(ctx context.Context, day string) (Counts, error)
	// Recent returns records of day with an arrival, latest first.
	Recent(ctx context.Context, day string, limit int) ([]model.AttendanceRecord, error)
	List(ctx context.Context, f Filter) ([]model.AttendanceRecord, error)
	// Summarize counts all records matching f by status, ignoring Limit and Offset.
	Summarize(ctx context.Context, f Filter) (Counts, error)
}
