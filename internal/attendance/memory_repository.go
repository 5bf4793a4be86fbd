package attendance

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"faceattend/internal/model"
)

type recordKey struct {
	studentID string
	day       string
}

// MemoryRepository is a mutex-guarded Repository for dev/testing.
// It knows nothing about students, so group/faculty filters match nothing and names stay empty.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[recordKey]*model.AttendanceRecord
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[recordKey]*model.AttendanceRecord)}
}

func (r *MemoryRepository) Upsert(_ context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := recordKey{rec.StudentID, rec.Day}
	if cur, ok := r.records[k]; ok {
		if rec.Confidence > cur.Confidence {
			cur.Confidence = rec.Confidence
		}
		return *cur, false, nil
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	stored := rec
	r.records[k] = &stored
	return stored, true, nil
}

func (r *MemoryRepository) InsertAbsent(_ context.Context, day string, studentIDs []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := 0
	for _, id := range studentIDs {
		k := recordKey{id, day}
		if _, ok := r.records[k]; ok {
			continue
		}
		r.records[k] = &model.AttendanceRecord{
			ID:        uuid.NewString(),
			StudentID: id,
			Day:       day,
			Status:    model.StatusAbsent,
		}
		created++
	}
	return created, nil
}

func (r *MemoryRepository) Counts(_ context.Context, day string) (Counts, error) {
	var c Counts
	for _, rec := range r.snapshot() {
		if rec.Day == day {
			c.add(rec.Status)
		}
	}
	return c, nil
}

// Summarize has no student table to join, so group and faculty filters match nothing.
func (r *MemoryRepository) Summarize(_ context.Context, f Filter) (Counts, error) {
	var c Counts
	if f.Group != "" || f.Faculty != "" {
		return c, nil
	}
	for _, rec := range r.snapshot() {
		if inRange(f, rec.Day) {
			c.add(rec.Status)
		}
	}
	return c, nil
}

func (c *Counts) add(s model.Status) {
	switch s {
	case model.StatusPresent:
		c.Present++
	case model.StatusLate:
		c.Late++
	case model.StatusAbsent:
		c.Absent++
	}
}

func inRange(f Filter, day string) bool {
	return (f.From == "" || day >= f.From) && (f.To == "" || day <= f.To)
}

func (r *MemoryRepository) Recent(_ context.Context, day string, limit int) ([]model.AttendanceRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []model.AttendanceRecord
	for _, rec := range r.snapshot() {
		if rec.Day == day && rec.ArrivalAt != nil {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArrivalAt.After(*out[j].ArrivalAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) List(_ context.Context, f Filter) ([]model.AttendanceRecord, error) {
	if f.Group != "" || f.Faculty != "" {
		return nil, nil
	}
	var out []model.AttendanceRecord
	for _, rec := range r.snapshot() {
		if inRange(f, rec.Day) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Day != out[j].Day {
			return out[i].Day > out[j].Day
		}
		return out[i].StudentID < out[j].StudentID
	})
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *MemoryRepository) snapshot() []model.AttendanceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AttendanceRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	return out
}
