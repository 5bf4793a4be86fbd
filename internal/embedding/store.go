package embedding

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Enrollment is one student's stored reference embeddings as handed over by the roster.
type Enrollment struct {
	StudentID   string
	DisplayName string
	Raw         []byte // JSON array of vectors
}

// ReloadStats summarizes a Reload.
type ReloadStats struct {
	Students   int
	References int
	Skipped    int
}

// index is immutable once published.
type index struct {
	vectors []Vector
	owners  []string
	names   map[string]string
	dim     int
}

// Store is the in-memory reference set searched for every detected face.
// Reload builds a complete index and swaps it in; readers always see a whole index.
type Store struct {
	metric Metric
	log    zerolog.Logger
	cur    atomic.Pointer[index]
}

// NewStore returns an empty store using the given metric.
func NewStore(metric Metric, log zerolog.Logger) *Store {
	s := &Store{metric: metric, log: log}
	s.cur.Store(&index{names: map[string]string{}})
	return s
}

func (s *Store) Metric() Metric { return s.metric }

// Reload replaces the whole index with the given roster. The index dimension is
// the most common embedding size among students that parse; ties go to the size
// seen first in roster order. A student whose stored embeddings fail to parse,
// or whose size differs from the index dimension, is skipped.
func (s *Store) Reload(entries []Enrollment) ReloadStats {
	next := &index{names: make(map[string]string, len(entries))}
	var stats ReloadStats

	parsed := make([][]Vector, len(entries))
	counts := make(map[int]int)
	var seen []int
	for i, e := range entries {
		vs, err := ParseVectors(e.Raw)
		if err != nil {
			stats.Skipped++
			s.log.Warn().Err(err).Str("student_id", e.StudentID).Msg("skipping student with malformed embeddings")
			continue
		}
		parsed[i] = vs
		d := len(vs[0])
		if counts[d] == 0 {
			seen = append(seen, d)
		}
		counts[d]++
	}
	for _, d := range seen {
		if counts[d] > counts[next.dim] {
			next.dim = d
		}
	}

	for i, e := range entries {
		vs := parsed[i]
		if vs == nil {
			continue
		}
		if len(vs[0]) != next.dim {
			stats.Skipped++
			s.log.Warn().Str("student_id", e.StudentID).Int("dims", len(vs[0])).Int("expected", next.dim).
				Msg("skipping student with mismatched embedding size")
			continue
		}
		for _, v := range vs {
			next.vectors = append(next.vectors, v)
			next.owners = append(next.owners, e.StudentID)
		}
		next.names[e.StudentID] = e.DisplayName
		stats.Students++
	}
	stats.References = len(next.vectors)

	s.cur.Store(next)
	s.log.Info().Int("students", stats.Students).Int("references", stats.References).
		Int("skipped", stats.Skipped).Int("dims", next.dim).Msg("reference embeddings reloaded")
	return stats
}

// Nearest scans every reference embedding and returns the owner of the closest one.
// Ties keep the earliest reference in store order, which follows roster order.
// An empty store returns ok=false with distance 0; that is not a score.
func (s *Store) Nearest(v Vector) (studentID string, distance float64, ok bool) {
	studentID, _, distance, ok = s.Lookup(v)
	return studentID, distance, ok
}

// Lookup is Nearest plus the owner's display name, read from the same index.
func (s *Store) Lookup(v Vector) (studentID, name string, distance float64, ok bool) {
	idx := s.cur.Load()
	if len(idx.vectors) == 0 {
		return "", "", 0.0, false
	}

	best := -1
	for i, ref := range idx.vectors {
		d := s.metric.Distance(v, ref)
		if best == -1 || d < distance {
			best, distance = i, d
		}
	}
	studentID = idx.owners[best]
	return studentID, idx.names[studentID], distance, true
}

// Dim is the embedding size of the live index, 0 when it is empty.
func (s *Store) Dim() int {
	return s.cur.Load().dim
}

// Has reports whether the student is in the live index.
func (s *Store) Has(studentID string) bool {
	_, ok := s.cur.Load().names[studentID]
	return ok
}

// Name returns the display name of an indexed student.
func (s *Store) Name(studentID string) string {
	return s.cur.Load().names[studentID]
}

// Len is the number of reference embeddings.
func (s *Store) Len() int {
	return len(s.cur.Load().vectors)
}

// Students is the number of indexed students.
func (s *Store) Students() int {
	return len(s.cur.Load().names)
}
