package roster

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"faceattend/internal/embedding"
	"faceattend/internal/metrics"
	"faceattend/internal/model"
)

// DefaultMinReferences is how many embedded photos enrollment needs.
const DefaultMinReferences = 4

var ErrTooFewEmbeddings = errors.New("not enough reference embeddings")

// Service is the enrollment boundary: it validates what reaches the store and
// reloads the in-memory index after every roster change.
type Service struct {
	repo    *Repository
	store   *embedding.Store
	minRefs int
	log     zerolog.Logger
}

// NewService wires the repository to the embedding store.
func NewService(repo *Repository, store *embedding.Store, minRefs int, log zerolog.Logger) *Service {
	if minRefs <= 0 {
		minRefs = DefaultMinReferences
	}
	return &Service{repo: repo, store: store, minRefs: minRefs, log: log}
}

func (s *Service) Repository() *Repository { return s.repo }

// Enroll creates or re-enrolls a student. The embeddings replace any stored ones.
func (s *Service) Enroll(ctx context.Context, st model.Student, vectors []embedding.Vector) (model.Student, error) {
	if st.Name == "" {
		return model.Student{}, errors.New("student name required")
	}
	if len(vectors) < s.minRefs {
		return model.Student{}, fmt.Errorf("%w: got %d, need at least %d", ErrTooFewEmbeddings, len(vectors), s.minRefs)
	}
	if err := embedding.CheckVectors(vectors); err != nil {
		return model.Student{}, err
	}
	if err := s.checkIndexSize(st.ID, len(vectors[0])); err != nil {
		return model.Student{}, err
	}
	raw, err := embedding.EncodeVectors(vectors)
	if err != nil {
		return model.Student{}, err
	}
	saved, err := s.repo.SaveStudent(ctx, st, raw)
	if err != nil {
		return model.Student{}, err
	}
	if _, err := s.Reload(ctx); err != nil {
		return saved, err
	}
	return saved, nil
}

// checkIndexSize rejects embeddings of a size the live index would skip. The
// only student in the index may switch sizes since it replaces the whole index.
func (s *Service) checkIndexSize(id string, dims int) error {
	want := s.store.Dim()
	if want == 0 || dims == want {
		return nil
	}
	if id != "" && s.store.Students() == 1 && s.store.Has(id) {
		return nil
	}
	return fmt.Errorf("%w: embeddings have %d dims, enrolled roster uses %d", embedding.ErrMalformed, dims, want)
}

// Remove deletes a student and reloads the index.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.repo.DeleteStudent(ctx, id); err != nil {
		return err
	}
	_, err := s.Reload(ctx)
	return err
}

// Reload rebuilds the embedding index from the whole roster.
func (s *Service) Reload(ctx context.Context) (embedding.ReloadStats, error) {
	entries, err := s.repo.Enrollments(ctx)
	if err != nil {
		return embedding.ReloadStats{}, fmt.Errorf("load enrollments: %w", err)
	}
	stats := s.store.Reload(entries)
	metrics.ReferenceEmbeddings.Set(float64(stats.References))
	metrics.EnrolledStudents.Set(float64(stats.Students))
	metrics.ReloadSkipped.Add(float64(stats.Skipped))
	return stats, nil
}

// StudentIDs lists the whole roster, including students the index skipped.
func (s *Service) StudentIDs(ctx context.Context) ([]string, error) {
	return s.repo.StudentIDs(ctx)
}

// SaveSchedule validates and upserts a weekday schedule.
func (s *Service) SaveSchedule(ctx context.Context, sch model.Schedule) (model.Schedule, error) {
	if err := sch.Validate(); err != nil {
		return model.Schedule{}, err
	}
	saved, err := s.repo.SaveSchedule(ctx, sch)
	if err != nil {
		return model.Schedule{}, err
	}
	s.log.Info().Str("day", sch.Day.String()).Str("late", sch.Late.String()).Str("end", sch.End.String()).Msg("schedule saved")
	return saved, nil
}
