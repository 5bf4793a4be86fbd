package roster

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceattend/internal/embedding"
	"faceattend/internal/model"
	"faceattend/internal/store"
)

func newService(t *testing.T) (*Service, *embedding.Store) {
	t.Helper()
	db, err := store.NewDB(context.Background(), store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	es := embedding.NewStore(embedding.Cosine, zerolog.Nop())
	return NewService(NewRepository(db.Client), es, 2, zerolog.Nop()), es
}

func vectors(vs ...embedding.Vector) []embedding.Vector { return vs }

func TestEnrollReloadsStore(t *testing.T) {
	ctx := context.Background()
	svc, es := newService(t)

	st, err := svc.Enroll(ctx, model.Student{Name: "Ann", Surname: "Lee", Group: "G1"},
		vectors(embedding.Vector{1, 0}, embedding.Vector{0.9, 0.1}))
	require.NoError(t, err)
	assert.NotEmpty(t, st.ID)
	assert.Equal(t, 2, es.Len())
	assert.Equal(t, "Ann Lee", es.Name(st.ID))

	// Re-enrollment replaces the embeddings wholesale.
	_, err = svc.Enroll(ctx, model.Student{ID: st.ID, Name: "Ann", Surname: "Lee"},
		vectors(embedding.Vector{0, 1}, embedding.Vector{0, 1}, embedding.Vector{0.1, 1}))
	require.NoError(t, err)
	assert.Equal(t, 3, es.Len())

	got, err := svc.Repository().GetStudent(ctx, st.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.Name)

	require.NoError(t, svc.Remove(ctx, st.ID))
	assert.Equal(t, 0, es.Len())
	assert.ErrorIs(t, svc.Remove(ctx, st.ID), ErrNotFound)
}

func TestEnrollRejects(t *testing.T) {
	ctx := context.Background()
	svc, es := newService(t)

	_, err := svc.Enroll(ctx, model.Student{Name: "Ann"}, vectors(embedding.Vector{1, 0}))
	assert.ErrorIs(t, err, ErrTooFewEmbeddings)

	_, err = svc.Enroll(ctx, model.Student{Name: "Ann"}, vectors(embedding.Vector{1, 0}, embedding.Vector{1}))
	assert.ErrorIs(t, err, embedding.ErrMalformed)

	_, err = svc.Enroll(ctx, model.Student{}, vectors(embedding.Vector{1, 0}, embedding.Vector{1, 0}))
	assert.Error(t, err)

	assert.Equal(t, 0, es.Len())
}

func TestEnrollRejectsSizeOutsideIndex(t *testing.T) {
	ctx := context.Background()
	svc, es := newService(t)

	first, err := svc.Enroll(ctx, model.Student{Name: "First"}, vectors(embedding.Vector{1, 0}, embedding.Vector{1, 0.1}))
	require.NoError(t, err)

	// The sole indexed student may move to another model.
	_, err = svc.Enroll(ctx, model.Student{ID: first.ID, Name: "First"},
		vectors(embedding.Vector{1, 0, 0}, embedding.Vector{1, 0.1, 0}))
	require.NoError(t, err)
	assert.Equal(t, 3, es.Dim())

	second, err := svc.Enroll(ctx, model.Student{Name: "Second"}, vectors(embedding.Vector{0, 1, 0}, embedding.Vector{0, 1, 0.1}))
	require.NoError(t, err)

	// Once others are indexed, re-enrolling the earliest student with another size is refused.
	_, err = svc.Enroll(ctx, model.Student{ID: first.ID, Name: "First"}, vectors(embedding.Vector{1, 0}, embedding.Vector{1, 0.1}))
	assert.ErrorIs(t, err, embedding.ErrMalformed)
	_, err = svc.Enroll(ctx, model.Student{Name: "Third"}, vectors(embedding.Vector{1, 0}, embedding.Vector{1, 0.1}))
	assert.ErrorIs(t, err, embedding.ErrMalformed)

	assert.Equal(t, 2, es.Students())
	id, _, ok := es.Nearest(embedding.Vector{0, 1, 0})
	require.True(t, ok)
	assert.Equal(t, second.ID, id)
	ids, err := svc.StudentIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestReloadSkipsCorruptRow(t *testing.T) {
	ctx := context.Background()
	svc, es := newService(t)

	good, err := svc.Enroll(ctx, model.Student{Name: "Good"}, vectors(embedding.Vector{1, 0}, embedding.Vector{1, 0}))
	require.NoError(t, err)
	_, err = svc.Repository().SaveStudent(ctx, model.Student{Name: "Corrupt"}, []byte(`{broken`))
	require.NoError(t, err)

	stats, err := svc.Reload(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Students)
	assert.Equal(t, 1, stats.Skipped)

	id, _, ok := es.Nearest(embedding.Vector{1, 0})
	require.True(t, ok)
	assert.Equal(t, good.ID, id)

	ids, err := svc.StudentIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)
}

func TestSchedules(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	repo := svc.Repository()

	mon := model.Schedule{
		Day:   time.Monday,
		Start: model.TimeOfDay{Hour: 9},
		Late:  model.TimeOfDay{Hour: 9, Minute: 15},
		End:   model.TimeOfDay{Hour: 9, Minute: 30},
	}
	saved, err := svc.SaveSchedule(ctx, mon)
	require.NoError(t, err)

	// A second schedule for the same weekday updates the first.
	mon.End = model.TimeOfDay{Hour: 10}
	again, err := svc.SaveSchedule(ctx, mon)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)

	got, err := repo.ScheduleForDay(ctx, time.Monday)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.TimeOfDay{Hour: 10}, got.End)

	none, err := repo.ScheduleForDay(ctx, time.Tuesday)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = svc.SaveSchedule(ctx, model.Schedule{Day: time.Friday, Start: mon.End, Late: mon.Late, End: mon.Start})
	assert.ErrorIs(t, err, model.ErrInvalidSchedule)

	require.NoError(t, repo.DeleteSchedule(ctx, time.Monday))
	assert.ErrorIs(t, repo.DeleteSchedule(ctx, time.Monday), ErrNotFound)
}

func TestImportSchedules(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	saved, err := svc.ImportSchedules(ctx, strings.NewReader(`
schedules:
  - day: Monday
    start: "09:00"
    late: "09:15"
    end: "09:30"
  - day: fri
    start: "08:00"
    late: "08:10"
    end: "08:45"
`))
	require.NoError(t, err)
	require.Len(t, saved, 2)

	list, err := svc.Repository().ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, time.Monday, list[0].Day)
	assert.Equal(t, time.Friday, list[1].Day)
}

func TestParseSchedulesErrors(t *testing.T) {
	for name, doc := range map[string]string{
		"bad day":   "schedules:\n  - {day: Someday, start: '09:00', late: '09:10', end: '09:20'}\n",
		"bad time":  "schedules:\n  - {day: Monday, start: '9', late: '09:10', end: '09:20'}\n",
		"order":     "schedules:\n  - {day: Monday, start: '09:30', late: '09:10', end: '09:20'}\n",
		"duplicate": "schedules:\n  - {day: Monday, start: '09:00', late: '09:10', end: '09:20'}\n  - {day: monday, start: '09:00', late: '09:10', end: '09:20'}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseSchedules(strings.NewReader(doc))
			assert.Error(t, err)
		})
	}
}
