package attendance

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"faceattend/internal/deadline"
	"faceattend/internal/model"
)

func at(h, m, s int) time.Time {
	return time.Date(2024, 3, 4, h, m, s, 0, time.UTC)
}

var window = deadline.Window{Late: at(9, 15, 0), Final: at(9, 30, 0)}

func newLedger(repo Repository) *Ledger {
	return NewLedger(repo, func(id string) string { return "name-" + id }, time.UTC, zerolog.Nop())
}

// ledgerContract runs the ledger rules against any Repository.
func ledgerContract(t *testing.T, newRepo func(t *testing.T, students ...string) Repository) {
	ctx := context.Background()

	t.Run("first arrival wins, best confidence kept", func(t *testing.T) {
		l := newLedger(newRepo(t, "s1"))

		out, err := l.Record(ctx, window, "s1", at(9, 10, 0), 0.7)
		require.NoError(t, err)
		assert.True(t, out.Created)
		assert.Equal(t, model.StatusPresent, out.Record.Status)

		out, err = l.Record(ctx, window, "s1", at(9, 20, 0), 0.9)
		require.NoError(t, err)
		assert.False(t, out.Created)
		assert.Equal(t, model.StatusPresent, out.Record.Status)
		assert.True(t, out.Record.ArrivalAt.Equal(at(9, 10, 0)))
		assert.InDelta(t, 0.9, out.Record.Confidence, 1e-9)

		out, err = l.Record(ctx, window, "s1", at(9, 25, 0), 0.5)
		require.NoError(t, err)
		assert.InDelta(t, 0.9, out.Record.Confidence, 1e-9)
		assert.True(t, out.Record.ArrivalAt.Equal(at(9, 10, 0)))
	})

	t.Run("late boundary", func(t *testing.T) {
		l := newLedger(newRepo(t, "on-time", "late"))

		out, err := l.Record(ctx, window, "on-time", at(9, 15, 0), 0.8)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPresent, out.Record.Status)

		out, err = l.Record(ctx, window, "late", at(9, 15, 1), 0.8)
		require.NoError(t, err)
		assert.Equal(t, model.StatusLate, out.Record.Status)
	})

	t.Run("close session is idempotent", func(t *testing.T) {
		repo := newRepo(t, "seen", "missing")
		l := newLedger(repo)
		day := l.Day(at(9, 0, 0))

		_, err := l.Record(ctx, window, "seen", at(9, 5, 0), 0.8)
		require.NoError(t, err)

		n, err := l.CloseSession(ctx, day, []string{"seen", "missing"})
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		before, err := repo.List(ctx, Filter{From: day, To: day})
		require.NoError(t, err)

		n, err = l.CloseSession(ctx, day, []string{"seen", "missing"})
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		after, err := repo.List(ctx, Filter{From: day, To: day})
		require.NoError(t, err)
		assert.ElementsMatch(t, before, after)

		var absent *model.AttendanceRecord
		for i := range after {
			if after[i].StudentID == "missing" {
				absent = &after[i]
			}
		}
		require.NotNil(t, absent)
		assert.Equal(t, model.StatusAbsent, absent.Status)
		assert.Nil(t, absent.ArrivalAt)
		assert.Equal(t, 0.0, absent.Confidence)
	})

	t.Run("status report", func(t *testing.T) {
		l := newLedger(newRepo(t, "a", "b", "c"))
		_, err := l.Record(ctx, window, "a", at(9, 1, 0), 0.95)
		require.NoError(t, err)
		_, err = l.Record(ctx, window, "b", at(9, 20, 0), 0.8)
		require.NoError(t, err)

		rep, err := l.Status(ctx, "2024-03-04", 3, 10)
		require.NoError(t, err)
		assert.Equal(t, 1, rep.Present)
		assert.Equal(t, 1, rep.Late)
		assert.Equal(t, 1, rep.Absent)
		assert.Equal(t, 3, rep.Total)
		require.Len(t, rep.Recent, 2)
		assert.Equal(t, "b", rep.Recent[0].StudentID)
		assert.Equal(t, "09:20:00", rep.Recent[0].Time)
		assert.Equal(t, "80.00%", rep.Recent[0].Confidence)
		assert.NotEmpty(t, rep.Recent[0].Name)

		rep, err = l.Status(ctx, "2024-03-04", 3, 1)
		require.NoError(t, err)
		assert.Len(t, rep.Recent, 1)
	})

	t.Run("duplicate concurrent sightings", func(t *testing.T) {
		l := newLedger(newRepo(t, "s1"))
		var wg sync.WaitGroup
		created := make(chan bool, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				out, err := l.Record(ctx, window, "s1", at(9, 0, i), float64(i)/20)
				assert.NoError(t, err)
				created <- out.Created
			}(i)
		}
		wg.Wait()
		close(created)

		n := 0
		for c := range created {
			if c {
				n++
			}
		}
		assert.Equal(t, 1, n)

		recs, err := l.List(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.InDelta(t, 19.0/20, recs[0].Confidence, 1e-9)
	})

	t.Run("summarize covers the whole range", func(t *testing.T) {
		l := newLedger(newRepo(t, "a", "b", "c"))
		_, err := l.Record(ctx, window, "a", at(9, 0, 0), 0.9)
		require.NoError(t, err)
		_, err = l.Record(ctx, window, "b", at(9, 20, 0), 0.9)
		require.NoError(t, err)
		_, err = l.CloseSession(ctx, "2024-03-04", []string{"a", "b", "c"})
		require.NoError(t, err)
		_, err = l.CloseSession(ctx, "2024-03-05", []string{"a", "b", "c"})
		require.NoError(t, err)

		c, err := l.Summarize(ctx, Filter{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, Counts{Present: 1, Late: 1, Absent: 4}, c)

		c, err = l.Summarize(ctx, Filter{To: "2024-03-04"})
		require.NoError(t, err)
		assert.Equal(t, Counts{Present: 1, Late: 1, Absent: 1}, c)

		c, err = l.Summarize(ctx, Filter{From: "2024-03-06"})
		require.NoError(t, err)
		assert.Equal(t, Counts{}, c)
	})
}

func TestLedgerMemory(t *testing.T) {
	ledgerContract(t, func(t *testing.T, _ ...string) Repository { return NewMemoryRepository() })
}

func TestRecordRequiresStudent(t *testing.T) {
	_, err := newLedger(NewMemoryRepository()).Record(context.Background(), window, "", at(9, 0, 0), 1)
	assert.Error(t, err)
}

func TestDayUsesLedgerLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	l := NewLedger(NewMemoryRepository(), nil, loc, zerolog.Nop())
	assert.Equal(t, "2024-03-05", l.Day(time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)))
}
