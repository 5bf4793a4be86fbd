package embedding

import (
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enrollment(id string, raw string) Enrollment {
	return Enrollment{StudentID: id, DisplayName: "Student " + id, Raw: []byte(raw)}
}

func TestParseVectors(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `[[1,2,3],[4,5,6]]`, false},
		{"not json", `[[1,2`, true},
		{"empty list", `[]`, true},
		{"empty vector", `[[]]`, true},
		{"ragged", `[[1,2,3],[1,2]]`, true},
		{"strings", `[["a","b"]]`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs, err := ParseVectors([]byte(tt.raw))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformed)
				return
			}
			require.NoError(t, err)
			assert.Len(t, vs, 2)
		})
	}
}

func TestStoreEmpty(t *testing.T) {
	s := NewStore(Cosine, zerolog.Nop())

	id, dist, ok := s.Nearest(Vector{1, 0, 0})
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Equal(t, 0.0, dist)
}

func TestStoreNearest(t *testing.T) {
	s := NewStore(Cosine, zerolog.Nop())
	stats := s.Reload([]Enrollment{
		enrollment("a", `[[1,0,0],[0.9,0.1,0]]`),
		enrollment("b", `[[0,1,0]]`),
	})
	assert.Equal(t, ReloadStats{Students: 2, References: 3}, stats)
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 2, s.Students())
	assert.Equal(t, "Student b", s.Name("b"))

	id, dist, ok := s.Nearest(Vector{0, 2, 0})
	require.True(t, ok)
	assert.Equal(t, "b", id)
	assert.InDelta(t, 0, dist, 1e-9)

	id, _, ok = s.Nearest(Vector{1, 0.05, 0})
	require.True(t, ok)
	assert.Equal(t, "a", id)
}

func TestStoreTieKeepsFirstInOrder(t *testing.T) {
	s := NewStore(Cosine, zerolog.Nop())
	s.Reload([]Enrollment{
		enrollment("first", `[[1,0]]`),
		enrollment("second", `[[1,0]]`),
	})

	id, dist, ok := s.Nearest(Vector{1, 0})
	require.True(t, ok)
	assert.Equal(t, "first", id)
	assert.InDelta(t, 0, dist, 1e-9)
}

func TestStoreReloadSkipsMalformed(t *testing.T) {
	s := NewStore(Euclidean, zerolog.Nop())
	stats := s.Reload([]Enrollment{
		enrollment("broken", `not-json`),
		enrollment("ok", `[[1,1]]`),
		enrollment("wrong-dims", `[[1,1,1]]`),
		enrollment("empty", `[]`),
	})
	assert.Equal(t, ReloadStats{Students: 1, References: 1, Skipped: 3}, stats)

	id, dist, ok := s.Nearest(Vector{1, 1})
	require.True(t, ok)
	assert.Equal(t, "ok", id)
	assert.Equal(t, 0.0, dist)
}

func TestStoreReloadPicksMostCommonSize(t *testing.T) {
	s := NewStore(Cosine, zerolog.Nop())
	stats := s.Reload([]Enrollment{
		enrollment("other-model", `[[1,0,0]]`),
		enrollment("a", `[[1,0]]`),
		enrollment("b", `[[0,1]]`),
		enrollment("c", `[[-1,0]]`),
	})
	assert.Equal(t, ReloadStats{Students: 3, References: 3, Skipped: 1}, stats)
	assert.Equal(t, 2, s.Dim())
	assert.False(t, s.Has("other-model"))

	id, dist, ok := s.Nearest(Vector{0, 1})
	require.True(t, ok)
	assert.Equal(t, "b", id)
	assert.InDelta(t, 0, dist, 1e-9)
}

func TestStoreReloadSizeTieKeepsFirstSeen(t *testing.T) {
	s := NewStore(Cosine, zerolog.Nop())
	s.Reload([]Enrollment{
		enrollment("x3", `[[1,0,0]]`),
		enrollment("y2", `[[1,0]]`),
		enrollment("z2", `[[0,1]]`),
		enrollment("w3", `[[0,1,0]]`),
	})
	assert.Equal(t, 3, s.Dim())
	assert.True(t, s.Has("x3"))
	assert.True(t, s.Has("w3"))
	assert.False(t, s.Has("y2"))
}

func TestStoreLookupReturnsName(t *testing.T) {
	s := NewStore(Cosine, zerolog.Nop())
	_, name, _, ok := s.Lookup(Vector{1, 0})
	assert.False(t, ok)
	assert.Empty(t, name)
	assert.Equal(t, 0, s.Dim())

	s.Reload([]Enrollment{enrollment("a", `[[1,0]]`), enrollment("b", `[[0,1]]`)})
	id, name, dist, ok := s.Lookup(Vector{0, 3})
	require.True(t, ok)
	assert.Equal(t, "b", id)
	assert.Equal(t, "Student b", name)
	assert.InDelta(t, 0, dist, 1e-9)
}

func TestStoreReloadReplacesWholesale(t *testing.T) {
	s := NewStore(Cosine, zerolog.Nop())
	s.Reload([]Enrollment{enrollment("old", `[[1,0]]`)})
	s.Reload([]Enrollment{enrollment("new", `[[0,1]]`)})

	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.Name("old"))
	id, _, ok := s.Nearest(Vector{1, 0})
	require.True(t, ok)
	assert.Equal(t, "new", id)

	s.Reload(nil)
	_, _, ok = s.Nearest(Vector{1, 0})
	assert.False(t, ok)
}

func TestStoreConcurrentReloadAndNearest(t *testing.T) {
	s := NewStore(Cosine, zerolog.Nop())
	a := []Enrollment{enrollment("a", `[[1,0],[1,0.1]]`)}
	b := []Enrollment{enrollment("b", `[[1,0],[1,0.1]]`)}
	s.Reload(a)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				s.Reload(b)
			} else {
				s.Reload(a)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			id, name, _, ok := s.Lookup(Vector{1, 0})
			assert.True(t, ok)
			assert.Contains(t, []string{"a", "b"}, id)
			assert.Equal(t, "Student "+id, name)
		}
	}()
	wg.Wait()
}
