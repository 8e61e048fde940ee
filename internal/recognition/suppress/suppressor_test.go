package suppress_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/plateflow/plateflow-backend/internal/recognition/suppress"
	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func TestSuppressor_FirstObservationIsNeverDuplicate(t *testing.T) {
	s := suppress.New(5*time.Second, 100)

	obs := s.CheckAndRecord("品川 330 あ 12-34", t0)
	assert.False(t, obs.IsDuplicate)
	assert.Equal(t, 1, obs.OccurrenceCount)
}

func TestSuppressor_WithinWindowIsDuplicate(t *testing.T) {
	s := suppress.New(5*time.Second, 100)

	s.CheckAndRecord("plate-a", t0)

	tests := []struct {
		name string
		dt   time.Duration
	}{
		{"immediately after", 0},
		{"mid window", 2500 * time.Millisecond},
		{"just inside window", 4999 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obs := s.CheckAndRecord("plate-a", t0.Add(tt.dt))
			assert.True(t, obs.IsDuplicate)
			assert.Equal(t, 1, obs.OccurrenceCount)
		})
	}
}

func TestSuppressor_DuplicateDoesNotAdvanceLastSeen(t *testing.T) {
	s := suppress.New(5*time.Second, 100)

	s.CheckAndRecord("plate-a", t0)

	// Re-detections at 3s and 4s are duplicates of the ORIGINAL
	// sighting; they must not slide the window forward.
	assert.True(t, s.CheckAndRecord("plate-a", t0.Add(3*time.Second)).IsDuplicate)
	assert.True(t, s.CheckAndRecord("plate-a", t0.Add(4*time.Second)).IsDuplicate)

	// 5s after the first sighting the window has elapsed even though
	// the last duplicate arrived only 1s ago.
	obs := s.CheckAndRecord("plate-a", t0.Add(5*time.Second))
	assert.False(t, obs.IsDuplicate)
	assert.Equal(t, 2, obs.OccurrenceCount)
}

func TestSuppressor_AtWindowBoundaryIsNewOccurrence(t *testing.T) {
	s := suppress.New(5*time.Second, 100)

	s.CheckAndRecord("plate-a", t0)

	obs := s.CheckAndRecord("plate-a", t0.Add(5*time.Second))
	assert.False(t, obs.IsDuplicate)
	assert.Equal(t, 2, obs.OccurrenceCount)

	// The new occurrence advanced lastSeenAt, so the window restarts.
	assert.True(t, s.IsDuplicate("plate-a", t0.Add(6*time.Second)))
}

func TestSuppressor_IsDuplicateDoesNotMutate(t *testing.T) {
	s := suppress.New(5*time.Second, 100)

	assert.False(t, s.IsDuplicate("plate-a", t0), "unknown key")

	s.CheckAndRecord("plate-a", t0)
	for i := 0; i < 3; i++ {
		assert.True(t, s.IsDuplicate("plate-a", t0.Add(time.Second)))
	}

	obs := s.CheckAndRecord("plate-a", t0.Add(5*time.Second))
	assert.Equal(t, 2, obs.OccurrenceCount, "read-only checks must not count as occurrences")
}

func TestSuppressor_LRUEviction(t *testing.T) {
	s := suppress.New(time.Hour, 3)

	s.CheckAndRecord("plate-a", t0)
	s.CheckAndRecord("plate-b", t0.Add(time.Second))
	s.CheckAndRecord("plate-c", t0.Add(2*time.Second))

	// Touch plate-a beyond its window so it moves to most recently used.
	s.CheckAndRecord("plate-a", t0.Add(2*time.Hour))

	// Inserting a fourth key evicts the least recently used: plate-b.
	s.CheckAndRecord("plate-d", t0.Add(2*time.Hour))
	assert.Equal(t, 3, s.Size())

	obs := s.CheckAndRecord("plate-b", t0.Add(2*time.Hour))
	assert.False(t, obs.IsDuplicate)
	assert.Equal(t, 1, obs.OccurrenceCount, "evicted key starts over")
}

func TestSuppressor_Clear(t *testing.T) {
	s := suppress.New(5*time.Second, 100)

	s.CheckAndRecord("plate-a", t0)
	s.Clear()

	obs := s.CheckAndRecord("plate-a", t0.Add(time.Second))
	assert.False(t, obs.IsDuplicate)
	assert.Equal(t, 1, obs.OccurrenceCount, "cleared history treats keys as brand new")
}

func TestSuppressor_Cleanup(t *testing.T) {
	s := suppress.New(5*time.Second, 100)

	for i := 0; i < 4; i++ {
		s.CheckAndRecord(fmt.Sprintf("plate-%d", i), t0.Add(time.Duration(i)*2*time.Second))
	}

	// At t0+9s the plates seen at t0, t0+2s and t0+4s have aged out;
	// the one at t0+4s sits exactly at the 5s boundary, which counts
	// as out of the window.
	evicted := s.Cleanup(t0.Add(9 * time.Second))
	assert.Equal(t, 3, evicted)
	assert.Equal(t, 1, s.Size())

	obs := s.CheckAndRecord("plate-3", t0.Add(9*time.Second))
	assert.True(t, obs.IsDuplicate, "the surviving key is still tracked")
}
