// Package suppress prevents the same recognized plate from re-triggering
// downstream action during continuous capture. Suppression is keyed by
// plate text and windowed by time; it is independent of whether the
// underlying network call was served from cache.
package suppress

import (
	"container/list"
	"sync"
	"time"
)

// Defaults for the duplicate suppressor.
const (
	DefaultDuration = 5 * time.Second
	DefaultMaxKeys  = 100
)

type record struct {
	plateKey        string
	lastSeenAt      time.Time
	occurrenceCount int
}

// Observation is the outcome of recording a plate sighting.
type Observation struct {
	IsDuplicate     bool `json:"is_duplicate"`
	OccurrenceCount int  `json:"occurrence_count"`
}

// Suppressor tracks recently seen plate keys. History is bounded: once
// at capacity the least-recently-used key is evicted before a new key
// is inserted (LRU by access, unlike the cache's FIFO eviction).
type Suppressor struct {
	mu       sync.Mutex
	order    *list.List               // front = most recently used
	elements map[string]*list.Element // plateKey -> *record element
	duration time.Duration
	maxKeys  int
}

// New creates a suppressor. Non-positive arguments fall back to defaults.
func New(duration time.Duration, maxKeys int) *Suppressor {
	if duration <= 0 {
		duration = DefaultDuration
	}
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &Suppressor{
		order:    list.New(),
		elements: make(map[string]*list.Element),
		duration: duration,
		maxKeys:  maxKeys,
	}
}

// CheckAndRecord observes a plate sighting at the given time.
// The first sighting of a key is never a duplicate. A sighting within
// the suppression window of the last-seen time is a duplicate and does
// NOT advance lastSeenAt, so a continuously re-detected plate is
// surfaced once per window, not once per capture gap. A sighting at or
// beyond the window is a new occurrence: the count increments,
// lastSeenAt advances, and the key moves to most-recently-used.
func (s *Suppressor) CheckAndRecord(plateKey string, now time.Time) Observation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.elements[plateKey]; ok {
		rec := el.Value.(*record)
		if now.Sub(rec.lastSeenAt) < s.duration {
			return Observation{IsDuplicate: true, OccurrenceCount: rec.occurrenceCount}
		}
		rec.lastSeenAt = now
		rec.occurrenceCount++
		s.order.MoveToFront(el)
		return Observation{IsDuplicate: false, OccurrenceCount: rec.occurrenceCount}
	}

	if len(s.elements) >= s.maxKeys {
		s.evictLRULocked()
	}

	rec := &record{plateKey: plateKey, lastSeenAt: now, occurrenceCount: 1}
	s.elements[plateKey] = s.order.PushFront(rec)
	return Observation{IsDuplicate: false, OccurrenceCount: 1}
}

// IsDuplicate reports whether a sighting at the given time would be
// suppressed, without mutating history.
func (s *Suppressor) IsDuplicate(plateKey string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.elements[plateKey]
	if !ok {
		return false
	}
	return now.Sub(el.Value.(*record).lastSeenAt) < s.duration
}

// Clear resets all history. Previously seen keys are treated as brand
// new afterwards.
func (s *Suppressor) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order.Init()
	s.elements = make(map[string]*list.Element)
}

// Cleanup removes keys whose last sighting fell out of the suppression
// window and returns the number evicted.
func (s *Suppressor) Cleanup(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for el := s.order.Back(); el != nil; {
		prev := el.Prev()
		rec := el.Value.(*record)
		if now.Sub(rec.lastSeenAt) >= s.duration {
			s.order.Remove(el)
			delete(s.elements, rec.plateKey)
			evicted++
		}
		el = prev
	}
	return evicted
}

// Size returns the number of tracked keys.
func (s *Suppressor) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.elements)
}

func (s *Suppressor) evictLRULocked() {
	back := s.order.Back()
	if back == nil {
		return
	}
	s.order.Remove(back)
	delete(s.elements, back.Value.(*record).plateKey)
}
