// Package cache implements the bounded cacheline store: a
// fixed-capacity array mapping a prior scan to a prior location, with
// expiry and an insertion policy. The similarity scoring itself (Wi-Fi
// Jaccard, exact cell match) is plugin-specific and lives in
// pkg/plugin; this package only owns the array, expiry, and the
// generic oldest-slot / clear / write primitives every plugin shares.
package cache

import (
	"time"

	"github.com/skyloc/embedded-client/pkg/beacon"
	"github.com/skyloc/embedded-client/pkg/location"
)

// Size is the compile-time CACHE_SIZE. Unlike the dynamic config
// parameters, the number of cachelines is fixed at build time because it
// sizes the session's serialized state buffer.
const Size = 5

// Line is one cacheline: a snapshot of a prior scan plus its resolved
// location.
type Line struct {
	NumBeacons int
	NumAP      int
	Time       time.Time // zero value is CACHE_EMPTY
	Beacons    []*beacon.Beacon
	GNSS       beacon.GNSS
	Loc        location.Location
}

// Empty reports whether this slot holds no scan.
func (l Line) Empty() bool {
	return l.Time.IsZero()
}

// HasCell reports whether any beacon in the line is a cellular beacon.
func (l Line) HasCell() bool {
	for _, b := range l.Beacons {
		if b.Header.Type.IsCell() {
			return true
		}
	}
	return false
}

// Store is the session-owned, fixed-size array of cachelines.
type Store struct {
	Lines []Line
}

// NewStore allocates a Store with Size empty lines.
func NewStore() *Store {
	return &Store{Lines: make([]Line, Size)}
}

// ExpireOlderThan zeroes any line whose age exceeds maxAgeHours. A zero
// maxAgeHours or zero `now` (no usable clock) disables expiry, matching
// legacy-mode tolerance.
func (s *Store) ExpireOlderThan(now time.Time, maxAgeHours uint32) {
	if now.IsZero() || maxAgeHours == 0 {
		return
	}
	threshold := time.Duration(maxAgeHours) * time.Hour
	for i := range s.Lines {
		l := &s.Lines[i]
		if l.Empty() {
			continue
		}
		if now.Sub(l.Time) > threshold {
			*l = Line{}
		}
	}
}

// OldestIndex returns an empty slot if one exists, else the index of
// the line with the smallest Time: the insertion policy writes into
// save_to if set, else into the oldest cacheline.
func (s *Store) OldestIndex() int {
	oldest := 0
	oldestTime := time.Time{}
	for i, l := range s.Lines {
		if l.Empty() {
			return i
		}
		if oldestTime.IsZero() || l.Time.Before(oldestTime) {
			oldest = i
			oldestTime = l.Time
		}
	}
	return oldest
}

// Put writes line into slot idx.
func (s *Store) Put(idx int, line Line) {
	s.Lines[idx] = line
}

// Clear zeroes slot idx, removing it from future matching. Used when a
// decoded location's status is not SUCCESS: clear that cacheline
// instead of writing to it, since failures are never cached.
func (s *Store) Clear(idx int) {
	s.Lines[idx] = Line{}
}

// Len returns the number of slots (always Size, exposed for readability
// at call sites that loop by index).
func (s *Store) Len() int {
	return len(s.Lines)
}
