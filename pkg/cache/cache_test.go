package cache

import (
	"testing"
	"time"
)

func TestNewStoreAllEmpty(t *testing.T) {
	s := NewStore()
	if s.Len() != Size {
		t.Fatalf("Len() = %d, want %d", s.Len(), Size)
	}
	for i, l := range s.Lines {
		if !l.Empty() {
			t.Errorf("line %d should start empty", i)
		}
	}
}

func TestOldestIndexPrefersEmptySlot(t *testing.T) {
	s := NewStore()
	now := time.Unix(1700000000, 0)
	s.Put(0, Line{Time: now})
	if got := s.OldestIndex(); got == 0 {
		t.Errorf("OldestIndex should prefer an empty slot over a populated one, got %d", got)
	}
}

func TestOldestIndexPicksSmallestTime(t *testing.T) {
	s := NewStore()
	base := time.Unix(1700000000, 0)
	for i := range s.Lines {
		s.Put(i, Line{Time: base.Add(time.Duration(i) * time.Hour)})
	}
	if got := s.OldestIndex(); got != 0 {
		t.Errorf("OldestIndex() = %d, want 0 (earliest time)", got)
	}
}

func TestClearEmpties(t *testing.T) {
	s := NewStore()
	s.Put(2, Line{Time: time.Unix(1700000000, 0)})
	s.Clear(2)
	if !s.Lines[2].Empty() {
		t.Error("Clear should reset the line to empty")
	}
}

func TestExpireOlderThan(t *testing.T) {
	s := NewStore()
	now := time.Unix(1700000000, 0)
	s.Put(0, Line{Time: now.Add(-48 * time.Hour)}) // stale
	s.Put(1, Line{Time: now.Add(-1 * time.Hour)})  // fresh

	s.ExpireOlderThan(now, 24)

	if !s.Lines[0].Empty() {
		t.Error("line older than the threshold should be expired")
	}
	if s.Lines[1].Empty() {
		t.Error("line within the threshold should survive")
	}
}

func TestExpireDisabledWhenNoClockOrThreshold(t *testing.T) {
	s := NewStore()
	s.Put(0, Line{Time: time.Unix(1, 0)})

	s.ExpireOlderThan(time.Time{}, 24)
	if s.Lines[0].Empty() {
		t.Error("expiry must be disabled when now is the zero time")
	}

	s.ExpireOlderThan(time.Unix(2000000000, 0), 0)
	if s.Lines[0].Empty() {
		t.Error("expiry must be disabled when maxAgeHours is zero")
	}
}
