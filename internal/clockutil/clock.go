// Package clockutil adapts clockwork.Clock to the core's time-source
// callback shape (Sky_timefn_t: "returns zero" means "no usable
// clock"), so tests can freeze time deterministically instead of
// stubbing a raw function pointer.
package clockutil

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// TimeFunc matches the core's time-source callback: returns the current
// time, or the zero Time when no usable clock is available.
type TimeFunc func() time.Time

// FromClockwork adapts a clockwork.Clock into a TimeFunc.
func FromClockwork(c clockwork.Clock) TimeFunc {
	return func() time.Time { return c.Now() }
}

// Real returns a TimeFunc backed by the real wall clock.
func Real() TimeFunc {
	return FromClockwork(clockwork.NewRealClock())
}

// Unavailable always reports no usable clock, for exercising the
// BAD_TIME / legacy-mode-tolerates-zero-time paths.
func Unavailable() TimeFunc {
	return func() time.Time { return time.Time{} }
}
