package dispatch

import (
	"sync/atomic"
	"time"
)

// ActivityTracker remembers when the last command was accepted.
type ActivityTracker struct {
	last atomic.Int64 // unix nanoseconds, 0 when nothing was accepted yet
}

func (a *ActivityTracker) Touch(t time.Time) { a.last.Store(t.UnixNano()) }

// Last returns the last activity time, if any.
func (a *ActivityTracker) Last() (time.Time, bool) {
	n := a.last.Load()
	if n == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, n), true
}
