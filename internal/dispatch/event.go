package dispatch

import (
	"time"

	"github.com/Rixmerz/MultiComputer/internal/types"
	"github.com/pion/logging"
)

// Event describes one finished dispatch.
type Event struct {
	ID       string        `json:"id"`
	Kind     types.Kind    `json:"kind"`
	Action   string        `json:"action"`
	OK       bool          `json:"ok"`
	Error    string        `json:"error,omitempty"`
	FastPath bool          `json:"fast_path"`
	Duration time.Duration `json:"duration_ns"`
	At       time.Time     `json:"at"`
}

// Hook observes dispatches. Hooks run synchronously on the dispatching
// goroutine, after the backend lock is released.
type Hook func(Event)

// LogHook logs failures at warn, fast-path actions at trace and everything
// else at debug.
func LogHook(log logging.LeveledLogger) Hook {
	return func(ev Event) {
		switch {
		case !ev.OK:
			log.Warnf("%s/%s failed after %s: %s", ev.Kind, ev.Action, ev.Duration, ev.Error)
		case ev.FastPath:
			log.Tracef("%s/%s in %s", ev.Kind, ev.Action, ev.Duration)
		default:
			log.Debugf("%s/%s in %s", ev.Kind, ev.Action, ev.Duration)
		}
	}
}
