// Package logging builds the leveled loggers every component logs through.
// The same factory feeds pion/webrtc so its output matches ours.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pion/logging"
)

// Level parses a level name; unknown names mean info.
func Level(name string) logging.LogLevel {
	switch strings.ToLower(name) {
	case "error":
		return logging.LogLevelError
	case "warn":
		return logging.LogLevelWarn
	case "debug":
		return logging.LogLevelDebug
	case "trace":
		return logging.LogLevelTrace
	default:
		return logging.LogLevelInfo
	}
}

// NewFactory returns a factory writing to w (stderr when nil). debug raises
// the level to at least debug.
func NewFactory(level string, debug bool, w io.Writer) *logging.DefaultLoggerFactory {
	if w == nil {
		w = os.Stderr
	}
	lvl := Level(level)
	if debug && lvl < logging.LogLevelDebug {
		lvl = logging.LogLevelDebug
	}
	f := logging.NewDefaultLoggerFactory()
	f.Writer = w
	f.DefaultLogLevel = lvl
	return f
}
