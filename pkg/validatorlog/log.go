// Package validatorlog provides the validator's process-wide structured
// logger. Every host callback, test case, and runner stage logs through the
// single instance returned by L(), matching the original implementation's
// process-global trace/log writer (see SPEC_FULL.md's DESIGN NOTES section on
// global state).
package validatorlog

import (
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	once     sync.Once
	instance *log.Logger
)

// L returns the process-wide logger, creating it on first use. The default
// level is Warn; Configure can raise it for --verbosity flags.
func L() *log.Logger {
	once.Do(func() {
		instance = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Level:           log.WarnLevel,
			Prefix:          "clap-validator",
		})
	})
	return instance
}

// Configure adjusts the logger's verbosity and destination. It is called
// once from cmd/clap-validator after flag parsing.
func Configure(level log.Level, w io.Writer) {
	l := L()
	l.SetLevel(level)
	if w != nil {
		l.SetOutput(w)
	}
}

// Silence redirects the logger to io.Discard, keeping its current level.
func Silence() {
	Configure(L().GetLevel(), io.Discard)
}

// WithPrefix returns a child logger scoped to a subsystem, e.g.
// validatorlog.WithPrefix("host-callbacks").
func WithPrefix(prefix string) *log.Logger {
	return L().WithPrefix(prefix)
}
