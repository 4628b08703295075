// ABOUTME: Structured logging wrapper shared by every package
// ABOUTME: Mirrors the teacher's bracketed component-tag convention (e.g. "[MEMORY]") via charmbracelet/log fields
package logging

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger wraps a charmbracelet/log logger scoped to one component.
type Logger struct {
	l *log.Logger
}

var base = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	TimeFormat:      "15:04:05",
})

// For returns a component-scoped logger, e.g. logging.For("hsg").
func For(component string) *Logger {
	return &Logger{l: base.With("component", component)}
}

// SetLevel adjusts the process-wide log verbosity.
func SetLevel(level log.Level) {
	base.SetLevel(level)
}

func (lg *Logger) WithUser(userID string) *Logger {
	return &Logger{l: lg.l.With("user_id", userID)}
}

func (lg *Logger) WithOp(op string) *Logger {
	return &Logger{l: lg.l.With("op", op)}
}

func (lg *Logger) Debug(msg string, kv ...any) { lg.l.Debug(msg, kv...) }
func (lg *Logger) Info(msg string, kv ...any)  { lg.l.Info(msg, kv...) }
func (lg *Logger) Warn(msg string, kv ...any)  { lg.l.Warn(msg, kv...) }
func (lg *Logger) Error(msg string, kv ...any) { lg.l.Error(msg, kv...) }
