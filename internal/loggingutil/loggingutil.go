// Package loggingutil provides small pslog helpers shared by the SDK and CLI.
package loggingutil

import (
	"io"
	"sync"

	"pkt.systems/pslog"
)

var (
	noBaseOnce sync.Once
	noBase     pslog.Base
)

// NoopBase returns a disabled pslog.Base that discards all entries.
func NoopBase() pslog.Base {
	noBaseOnce.Do(func() {
		noBase = pslog.NewBaseLoggerWithOptions(io.Discard, pslog.Options{
			Mode:     pslog.ModeStructured,
			MinLevel: pslog.Disabled,
		})
	})
	return noBase
}

// EnsureBase returns b when non-nil, otherwise a disabled logger.
func EnsureBase(b pslog.Base) pslog.Base {
	if b != nil {
		return b
	}
	return NoopBase()
}

type subsystemBase struct {
	base      pslog.Base
	subsystem string
}

// WithSubsystem returns a logger that attaches the given subsystem path to
// every entry.
func WithSubsystem(base pslog.Base, subsystem string) pslog.Base {
	if subsystem == "" {
		return EnsureBase(base)
	}
	if existing, ok := base.(*subsystemBase); ok {
		base = existing.base
	}
	return &subsystemBase{base: EnsureBase(base), subsystem: subsystem}
}

func (l *subsystemBase) merged(keyvals []any) []any {
	out := make([]any, 0, len(keyvals)+2)
	out = append(out, "subsystem", l.subsystem)
	return append(out, keyvals...)
}

func (l *subsystemBase) Trace(msg string, keyvals ...any) {
	l.base.Trace(msg, l.merged(keyvals)...)
}

func (l *subsystemBase) Debug(msg string, keyvals ...any) {
	l.base.Debug(msg, l.merged(keyvals)...)
}

func (l *subsystemBase) Info(msg string, keyvals ...any) {
	l.base.Info(msg, l.merged(keyvals)...)
}

func (l *subsystemBase) Warn(msg string, keyvals ...any) {
	l.base.Warn(msg, l.merged(keyvals)...)
}

func (l *subsystemBase) Error(msg string, keyvals ...any) {
	l.base.Error(msg, l.merged(keyvals)...)
}
