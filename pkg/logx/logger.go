// Package logx provides the structured logger used by every nectard
// worker: a thin wrapper over logrus that tags every entry with the
// owning component and accepts either variadic key/value pairs or a
// single fields map, matching the call sites used throughout the
// pipeline.
package logx

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Logger with a fixed "component" field.
type Logger struct {
	entry *logrus.Entry
}

// NewLogger creates a Logger at the given level (debug|info|warn|error|
// trace; unrecognized values fall back to info) tagged with component.
func NewLogger(level, component string) *Logger {
	base := logrus.New()
	base.SetOutput(os.Stderr)
	base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	base.SetLevel(parseLevel(level))

	return &Logger{entry: base.WithField("component", component)}
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// SetLevel overrides the logger's level at runtime (CLI --log-level).
func (l *Logger) SetLevel(level string) {
	l.entry.Logger.SetLevel(parseLevel(level))
}

// WithComponent returns a child logger tagged with an additional
// component suffix, used by sub-workers (e.g. the DCI fetcher thread).
func (l *Logger) WithComponent(sub string) *Logger {
	return &Logger{entry: l.entry.WithField("subcomponent", sub)}
}

func (l *Logger) fields(kv []interface{}) logrus.Fields {
	if len(kv) == 1 {
		if m, ok := kv[0].(map[string]interface{}); ok {
			return logrus.Fields(m)
		}
	}
	f := make(logrus.Fields, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		f[key] = kv[i+1]
	}
	return f
}

// Debug logs at debug level. kv is either alternating key/value pairs
// or a single map[string]interface{}.
func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.entry.WithFields(l.fields(kv)).Debug(msg)
}

// Info logs at info level.
func (l *Logger) Info(msg string, kv ...interface{}) {
	l.entry.WithFields(l.fields(kv)).Info(msg)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.entry.WithFields(l.fields(kv)).Warn(msg)
}

// Error logs at error level.
func (l *Logger) Error(msg string, kv ...interface{}) {
	l.entry.WithFields(l.fields(kv)).Error(msg)
}

// Trace logs at trace level, used by --verbose mode.
func (l *Logger) Trace(msg string, kv ...interface{}) {
	l.entry.WithFields(l.fields(kv)).Trace(msg)
}

// LogVerbose is the teacher-style alias that logs a structured payload
// at trace level under a fixed event name.
func (l *Logger) LogVerbose(event string, fields map[string]interface{}) {
	l.entry.WithFields(logrus.Fields(fields)).Trace(event)
}
