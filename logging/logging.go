// Package logging contains the structured logger used by the frame connector.
package logging

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// Level is the lowest level a logger writes.
type Level int8

const (
	// DEBUG log level.
	DEBUG = Level(zapcore.DebugLevel)
	// INFO log level.
	INFO = Level(zapcore.InfoLevel)
	// WARN log level.
	WARN = Level(zapcore.WarnLevel)
)

// AsZap converts the Level to a `zapcore.Level`.
func (level Level) AsZap() zapcore.Level {
	return zapcore.Level(level)
}

// Logger is the logging interface handed to every connector component. Loggers derived with
// Sublogger or WithFields write to the same appenders at the same level as their parent.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})

	// Sublogger returns a logger whose name is this logger's name joined with subname by a dot.
	Sublogger(subname string) Logger
	// WithFields returns a logger that adds the given key/value pairs to every entry.
	WithFields(keysAndValues ...interface{}) Logger
}

// NewLogger returns a logger that writes entries at level and above to the given appenders, with
// times in UTC.
func NewLogger(name string, level Level, appenders ...Appender) Logger {
	return &impl{
		core: &core{level: level, inUTC: true, appenders: appenders},
		name: name,
	}
}

// NewTestLogger returns a new logger that outputs Debug+ logs through the test's Log method.
func NewTestLogger(tb testing.TB) Logger {
	logger, _ := NewObservedTestLogger(tb)
	return logger
}

// NewObservedTestLogger is like NewTestLogger but also saves logs to an in memory observer.
func NewObservedTestLogger(tb testing.TB) (Logger, *observer.ObservedLogs) {
	observerCore, observedLogs := observer.New(zap.LevelEnablerFunc(zapcore.DebugLevel.Enabled))
	logger := &impl{core: &core{
		level:     DEBUG,
		appenders: []Appender{NewTestAppender(tb), observerCore},
	}}
	return logger, observedLogs
}
