// Package log provides the logging facade used across the stack, backed by
// logrus. Components receive a Logger instead of touching logrus directly so
// a bare-metal port can substitute its own sink.
package log

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the subset of logging the stack needs.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
}

type logrusLogger struct {
	entry *logrus.Entry
}

// New returns a Logger at the given level writing to stderr.
func New(level logrus.Level) Logger {
	l := logrus.New()
	l.SetLevel(level)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

// Default returns the stack's default Logger: warnings and errors only, so
// the per-packet paths stay quiet unless something is wrong.
func Default() Logger {
	return New(logrus.WarnLevel)
}

// Discard returns a Logger that drops everything. Used in tests.
func Discard() Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *logrusLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *logrusLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *logrusLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *logrusLogger) WithField(key string, value interface{}) Logger {
	return &logrusLogger{entry: l.entry.WithField(key, value)}
}
