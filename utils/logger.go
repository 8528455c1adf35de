package utils

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry with printf-style level methods
type Logger struct {
	entry *logrus.Entry
}

// NewLogger creates a new structured logger. level is one of the logrus level
// names ("debug", "info", ...); format is "json" or "text".
func NewLogger(level, format string) *Logger {
	return NewLoggerWithOutput(os.Stdout, level, format)
}

// NewLoggerWithOutput creates a logger writing to w
func NewLoggerWithOutput(w io.Writer, level, format string) *Logger {
	l := logrus.New()
	l.SetOutput(w)

	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	}
	return &Logger{entry: logrus.NewEntry(l)}
}

// NewNopLogger discards everything
func NewNopLogger() *Logger {
	return NewLoggerWithOutput(io.Discard, "panic", "text")
}

// WithField returns a logger that adds key=value to every line
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.entry.Infof(msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.entry.Warnf(msg, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.entry.Errorf(msg, args...)
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.entry.Debugf(msg, args...)
}
