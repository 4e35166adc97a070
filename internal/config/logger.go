package config

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Logger provides structured logging for download and install
// operations. This interface allows callers to plug in their own
// logging implementation.
type Logger interface {
	// Debug logs debug-level messages with optional key-value pairs.
	Debug(msg string, keysAndValues ...interface{})

	// Info logs info-level messages with optional key-value pairs.
	Info(msg string, keysAndValues ...interface{})

	// Warn logs warning-level messages with optional key-value pairs.
	Warn(msg string, keysAndValues ...interface{})

	// Error logs error-level messages with optional key-value pairs.
	Error(msg string, keysAndValues ...interface{})
}

// noopLogger is a Logger implementation that does nothing.
// This is the default logger used when none is provided.
type noopLogger struct{}

func (n *noopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (n *noopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (n *noopLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (n *noopLogger) Error(msg string, keysAndValues ...interface{}) {}

// DefaultLogger returns the default no-op logger.
func DefaultLogger() Logger {
	return &noopLogger{}
}

// Level controls the minimum severity a TextLogger emits.
type Level int

// Log levels in increasing severity.
const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// TextLogger writes "level: msg key=value" lines to a writer. Used by
// the CLI; library consumers typically bring their own Logger.
type TextLogger struct {
	mu  sync.Mutex
	w   io.Writer
	min Level
}

// NewTextLogger creates a TextLogger emitting at or above min.
func NewTextLogger(w io.Writer, min Level) *TextLogger {
	return &TextLogger{w: w, min: min}
}

func (l *TextLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log(LevelDebug, "debug", msg, keysAndValues)
}

func (l *TextLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log(LevelInfo, "info", msg, keysAndValues)
}

func (l *TextLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log(LevelWarn, "warn", msg, keysAndValues)
}

func (l *TextLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log(LevelError, "error", msg, keysAndValues)
}

func (l *TextLogger) log(level Level, label, msg string, kvs []interface{}) {
	if level < l.min {
		return
	}

	var b strings.Builder
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(msg)
	for i := 0; i+1 < len(kvs); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kvs[i], kvs[i+1])
	}
	if len(kvs)%2 == 1 {
		fmt.Fprintf(&b, " %v=?", kvs[len(kvs)-1])
	}
	b.WriteByte('\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	io.WriteString(l.w, b.String())
}
