// Package utils provides shared logging support for the scraper and catalog.
package utils

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Logger is the logging interface injected throughout the application.
// Extraction strategies stay free of logging; only orchestrating components
// (service, store, server) receive a Logger.
type Logger interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// String returns the level name used in log output.
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a configuration string into a LogLevel.
// Unknown values fall back to InfoLevel.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// StandardLogger is a leveled text logger writing to a single sink.
type StandardLogger struct {
	level  LogLevel
	fields map[string]interface{}
	out    io.Writer
	mu     *sync.Mutex
}

// NewLoggerWithLevel creates a stderr logger with the given minimum level.
func NewLoggerWithLevel(level LogLevel) Logger {
	return &StandardLogger{
		level:  level,
		fields: map[string]interface{}{},
		out:    os.Stderr,
		mu:     &sync.Mutex{},
	}
}

// NewLoggerWithOutput creates a logger writing to the given sink. Used by
// tests to capture output.
func NewLoggerWithOutput(level LogLevel, out io.Writer) Logger {
	return &StandardLogger{
		level:  level,
		fields: map[string]interface{}{},
		out:    out,
		mu:     &sync.Mutex{},
	}
}

func (l *StandardLogger) Debug(msg string) { l.log(DebugLevel, msg) }
func (l *StandardLogger) Debugf(format string, args ...interface{}) {
	l.log(DebugLevel, fmt.Sprintf(format, args...))
}
func (l *StandardLogger) Info(msg string) { l.log(InfoLevel, msg) }
func (l *StandardLogger) Infof(format string, args ...interface{}) {
	l.log(InfoLevel, fmt.Sprintf(format, args...))
}
func (l *StandardLogger) Warn(msg string) { l.log(WarnLevel, msg) }
func (l *StandardLogger) Warnf(format string, args ...interface{}) {
	l.log(WarnLevel, fmt.Sprintf(format, args...))
}
func (l *StandardLogger) Error(msg string) { l.log(ErrorLevel, msg) }
func (l *StandardLogger) Errorf(format string, args ...interface{}) {
	l.log(ErrorLevel, fmt.Sprintf(format, args...))
}

// WithField returns a child logger carrying the additional field.
func (l *StandardLogger) WithField(key string, value interface{}) Logger {
	return l.WithFields(map[string]interface{}{key: value})
}

// WithFields returns a child logger carrying the additional fields.
func (l *StandardLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &StandardLogger{
		level:  l.level,
		fields: merged,
		out:    l.out,
		mu:     l.mu,
	}
}

func (l *StandardLogger) log(level LogLevel, msg string) {
	if level < l.level {
		return
	}

	line := fmt.Sprintf("[%s] [%s] %s", time.Now().Format("2006-01-02 15:04:05"), level, msg)
	if len(l.fields) > 0 {
		line += " fields=" + formatFields(l.fields)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.out, line)
}

// formatFields renders fields deterministically, sorted by key.
func formatFields(fields map[string]interface{}) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// NopLogger discards all output. Default for library use in tests.
type NopLogger struct{}

func (NopLogger) Debug(string)                               {}
func (NopLogger) Debugf(string, ...interface{})              {}
func (NopLogger) Info(string)                                {}
func (NopLogger) Infof(string, ...interface{})               {}
func (NopLogger) Warn(string)                                {}
func (NopLogger) Warnf(string, ...interface{})               {}
func (NopLogger) Error(string)                               {}
func (NopLogger) Errorf(string, ...interface{})              {}
func (n NopLogger) WithField(string, interface{}) Logger     { return n }
func (n NopLogger) WithFields(map[string]interface{}) Logger { return n }
