package util

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// maxRetainedEntries bounds the in-memory log buffer served by /logs.
const maxRetainedEntries = 1000

// Logger wraps logrus with scope prefixes and an in-memory tail for the
// logs endpoint.
type Logger struct {
	*logrus.Logger
	scope string
	hook  *logHook
}

// NewLogger creates a new logger instance
func NewLogger(level string) *Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	switch strings.ToLower(level) {
	case "debug":
		logger.SetLevel(logrus.DebugLevel)
	case "info":
		logger.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logger.SetLevel(logrus.WarnLevel)
	case "error":
		logger.SetLevel(logrus.ErrorLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}

	logger.SetOutput(os.Stdout)

	hook := &logHook{}
	logger.AddHook(hook)

	return &Logger{
		Logger: logger,
		hook:   hook,
	}
}

// WithScope creates a new logger with a scope prefix
func (l *Logger) WithScope(scope string) *Logger {
	return &Logger{
		Logger: l.Logger,
		scope:  scope,
		hook:   l.hook,
	}
}

func (l *Logger) formatMessage(msg string) string {
	if l.scope != "" {
		return fmt.Sprintf("[%s] %s", l.scope, msg)
	}
	return msg
}

// Debug logs a debug message
func (l *Logger) Debug(args ...interface{}) {
	l.Logger.Debug(l.formatMessage(fmt.Sprint(args...)))
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.Logger.Debug(l.formatMessage(fmt.Sprintf(format, args...)))
}

// Info logs an info message
func (l *Logger) Info(args ...interface{}) {
	l.Logger.Info(l.formatMessage(fmt.Sprint(args...)))
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.Logger.Info(l.formatMessage(fmt.Sprintf(format, args...)))
}

// Warn logs a warning message
func (l *Logger) Warn(args ...interface{}) {
	l.Logger.Warn(l.formatMessage(fmt.Sprint(args...)))
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.Logger.Warn(l.formatMessage(fmt.Sprintf(format, args...)))
}

// Error logs an error message
func (l *Logger) Error(args ...interface{}) {
	l.Logger.Error(l.formatMessage(fmt.Sprint(args...)))
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.Logger.Error(l.formatMessage(fmt.Sprintf(format, args...)))
}

// LogEntry represents a captured log entry
type LogEntry struct {
	Level     string `json:"level"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// logHook retains a bounded tail of entries in memory.
type logHook struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (h *logHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *logHook) Fire(entry *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, LogEntry{
		Level:     entry.Level.String(),
		Message:   entry.Message,
		Timestamp: entry.Time.Format(time.RFC3339),
	})
	if len(h.entries) > maxRetainedEntries {
		h.entries = h.entries[len(h.entries)-maxRetainedEntries:]
	}
	return nil
}

// GetEntries returns the retained log entries in [startIndex, endIndex).
// A negative endIndex means "through the end".
func (l *Logger) GetEntries(startIndex, endIndex int) []LogEntry {
	if l.hook == nil {
		return []LogEntry{}
	}

	l.hook.mu.Lock()
	defer l.hook.mu.Unlock()

	entries := l.hook.entries
	total := len(entries)

	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex > total {
		startIndex = total
	}
	if endIndex < 0 || endIndex > total {
		endIndex = total
	}
	if startIndex > endIndex {
		return []LogEntry{}
	}

	out := make([]LogEntry, endIndex-startIndex)
	copy(out, entries[startIndex:endIndex])
	return out
}
