// Package logging provides config-driven categorized file-based logging for
// bookbot. Logs are written to <data-dir>/logs/ with a separate file per
// category. When debug mode is off the whole package is a silent no-op.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot        Category = "boot"        // Startup and wiring
	CategoryNLU         Category = "nlu"         // Normalization, classification, extraction
	CategorySession     Category = "session"     // Session lifecycle, order flow
	CategoryStore       Category = "store"       // Catalog/order store operations
	CategoryDialog      Category = "dialog"      // Orchestrator routing and handlers
	CategoryPerformance Category = "performance" // Slow operations
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Settings controls whether and what the package writes. It mirrors
// config.LoggingConfig to avoid a circular import.
type Settings struct {
	DebugMode  bool
	Level      string
	Categories map[string]bool // empty = all categories enabled
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex

	settings   Settings
	settingsMu sync.RWMutex

	logsDir  string
	logLevel int
)

// Logger wraps a standard logger with a category and file output.
// A Logger with a nil inner logger discards everything.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

// Initialize sets up the logging directory and applies settings.
// Call once at startup; safe to skip entirely in tests.
func Initialize(dataDir string, s Settings) error {
	settingsMu.Lock()
	settings = s
	switch s.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}
	settingsMu.Unlock()

	if !s.DebugMode {
		return nil
	}
	if dataDir == "" {
		return fmt.Errorf("data directory required")
	}

	logsDir = filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== bookbot logging initialized ===")
	boot.Info("Logs directory: %s", logsDir)
	boot.Info("Log level: %s", s.Level)
	return nil
}

// IsDebugMode returns whether debug logging is enabled.
func IsDebugMode() bool {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return settings.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	if !settings.DebugMode {
		return false
	}
	if len(settings.Categories) == 0 {
		return true
	}
	return settings.Categories[string(category)]
}

// Get returns the logger for a category, creating it on first use.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	l, ok := loggers[category]
	loggersMu.RUnlock()
	if ok {
		return l
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	path := filepath.Join(logsDir, string(category)+".log")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] cannot open %s: %v\n", path, err)
		l = &Logger{category: category}
	} else {
		l = &Logger{
			category: category,
			logger:   log.New(f, "", log.LstdFlags|log.Lmicroseconds),
			file:     f,
		}
	}
	loggers[category] = l
	return l
}

// Close flushes and closes all open log files.
func Close() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			_ = l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

func (l *Logger) write(level int, tag, format string, args ...interface{}) {
	if l == nil || l.logger == nil {
		return
	}
	settingsMu.RLock()
	min := logLevel
	settingsMu.RUnlock()
	if level < min {
		return
	}
	l.logger.Printf("[%s] %s", tag, fmt.Sprintf(format, args...))
}

// Debug logs at debug level.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, "DEBUG", format, args...)
}

// Info logs at info level.
func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, "INFO", format, args...)
}

// Warn logs at warn level.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(LevelWarn, "WARN", format, args...)
}

// Error logs at error level.
func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LevelError, "ERROR", format, args...)
}

// =============================================================================
// PACKAGE-LEVEL CONVENIENCE HELPERS
// =============================================================================

// Boot logs to the boot category.
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// NLU logs to the nlu category.
func NLU(format string, args ...interface{}) { Get(CategoryNLU).Info(format, args...) }

// NLUDebug logs debug to the nlu category.
func NLUDebug(format string, args ...interface{}) { Get(CategoryNLU).Debug(format, args...) }

// Session logs to the session category.
func Session(format string, args ...interface{}) { Get(CategorySession).Info(format, args...) }

// SessionDebug logs debug to the session category.
func SessionDebug(format string, args ...interface{}) { Get(CategorySession).Debug(format, args...) }

// Store logs to the store category.
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// StoreDebug logs debug to the store category.
func StoreDebug(format string, args ...interface{}) { Get(CategoryStore).Debug(format, args...) }

// Dialog logs to the dialog category.
func Dialog(format string, args ...interface{}) { Get(CategoryDialog).Info(format, args...) }

// DialogDebug logs debug to the dialog category.
func DialogDebug(format string, args ...interface{}) { Get(CategoryDialog).Debug(format, args...) }

// =============================================================================
// PERFORMANCE TIMER
// =============================================================================

// slowThreshold marks operations worth flagging in the performance log.
const slowThreshold = 100 * time.Millisecond

// Timer tracks the duration of one operation.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop logs the elapsed time; slow operations also land in the
// performance category.
func (t *Timer) Stop() {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s took %v", t.op, elapsed)
	if elapsed >= slowThreshold {
		Get(CategoryPerformance).Warn("SLOW: [%s] %s took %v", t.category, t.op, elapsed)
	}
}
