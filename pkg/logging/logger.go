// Package logging provides the category-aware debug logger shared by
// the binding core and its search-context adapters. Categories name a
// subsystem and operation ("proxy:retry", "factory:populate") so a
// regexp filter can select just the traffic of interest; every entry
// carries a session ID so interleaved page sessions stay apart.
package logging

import (
	"fmt"
	"io"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus logger with category filtering and per-entry
// timing. All methods are safe for concurrent use and safe on a nil
// receiver, which logs nothing.
type Logger struct {
	Log            *logrus.Logger
	mu             sync.Mutex
	sessionID      string
	lastLogCall    int64
	debugOverride  bool
	categoryFilter *regexp.Regexp
}

// New creates a logger over an existing logrus instance. When
// debugOverride is set, debug entries are emitted even if the logrus
// level would filter them. categoryFilter, when non-nil, drops every
// entry whose category it does not match.
func New(logger *logrus.Logger, debugOverride bool, categoryFilter *regexp.Regexp) *Logger {
	return &Logger{
		Log:            logger,
		sessionID:      uuid.New().String(),
		debugOverride:  debugOverride,
		categoryFilter: categoryFilter,
	}
}

// NewNullLogger creates a logger whose lines are discarded, for tests
// and as the default inside the library.
func NewNullLogger() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(log, false, nil)
}

// NewDebugLogger creates a stderr logger at debug level with colored
// categories, for interactive troubleshooting. categoryFilter may be
// nil to keep everything.
func NewDebugLogger(categoryFilter *regexp.Regexp) *Logger {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)
	log.SetFormatter(&CategoryFormatter{Formatter: &logrus.TextFormatter{}})
	return New(log, true, categoryFilter)
}

var (
	nullOnce sync.Once
	nullLog  *Logger
)

// Null returns the shared discard logger. Library code defaults to it
// so nothing is written unless a caller opts in.
func Null() *Logger {
	nullOnce.Do(func() {
		nullLog = NewNullLogger()
	})
	return nullLog
}

func (l *Logger) Tracef(category string, msg string, args ...interface{}) {
	l.Logf(logrus.TraceLevel, category, msg, args...)
}

func (l *Logger) Debugf(category string, msg string, args ...interface{}) {
	l.Logf(logrus.DebugLevel, category, msg, args...)
}

func (l *Logger) Infof(category string, msg string, args ...interface{}) {
	l.Logf(logrus.InfoLevel, category, msg, args...)
}

func (l *Logger) Warnf(category string, msg string, args ...interface{}) {
	l.Logf(logrus.WarnLevel, category, msg, args...)
}

func (l *Logger) Errorf(category string, msg string, args ...interface{}) {
	l.Logf(logrus.ErrorLevel, category, msg, args...)
}

func (l *Logger) Logf(level logrus.Level, category string, msg string, args ...interface{}) {
	if l == nil {
		return
	}
	if l.Log.GetLevel() < level && !l.debugOverride {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UnixNano() / int64(time.Millisecond)
	elapsed := now - l.lastLogCall
	if l.lastLogCall == 0 {
		elapsed = 0
	}
	l.lastLogCall = now

	if l.categoryFilter != nil && !l.categoryFilter.MatchString(category) {
		return
	}

	entry := l.Log.WithFields(logrus.Fields{
		"category":  category,
		"session":   l.sessionID,
		"elapsed":   fmt.Sprintf("%d ms", elapsed),
		"goroutine": goRoutineID(),
	})
	if l.Log.GetLevel() < level && l.debugOverride {
		entry.Printf(msg, args...)
		return
	}
	entry.Logf(level, msg, args...)
}

// SetLevel sets the logging level from a level string accepted by
// logrus ("trace", "debug", "info", ...).
func (l *Logger) SetLevel(level string) error {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	l.Log.SetLevel(parsed)
	return nil
}

// SetCategoryFilter compiles pattern and drops entries whose category
// does not match it. An empty pattern clears the filter.
func (l *Logger) SetCategoryFilter(pattern string) error {
	if pattern == "" {
		l.mu.Lock()
		l.categoryFilter = nil
		l.mu.Unlock()
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("compiling category filter: %w", err)
	}
	l.mu.Lock()
	l.categoryFilter = re
	l.mu.Unlock()
	return nil
}

// DebugMode reports whether debug entries will be emitted.
func (l *Logger) DebugMode() bool {
	if l == nil {
		return false
	}
	return l.debugOverride || l.Log.GetLevel() >= logrus.DebugLevel
}

// SessionID returns the ID stamped on every entry from this logger.
func (l *Logger) SessionID() string {
	if l == nil {
		return ""
	}
	return l.sessionID
}

// CategoryFormatter colorizes the category field before delegating to
// the wrapped formatter. Meant for interactive debug output.
type CategoryFormatter struct {
	logrus.Formatter
}

func (f *CategoryFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	if category, ok := entry.Data["category"].(string); ok {
		entry.Data["category"] = color.New(color.FgMagenta).Sprint(category)
	}
	return f.Formatter.Format(entry)
}

// goRoutineID parses the goroutine id off the top of the stack. Used
// as a log field only; returns 0 when the stack header is unreadable.
func goRoutineID() int {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := strings.Fields(strings.TrimPrefix(string(buf[:n]), "goroutine "))
	if len(fields) == 0 {
		return 0
	}
	id, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0
	}
	return id
}
