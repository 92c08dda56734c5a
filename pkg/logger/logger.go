// Package logger provides the process-wide run log.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	globalLogger *logrus.Logger
	logFile      *os.File
	mu           sync.Mutex
)

// Init initializes the global logger with the specified log file path.
// An empty path logs to stderr.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	// Close previous log file if exists
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	var out io.Writer = os.Stderr
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		logFile = f
		out = f
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000000",
	})
	globalLogger = l

	return nil
}

// InitWriter points the global logger at w. Used by tests and by callers
// that already own an output stream.
func InitWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableColors: true, DisableTimestamp: true})
	globalLogger = l
}

// SetLevel sets the minimum level: debug, info, warn, error.
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if globalLogger != nil {
		globalLogger.SetLevel(lvl)
	}
	return nil
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	globalLogger = nil
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger != nil {
		globalLogger.Infof(format, v...)
	}
}

// Debug logs a debug message.
func Debug(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger != nil {
		globalLogger.Debugf(format, v...)
	}
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger != nil {
		globalLogger.Errorf(format, v...)
	}
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger != nil {
		globalLogger.Warnf(format, v...)
	}
}

// Fields is a set of structured fields attached to a log line.
type Fields = logrus.Fields

// Entry is a logger bound to a set of fields, e.g. one scenario.
type Entry struct {
	fields Fields
}

// With returns an entry that tags every line with fields.
func With(fields Fields) *Entry {
	return &Entry{fields: fields}
}

func (e *Entry) log(level logrus.Level, format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger != nil {
		globalLogger.WithFields(e.fields).Logf(level, format, v...)
	}
}

// Info logs an info message with the entry's fields.
func (e *Entry) Info(format string, v ...interface{}) { e.log(logrus.InfoLevel, format, v...) }

// Debug logs a debug message with the entry's fields.
func (e *Entry) Debug(format string, v ...interface{}) { e.log(logrus.DebugLevel, format, v...) }

// Warn logs a warning with the entry's fields.
func (e *Entry) Warn(format string, v ...interface{}) { e.log(logrus.WarnLevel, format, v...) }

// Error logs an error with the entry's fields.
func (e *Entry) Error(format string, v ...interface{}) { e.log(logrus.ErrorLevel, format, v...) }

// GetWriter returns the underlying writer for use by drivers.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return logFile
	}
	return io.Discard
}
