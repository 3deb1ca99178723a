// Package logger is the process-wide printf-style logger.
//
// Messages follow the "[Module] message" convention, e.g.
//
//	logger.Info("[Bridge] process %q serving (pid=%d)", name, pid)
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	std     = newDefault()
	logFile *os.File
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return l
}

// Options controls the logger output.
type Options struct {
	Level  string
	Format string
	// OutputPath is a file path, "stdout" or "stderr". Empty means stderr.
	OutputPath string
}

// InitLog points the logger at a log file, creating parent directories.
func InitLog(logPath string) error {
	return Configure(Options{Level: "info", Format: "text", OutputPath: logPath})
}

// Configure applies opts to the process-wide logger.
func Configure(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	level := logrus.InfoLevel
	if opts.Level != "" {
		lv, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = lv
	}
	std.SetLevel(level)

	switch strings.ToLower(opts.Format) {
	case "json":
		std.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	case "", "text", "console":
		std.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	default:
		return fmt.Errorf("unsupported log format %q", opts.Format)
	}

	out, err := openOutput(opts.OutputPath)
	if err != nil {
		return err
	}
	std.SetOutput(out)
	return nil
}

// openOutput must be called with mu held.
func openOutput(path string) (io.Writer, error) {
	switch path {
	case "", "stderr":
		closeFile()
		return os.Stderr, nil
	case "stdout":
		closeFile()
		return os.Stdout, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %q: %w", path, err)
	}
	closeFile()
	logFile = f
	return f, nil
}

func closeFile() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// FlushLog syncs and closes the log file, if any.
func FlushLog() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		_ = logFile.Sync()
	}
	closeFile()
	std.SetOutput(os.Stderr)
}

// SetOutput redirects log output. Mostly useful in tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(w)
}

// WithFields returns an entry carrying structured fields.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return std.WithFields(logrus.Fields(fields))
}

func Debug(format string, args ...interface{}) { std.Debugf(format, args...) }
func Info(format string, args ...interface{})  { std.Infof(format, args...) }
func Warn(format string, args ...interface{})  { std.Warnf(format, args...) }
func Error(format string, args ...interface{}) { std.Errorf(format, args...) }
func Fatal(format string, args ...interface{}) { std.Fatalf(format, args...) }
