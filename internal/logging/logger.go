// Package logging builds the charm logger used by the armlift commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

// LoggerCloser is a logger that owns its output.
type LoggerCloser struct {
	*log.Logger
	closer io.Closer
	path   string
}

// Close closes the output when it is closeable.
func (lc *LoggerCloser) Close() error {
	if lc.closer != nil {
		return lc.closer.Close()
	}
	return nil
}

// Path returns the log file written to, or "" for a plain writer.
func (lc *LoggerCloser) Path() string { return lc.path }

// ParseLevel maps debug, warn and error to their levels; anything else is info.
func ParseLevel(s string) log.Level {
	switch s {
	case "debug":
		return log.DebugLevel
	case "warn":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// NewLoggerWithWriter creates a logger writing to w, configured from
// ARMLIFT_LOG_LEVEL and ARMLIFT_LOG_PREFIX.
func NewLoggerWithWriter(w io.Writer) *LoggerCloser {
	lg := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})
	lg.SetLevel(ParseLevel(os.Getenv("ARMLIFT_LOG_LEVEL")))

	prefix := os.Getenv("ARMLIFT_LOG_PREFIX")
	if prefix == "" {
		prefix = "armlift "
	}

	var closer io.Closer
	if c, ok := w.(io.Closer); ok {
		closer = c
	}
	return &LoggerCloser{
		Logger: lg.WithPrefix(prefix),
		closer: closer,
	}
}

// NewLogger creates a logger based on environment variables
// ARMLIFT_LOG_LEVEL: debug, info, warn, error (default: info)
// ARMLIFT_LOG_PREFIX: prefix for log messages (default: "armlift ")
// ARMLIFT_LOG_TO_FILE: when set to "1", logs to a timestamped file instead of stderr
func NewLogger() *LoggerCloser {
	if os.Getenv("ARMLIFT_LOG_TO_FILE") == "1" {
		name := fmt.Sprintf("armlift-%s-debug.log", time.Now().Format("20060102-150405"))
		if lc, err := NewFileLogger(name); err == nil {
			return lc
		}
		// Fall back to stderr.
	}
	return NewLoggerWithWriter(os.Stderr)
}

// NewFileLogger appends to the log file at path.
func NewFileLogger(path string) (*LoggerCloser, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	lc := NewLoggerWithWriter(f)
	lc.path = path
	return lc, nil
}

// IsDebug returns true if debug logging is enabled
func IsDebug() bool {
	return os.Getenv("ARMLIFT_LOG_LEVEL") == "debug"
}
