// Package logutil configures the process-wide charmbracelet logger.
package logutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.Mutex
	logFile *os.File
)

// Configure sets the minimum level and sends logs to stderr.
// An empty level means "info".
func Configure(levelRaw string) error {
	level, err := ParseLevel(levelRaw)
	if err != nil {
		return err
	}
	log.SetLevel(level)
	log.SetReportTimestamp(true)
	SetOutput(os.Stderr)
	return nil
}

// ParseLevel accepts the charmbracelet level names plus "trace", which maps
// to debug.
func ParseLevel(levelRaw string) (log.Level, error) {
	switch s := strings.ToLower(strings.TrimSpace(levelRaw)); s {
	case "":
		return log.InfoLevel, nil
	case "trace":
		return log.DebugLevel, nil
	default:
		level, err := log.ParseLevel(s)
		if err != nil {
			return 0, fmt.Errorf("invalid log level %q", levelRaw)
		}
		return level, nil
	}
}

// SetOutput redirects logging to w, closing any file opened by ToFile.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeFileLocked()
	log.SetOutput(w)
}

// ToFile redirects logging to path, creating parent directories. Full-screen
// UIs use it so log lines do not tear the display.
func ToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600) //nolint:gosec // caller-chosen path
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	mu.Lock()
	defer mu.Unlock()
	closeFileLocked()
	logFile = f
	log.SetOutput(f)
	return nil
}

// Close releases the log file, if any, and falls back to stderr.
func Close() {
	SetOutput(os.Stderr)
}

func closeFileLocked() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
