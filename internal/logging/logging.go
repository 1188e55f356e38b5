// Package logging builds the session logger. Output goes to a file
// under the per-user settings directory so stdout stays clean for
// progress narration. Components receive the logger explicitly at
// construction; there is no package-level logger state.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// New opens a dated JSON log file under dir/logs and returns a logger
// writing to it plus a close function.
func New(dir string, level slog.Level) (*slog.Logger, func() error, error) {
	logDir := filepath.Join(dir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	name := fmt.Sprintf("traceback-%s.log", time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(logDir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	return logger, f.Close, nil
}

// Discard returns a logger that drops everything. Used when file
// logging cannot be set up and in tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
