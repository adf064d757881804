// Package logging configures the process-wide slog logger.
package logging

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a logger writing human-readable records to stderr.
// Verbose lowers the level to Debug.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

// Discard returns a logger that drops all records. Used in tests
// and in shell-eval mode where stderr carries prompts only.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
