// Package logx provides the slog-based logger for FileFlux library
// packages (pkg/markdown's converter logs through it). It follows the same package-level,
// lazily-initialized slog instance the teacher's pkg/logger used.
package logx

import (
	"fmt"
	"log/slog"
	"os"
)

var instance *slog.Logger

// InitError represents logger initialization errors.
type InitError struct {
	Op  string
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("logx: %s failed: %v", e.Op, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// Init initializes the global logger with a production-style JSON
// handler at Info level.
func Init() error {
	return InitWithConfig(slog.HandlerOptions{Level: slog.LevelInfo})
}

// InitWithConfig initializes the logger with custom slog handler
// options, for hosts that want Debug-level pipeline tracing.
func InitWithConfig(opts slog.HandlerOptions) error {
	handler := slog.NewJSONHandler(os.Stdout, &opts)
	instance = slog.New(handler)
	return nil
}

// Get returns the global logger, lazily initializing a default one if
// Init was never called.
func Get() *slog.Logger {
	if instance == nil {
		_ = Init()
	}
	return instance
}

// IsInitialized reports whether the logger has been explicitly set up.
func IsInitialized() bool {
	return instance != nil
}
