// Package logx provides the zap-based application-level logger used by
// the example command-line wiring and the example provider adapters,
// mirroring the teacher's internal/logger package. Get returns the
// sugared form so call sites can log alternating key/value pairs
// (Infow/Warnw-style) the way cmd/fileflux does, without every caller
// having to build zap.Field values by hand.
package logx

import "go.uber.org/zap"

var instance *zap.Logger

// Init builds a production zap logger.
func Init() error {
	l, err := zap.NewProduction()
	if err != nil {
		return err
	}
	instance = l
	return nil
}

// Get returns the global sugared logger, building a default one lazily.
func Get() *zap.SugaredLogger {
	if instance == nil {
		instance, _ = zap.NewProduction()
	}
	return instance.Sugar()
}

// Sync flushes any buffered log entries.
func Sync() {
	if instance != nil {
		_ = instance.Sync()
	}
}
