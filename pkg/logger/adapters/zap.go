// Package adapters provides logger adapters for integrating external logging
// libraries with flownode.
package adapters

import (
	"go.uber.org/zap"

	"github.com/kart-io/flownode/pkg/logger"
)

// ZapAdapter adapts a zap sugared logger to the flownode Logger interface.
type ZapAdapter struct {
	sugar *zap.SugaredLogger
	level logger.LogLevel
}

// NewZapAdapter wraps an existing zap logger.
func NewZapAdapter(z *zap.Logger, level logger.LogLevel) *ZapAdapter {
	return &ZapAdapter{
		sugar: z.Sugar(),
		level: level,
	}
}

// LogMode sets the log level and returns a new adapter instance.
func (a *ZapAdapter) LogMode(level logger.LogLevel) logger.Logger {
	return &ZapAdapter{sugar: a.sugar, level: level}
}

// Info logs an informational message.
func (a *ZapAdapter) Info(msg string, args ...any) {
	if a.level >= logger.Info {
		a.sugar.Infow(msg, args...)
	}
}

// Warn logs a warning message.
func (a *ZapAdapter) Warn(msg string, args ...any) {
	if a.level >= logger.Warn {
		a.sugar.Warnw(msg, args...)
	}
}

// Error logs an error message.
func (a *ZapAdapter) Error(msg string, args ...any) {
	if a.level >= logger.Error {
		a.sugar.Errorw(msg, args...)
	}
}

// Debug logs a debug message.
func (a *ZapAdapter) Debug(msg string, args ...any) {
	if a.level >= logger.Debug {
		a.sugar.Debugw(msg, args...)
	}
}
