// Package logging builds logr loggers backed by zap.
package logging

import (
	"context"
	"fmt"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbosity levels for logr's V().
const (
	DEBUG = 1
	TRACE = 2
)

// Config configures New.
type Config struct {
	Verbosity   int  // 0 = info, DEBUG, TRACE
	Development bool // console encoder with caller info instead of JSON
}

// New returns a logger at the requested verbosity.
func New(cfg Config) (logr.Logger, error) {
	if cfg.Verbosity < 0 {
		return logr.Discard(), fmt.Errorf("logging: negative verbosity %d", cfg.Verbosity)
	}
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
		zc.Sampling = nil
	}
	// logr V(n) maps to zap level -n.
	zc.Level = zap.NewAtomicLevelAt(zapcore.Level(-1 * cfg.Verbosity))

	zl, err := zc.Build()
	if err != nil {
		return logr.Discard(), fmt.Errorf("logging: build zap logger: %w", err)
	}
	return zapr.NewLogger(zl), nil
}

// NewTestLogger creates a new Zap logger using the dev mode.
func NewTestLogger() logr.Logger {
	log, err := New(Config{Verbosity: TRACE, Development: true})
	if err != nil {
		return logr.Discard()
	}
	return log
}

// IntoContext stores log in ctx.
func IntoContext(ctx context.Context, log logr.Logger) context.Context {
	return logr.NewContext(ctx, log)
}

// FromContext returns the logger stored in ctx, or a discarding logger.
func FromContext(ctx context.Context) logr.Logger {
	return logr.FromContextOrDiscard(ctx)
}
