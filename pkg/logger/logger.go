// Package logger owns the process-wide zap logger. Until Init runs, Get
// returns zap's no-op logger, so packages may log from constructors and
// tests without setup.
package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const serviceName = "socialfeed"

// Init builds the logger for env and installs it as zap's global. Production
// writes JSON at info, anything else writes colored console output at debug.
// A non-empty level overrides the environment default.
func Init(env, level string) error {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if env == "production" {
		cfg = zap.NewProductionConfig()
	}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder

	if level = strings.TrimSpace(level); level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("invalid log level %q: %w", level, err)
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	l, err := cfg.Build(zap.Fields(zap.String("service", serviceName)))
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(l)
	return nil
}

// Get returns the process logger
func Get() *zap.Logger {
	return zap.L()
}

// Sync flushes buffered entries. Errors from syncing a terminal are ignored.
func Sync() {
	_ = zap.L().Sync()
}
