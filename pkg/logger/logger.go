// Package logger builds the zap.SugaredLogger used across kegdb's components.
// Every package that needs to log takes a *zap.SugaredLogger rather than the
// global zap instance, so tests can inject an observable or no-op logger.
package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level selects the minimum severity that reaches the output sink.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

func (l Level) zapLevel() (zapcore.Level, error) {
	switch l {
	case LevelDebug:
		return zapcore.DebugLevel, nil
	case LevelInfo, "":
		return zapcore.InfoLevel, nil
	case LevelWarn:
		return zapcore.WarnLevel, nil
	case LevelError:
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("logger: unknown level %q", l)
	}
}

// New builds a production-style JSON zap logger tagged with the given
// service name, at the requested level. An unknown level falls back to
// info and the error is returned so callers can decide whether to warn.
func New(service string, level Level) (*zap.SugaredLogger, error) {
	zapLevel, lvlErr := level.zapLevel()

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	base, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("logger: build zap logger: %w", err)
	}

	sugared := base.Sugar().With("service", service)
	return sugared, lvlErr
}

// Noop returns a logger that discards everything, for tests that don't
// want engine/server output on stdout.
func Noop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
