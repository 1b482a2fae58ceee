// ABOUTME: Process-wide zap logger for futurefeed.
// ABOUTME: Built from the logging config section; components take child loggers by name.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/2389-research/futurefeed/internal/config"
)

var (
	mu     sync.RWMutex
	logger *zap.Logger
)

// Init builds the global logger from config. Unknown levels fall back to warn so
// the CLI stays quiet on stdout.
func Init(cfg config.LoggingConfig) error {
	level := zapcore.WarnLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			level = zapcore.WarnLevel
		}
	}

	var zapConfig zap.Config
	if cfg.Format == "text" {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapConfig = zap.NewProductionConfig()
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zapConfig.Level = zap.NewAtomicLevelAt(level)
	zapConfig.OutputPaths = []string{"stderr"}
	zapConfig.ErrorOutputPaths = []string{"stderr"}

	built, err := zapConfig.Build(zap.AddCaller())
	if err != nil {
		return err
	}
	Set(built)
	return nil
}

// NewWriter returns a JSON logger writing to the given sync target. Used by tests
// that assert on log output.
func NewWriter(w zapcore.WriteSyncer, level zapcore.Level) *zap.Logger {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	return zap.New(zapcore.NewCore(zapcore.NewJSONEncoder(enc), w, level))
}

// Set replaces the global logger.
func Set(l *zap.Logger) {
	mu.Lock()
	logger = l
	mu.Unlock()
}

// GetLogger returns the global logger. Before Init it discards everything.
func GetLogger() *zap.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// WithComponent adds component name to logger
func WithComponent(component string) *zap.Logger {
	return GetLogger().With(zap.String("component", component))
}

// Sync flushes buffered entries; errors from syncing a terminal are ignored.
func Sync() {
	_ = GetLogger().Sync()
}
