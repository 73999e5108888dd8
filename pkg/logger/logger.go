// Package logger holds the process-wide structured logger.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var level = zap.NewAtomicLevelAt(zapcore.InfoLevel)

// Log is the global logger instance for the sim-card tool.
var Log = newLogger()

func newLogger() *zap.SugaredLogger {
	enc := zap.NewProductionEncoderConfig()
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.Lock(os.Stderr), level)
	return zap.New(core, zap.AddCaller()).Sugar()
}

// SetLevel sets the global log level.
// Valid levels: "debug", "info", "warn", "error", "fatal"
func SetLevel(name string) error {
	l, err := zapcore.ParseLevel(name)
	if err != nil {
		return err
	}
	level.SetLevel(l)
	return nil
}

// Level returns the current global level.
func Level() zapcore.Level {
	return level.Level()
}

// WithFields creates a new logger with contextual fields
// Example: logger.WithFields("component", "simfs", "ef", "6FC5")
func WithFields(args ...any) *zap.SugaredLogger {
	return Log.With(args...)
}

// Sync flushes buffered entries.
func Sync() {
	_ = Log.Sync()
}
