// Package logger provides leveled logging with support for debug, info, warn,
// and error levels. It wraps a zap SugaredLogger behind package-level functions
// so call sites stay terse.
package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global logger instance
	log *zap.SugaredLogger
)

// Init initializes the default logger with the specified level and format.
// Format "text" uses zap's development encoder, anything else is JSON.
func Init(level string, format string) error {
	var lvl zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "info":
		lvl = zapcore.InfoLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	var cfg zap.Config
	if strings.ToLower(format) == "text" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	zapLogger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	log = zapLogger.Sugar()
	return nil
}

// get returns the active logger, building a fallback if Init was never called.
func get() *zap.SugaredLogger {
	if log == nil {
		zapLogger, _ := zap.NewProduction(zap.AddCallerSkip(1))
		log = zapLogger.Sugar()
	}
	return log
}

// Sync flushes any buffered log entries.
func Sync() {
	if log != nil {
		_ = log.Sync()
	}
}

// Debug logs a formatted message at DebugLevel
func Debug(format string, args ...interface{}) {
	get().Debugf(format, args...)
}

// Info logs a formatted message at InfoLevel
func Info(format string, args ...interface{}) {
	get().Infof(format, args...)
}

// Warn logs a formatted message at WarnLevel
func Warn(format string, args ...interface{}) {
	get().Warnf(format, args...)
}

// Error logs a formatted message at ErrorLevel
func Error(format string, args ...interface{}) {
	get().Errorf(format, args...)
}

// Fatal logs a formatted message at FatalLevel and exits
func Fatal(format string, args ...interface{}) {
	get().Fatalf(format, args...)
}
