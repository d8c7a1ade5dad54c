// Package logger builds the zap logger used by every appointment-stack command.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level maps the -v flag count to a log level.
// Valid levels: warn (default), info (-v), debug (-vv and above).
func Level(verbosity int) zapcore.Level {
	switch {
	case verbosity >= 2:
		return zapcore.DebugLevel
	case verbosity == 1:
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}

// Config returns the zap configuration for the verbosity and encoding.
// JSON logs use the production config; otherwise the development console
// encoder is used for readability.
func Config(verbosity int, jsonLogs bool) zap.Config {
	level := Level(verbosity)

	var config zap.Config
	if jsonLogs {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.EncoderConfig.MessageKey = "message"
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		config.DisableStacktrace = level != zapcore.DebugLevel
	}
	config.Level = zap.NewAtomicLevelAt(level)
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	return config
}

// New builds a logger writing to stderr.
func New(verbosity int, jsonLogs bool) (*zap.Logger, error) {
	return Config(verbosity, jsonLogs).Build()
}

// Sync flushes any buffered log entries.
func Sync(logger *zap.Logger) {
	if logger != nil {
		_ = logger.Sync()
	}
}
