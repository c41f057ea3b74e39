// Package logging builds the zap logger shared by the CLI, the reveal
// controller, the store and the LLM adapters.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName is attached to every entry.
const ServiceName = "careahead"

// Options selects level, encoding and destination.
// Level: "debug", "info", "warn", "error" (default "info").
// Format: "json" or "console" (default "json").
// File: a path, "stderr" or "stdout" (default "stderr"). The dashboard
// owns the terminal, so interactive runs log to a file.
type Options struct {
	Level  string
	Format string
	File   string
}

// ParseLevel maps a level name onto zap; unknown names fall back to info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New builds a logger from opts.
func New(opts Options) (*zap.Logger, error) {
	var config zap.Config
	if opts.Format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.Sampling = nil
	}
	config.Level = zap.NewAtomicLevelAt(ParseLevel(opts.Level))
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	out := opts.File
	if out == "" {
		out = "stderr"
	}
	config.OutputPaths = []string{out}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.With(zap.String("service_name", ServiceName)), nil
}
