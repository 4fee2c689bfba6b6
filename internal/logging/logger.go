// Package logging builds the *zap.Logger every component in this module
// threads through (SPEC_FULL §2's ambient logging layer). Adapted from the
// teacher's internal/infrastructure/logger.NewLogger: same level-parse-with-
// fallback and console/json encoder split, generalized from the gateway's
// three fixed call sites (CLI, serve, doctor) to the single --debug/DEBUG
// switch spec.md §6 names for the reference runner.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger's verbosity and output shape.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	OutputPath string // stdout, stderr, or a file path
}

// New builds a zap.Logger from cfg, falling back to info level on an
// unparseable Level rather than failing startup over a typo in an env var.
func New(cfg Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Format == "console",
		Encoding:         cfg.Format,
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{cfg.OutputPath},
		ErrorOutputPaths: []string{"stderr"},
	}
	return zapCfg.Build()
}

// ForDebugFlag is the reference runner's two-mode shortcut: verbose console
// logging under --debug/DEBUG, quiet structured JSON otherwise.
func ForDebugFlag(debug bool) (*zap.Logger, error) {
	if debug {
		return New(Config{Level: "debug", Format: "console", OutputPath: "stderr"})
	}
	return New(Config{Level: "info", Format: "json", OutputPath: "stderr"})
}
