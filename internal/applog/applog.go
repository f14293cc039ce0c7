// Package applog provides the structured logger shared by every
// component, wrapping go.uber.org/zap the way the corpus's own service
// code does (sugared logger, configurable level and format).
package applog

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the sugared zap logger used throughout the module.
type Logger = zap.SugaredLogger

var global *Logger

// Config controls logger construction.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // "console" or "json"
	Caller     bool
	Stacktrace bool
}

// DefaultConfig returns the default logging configuration: info level,
// human-readable console output, suitable for CLI use.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console"}
}

// New builds a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(orDefault(cfg.Level, "info"))
	if err != nil {
		level = zapcore.InfoLevel
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Format != "json" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.DisableCaller = !cfg.Caller
	zcfg.DisableStacktrace = !cfg.Stacktrace

	logger, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// Init builds a Logger from cfg and installs it as the package-level
// default returned by L().
func Init(cfg Config) error {
	logger, err := New(cfg)
	if err != nil {
		return err
	}
	global = logger
	return nil
}

// L returns the process-wide default logger, lazily initialized with
// DefaultConfig if Init was never called.
func L() *Logger {
	if global == nil {
		logger, err := New(DefaultConfig())
		if err != nil {
			// Fall back to a no-op logger rather than panic; logging must
			// never be the reason a CLI invocation fails.
			return zap.NewNop().Sugar()
		}
		global = logger
	}
	return global
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
