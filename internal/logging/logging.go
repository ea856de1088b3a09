// Package logging monta o *zap.Logger compartilhado pelo servidor e pelos jobs.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New cria o logger. level: debug|info|warn|error (default info); format: json|console (default json).
func New(level, format, service string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = zapcore.InfoLevel
	}
	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = "timestamp"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.OutputPaths = []string{"stdout"}
		cfg.ErrorOutputPaths = []string{"stderr"}
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if service != "" {
		logger = logger.With(zap.String("service_name", service))
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		logger = logger.With(zap.String("hostname", host))
	}
	return logger, nil
}

// Must é New para main(): cai para zap.NewNop se a configuração falhar.
func Must(level, format, service string) *zap.Logger {
	l, err := New(level, format, service)
	if err != nil {
		return zap.NewNop()
	}
	return l
}
