// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger configured for development or production, writing
// to stderr.
func New(development bool) (*zap.Logger, error) {
	return NewWithOutput(development, nil)
}

// NewWithOutput builds a logger that writes to the given zap sinks (file
// paths, "stdout", "stderr"). An empty list keeps zap's default output.
func NewWithOutput(development bool, outputs []string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	mode := "prod"
	if development {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		mode = "dev"
	} else {
		cfg.DisableStacktrace = false
	}
	cfg.EncoderConfig.TimeKey = "ts"
	if len(outputs) > 0 {
		cfg.OutputPaths = outputs
		cfg.ErrorOutputPaths = outputs
		// Color escapes are noise in files.
		if development {
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
	}
	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build %s logger: %w", mode, err)
	}
	return logger, nil
}
