// Package logging provides zap logger helpers.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap.Logger configured for development or production. The
// returned logger is also installed as the zap global so libraries that log
// through zap.L() share the same sink.
func New(development bool) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.TimeKey = "ts"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		logger, err = cfg.Build()
	} else {
		cfg := zap.NewProductionConfig()
		cfg.Sampling = nil
		cfg.EncoderConfig.TimeKey = "ts"
		logger, err = cfg.Build()
	}
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}
