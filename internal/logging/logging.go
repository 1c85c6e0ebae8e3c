// Package logging wraps zap so every binary in the module gets the same
// structured logger, configured the same way.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production zap logger for non-dev environments and a
// colorized console logger for dev, a verbosity split plain log.Printf
// calls never had to make.
func New(environment string) (*zap.Logger, error) {
	if environment == "dev" {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
