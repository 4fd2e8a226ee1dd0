// Package logging builds the zap logger shared by the host, the engine and
// every module.
package logging

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

// NewLogger creates a new zap logger based on the configuration
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(ParseLevel(cfg.Level))

	return zapCfg.Build()
}

// ParseLevel converts a string level to zapcore.Level, defaulting to info
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zap.DebugLevel
	case "warn", "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// GinMode maps a log level onto a gin mode. Only debug logging turns on
// gin's own route dump.
func GinMode(level string) string {
	if ParseLevel(level) == zap.DebugLevel {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}
