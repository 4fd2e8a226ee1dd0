package logging

import (
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sirosfoundation/go-meanhost/pkg/config"
)

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "text"} {
		t.Run(format, func(t *testing.T) {
			logger, err := NewLogger(config.LoggingConfig{Level: "warn", Format: format})
			require.NoError(t, err)
			require.NotNil(t, logger)
			assert.False(t, logger.Core().Enabled(zap.InfoLevel))
			assert.True(t, logger.Core().Enabled(zap.WarnLevel))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zap.AtomicLevel{
		"debug":   zap.NewAtomicLevelAt(zap.DebugLevel),
		"info":    zap.NewAtomicLevelAt(zap.InfoLevel),
		"WARN":    zap.NewAtomicLevelAt(zap.WarnLevel),
		"warning": zap.NewAtomicLevelAt(zap.WarnLevel),
		"error":   zap.NewAtomicLevelAt(zap.ErrorLevel),
		"bogus":   zap.NewAtomicLevelAt(zap.InfoLevel),
	}
	for in, want := range tests {
		assert.Equal(t, want.Level(), ParseLevel(in), in)
	}
}

func TestGinMode(t *testing.T) {
	assert.Equal(t, gin.DebugMode, GinMode("debug"))
	assert.Equal(t, gin.ReleaseMode, GinMode("info"))
	assert.Equal(t, gin.ReleaseMode, GinMode(""))
}
