package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-authsession"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := auth.NewZapLogger(zap.New(core))

	logger.Debug("debug message", "key", "value")
	logger.Info("info message")
	logger.Warn("warn message", "count", 3)
	logger.Error("error message", "error", "boom")

	entries := logs.All()
	require.Len(t, entries, 4)

	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "debug message", entries[0].Message)
	assert.Equal(t, "value", entries[0].ContextMap()["key"])

	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, int64(3), entries[2].ContextMap()["count"])

	assert.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestZapLoggerNil(t *testing.T) {
	assert.NotPanics(t, func() {
		auth.NewZapLogger(nil).Info("dropped")
	})
}
