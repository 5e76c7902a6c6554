package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSet_ReplacesGlobals(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	Set(zap.New(core))

	Log().Info("hello", zap.Int("n", 1))
	S().Debugw("sugared", "k", "v")
	zap.L().Warn("global")

	require.Equal(t, 3, logs.Len())
	assert.Equal(t, "hello", logs.All()[0].Message)
	assert.Equal(t, "global", logs.All()[2].Message)
}

func TestInitDevelopment_Level(t *testing.T) {
	require.NoError(t, InitDevelopment("warn"))
	assert.False(t, Log().Core().Enabled(zap.InfoLevel))
	assert.True(t, Log().Core().Enabled(zap.ErrorLevel))

	assert.Error(t, InitDevelopment("loud"))
}
