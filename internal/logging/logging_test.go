package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, zapcore.DebugLevel, LevelFromString("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, LevelFromString(" warning "))
	assert.Equal(t, zapcore.ErrorLevel, LevelFromString("error"))
	assert.Equal(t, zapcore.InfoLevel, LevelFromString(""))
	assert.Equal(t, zapcore.InfoLevel, LevelFromString("verbose"))
}

func TestNew(t *testing.T) {
	t.Parallel()

	logger, err := New("warn", "console")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}
