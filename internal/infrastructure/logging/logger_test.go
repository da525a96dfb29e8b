package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.ErrorContains(t, err, "loud")
}

func TestFromSettings(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		development bool
		want        zapcore.Level
	}{
		{name: "production default", want: zapcore.InfoLevel},
		{name: "development default", development: true, want: zapcore.DebugLevel},
		{name: "explicit level", level: "warn", development: true, want: zapcore.WarnLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := FromSettings(tt.level, tt.development)
			require.NoError(t, err)
			defer logger.Close()

			assert.True(t, logger.Core().Enabled(tt.want))
			assert.False(t, logger.Core().Enabled(tt.want-1))
		})
	}
}

func TestComponentField(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := &Logger{Logger: zap.New(core)}

	logger.Component("stream").Info("connected")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "stream", entries[0].ContextMap()["component"])
}

func TestFallbackConstructors(t *testing.T) {
	assert.NotNil(t, NewDefault())
	assert.NotNil(t, NewDevelopment())
}
