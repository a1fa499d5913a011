package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		level   string
		enabled zapcore.Level
		wantErr bool
	}{
		{"", zapcore.InfoLevel, false},
		{"debug", zapcore.DebugLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"ERROR", zapcore.ErrorLevel, false},
		{"loud", 0, true},
	}

	for _, tt := range tests {
		log, err := New(tt.level)
		if tt.wantErr {
			assert.Error(t, err, tt.level)
			continue
		}
		require.NoError(t, err, tt.level)
		assert.True(t, log.Core().Enabled(tt.enabled), tt.level)
		assert.False(t, log.Core().Enabled(tt.enabled-1), tt.level)
	}
}
