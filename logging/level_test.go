package logging

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Level
		wantErr bool
	}{
		{name: "trace", input: "trace", want: LevelTrace},
		{name: "debug", input: "debug", want: LevelDebug},
		{name: "info", input: "info", want: LevelInfo},
		{name: "warn", input: "warn", want: LevelWarn},
		{name: "warning", input: "warning", want: LevelWarn},
		{name: "error", input: "error", want: LevelError},
		{name: "err", input: "err", want: LevelError},
		{name: "uppercase", input: "DEBUG", want: LevelDebug},
		{name: "with spaces", input: "  warn  ", want: LevelWarn},
		{name: "invalid", input: "verbose", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLevel_ToSlog(t *testing.T) {
	assert.Equal(t, slog.Level(-8), LevelTrace.ToSlog())
	assert.Equal(t, slog.LevelDebug, LevelDebug.ToSlog())
	assert.Equal(t, slog.LevelInfo, LevelInfo.ToSlog())
	assert.Equal(t, slog.LevelWarn, LevelWarn.ToSlog())
	assert.Equal(t, slog.LevelError, LevelError.ToSlog())
}

func TestLevel_String(t *testing.T) {
	for level, want := range map[Level]string{
		LevelTrace: "trace",
		LevelDebug: "debug",
		LevelInfo:  "info",
		LevelWarn:  "warn",
		LevelError: "error",
		Level(99):  "Level(99)",
	} {
		assert.Equal(t, want, level.String())
	}
}
