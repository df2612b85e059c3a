package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-bpfobject/logging"
)

func testTime() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func TestFilteringHandler_Enabled(t *testing.T) {
	spec := &logging.Spec{
		BaseLevel: logging.LevelWarn,
		Components: map[string]logging.Level{
			"events": logging.LevelDebug,
			"layout": logging.LevelTrace,
		},
	}

	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: logging.LevelTrace.ToSlog()})
	handler := logging.NewFilteringHandler(inner, spec)
	ctx := context.Background()

	assert.False(t, handler.Enabled(ctx, slog.LevelInfo))
	assert.True(t, handler.Enabled(ctx, slog.LevelWarn))

	events := handler.WithAttrs([]slog.Attr{slog.String("component", "events")})
	assert.True(t, events.Enabled(ctx, slog.LevelDebug))
	assert.False(t, events.Enabled(ctx, logging.LevelTrace.ToSlog()))

	layout := handler.WithAttrs([]slog.Attr{slog.String("component", "layout")})
	assert.True(t, layout.Enabled(ctx, logging.LevelTrace.ToSlog()))

	// A later component attribute wins.
	rebound := events.WithAttrs([]slog.Attr{slog.String("component", "object")})
	assert.False(t, rebound.Enabled(ctx, slog.LevelDebug))
}

func TestFilteringHandler_Handle(t *testing.T) {
	spec := &logging.Spec{
		BaseLevel:  logging.LevelWarn,
		Components: map[string]logging.Level{"events": logging.LevelDebug},
	}

	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: logging.LevelTrace.ToSlog()})
	handler := logging.NewFilteringHandler(inner, spec)
	ctx := context.Background()

	require.NoError(t, handler.Handle(ctx, slog.NewRecord(testTime(), slog.LevelDebug, "dropped", 0)))
	assert.Empty(t, buf.String())

	require.NoError(t, handler.Handle(ctx, slog.NewRecord(testTime(), slog.LevelWarn, "kept", 0)))
	assert.Contains(t, buf.String(), "kept")

	buf.Reset()
	events := handler.WithAttrs([]slog.Attr{slog.String("component", "events")})
	require.NoError(t, events.Handle(ctx, slog.NewRecord(testTime(), slog.LevelDebug, "events debug", 0)))
	assert.Contains(t, buf.String(), "events debug")
}

func TestFilteringHandler_WithGroup(t *testing.T) {
	spec := &logging.Spec{
		BaseLevel:  logging.LevelInfo,
		Components: map[string]logging.Level{"events": logging.LevelDebug},
	}

	inner := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: logging.LevelTrace.ToSlog()})
	handler := logging.NewFilteringHandler(inner, spec)

	grouped := handler.WithAttrs([]slog.Attr{slog.String("component", "events")}).WithGroup("sample")
	assert.True(t, grouped.Enabled(context.Background(), slog.LevelDebug))
}

func TestFilteringHandler_GroupKeepsComponentLevel(t *testing.T) {
	spec := &logging.Spec{
		BaseLevel:  logging.LevelWarn,
		Components: map[string]logging.Level{"events": logging.LevelTrace},
	}

	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: logging.LevelTrace.ToSlog()})
	logger := slog.New(logging.NewFilteringHandler(inner, spec))

	// Attributes other than component leave the threshold alone.
	sampleLog := logger.With("component", "events").WithGroup("sample").With("map", "events")
	logging.Trace(sampleLog, "delivered", "cpu", 2)
	assert.Contains(t, buf.String(), "sample.cpu=2")

	buf.Reset()
	logging.Trace(logger.With("map", "events"), "dropped")
	assert.Empty(t, buf.String())
}

func TestNew_Integration(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{
		CLISpec: "warn,events=debug,recorder=trace",
		Output:  &buf,
	})
	require.NoError(t, err)

	logger.Debug("root debug")
	assert.Empty(t, buf.String())

	logger.With("component", "events").Debug("events debug")
	assert.Contains(t, buf.String(), "events debug")

	buf.Reset()
	logger.With("component", "recorder").Log(context.Background(), logging.LevelTrace.ToSlog(), "recorder trace")
	assert.Contains(t, buf.String(), "recorder trace")
	assert.Contains(t, buf.String(), "level=TRACE")

	buf.Reset()
	logger.With("component", "object").Info("object info")
	assert.Empty(t, buf.String())
}

func TestNew_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		opts      logging.Options
		wantLevel logging.Level
	}{
		{
			name:      "cli takes precedence over env",
			opts:      logging.Options{CLISpec: "error", EnvSpec: "debug", ConfigSpec: "info"},
			wantLevel: logging.LevelError,
		},
		{
			name:      "env takes precedence over config",
			opts:      logging.Options{EnvSpec: "debug", ConfigSpec: "info"},
			wantLevel: logging.LevelDebug,
		},
		{
			name:      "config used when nothing else specified",
			opts:      logging.Options{ConfigSpec: "info"},
			wantLevel: logging.LevelInfo,
		},
		{
			name:      "default is warn",
			opts:      logging.Options{},
			wantLevel: logging.LevelWarn,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.opts.Output = &buf

			logger, err := logging.New(tt.opts)
			require.NoError(t, err)
			ctx := context.Background()

			logger.Log(ctx, tt.wantLevel.ToSlog(), "at level")
			assert.NotEmpty(t, buf.String(), "level %s should be logged", tt.wantLevel)

			buf.Reset()
			below := logging.Level(int(tt.wantLevel) - 4)
			logger.Log(ctx, below.ToSlog(), "below level")
			assert.Empty(t, buf.String(), "level %s should not be logged", below)
		})
	}
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := logging.New(logging.Options{CLISpec: "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log spec")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    logging.Format
		wantErr bool
	}{
		{"text", logging.FormatText, false},
		{"JSON", logging.FormatJSON, false},
		{"", logging.FormatText, false},
		{"xml", logging.FormatText, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := logging.ParseFormat(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{
		CLISpec: "info",
		Format:  logging.FormatJSON,
		Output:  &buf,
	})
	require.NoError(t, err)

	logger.Info("test message", "map", "events")
	output := buf.String()

	assert.True(t, strings.HasPrefix(output, "{"))
	assert.Contains(t, output, `"msg":"test message"`)
	assert.Contains(t, output, `"map":"events"`)
}
