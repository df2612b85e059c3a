package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frobware/go-bpfobject/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bpfobject.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.Equal(t, 8, cfg.Events.PageCount)
	assert.Equal(t, "/sys/fs/bpf", cfg.BPFFS.Root)
	assert.Equal(t, "/proc/self/mountinfo", cfg.BPFFS.MountInfo)
	assert.NotEmpty(t, cfg.Recorder.DBPath)

	d, err := cfg.Events.PollTimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, d)

	d, err = cfg.Events.LostLogIntervalDuration()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, d)
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig(), cfg)
}

func TestLoad_Overlay(t *testing.T) {
	path := writeConfig(t, `
[events]
page_count = 64

[logging.components]
events = "debug"
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Events.PageCount)
	assert.Equal(t, "250ms", cfg.Events.PollTimeout, "unset keys keep defaults")
	assert.Equal(t, "warn,events=debug", cfg.Logging.ToSpec())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"syntax", "[events\n", "failed to parse"},
		{"unknown key", "[events]\nbuffer = 1\n", "unknown keys"},
		{"page count", "[events]\npage_count = 12\n", "power of two"},
		{"zero page count", "[events]\npage_count = 0\n", "power of two"},
		{"duration", "[events]\npoll_timeout = \"soon\"\n", "events.poll_timeout"},
		{"negative duration", "[events]\nlost_log_interval = \"-1s\"\n", "must be positive"},
		{"empty root", "[bpffs]\nroot = \"\"\n", "bpffs.root"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
		})
	}
}

func TestLoggingConfig_ToSpec(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.LoggingConfig
		want string
	}{
		{"empty", config.LoggingConfig{}, ""},
		{"level only", config.LoggingConfig{Level: "info"}, "info"},
		{
			"components sorted",
			config.LoggingConfig{Components: map[string]string{"recorder": "trace", "events": "debug"}},
			"events=debug,recorder=trace",
		},
		{
			"both",
			config.LoggingConfig{Level: "info", Components: map[string]string{"layout": "debug"}},
			"info,layout=debug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.ToSpec())
		})
	}
}
