package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Nil(t, cfg.DataDir)

	_, err = LoadConfig("")
	assert.Error(t, err)
}

func TestResolveDefaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	cfg, err := FileConfig{}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg/data", "focusplay"), cfg.DataDir)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 800*time.Millisecond, cfg.GraceDelay)
	assert.Equal(t, 24*time.Hour, cfg.SnapshotMaxAge)
	assert.False(t, cfg.AudioRecursive)
	assert.Equal(t, []string{".mp3", ".wav", ".flac", ".ogg"}, cfg.AudioExtensions)
	assert.Equal(t, 44100, cfg.SampleRate)
}

func TestLoadAndResolveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `data_dir = "/tmp/focus"
log_level = "DEBUG"
grace_delay_ms = 0
snapshot_max_age_hours = 6

[audio]
recursive = true
extensions = ["MP3", " .ogg "]
sample_rate = 48000
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	file, err := LoadConfig(path)
	require.NoError(t, err)
	cfg, err := file.Resolve()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/focus", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, time.Duration(0), cfg.GraceDelay)
	assert.Equal(t, 6*time.Hour, cfg.SnapshotMaxAge)
	assert.True(t, cfg.AudioRecursive)
	assert.Equal(t, []string{".mp3", ".ogg"}, cfg.AudioExtensions)
	assert.Equal(t, 48000, cfg.SampleRate)
}

func TestResolveRejectsBadValues(t *testing.T) {
	negative := -1
	_, err := FileConfig{GraceDelayMillis: &negative}.Resolve()
	assert.Error(t, err)

	zero := 0
	_, err = FileConfig{SnapshotMaxAgeHours: &zero}.Resolve()
	assert.Error(t, err)

	_, err = FileConfig{Audio: AudioConfig{SampleRate: &zero}}.Resolve()
	assert.Error(t, err)
}

func TestLoadConfigRejectsMalformedToml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir = "), 0o644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}
