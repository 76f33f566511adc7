// Package config loads the launcher configuration from TOML and resolves
// defaults for anything left unset.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultLogLevel    = "info"
	defaultGraceMillis = 800
	defaultMaxAgeHours = 24
	defaultSampleRate  = 44100
)

var defaultExtensions = []string{".mp3", ".wav", ".flac", ".ogg"}

// FileConfig represents the TOML configuration file. Pointer fields tell an
// unset key apart from a zero value.
type FileConfig struct {
	DataDir             *string     `toml:"data_dir"`
	LogLevel            *string     `toml:"log_level"`
	GraceDelayMillis    *int        `toml:"grace_delay_ms"`
	SnapshotMaxAgeHours *int        `toml:"snapshot_max_age_hours"`
	Audio               AudioConfig `toml:"audio"`
}

// AudioConfig maps the [audio] table.
type AudioConfig struct {
	Recursive  *bool    `toml:"recursive"`
	Extensions []string `toml:"extensions"`
	SampleRate *int     `toml:"sample_rate"`
}

// Config is the resolved launcher configuration.
type Config struct {
	DataDir         string
	LogLevel        string
	GraceDelay      time.Duration
	SnapshotMaxAge  time.Duration
	AudioRecursive  bool
	AudioExtensions []string
	SampleRate      int
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Resolve fills every unset value with its default and validates the rest.
func (file FileConfig) Resolve() (Config, error) {
	cfg := Config{
		DataDir:         DefaultDataDir(),
		LogLevel:        defaultLogLevel,
		GraceDelay:      defaultGraceMillis * time.Millisecond,
		SnapshotMaxAge:  defaultMaxAgeHours * time.Hour,
		AudioExtensions: append([]string(nil), defaultExtensions...),
		SampleRate:      defaultSampleRate,
	}
	if file.DataDir != nil && *file.DataDir != "" {
		cfg.DataDir = *file.DataDir
	}
	if file.LogLevel != nil && *file.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(*file.LogLevel)
	}
	if file.GraceDelayMillis != nil {
		if *file.GraceDelayMillis < 0 {
			return Config{}, fmt.Errorf("grace_delay_ms must not be negative, got %d", *file.GraceDelayMillis)
		}
		cfg.GraceDelay = time.Duration(*file.GraceDelayMillis) * time.Millisecond
	}
	if file.SnapshotMaxAgeHours != nil {
		if *file.SnapshotMaxAgeHours <= 0 {
			return Config{}, fmt.Errorf("snapshot_max_age_hours must be positive, got %d", *file.SnapshotMaxAgeHours)
		}
		cfg.SnapshotMaxAge = time.Duration(*file.SnapshotMaxAgeHours) * time.Hour
	}
	if file.Audio.Recursive != nil {
		cfg.AudioRecursive = *file.Audio.Recursive
	}
	if len(file.Audio.Extensions) > 0 {
		cfg.AudioExtensions = normalizeExtensions(file.Audio.Extensions)
	}
	if file.Audio.SampleRate != nil {
		if *file.Audio.SampleRate <= 0 {
			return Config{}, fmt.Errorf("sample_rate must be positive, got %d", *file.Audio.SampleRate)
		}
		cfg.SampleRate = *file.Audio.SampleRate
	}
	return cfg, nil
}

func normalizeExtensions(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, ext := range raw {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}
