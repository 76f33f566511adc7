// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FileName is the log file kept in the data directory.
const FileName = "focusplay.log"

// Options configures New.
type Options struct {
	Dir   string
	Level string
	// Console receives human readable output. Nil selects stderr when it is a
	// terminal and disables console output otherwise.
	Console io.Writer
}

// New returns a logger writing JSON lines to the log file in Dir and, when a
// console is available, pretty output to it. The returned closer releases the
// log file.
func New(options Options) (zerolog.Logger, io.Closer, error) {
	level, err := ParseLevel(options.Level)
	if err != nil {
		return zerolog.Nop(), nil, err
	}
	if err := os.MkdirAll(options.Dir, 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("create log dir: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(options.Dir, FileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
	}

	writers := []io.Writer{file}
	console := options.Console
	if console == nil && stderrIsTerminal() {
		console = os.Stderr
	}
	if console != nil {
		writers = append(writers, zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly})
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().
		Logger()
	return logger, file, nil
}

// ParseLevel accepts debug, info, warn and error. Empty means info.
func ParseLevel(raw string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	default:
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", raw)
	}
}

func stderrIsTerminal() bool {
	info, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
