// Package logging configures the global zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options configures Setup
type Options struct {
	// Level is one of debug, info, warn, error or disabled. Empty means warn.
	Level string
	// File sends logs to a file instead of Writer. Used by the TUI, which
	// owns the terminal.
	File string
	// Writer receives console output when File is empty. Defaults to stderr.
	Writer io.Writer
	// WithCaller adds file:line to every entry
	WithCaller bool
}

// ParseLevel maps a level name to a zerolog level
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "":
		return zerolog.WarnLevel, nil
	case "disabled", "off", "none":
		return zerolog.Disabled, nil
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q", level)
	}
	return l, nil
}

// Setup replaces the global logger. The returned closer releases the log
// file, if one was opened.
func Setup(opts Options) (io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	var (
		out    io.Writer
		closer io.Closer = nopCloser{}
	)

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		out = f
		closer = f
	} else {
		w := opts.Writer
		if w == nil {
			w = os.Stderr
		}
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if opts.WithCaller {
		ctx = ctx.Caller()
	}
	log.Logger = ctx.Logger()
	zerolog.SetGlobalLevel(level)

	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
