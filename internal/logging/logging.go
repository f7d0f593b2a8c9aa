// Package logging configures the global zerolog logger from settings.
package logging

import (
	"fmt"
	"io"
	"os"

	"heart-risk/internal/cfg"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Setup sets the global level and points log.Logger at the console, a
// rotating file, or both. The returned closer flushes the file sink.
func Setup(s cfg.LogSettings) (io.Closer, error) {
	level, err := zerolog.ParseLevel(s.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", s.Level, err)
	}
	zerolog.SetGlobalLevel(level)

	w, closer := writers(s, os.Stderr)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func writers(s cfg.LogSettings, console io.Writer) (io.Writer, io.Closer) {
	var outs []io.Writer
	var closer io.Closer = nopCloser{}

	if s.Console {
		outs = append(outs, zerolog.ConsoleWriter{Out: console})
	}
	if s.File != "" {
		file := &lumberjack.Logger{
			Filename:   s.File,
			MaxSize:    s.MaxSizeMB,
			MaxBackups: s.MaxBackups,
			Compress:   true,
		}
		outs = append(outs, file)
		closer = file
	}

	switch len(outs) {
	case 0:
		return io.Discard, closer
	case 1:
		return outs[0], closer
	default:
		return zerolog.MultiLevelWriter(outs...), closer
	}
}
