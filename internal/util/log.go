package util

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger returns a JSON logger on stdout at the requested level (info when unparsable).
func NewLogger(level string) zerolog.Logger {
	return newLogger(os.Stdout, level)
}

// NewConsoleLogger is the human-readable variant used by the interactive binaries.
func NewConsoleLogger(level string) zerolog.Logger {
	return newLogger(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}, level)
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(lvl)
}
