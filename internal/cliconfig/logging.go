package cliconfig

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel maps the -v and -q flags to a level. -q wins over -v.
func LogLevel(verbose, quiet bool) zerolog.Level {
	switch {
	case quiet:
		return zerolog.WarnLevel
	case verbose:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns a console logger on stderr at level.
func Logger(level zerolog.Level) zerolog.Logger {
	return newLogger(os.Stderr, level)
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).
		Level(level).
		With().
		Timestamp().
		Logger()
}
