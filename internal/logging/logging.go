// Package logging builds the application's structured logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a zerolog.Logger for env. Production gets JSON lines at info level;
// everything else gets a human-friendly console writer at debug level.
func New(env string) zerolog.Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter is New with an explicit destination (tests pass a buffer).
func NewWithWriter(env string, w io.Writer) zerolog.Logger {
	if env == "production" {
		return zerolog.New(w).Level(zerolog.InfoLevel).With().Timestamp().Logger()
	}
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return zerolog.New(console).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}
