// Package logtrace provides logging utilities for the classline client.
// It integrates with zerolog for structured logging.
package logtrace

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger initializes the global logger with Unix timestamp format.
// Configures zerolog to output to stderr with timestamps.
func InitLogger() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// InitCLILogger initializes the global logger for interactive CLI use.
// Output goes through the console writer and defaults to warn level so
// command output stays readable; set CLASSLINE_DEBUG for full logs.
func InitCLILogger() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
	if os.Getenv("CLASSLINE_DEBUG") != "" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}
