// Package logging configures the process-wide zerolog logger.
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the given environment and returns the root
// logger. Production deployments log JSON lines, everything else gets the
// console writer with debug logging enabled.
func Setup(environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level := zerolog.InfoLevel
	if environment != "production" {
		level = zerolog.DebugLevel
	}

	var logger zerolog.Logger
	if environment == "production" {
		logger = zerolog.New(os.Stdout)
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	logger = logger.With().Timestamp().Logger().Level(level)
	log.Logger = logger

	return logger
}
