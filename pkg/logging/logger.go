// Package logging provides structured logging for the record synchronization
// engine using zerolog. Console output is used when stderr is a terminal and
// JSON otherwise, so the widget backend logs cleanly in production.
//
// Example usage:
//
//	log := logging.Default()
//	log.Info().Str("identity", "6443").Msg("Record loaded")
//
//	ctx := logging.WithSession(context.Background(), sessionID)
//	logging.FromContext(ctx).Debug().Msg("Autosave started")
package logging

import (
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger zerolog.Logger

func init() {
	cfg := DefaultConfig()
	cfg.Level = os.Getenv("LOG_LEVEL")
	if cfg.Level == "" && os.Getenv("DEBUG") != "" {
		cfg.Level = "debug"
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.Format = format
	}
	defaultLogger = NewLoggerFromConfig(cfg)
}

// Default returns the process-wide logger. Components fall back to it when
// no logger option is given.
func Default() *zerolog.Logger {
	return &defaultLogger
}

// SetDefault replaces the process-wide logger, including zerolog's global
// log.Logger.
func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// Debug starts a debug event on the default logger.
func Debug() *zerolog.Event { return defaultLogger.Debug() }

// Info starts an info event on the default logger.
func Info() *zerolog.Event { return defaultLogger.Info() }

// Warn starts a warning event on the default logger.
func Warn() *zerolog.Event { return defaultLogger.Warn() }

// Error starts an error event on the default logger.
func Error() *zerolog.Event { return defaultLogger.Error() }

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
