package cli

import (
	"github.com/rs/zerolog"
)

// zerologLogger adapts a zerolog.Logger to webquery.Logger.
// The slog-style key/value args become zerolog fields.
type zerologLogger struct {
	logger zerolog.Logger
}

func newZerologLogger(logger zerolog.Logger) zerologLogger {
	return zerologLogger{logger: logger}
}

func (l zerologLogger) Debug(msg string, args ...any) {
	l.logger.Debug().Fields(args).Msg(msg)
}

func (l zerologLogger) Info(msg string, args ...any) {
	l.logger.Info().Fields(args).Msg(msg)
}

func (l zerologLogger) Warn(msg string, args ...any) {
	l.logger.Warn().Fields(args).Msg(msg)
}

func (l zerologLogger) Error(msg string, args ...any) {
	l.logger.Error().Fields(args).Msg(msg)
}
