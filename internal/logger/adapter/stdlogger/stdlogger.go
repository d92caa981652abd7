// Package stdlogger adapts the global zerolog logger to printf style logger interfaces,
// such as gorm's logger.Writer.
package stdlogger

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger forwards printf style calls to zerolog.
type Logger struct {
	logger *zerolog.Logger
	level  zerolog.Level // level used by Printf
}

// New returns a Logger on the global zerolog logger. Printf logs at info level.
func New() *Logger {
	return NewWithLevel(zerolog.InfoLevel)
}

// NewWithLevel returns a Logger whose Printf logs at level.
func NewWithLevel(level zerolog.Level) *Logger {
	return &Logger{logger: &log.Logger, level: level}
}

// Printf implements gorm's logger.Writer.
func (l *Logger) Printf(format string, args ...any) {
	l.logger.WithLevel(l.level).Msgf(strings.TrimSpace(format), args...)
}

// Debugf logs at debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.logger.Debug().Msgf(format, args...)
}

// Infof logs at info level.
func (l *Logger) Infof(format string, args ...any) {
	l.logger.Info().Msgf(format, args...)
}

// Warningf logs at warn level.
func (l *Logger) Warningf(format string, args ...any) {
	l.logger.Warn().Msgf(format, args...)
}

// Errorf logs at error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.logger.Error().Msgf(format, args...)
}
