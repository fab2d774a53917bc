// Package stdlogger adapts the global zerolog logger to printf style logger interfaces,
// e.g. gorm's logger.Writer.
package stdlogger

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger forwards printf style calls to the global zerolog logger.
type Logger struct {
	component string
	level     zerolog.Level
}

// New returns a Logger whose Printf writes on debug level.
func New() *Logger {
	return &Logger{level: zerolog.DebugLevel}
}

// NewComponent returns a Logger tagging every line with component and writing Printf on level.
func NewComponent(component string, level zerolog.Level) *Logger {
	return &Logger{component: component, level: level}
}

func (l *Logger) emit(level zerolog.Level, format string, args ...any) {
	e := log.WithLevel(level)
	if l.component != "" {
		e = e.Str("component", l.component)
	}

	e.Msg(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Printf implements gorm logger.Writer.
func (l *Logger) Printf(format string, args ...any) {
	l.emit(l.level, format, args...)
}

// Debugf logs on debug level.
func (l *Logger) Debugf(format string, args ...any) {
	l.emit(zerolog.DebugLevel, format, args...)
}

// Infof logs on info level.
func (l *Logger) Infof(format string, args ...any) {
	l.emit(zerolog.InfoLevel, format, args...)
}

// Warningf logs on warn level.
func (l *Logger) Warningf(format string, args ...any) {
	l.emit(zerolog.WarnLevel, format, args...)
}

// Errorf logs on error level.
func (l *Logger) Errorf(format string, args ...any) {
	l.emit(zerolog.ErrorLevel, format, args...)
}
