// Package logging implements interfaces.Logger with logrus.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/ochairo/hardcheck/internal/domain/entities"
	"github.com/ochairo/hardcheck/internal/domain/interfaces"
)

// Logger writes structured log lines through logrus
type Logger struct {
	entry *logrus.Entry
}

// New creates a logger writing to w. verbose enables debug messages, color
// follows the run's color mode.
func New(w io.Writer, verbose bool, color entities.ColorMode) *Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetLevel(logrus.InfoLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	log.SetFormatter(&logrus.TextFormatter{
		ForceColors:      color == entities.ColorAlways,
		DisableColors:    color == entities.ColorNever,
		DisableTimestamp: true,
	})
	return &Logger{entry: logrus.NewEntry(log)}
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	l.entry.WithFields(toFields(fields)).Debug(msg)
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	l.entry.WithFields(toFields(fields)).Info(msg)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	l.entry.WithFields(toFields(fields)).Warn(msg)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	l.entry.WithFields(toFields(fields)).Error(msg)
}

// With returns a child logger carrying fields on every line
func (l *Logger) With(fields ...interfaces.Field) interfaces.Logger {
	return &Logger{entry: l.entry.WithFields(toFields(fields))}
}

func toFields(fields []interfaces.Field) logrus.Fields {
	data := make(logrus.Fields, len(fields))
	for _, f := range fields {
		data[f.Key] = f.Value
	}
	return data
}
