// Package modsynclog defines the engine's logger interface. By default it
// uses the Go logger but it can be replaced with a host-defined logger, e.g.
// one that forwards to the desktop shell's log panel. A run can identify
// itself with a correlation ID (the CLI's sync subcommand does); WithRun
// scopes a Logger to one so call sites don't have to repeat the ID in every
// format string.
package modsynclog

import (
	"fmt"
	"log"
)

// Logger is the engine's logging interface.
type Logger interface {
	Errorf(format string, args ...any)
	Warnf(format string, args ...any)
	Infof(format string, args ...any)
	Debugf(format string, args ...any)
}

var logger Logger = &DefaultLogger{}

// SetLogger overwrites the default engine logger with a host-specified one.
func SetLogger(l Logger) { logger = l }

// Errorf is the static formatted error logging function.
func Errorf(format string, args ...any) {
	logger.Errorf(format, args...)
}

// Warnf is the static formatted warning logging function.
func Warnf(format string, args ...any) {
	logger.Warnf(format, args...)
}

// Infof is the static formatted info logging function.
func Infof(format string, args ...any) {
	logger.Infof(format, args...)
}

// Debugf is the static formatted debug logging function.
func Debugf(format string, args ...any) {
	logger.Debugf(format, args...)
}

// DefaultLogger is the Logger implementation used by default. It logs to
// stderr using the standard library logger.
type DefaultLogger struct {
	Verbose bool // Whether debug logs should be shown.
}

// Errorf is the formatted error logging function.
func (DefaultLogger) Errorf(format string, args ...any) {
	log.Printf(format, args...)
}

// Warnf is the formatted warning logging function.
func (DefaultLogger) Warnf(format string, args ...any) {
	log.Printf(format, args...)
}

// Infof is the formatted info logging function.
func (DefaultLogger) Infof(format string, args ...any) {
	log.Printf(format, args...)
}

// Debugf is the formatted debug logging function.
func (l *DefaultLogger) Debugf(format string, args ...any) {
	if l.Verbose {
		log.Printf(format, args...)
	}
}

// runScoped prefixes every message with a correlation ID, delegating to
// whichever Logger is currently active via SetLogger.
type runScoped struct {
	id string
}

// WithRun returns a Logger that tags every message with id, so a sync,
// export, or install-local run's log lines can be grepped together without
// each call site formatting the ID in by hand.
func WithRun(id string) Logger {
	return runScoped{id: id}
}

func (r runScoped) Errorf(format string, args ...any) { logger.Errorf(r.scope(format), args...) }
func (r runScoped) Warnf(format string, args ...any)  { logger.Warnf(r.scope(format), args...) }
func (r runScoped) Infof(format string, args ...any)  { logger.Infof(r.scope(format), args...) }
func (r runScoped) Debugf(format string, args ...any) { logger.Debugf(r.scope(format), args...) }

func (r runScoped) scope(format string) string {
	return fmt.Sprintf("run %s: %s", r.id, format)
}
