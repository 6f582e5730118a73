// Package logger provides the zerolog implementation of core/logger.Logger.
package logger

import corelogger "github.com/kilianp07/forestplan/core/logger"

type (
	Logger    = corelogger.Logger
	NopLogger = corelogger.NopLogger
)

// New returns a component logger with default options. APP_ENV=dev selects
// the console writer.
func New(component string) Logger { return NewZerologLogger(component) }
