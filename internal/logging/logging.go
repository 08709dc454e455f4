// Package logging provides Ralph's ambient logging triad: three thin
// wrappers over the standard library log.Logger, prefixed by level.
package logging

import (
	"log"
	"os"
)

var (
	infoLog  = log.New(os.Stderr, "[INFO] ", log.LstdFlags)
	warnLog  = log.New(os.Stderr, "[WARN] ", log.LstdFlags)
	errorLog = log.New(os.Stderr, "[ERROR] ", log.LstdFlags)
)

// Info logs an informational message.
func Info(format string, args ...interface{}) {
	infoLog.Printf(format, args...)
}

// Warning logs a warning message.
func Warning(format string, args ...interface{}) {
	warnLog.Printf(format, args...)
}

// Error logs an error message.
func Error(format string, args ...interface{}) {
	errorLog.Printf(format, args...)
}
