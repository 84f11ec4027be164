package main

import (
	"os"

	"github.com/loykin/aegisrun/internal/common"
)

// ExitHandler provides a testable way to handle program termination
type ExitHandler interface {
	Exit(code int)
	LogFatalError(err error, msg string, keyvals ...any)
}

// DefaultExitHandler exits the process after logging
type DefaultExitHandler struct{}

// NewDefaultExitHandler creates a new default exit handler
func NewDefaultExitHandler() *DefaultExitHandler {
	return &DefaultExitHandler{}
}

// Exit terminates the program with the given exit code
func (h *DefaultExitHandler) Exit(code int) {
	os.Exit(code)
}

// LogFatalError logs a fatal error and exits with status 1. The logger is looked
// up at call time so it honors the configured format.
func (h *DefaultExitHandler) LogFatalError(err error, msg string, keyvals ...any) {
	logFatal(err, msg, keyvals...)
	h.Exit(1)
}

func logFatal(err error, msg string, keyvals ...any) {
	allKeyvals := append([]any{"error", err}, keyvals...)
	common.GetLogger().WithComponent("main").Error(msg, allKeyvals...)
}

// Global exit handler (can be replaced for testing)
var exitHandler ExitHandler = NewDefaultExitHandler()
