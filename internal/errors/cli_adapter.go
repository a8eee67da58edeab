package errors

import (
	"log/slog"
)

// CLIErrorAdapter handles error presentation and exit code determination for the CLI.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
	}
}

// ExitCodeFor determines the exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if ae, ok := As(err); ok {
		return exitCodeFromCategory(ae.Category)
	}
	return 1
}

func exitCodeFromCategory(c ErrorCategory) int {
	switch c {
	case CategoryValidation:
		return 2 // Invalid usage
	case CategoryConfig:
		return 7
	case CategoryTask, CategoryTemplate, CategoryFileSystem:
		return 11 // Build error
	case CategoryWatch, CategoryRuntime, CategoryStorage:
		return 12
	case CategoryInternal:
		return 10
	default:
		return 1
	}
}

// HandleError logs err and returns the exit code the process should use.
func (a *CLIErrorAdapter) HandleError(err error) int {
	if err == nil {
		return 0
	}
	attrs := []any{"error", err.Error()}
	if ae, ok := As(err); ok {
		attrs = append(attrs, "category", string(ae.Category), "severity", string(ae.Severity))
		if a.verbose {
			for k, v := range ae.Context {
				attrs = append(attrs, k, v)
			}
		}
	}
	a.logger.Error("assemble failed", attrs...)
	return a.ExitCodeFor(err)
}
