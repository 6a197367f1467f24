// Package compose exports Docker resource groups as Docker Compose projects.
// This is part of the Functional Core - all functions are pure with no I/O.
package compose

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Export errors
	ErrNilGroup       = errors.New("resource group is nil")
	ErrNotDockerGroup = errors.New("only docker resource groups can be exported")
	ErrNoContainers   = errors.New("resource group has no containers")
	ErrInvalidPort    = errors.New("invalid port configuration")

	// Load errors
	ErrEmptyInput  = errors.New("compose file is empty")
	ErrInvalidYAML = errors.New("invalid YAML syntax")
)

// ExportError wraps errors with context about where conversion failed.
type ExportError struct {
	Field   string // e.g., "services.api.ports[0]"
	Message string
	Err     error
}

func (e *ExportError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// NewExportError creates a new ExportError.
func NewExportError(field, message string, err error) *ExportError {
	return &ExportError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}
