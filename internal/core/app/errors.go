// Package app holds the application configuration record: grouped config
// structs, their defaults and validation.
package app

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// ErrInvalidConfig is wrapped by every ValidationError.
	ErrInvalidConfig = errors.New("invalid application configuration")

	// Build input errors
	ErrMissingBuildContext  = errors.New("build context is missing")
	ErrWrongBuildContext    = errors.New("build context has unexpected kind")
	ErrMissingWorkspaceRoot = errors.New("workspace root is not set")
	ErrContainerPaths       = errors.New("container paths could not be derived")
)

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string // e.g., "ports.container_port"
	Message string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError is returned when a configuration record fails validation.
// It is fatal: the record is never constructed.
type ValidationError struct {
	App      string
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		parts = append(parts, p.String())
	}
	return fmt.Sprintf("config for %q is not valid: %s", e.App, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidConfig
}

// ConfigurationError reports invalid or missing input to a build.
type ConfigurationError struct {
	Field   string // e.g., "build_context"
	Message string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a new ConfigurationError.
func NewConfigurationError(field, message string, err error) *ConfigurationError {
	return &ConfigurationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// IsConfigurationError reports whether err is (or wraps) a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cErr *ConfigurationError
	return errors.As(err, &cErr)
}
