// Package intake loads application descriptors and resolves the file and
// cloud inputs the resource group builders need.
package intake

import (
	"errors"
	"fmt"
)

// =============================================================================
// Error Types
// =============================================================================

var (
	// Descriptor errors
	ErrDescriptorNotFound = errors.New("descriptor not found")
	ErrDescriptorParse    = errors.New("descriptor could not be parsed")

	// Input errors
	ErrVarsFile       = errors.New("invalid vars file")
	ErrNoSecretSource = errors.New("cloud secrets configured without a secret source")
	ErrSecretLookup   = errors.New("cloud secret lookup failed")
)

// IntakeError wraps errors with additional context.
type IntakeError struct {
	Op      string // Operation that failed (e.g., "LoadDescriptor")
	Entity  string // Entity type (descriptor, env_file, secrets_file, cloud_secrets)
	ID      string // Path or secret ID if applicable
	Message string
	Err     error
}

func (e *IntakeError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s %s %s: %s", e.Op, e.Entity, e.ID, e.Message)
	}
	if e.Entity != "" {
		return fmt.Sprintf("%s %s: %s", e.Op, e.Entity, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *IntakeError) Unwrap() error {
	return e.Err
}

// NewIntakeError creates a new IntakeError.
func NewIntakeError(op, entity, id, message string, err error) *IntakeError {
	return &IntakeError{
		Op:      op,
		Entity:  entity,
		ID:      id,
		Message: message,
		Err:     err,
	}
}
