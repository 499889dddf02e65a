package container

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrHeaderTooLarge  = errors.New("header exceeds maximum size")
	ErrTensorNotFound  = errors.New("tensor not found")
	ErrOutOfBounds     = errors.New("tensor extends beyond data section")
	ErrNegativeExtent  = errors.New("negative offset or size")
	ErrUnsupportedType = errors.New("unsupported element type")
)

// ValidationError provides detailed information about a malformed container.
type ValidationError struct {
	Path    string // Container file path
	Tensor  string // Tensor name involved, if any
	Details string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Tensor != "" {
		return fmt.Sprintf("container %s: tensor %q: %s", e.Path, e.Tensor, e.Details)
	}
	return fmt.Sprintf("container %s: %s", e.Path, e.Details)
}
