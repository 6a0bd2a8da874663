package errors

import "fmt"

// ErrorCode represents a Switchboard error code.
type ErrorCode string

const (
	ErrInvalidRequest  ErrorCode = "INVALID_REQUEST"  // 400
	ErrUnparsableInput ErrorCode = "UNPARSABLE_INPUT" // 400
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrInternal        ErrorCode = "INTERNAL"         // 500
)

// SwitchboardError represents a structured error with code, status, and details.
type SwitchboardError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *SwitchboardError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *SwitchboardError {
	return &SwitchboardError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnparsableInput creates a 400 error for input that could not be decoded
// at all. Per the resolver contract, callers receive an error field instead
// of conflicts/resolved_set when this is returned.
func NewUnparsableInput(err error) *SwitchboardError {
	msg := "input could not be parsed"
	if err != nil {
		msg = fmt.Sprintf("input could not be parsed: %v", err)
	}
	return &SwitchboardError{
		Code:    ErrUnparsableInput,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing signature or cache entry.
func NewNotFound(identifier string) *SwitchboardError {
	return &SwitchboardError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *SwitchboardError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SwitchboardError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a SwitchboardError with the given code.
func Is(err error, code ErrorCode) bool {
	if sErr, ok := err.(*SwitchboardError); ok {
		return sErr.Code == code
	}
	return false
}
