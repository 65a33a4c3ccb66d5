package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeOpen       ErrorType = "open"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeWrite      ErrorType = "write"
	ErrorTypeEncoding   ErrorType = "encoding"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeCanceled   ErrorType = "canceled"
)

// DomainError represents a domain-specific error with context.
// Path names the input document (or output artifact) the error belongs to.
type DomainError struct {
	Type    ErrorType
	Message string
	Path    string
	Err     error
}

func (e *DomainError) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, msg)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// WithPath returns the error annotated with the path it refers to.
func (e *DomainError) WithPath(path string) *DomainError {
	e.Path = path
	return e
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func OpenError(message string, err error) *DomainError {
	return NewError(ErrorTypeOpen, message, err)
}

func RenderError(message string, err error) *DomainError {
	return NewError(ErrorTypeRender, message, err)
}

func WriteError(message string, err error) *DomainError {
	return NewError(ErrorTypeWrite, message, err)
}

func EncodingError(message string, err error) *DomainError {
	return NewError(ErrorTypeEncoding, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func CanceledError(message string, err error) *DomainError {
	return NewError(ErrorTypeCanceled, message, err)
}

// IsErrorType reports whether any error in err's chain is a DomainError of type t.
func IsErrorType(err error, t ErrorType) bool {
	var de *DomainError
	for err != nil {
		if !errors.As(err, &de) {
			return false
		}
		if de.Type == t {
			return true
		}
		err = de.Err
	}
	return false
}
