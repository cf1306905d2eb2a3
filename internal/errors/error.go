package errors

import (
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryRuntime  Category = "runtime"
	CategoryProtocol Category = "protocol"
	CategoryConfig   Category = "config"
)

// VangoError is a structured error with a code, an explanation and a hint.
type VangoError struct {
	// Code is a unique error identifier (e.g., "L001").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Component names the component that was rendering, if any.
	Component string

	// Path is the tree position the error was raised at, if any.
	Path string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *VangoError) Error() string {
	msg := e.Message
	if e.Component != "" {
		msg += " (component " + e.Component + ")"
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *VangoError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a VangoError with the same code.
func (e *VangoError) Is(target error) bool {
	t, ok := target.(*VangoError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Code == e.Code
}

// WithSuggestion adds a fix suggestion to the error.
func (e *VangoError) WithSuggestion(s string) *VangoError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the detailed explanation.
func (e *VangoError) WithDetail(d string) *VangoError {
	e.Detail = d
	return e
}

// WithDetailf replaces the detailed explanation with a formatted one.
func (e *VangoError) WithDetailf(format string, args ...any) *VangoError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// WithComponent records the component that was rendering.
func (e *VangoError) WithComponent(name string) *VangoError {
	e.Component = name
	return e
}

// WithPath records the tree position.
func (e *VangoError) WithPath(path string) *VangoError {
	e.Path = path
	return e
}

// Wrap wraps another error.
func (e *VangoError) Wrap(err error) *VangoError {
	e.Wrapped = err
	return e
}

// New creates a VangoError from a registered error code.
func New(code string) *VangoError {
	template, ok := registry[code]
	if !ok {
		return &VangoError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &VangoError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
	}
}

// Newf creates a new VangoError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *VangoError {
	return &VangoError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a VangoError.
func FromError(err error, code string) *VangoError {
	if err == nil {
		return nil
	}
	if ve, ok := err.(*VangoError); ok {
		return ve
	}
	return New(code).Wrap(err)
}

// FromPanic converts a recovered panic value into a VangoError. Values that
// already are VangoErrors keep their code; anything else is reported under
// code as a wrapped error.
func FromPanic(r any, code string) *VangoError {
	switch v := r.(type) {
	case *VangoError:
		return v
	case error:
		return FromError(v, code)
	default:
		return New(code).Wrap(fmt.Errorf("%v", v))
	}
}
