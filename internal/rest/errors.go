package rest

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound is the sentinel a resource returns (possibly wrapped)
// when the requested entity does not exist. Dispatch maps it to a 404
// with a JSON null body.
var ErrNotFound = errors.New("not found")

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// ValidationError carries field-keyed validation messages. Dispatch
// maps it to a 409 whose body is the map itself.
type ValidationError map[string][]string

// Error implements the error interface.
func (e ValidationError) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// Add appends a message for a field.
func (e ValidationError) Add(field, message string) {
	e[field] = append(e[field], message)
}

// PermissionError means the authenticated caller may not perform the
// operation. Dispatch maps it to a 403 with the message as JSON string.
type PermissionError struct {
	Message string
}

// Error implements the error interface.
func (e *PermissionError) Error() string { return e.Message }

// PermissionDenied creates a PermissionError.
func PermissionDenied(message string) *PermissionError {
	return &PermissionError{Message: message}
}

// InvalidValueError means the request carried a value the resource
// cannot work with. Dispatch maps it to a 400 with the message as JSON
// string.
type InvalidValueError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *InvalidValueError) Error() string { return e.Message }

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *InvalidValueError) Unwrap() error { return e.Cause }

// InvalidValue creates an InvalidValueError.
func InvalidValue(message string) *InvalidValueError {
	return &InvalidValueError{Message: message}
}

// InvalidValuef creates an InvalidValueError with a formatted message.
func InvalidValuef(format string, args ...any) *InvalidValueError {
	return &InvalidValueError{Message: fmt.Sprintf(format, args...)}
}

// FromValidator converts go-playground validation errors into a
// field-keyed ValidationError. Field names use the lower-cased struct
// field, matching the JSON tags used across the API contracts.
func FromValidator(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return InvalidValue(err.Error())
	}
	out := make(ValidationError, len(verrs))
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		out.Add(field, validationMessage(fe))
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
