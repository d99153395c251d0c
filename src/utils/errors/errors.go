// Crossbot error tools
package errors

import (
	stderrors "errors"
	"fmt"
	"runtime"
)

// Contract violations raised before any computation starts. Callers match them with Is.
var (
	ErrInvalidParameter = stderrors.New("invalid parameter")
	ErrMissingField     = stderrors.New("missing field")
)

// FieldError names the offending input field of a contract violation.
type FieldError struct {
	Kind   error
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Field)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

func InvalidParameter(field string, format string, args ...any) error {
	return &FieldError{Kind: ErrInvalidParameter, Field: field, Reason: fmt.Sprintf(format, args...)}
}

func MissingField(field string) error {
	return &FieldError{Kind: ErrMissingField, Field: field}
}

// FieldOf returns the field named by a contract violation anywhere in err's chain.
func FieldOf(err error) (string, bool) {
	var fe *FieldError
	if stderrors.As(err, &fe) {
		return fe.Field, true
	}
	return "", false
}

func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// WrapE wraps the original error with a static error message.
// It returns a new error that includes both the static error and the original error.
func WrapE(staticErr, originalErr error) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %w", file, line, staticErr, originalErr)
}

func Wrap(err error, msg string) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %s", file, line, err, msg)
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, format string, args ...any) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %w: %s", file, line, err, fmt.Sprintf(format, args...))
}

// New creates a new error with the given text, prefixed with the caller's location.
func New(text string) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %s", file, line, text)
}

func Newf(format string, args ...any) error {
	_, file, line, _ := runtime.Caller(1)
	return fmt.Errorf("%s:%d: %s", file, line, fmt.Sprintf(format, args...))
}
