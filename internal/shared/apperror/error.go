package apperror

import "fmt"

type AppError struct {
	Code       string // stable machine-readable code (e.g. DUPLICATE_DATE)
	Message    string // user-facing message
	HTTPStatus int
	Field      string // offending input field, when the error is a validation error
	Err        error  // wrapped original error (optional)
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap implements errors.Unwrap interface for errors.Is/As
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError without wrapping
func New(code, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap creates an AppError that wraps an existing error
func Wrap(err error, code, message string, httpStatus int) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// WithField returns a copy of the error annotated with the input field that
// failed validation.
func (e *AppError) WithField(field string) *AppError {
	clone := *e
	clone.Field = field
	return &clone
}
