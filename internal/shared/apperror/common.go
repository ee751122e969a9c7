package apperror

import "net/http"

var (
	ErrNotFound = New(
		CodeNotFound,
		"Resource not found",
		http.StatusNotFound,
	)

	ErrInternal = New(
		CodeInternalError,
		"An unexpected error occurred",
		http.StatusInternalServerError,
	)

	ErrInvalidInput = New(
		CodeInvalidInput,
		"The provided input is invalid",
		http.StatusBadRequest,
	)
)

// RequiredField builds the INVALID_INPUT error for a missing field.
func RequiredField(field string) *AppError {
	e := New(CodeInvalidInput, field+" is required", http.StatusBadRequest)
	e.Field = field
	return e
}

// InvalidField builds the INVALID_INPUT error for a malformed field.
func InvalidField(field string) *AppError {
	e := New(CodeInvalidInput, field+" is invalid", http.StatusBadRequest)
	e.Field = field
	return e
}
