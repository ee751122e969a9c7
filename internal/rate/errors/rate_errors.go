package rateerrors

import (
	"net/http"

	"user-rates/internal/shared/apperror"
)

var (
	// ErrDuplicateEffectiveDate is the store-enforced uniqueness of
	// (user_id, effective_from) surfacing as a client error. It is a
	// distinguishable specialization of a create failure.
	ErrDuplicateEffectiveDate = apperror.New(
		apperror.CodeDuplicateDate,
		"A rate with this effective date already exists for this user",
		http.StatusConflict,
	)

	ErrRateNotFound = apperror.New(
		apperror.CodeNotFound,
		"No rate record exists for this user and effective date",
		http.StatusNotFound,
	)

	ErrInvalidEffectiveDate = apperror.New(
		apperror.CodeInvalidInput,
		"Effective date must be a valid YYYY-MM-DD calendar date",
		http.StatusBadRequest,
	).WithField("effective_from")
)
