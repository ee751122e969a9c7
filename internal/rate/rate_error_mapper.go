package rate

import (
	"errors"
	"strings"

	rateerrors "user-rates/internal/rate/errors"
	usererrors "user-rates/internal/user/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return rateerrors.ErrRateNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if pgErr.ConstraintName == "uq_user_rates_effective" {
				return rateerrors.ErrDuplicateEffectiveDate
			}
		case "23503":
			// user_id FK; the user vanished between validation and insert
			return usererrors.ErrUserNotFound
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, "uq_user_rates_effective") {
		return rateerrors.ErrDuplicateEffectiveDate
	}

	return err
}
