package database

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/chachabrian/tutorlink-backend/internal/apperror"
)

// translateError maps driver errors onto apperror kinds. what names the
// record for not-found messages.
func translateError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(what)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique violation
			switch {
			case strings.Contains(pgErr.ConstraintName, "email"):
				return apperror.Conflict("email already exists")
			case strings.Contains(pgErr.ConstraintName, "reviews_booking"):
				return apperror.Conflict("this session has already been reviewed")
			}
			return apperror.Conflict(what + " already exists")
		case "23503": // foreign key
			return apperror.Validation("", "referenced record does not exist")
		case "23514": // check constraint
			return apperror.Validation("", "value violates constraint "+pgErr.ConstraintName)
		}
	}
	return err
}
