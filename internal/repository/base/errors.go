package base

import (
	"context"
	"errors"

	"github.com/Freeeeeet/companion_booking/internal/model"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeExclusionViolation   = "23P01"
	codeUniqueViolation      = "23505"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
)

// MapError переводит ошибки драйвера в бизнес-ошибки.
// Неизвестные ошибки возвращаются как есть.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *model.Error
	if errors.As(err, &appErr) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return model.Unavailable(err, "database operation timed out")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return &model.Error{Kind: model.KindConflict, Message: "concurrent modification, please retry", Err: err}
	case codeExclusionViolation:
		return &model.Error{Kind: model.KindConflict, Message: "time slot is already taken", Err: err}
	case codeUniqueViolation:
		e := &model.Error{Kind: model.KindPolicyViolation, Message: "duplicate record", Err: err}
		if pgErr.ConstraintName != "" {
			return e.With("constraint", pgErr.ConstraintName)
		}
		return e
	case codeLockNotAvailable, codeQueryCanceled:
		return model.Unavailable(err, "database is busy")
	}
	return err
}
