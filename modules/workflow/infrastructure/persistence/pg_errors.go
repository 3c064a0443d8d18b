package persistence

import (
	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/proseed/proseed/modules/workflow/domain/integrity"
)

const (
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// mapPgError turns constraint failures into the shared integrity errors so
// that callers never see driver types.
func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgForeignKeyViolation, pgCheckViolation:
		return errors.Wrap(integrity.ErrReferenced, pgErr.ConstraintName)
	case pgUniqueViolation:
		return errors.Wrap(integrity.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
