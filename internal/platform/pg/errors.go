package pg

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"imdb-titles/internal/shared"
)

// SQLSTATE codes the stores care about.
const (
	codeUniqueViolation     = "23505"
	codeNotNullViolation    = "23502"
	codeStringTooLong       = "22001"
	codeNumericOutOfRange   = "22003"
	codeInvalidTextRepr     = "22P02"
	classConnectionFailure  = "08"
	classInsufficientRes    = "53"
	classOperatorIntervened = "57"
)

// IsNoRows reports whether err is pgx.ErrNoRows.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// Classify marks a driver error with a shared.Kind so adapters never look at
// pgx types. Context errors are returned as is; nil stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if shared.IsCanceled(err) || shared.IsTimeout(err) {
		return err
	}
	if IsNoRows(err) {
		return shared.MarkKind(err, shared.KindNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == codeUniqueViolation:
			return shared.MarkKind(err, shared.KindConflict)
		case pgErr.Code == codeNotNullViolation,
			pgErr.Code == codeStringTooLong,
			pgErr.Code == codeNumericOutOfRange,
			pgErr.Code == codeInvalidTextRepr:
			return shared.MarkKind(err, shared.KindValidation)
		case hasClass(pgErr.Code, classConnectionFailure),
			hasClass(pgErr.Code, classInsufficientRes),
			hasClass(pgErr.Code, classOperatorIntervened):
			return shared.MarkKind(err, shared.KindDependencyFailure)
		default:
			return shared.MarkKind(err, shared.KindInternal)
		}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.SafeToRetry(err) {
		return shared.MarkKind(err, shared.KindDependencyFailure)
	}

	return shared.MarkKind(err, shared.KindInternal)
}

func hasClass(code, class string) bool {
	return len(code) == 5 && code[:2] == class
}
