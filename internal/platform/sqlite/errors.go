package sqlite

import (
	"database/sql"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"imdb-titles/internal/shared"
)

// IsBusy reports whether err is SQLITE_BUSY or SQLITE_LOCKED, i.e. worth
// retrying once the other writer is done.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := primaryCode(err); ok {
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}

// Classify marks a driver error with a shared.Kind. Context errors are
// returned as is; nil stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if shared.IsCanceled(err) || shared.IsTimeout(err) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return shared.MarkKind(err, shared.KindNotFound)
	}
	if IsBusy(err) {
		return shared.MarkKind(err, shared.KindDependencyFailure)
	}

	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return shared.MarkKind(err, shared.KindConflict)
		case sqlite3.SQLITE_CONSTRAINT_NOTNULL, sqlite3.SQLITE_CONSTRAINT_CHECK:
			return shared.MarkKind(err, shared.KindValidation)
		}
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR, sqlite3.SQLITE_FULL, sqlite3.SQLITE_READONLY:
			return shared.MarkKind(err, shared.KindDependencyFailure)
		}
	}

	return shared.MarkKind(err, shared.KindInternal)
}

func primaryCode(err error) (int, bool) {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return 0, false
	}
	return sqliteErr.Code() & 0xff, true
}
