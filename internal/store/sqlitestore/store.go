// Package sqlitestore implements title.Repository on SQLite.
package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"imdb-titles/internal/platform/sqlite"
	"imdb-titles/internal/shared"
	"imdb-titles/internal/title"
)

const (
	selectByID = `SELECT * FROM title_basics WHERE tconst = ?`

	upsert = `INSERT INTO title_basics (tconst, titletype, primarytitle, startyear)
VALUES (?, ?, ?, ?)
ON CONFLICT (tconst) DO UPDATE SET
	titletype = excluded.titletype,
	primarytitle = excluded.primarytitle,
	startyear = excluded.startyear,
	updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`
)

// Store reads and writes the title_basics table.
type Store struct {
	db  *sql.DB
	tx  *sqlite.TxRunner
	log *slog.Logger
}

// New returns a Store using tx for writes.
func New(tx *sqlite.TxRunner, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		db:  tx.DB,
		tx:  tx,
		log: log.With(slog.String("component", "sqlitestore")),
	}
}

// Get looks a title up by tconst. No matching row is an error marked
// shared.KindNotFound.
func (s *Store) Get(ctx context.Context, id string) (title.Record, error) {
	values, err := sqlite.GetMap(ctx, s.tx.GetQuerier(ctx), selectByID, id)
	if err != nil {
		return title.Record{}, shared.Wrapf(sqlite.Classify(err), "get title %q", id)
	}

	rec, err := title.ParseRow(title.ValuesRow(values))
	if err != nil {
		return title.Record{}, shared.Wrapf(err, "get title %q", id)
	}
	return rec, nil
}

// Put upserts records in one transaction.
func (s *Store) Put(ctx context.Context, records ...title.Record) error {
	if len(records) == 0 {
		return nil
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		stmt, err := s.tx.GetQuerier(ctx).PrepareContext(ctx, upsert)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, r := range records {
			if _, err := stmt.ExecContext(ctx, r.Values()...); err != nil {
				return fmt.Errorf("upsert %q: %w", r.ID(), err)
			}
		}
		return nil
	})
	if err != nil {
		return shared.Wrapf(sqlite.Classify(err), "put %d titles", len(records))
	}

	s.log.DebugContext(ctx, "titles stored", slog.Int("count", len(records)))
	return nil
}

// Ping checks that the database file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return shared.MarkKind(err, shared.KindDependencyFailure)
	}
	return nil
}

var _ title.Repository = (*Store)(nil)
