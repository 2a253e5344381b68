// Package pgstore implements title.Repository on Postgres.
package pgstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"imdb-titles/internal/platform/pg"
	"imdb-titles/internal/shared"
	"imdb-titles/internal/title"
)

const (
	selectByID = `SELECT * FROM title_basics WHERE tconst = $1`

	upsert = `INSERT INTO title_basics (tconst, titletype, primarytitle, startyear)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tconst) DO UPDATE SET
	titletype = EXCLUDED.titletype,
	primarytitle = EXCLUDED.primarytitle,
	startyear = EXCLUDED.startyear,
	updated_at = now()`
)

// Store reads and writes the title_basics table.
type Store struct {
	pool *pgxpool.Pool
	tx   *pg.TxRunner
	log  *slog.Logger
}

// New returns a Store over pool.
func New(pool *pgxpool.Pool, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		pool: pool,
		tx:   pg.NewTxRunner(pool),
		log:  log.With(slog.String("component", "pgstore")),
	}
}

// Get looks a title up by tconst. No matching row is an error marked
// shared.KindNotFound.
func (s *Store) Get(ctx context.Context, id string) (title.Record, error) {
	rows, err := s.tx.GetQuerier(ctx).Query(ctx, selectByID, id)
	if err != nil {
		return title.Record{}, shared.Wrapf(pg.Classify(err), "get title %q", id)
	}

	values, err := pgx.CollectOneRow(rows, pgx.RowToMap)
	if err != nil {
		return title.Record{}, shared.Wrapf(pg.Classify(err), "get title %q", id)
	}

	rec, err := title.ParseRow(title.ValuesRow(values))
	if err != nil {
		return title.Record{}, shared.Wrapf(err, "get title %q", id)
	}
	return rec, nil
}

// Put upserts records in one transaction, sent as a single batch.
func (s *Store) Put(ctx context.Context, records ...title.Record) error {
	if len(records) == 0 {
		return nil
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		for _, r := range records {
			batch.Queue(upsert, r.Values()...)
		}

		br := s.tx.GetQuerier(ctx).SendBatch(ctx, batch)
		for i := range records {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("upsert %q: %w", records[i].ID(), err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return shared.Wrapf(pg.Classify(err), "put %d titles", len(records))
	}

	s.log.DebugContext(ctx, "titles stored", slog.Int("count", len(records)))
	return nil
}

// Ping checks that the pool can reach the database.
func (s *Store) Ping(ctx context.Context) error {
	return pg.HealthCheckPool(ctx, s.pool)
}

var _ title.Repository = (*Store)(nil)
