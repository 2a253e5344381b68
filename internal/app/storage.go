package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"imdb-titles/internal/adapter/httpapi"
	"imdb-titles/internal/config"
	"imdb-titles/internal/platform/pg"
	"imdb-titles/internal/platform/sqlite"
	"imdb-titles/internal/store/pgstore"
	"imdb-titles/internal/store/sqlitestore"
	"imdb-titles/internal/title"
	"imdb-titles/migrations"
)

type storage struct {
	repo    title.Repository
	health  httpapi.HealthChecker
	pool    *pgxpool.Pool
	closers []func()
}

func (s *storage) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openStorage connects the configured store and migrates its schema, first
// dropping it when reset is set.
func (a *App) openStorage(ctx context.Context, reset bool) (*storage, error) {
	switch a.cfg.Store.Driver {
	case config.DriverPostgres:
		return a.openPostgres(ctx, reset)
	case config.DriverSQLite:
		return a.openSQLite(ctx, reset)
	default:
		return nil, fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
}

func (a *App) openPostgres(ctx context.Context, reset bool) (*storage, error) {
	dsn := a.cfg.Postgres.DSN

	if err := pg.WaitForDB(ctx, dsn, pg.DefaultHealthCheckOptions()); err != nil {
		return nil, err
	}
	if reset {
		if err := pg.ResetMigrationsFromFS(dsn, migrations.FS, migrations.PostgresDir); err != nil {
			return nil, err
		}
		a.log.Warn("postgres schema reset")
	}
	info, err := pg.ApplyMigrationsFromFS(dsn, migrations.FS, migrations.PostgresDir)
	if err != nil {
		return nil, err
	}
	a.log.Info("postgres migrations", slog.Bool("applied", info.Applied), slog.Uint64("version", uint64(info.FinalVersion)))

	opts := pg.DefaultPoolOptions()
	opts.ApplicationName = "imdb-titles"
	pool, err := pg.NewPoolWithOptions(ctx, dsn, opts)
	if err != nil {
		return nil, err
	}

	store := pgstore.New(pool, a.log)
	return &storage{repo: store, health: store, pool: pool, closers: []func(){pool.Close}}, nil
}

func (a *App) openSQLite(ctx context.Context, reset bool) (*storage, error) {
	path := a.cfg.SQLite.Path

	opts := sqlite.DefaultDBOptions()
	opts.EnableWriteQueue = true
	db, err := sqlite.NewDBWithOptions(ctx, path, opts)
	if err != nil {
		return nil, err
	}

	if reset {
		if err := sqlite.ResetMigrationsFromFS(path, migrations.FS, migrations.SQLiteDir); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.log.Warn("sqlite schema reset", slog.String("path", path))
	}
	version, err := sqlite.ApplyMigrationsFromFS(path, migrations.FS, migrations.SQLiteDir)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	a.log.Info("sqlite migrations", slog.String("path", path), slog.Uint64("version", uint64(version)))

	tx := sqlite.NewTxRunnerWithOptions(db, opts)
	store := sqlitestore.New(tx, a.log)
	return &storage{
		repo:   store,
		health: store,
		closers: []func(){
			func() { _ = db.Close() },
			func() { _ = tx.Close() },
		},
	}, nil
}
