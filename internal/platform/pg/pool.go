package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"imdb-titles/internal/shared"
)

// PoolOptions configures the PostgreSQL connection pool.
type PoolOptions struct {
	// MaxConns is the upper bound of open connections.
	MaxConns int32
	// MinConns is the number of connections kept warm.
	MinConns int32
	// HealthCheckPeriod is how often idle connections are checked.
	HealthCheckPeriod time.Duration
	// MaxConnLifetime is how long a connection lives before it is recycled.
	MaxConnLifetime time.Duration
	// MaxConnIdleTime is how long an idle connection is kept.
	MaxConnIdleTime time.Duration
	// PingTimeout bounds the ping performed right after the pool is created.
	PingTimeout time.Duration
	// ApplicationName is reported to the server (pg_stat_activity). Empty keeps the DSN value.
	ApplicationName string
}

// DefaultPoolOptions returns options sized for a lookup service with a
// periodic bulk importer sharing the pool.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:          20,
		MinConns:          2,
		HealthCheckPeriod: 30 * time.Second,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   10 * time.Minute,
		PingTimeout:       5 * time.Second,
	}
}

// NewPool creates a pool with DefaultPoolOptions.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return NewPoolWithOptions(ctx, dsn, DefaultPoolOptions())
}

// NewPoolWithOptions creates a pool and pings the server once. A malformed DSN
// is a validation error; an unreachable server is a dependency failure.
func NewPoolWithOptions(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, shared.MarkKind(shared.Wrap(err, "parse postgres dsn"), shared.KindValidation)
	}

	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = opts.MinConns
	cfg.HealthCheckPeriod = opts.HealthCheckPeriod
	cfg.MaxConnLifetime = opts.MaxConnLifetime
	cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	if opts.ApplicationName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = opts.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, shared.MarkKind(shared.Wrap(err, "create postgres pool"), shared.KindDependencyFailure)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, shared.MarkKind(shared.Wrap(err, "ping postgres"), shared.KindDependencyFailure)
	}

	return pool, nil
}
