package pg

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"imdb-titles/internal/shared"
)

// WaitStrategy is the backoff shape used by WaitForDB between attempts.
type WaitStrategy int

const (
	LinearWait WaitStrategy = iota
	ExponentialWait
)

// HealthCheckOptions configures WaitForDB.
type HealthCheckOptions struct {
	// MaxRetries caps the number of attempts; 0 waits until ctx is done.
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Strategy        WaitStrategy
	// PingTimeout bounds every single attempt.
	PingTimeout time.Duration
}

func DefaultHealthCheckOptions() HealthCheckOptions {
	return HealthCheckOptions{
		MaxRetries:      10,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Strategy:        ExponentialWait,
		PingTimeout:     5 * time.Second,
	}
}

// WaitForDB blocks until the server behind dsn answers a ping, the retry
// budget runs out or ctx is done. It is meant for start-up, when the
// database container may still be booting.
func WaitForDB(ctx context.Context, dsn string, opts HealthCheckOptions) error {
	attempt := 0
	interval := opts.InitialInterval

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("waiting for database: %w", err)
		}

		attempt++
		err := pingDatabase(ctx, dsn, opts.PingTimeout)
		if err == nil {
			return nil
		}

		if opts.MaxRetries > 0 && attempt >= opts.MaxRetries {
			return shared.MarkKind(
				fmt.Errorf("database not available after %d attempts: %w", attempt, err),
				shared.KindDependencyFailure,
			)
		}

		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("waiting for database after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}

		interval = calculateNextInterval(interval, opts)
	}
}

// HealthCheckPool pings the pool and runs SELECT 1.
func HealthCheckPool(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return shared.MarkKind(fmt.Errorf("pool is nil"), shared.KindInternal)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return shared.MarkKind(fmt.Errorf("pool ping failed: %w", err), shared.KindDependencyFailure)
	}

	var result int
	if err := pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return Classify(fmt.Errorf("simple query failed: %w", err))
	}
	if result != 1 {
		return shared.MarkKind(fmt.Errorf("unexpected query result: got %d, want 1", result), shared.KindInternal)
	}

	return nil
}

func pingDatabase(ctx context.Context, dsn string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return nil
}

func calculateNextInterval(current time.Duration, opts HealthCheckOptions) time.Duration {
	var next time.Duration
	switch opts.Strategy {
	case LinearWait:
		next = current + opts.InitialInterval
	case ExponentialWait:
		next = current * 2
	default:
		return opts.InitialInterval
	}
	if next > opts.MaxInterval {
		return opts.MaxInterval
	}
	return next
}

// DBStats is a snapshot of pool counters, flattened for logging.
type DBStats struct {
	MaxConns             int32
	TotalConns           int32
	AcquiredConns        int32
	IdleConns            int32
	ConstructingConns    int32
	AcquireCount         int64
	EmptyAcquireCount    int64
	CanceledAcquireCount int64
	AcquireDuration      time.Duration
}

// GetPoolStats reads the pool counters. A nil pool yields zero stats.
func GetPoolStats(pool *pgxpool.Pool) DBStats {
	if pool == nil {
		return DBStats{}
	}

	s := pool.Stat()
	return DBStats{
		MaxConns:             s.MaxConns(),
		TotalConns:           s.TotalConns(),
		AcquiredConns:        s.AcquiredConns(),
		IdleConns:            s.IdleConns(),
		ConstructingConns:    s.ConstructingConns(),
		AcquireCount:         s.AcquireCount(),
		EmptyAcquireCount:    s.EmptyAcquireCount(),
		CanceledAcquireCount: s.CanceledAcquireCount(),
		AcquireDuration:      s.AcquireDuration(),
	}
}

// IsHealthy reports whether the pool is configured, has open connections and
// is below 90% utilisation.
func IsHealthy(stats DBStats) bool {
	if stats.MaxConns == 0 || stats.TotalConns == 0 {
		return false
	}
	utilization := float64(stats.AcquiredConns) / float64(stats.MaxConns) * 100
	return utilization <= 90
}

// LogValue implements slog.LogValuer.
func (s DBStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("max", int(s.MaxConns)),
		slog.Int("total", int(s.TotalConns)),
		slog.Int("acquired", int(s.AcquiredConns)),
		slog.Int("idle", int(s.IdleConns)),
		slog.Int64("empty_acquire", s.EmptyAcquireCount),
		slog.Duration("acquire_duration", s.AcquireDuration),
	)
}
