package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"imdb-titles/internal/shared"
)

// TxLockMode is the lock a transaction takes at BEGIN.
type TxLockMode string

const (
	// TxLockDeferred takes locks lazily, on the first read or write.
	TxLockDeferred TxLockMode = "deferred"
	// TxLockImmediate takes the RESERVED lock at BEGIN, so concurrent writers
	// wait on busy_timeout instead of failing with SQLITE_BUSY on upgrade.
	TxLockImmediate TxLockMode = "immediate"
	// TxLockExclusive takes the EXCLUSIVE lock at BEGIN.
	TxLockExclusive TxLockMode = "exclusive"
)

// DBOptions configures an embedded SQLite database.
type DBOptions struct {
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	PingTimeout     time.Duration
	WALMode         bool
	ForeignKeys     bool
	BusyTimeout     time.Duration
	TxLockMode      TxLockMode
	// EnableWriteQueue funnels WithinTx calls of a TxRunner through one goroutine.
	EnableWriteQueue bool
	WriteQueueSize   int
}

// DefaultDBOptions returns options for a single-process service: WAL, a
// handful of readers and immediate write transactions.
func DefaultDBOptions() DBOptions {
	return DBOptions{
		ConnMaxLifetime:  time.Hour,
		ConnMaxIdleTime:  10 * time.Minute,
		MaxOpenConns:     4,
		MaxIdleConns:     1,
		PingTimeout:      5 * time.Second,
		WALMode:          true,
		ForeignKeys:      true,
		BusyTimeout:      5 * time.Second,
		TxLockMode:       TxLockImmediate,
		EnableWriteQueue: false,
		WriteQueueSize:   100,
	}
}

// NewDB opens dbPath with DefaultDBOptions, creating parent directories.
func NewDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	return NewDBWithOptions(ctx, dbPath, DefaultDBOptions())
}

// NewDBWithOptions opens dbPath, pings it and applies the database-wide
// PRAGMAs. Per-connection settings travel in the DSN so that every pooled
// connection gets them.
func NewDBWithOptions(ctx context.Context, dbPath string, opts DBOptions) (*sql.DB, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite", buildDSN(dbPath, opts))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, shared.MarkKind(fmt.Errorf("failed to ping sqlite database: %w", err), shared.KindDependencyFailure)
	}

	if err := applyPragmaSettings(ctx, db, opts); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply PRAGMA settings: %w", err)
	}

	return db, nil
}

// NewInMemoryDB opens a private in-memory database. The pool is pinned to a
// single connection because every new connection would see an empty schema.
func NewInMemoryDB(ctx context.Context) (*sql.DB, error) {
	opts := DefaultDBOptions()
	opts.WALMode = false
	opts.MaxOpenConns = 1
	opts.MaxIdleConns = 1
	opts.ConnMaxLifetime = 0
	opts.ConnMaxIdleTime = 0

	return NewDBWithOptions(ctx, ":memory:", opts)
}

func buildDSN(dbPath string, opts DBOptions) string {
	var params []string

	if opts.BusyTimeout > 0 {
		params = append(params, fmt.Sprintf("_pragma=busy_timeout(%d)", opts.BusyTimeout.Milliseconds()))
	}
	if opts.ForeignKeys {
		params = append(params, "_pragma=foreign_keys(1)")
	}
	if opts.TxLockMode != "" && opts.TxLockMode != TxLockDeferred {
		params = append(params, "_txlock="+string(opts.TxLockMode))
	}

	if len(params) == 0 {
		return dbPath
	}
	return dbPath + "?" + strings.Join(params, "&")
}

// applyPragmaSettings sets the PRAGMAs that persist in the database file or
// are harmless to repeat.
func applyPragmaSettings(ctx context.Context, db *sql.DB, opts DBOptions) error {
	pragmas := []string{"PRAGMA synchronous = NORMAL"}
	if opts.WALMode {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return nil
}
