package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type txKey struct{}

// Querier is the query surface shared by *sql.DB, *sql.Tx and *sql.Conn.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

var (
	_ Querier = (*sql.DB)(nil)
	_ Querier = (*sql.Tx)(nil)
	_ Querier = (*sql.Conn)(nil)
)

// ErrNestedTx is returned when WithinTx is called with a context that already
// carries a transaction. SQLite has no nested transactions.
var ErrNestedTx = errors.New("sqlite: nested transactions are not supported")

// RetryConfig controls how WithinTx retries a transaction that failed with
// SQLITE_BUSY or SQLITE_LOCKED.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig retries a busy transaction twice with a short backoff.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     500 * time.Millisecond,
		Multiplier:   2.0,
	}
}

type writeRequest struct {
	ctx      context.Context
	fn       func(context.Context) error
	resultCh chan error
}

// TxRunner runs callbacks in a transaction that commits on nil and rolls back
// otherwise. Busy errors are retried; with a write queue enabled all
// transactions of the runner are serialized through one goroutine.
type TxRunner struct {
	DB          *sql.DB
	RetryConfig RetryConfig

	writeQueue     chan writeRequest
	writeQueueDone chan struct{}
}

// NewTxRunner returns a runner without a write queue.
func NewTxRunner(db *sql.DB) *TxRunner {
	return NewTxRunnerWithOptions(db, DefaultDBOptions())
}

// NewTxRunnerWithOptions returns a runner honouring opts.EnableWriteQueue.
// Call Close to stop the queue goroutine.
func NewTxRunnerWithOptions(db *sql.DB, opts DBOptions) *TxRunner {
	r := &TxRunner{
		DB:          db,
		RetryConfig: DefaultRetryConfig(),
	}

	if opts.EnableWriteQueue {
		size := opts.WriteQueueSize
		if size <= 0 {
			size = 1
		}
		r.writeQueue = make(chan writeRequest, size)
		r.writeQueueDone = make(chan struct{})
		go r.runWriteQueue()
	}

	return r
}

// Close drains and stops the write queue. It is a no-op without one.
func (r *TxRunner) Close() error {
	if r.writeQueue != nil {
		close(r.writeQueue)
		<-r.writeQueueDone
		r.writeQueue = nil
	}
	return nil
}

// WithinTx runs fn in a transaction. The transaction is reachable from fn's
// context through GetQuerier.
func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return ErrNestedTx
	}
	if r.writeQueue != nil {
		return r.enqueueWrite(ctx, fn)
	}
	return r.executeWithRetry(ctx, fn)
}

// txFrom returns the transaction stored in ctx by WithinTx, if any.
func txFrom(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// GetQuerier returns the transaction from ctx or, outside WithinTx, the DB.
func (r *TxRunner) GetQuerier(ctx context.Context) Querier {
	if tx, ok := txFrom(ctx); ok {
		return tx
	}
	return r.DB
}

func (r *TxRunner) runWriteQueue() {
	defer close(r.writeQueueDone)

	for req := range r.writeQueue {
		if err := req.ctx.Err(); err != nil {
			req.resultCh <- err
			continue
		}
		req.resultCh <- r.executeWithRetry(req.ctx, req.fn)
	}
}

func (r *TxRunner) enqueueWrite(ctx context.Context, fn func(context.Context) error) error {
	req := writeRequest{ctx: ctx, fn: fn, resultCh: make(chan error, 1)}

	select {
	case r.writeQueue <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-req.resultCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *TxRunner) executeWithRetry(ctx context.Context, fn func(context.Context) error) error {
	cfg := r.RetryConfig
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	delay := cfg.InitialDelay

	var err error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		err = r.executeTx(ctx, fn)
		if err == nil || !IsBusy(err) || attempt == cfg.MaxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
	return err
}

func (r *TxRunner) executeTx(ctx context.Context, fn func(context.Context) error) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
