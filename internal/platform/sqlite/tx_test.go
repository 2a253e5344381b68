package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProbeDB(t *testing.T) *TestDB {
	t.Helper()
	tdb := NewTestDBInMemory(t)
	tdb.Exec(t, "CREATE TABLE probe (id INTEGER PRIMARY KEY, value TEXT)")
	return tdb
}

func TestTxRunner_WithinTx_Commit(t *testing.T) {
	ctx := context.Background()
	tdb := newProbeDB(t)

	err := tdb.TxRunner.WithinTx(ctx, func(ctx context.Context) error {
		tx, ok := txFrom(ctx)
		require.True(t, ok)
		assert.Equal(t, tx, tdb.TxRunner.GetQuerier(ctx))

		_, err := tx.ExecContext(ctx, "INSERT INTO probe (value) VALUES (?)", "committed")
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 1, tdb.CountRows(t, "probe"))
}

func TestTxRunner_WithinTx_Rollback(t *testing.T) {
	ctx := context.Background()
	tdb := newProbeDB(t)
	errBoom := errors.New("boom")

	err := tdb.TxRunner.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := tdb.TxRunner.GetQuerier(ctx).ExecContext(ctx, "INSERT INTO probe (value) VALUES (?)", "lost"); err != nil {
			return err
		}
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 0, tdb.CountRows(t, "probe"))
}

func TestTxRunner_GetQuerier_WithoutTx(t *testing.T) {
	tdb := NewTestDBInMemory(t)

	_, ok := txFrom(context.Background())
	assert.False(t, ok)
	assert.Equal(t, tdb.DB, tdb.TxRunner.GetQuerier(context.Background()))
}

func TestTxRunner_NestedTransactions(t *testing.T) {
	ctx := context.Background()
	tdb := newProbeDB(t)

	err := tdb.TxRunner.WithinTx(ctx, func(ctx context.Context) error {
		return tdb.TxRunner.WithinTx(ctx, func(context.Context) error { return nil })
	})

	assert.ErrorIs(t, err, ErrNestedTx)
}

func TestTxRunner_WriteQueue(t *testing.T) {
	ctx := context.Background()
	tdb := NewTestDBFile(t)
	tdb.Exec(t, "CREATE TABLE probe (id INTEGER PRIMARY KEY, value TEXT)")

	opts := DefaultDBOptions()
	opts.EnableWriteQueue = true
	opts.WriteQueueSize = 4
	runner := NewTxRunnerWithOptions(tdb.DB, opts)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- runner.WithinTx(ctx, func(ctx context.Context) error {
				_, err := runner.GetQuerier(ctx).ExecContext(ctx, "INSERT INTO probe (id, value) VALUES (?, ?)", i, "queued")
				return err
			})
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, writers, tdb.CountRows(t, "probe"))
	require.NoError(t, runner.Close())
	require.NoError(t, runner.Close())
}

func TestTxRunner_WriteQueue_CanceledContext(t *testing.T) {
	tdb := NewTestDBInMemory(t)

	opts := DefaultDBOptions()
	opts.EnableWriteQueue = true
	runner := NewTxRunnerWithOptions(tdb.DB, opts)
	defer runner.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := runner.WithinTx(ctx, func(context.Context) error {
		called = true
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestTxRunner_RetriesBusy(t *testing.T) {
	tdb := NewTestDBInMemory(t)
	busy := errors.New("database is locked (5) (SQLITE_BUSY)")

	attempts := 0
	err := tdb.TxRunner.WithinTx(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return busy
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestTxRunner_DoesNotRetryOtherErrors(t *testing.T) {
	tdb := NewTestDBInMemory(t)
	errBoom := errors.New("boom")

	attempts := 0
	err := tdb.TxRunner.WithinTx(context.Background(), func(context.Context) error {
		attempts++
		return errBoom
	})

	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, attempts)
}
