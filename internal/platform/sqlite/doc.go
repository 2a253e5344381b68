// Package sqlite is the embedded storage backend: connection setup, a
// transaction runner with SQLITE_BUSY retries and schema migrations.
//
// # Opening a database
//
//	db, err := sqlite.NewDB(ctx, "data/titles.db")
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
// busy_timeout and foreign_keys are passed as _pragma DSN parameters so
// every pooled connection gets them; journal_mode=WAL is set once on open.
// DefaultDBOptions starts write transactions with BEGIN IMMEDIATE.
//
// # Transactions
//
//	runner := sqlite.NewTxRunner(db)
//	err = runner.WithinTx(ctx, func(ctx context.Context) error {
//		_, err := runner.GetQuerier(ctx).ExecContext(ctx, "DELETE FROM title_basics WHERE tconst = ?", id)
//		return err
//	})
//
// With DBOptions.EnableWriteQueue the runner serializes its transactions
// through one goroutine; call Close on shutdown.
//
// # Migrations
//
//	version, err := sqlite.ApplyMigrationsFromFS("data/titles.db", migrations.FS, migrations.SQLiteDir)
//
// golang-migrate opens its own connection, so only file databases can be
// migrated.
//
// # Tests
//
//	tdb := sqlite.NewMigratedTestDB(t)
//	tdb.Exec(t, "INSERT INTO title_basics (tconst) VALUES (?)", "tt0000001")
package sqlite
