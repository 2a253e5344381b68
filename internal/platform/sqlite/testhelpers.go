package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"imdb-titles/migrations"
)

// TestDB is a throwaway database for tests, closed automatically on cleanup.
type TestDB struct {
	DB       *sql.DB
	Path     string // ":memory:" for in-memory databases
	TxRunner *TxRunner
}

// NewTestDBInMemory opens a private in-memory database.
func NewTestDBInMemory(t *testing.T) *TestDB {
	t.Helper()

	db, err := NewInMemoryDB(context.Background())
	if err != nil {
		t.Fatalf("Failed to create in-memory test DB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return &TestDB{DB: db, Path: ":memory:", TxRunner: NewTxRunner(db)}
}

// NewTestDBFile opens a database file inside t.TempDir().
func NewTestDBFile(t *testing.T) *TestDB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "titles.db")
	db, err := NewDB(context.Background(), path)
	if err != nil {
		t.Fatalf("Failed to create file test DB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return &TestDB{DB: db, Path: path, TxRunner: NewTxRunner(db)}
}

// NewMigratedTestDB is NewTestDBFile with the embedded title_basics schema applied.
func NewMigratedTestDB(t *testing.T) *TestDB {
	t.Helper()

	tdb := NewTestDBFile(t)
	if _, err := ApplyMigrationsFromFS(tdb.Path, migrations.FS, migrations.SQLiteDir); err != nil {
		t.Fatalf("Failed to apply test migrations: %v", err)
	}
	return tdb
}

// Exec runs query and fails the test on error.
func (tdb *TestDB) Exec(t *testing.T, query string, args ...any) sql.Result {
	t.Helper()

	result, err := tdb.DB.ExecContext(context.Background(), query, args...)
	if err != nil {
		t.Fatalf("Failed to execute query: %v", err)
	}
	return result
}

// CountRows returns the number of rows in table.
func (tdb *TestDB) CountRows(t *testing.T, table string) int {
	t.Helper()

	var count int
	if err := tdb.DB.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
		t.Fatalf("Failed to count rows in table %s: %v", table, err)
	}
	return count
}

// TableExists reports whether table is present in the schema.
func (tdb *TestDB) TableExists(t *testing.T, table string) bool {
	t.Helper()

	var count int
	row := tdb.DB.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("Failed to check table existence: %v", err)
	}
	return count > 0
}
