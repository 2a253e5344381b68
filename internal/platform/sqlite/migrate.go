package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"runtime"
	"strings"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// BuildMigrateURL turns a database file path into the sqlite:// URL expected
// by golang-migrate: "sqlite:///abs/path.db", or "sqlite:///C:/path.db" on
// Windows. golang-migrate opens its own connection, so an in-memory database
// cannot be migrated this way.
func BuildMigrateURL(dbPath string) (string, error) {
	if dbPath == "" || strings.HasPrefix(dbPath, ":memory:") {
		return "", fmt.Errorf("cannot migrate %q: a database file is required", dbPath)
	}

	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	urlPath := filepath.ToSlash(absPath)
	if runtime.GOOS == "windows" && len(urlPath) >= 2 && urlPath[1] == ':' {
		urlPath = "/" + urlPath
	}
	if !strings.HasPrefix(urlPath, "/") {
		urlPath = "/" + urlPath
	}

	return "sqlite://" + urlPath, nil
}

// ApplyMigrationsFromFS runs every pending up-migration from dir of fsys
// against the database file at dbPath. Already current schemas are left alone.
// It returns the schema version after the run.
func ApplyMigrationsFromFS(dbPath string, fsys fs.FS, dir string) (uint, error) {
	m, err := newMigrate(dbPath, fsys, dir)
	if err != nil {
		return 0, err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, nil
}

// GetMigrationVersionFromFS returns the applied version and dirty flag. A
// database that never saw a migration reports version 0 without error.
func GetMigrationVersionFromFS(dbPath string, fsys fs.FS, dir string) (uint, bool, error) {
	m, err := newMigrate(dbPath, fsys, dir)
	if err != nil {
		return 0, false, err
	}
	defer func() { _, _ = m.Close() }()

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// ResetMigrationsFromFS runs every down-migration. Used by the importer's
// --reset flag and by tests.
func ResetMigrationsFromFS(dbPath string, fsys fs.FS, dir string) error {
	m, err := newMigrate(dbPath, fsys, dir)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to reset migrations: %w", err)
	}
	return nil
}

func newMigrate(dbPath string, fsys fs.FS, dir string) (*migrate.Migrate, error) {
	databaseURL, err := BuildMigrateURL(dbPath)
	if err != nil {
		return nil, err
	}

	source, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}
