package pg

import (
	"errors"
	"fmt"
	"io/fs"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationInfo describes the outcome of ApplyMigrationsFromFS.
type MigrationInfo struct {
	Applied        bool // at least one migration ran
	CurrentVersion uint // version before Up
	FinalVersion   uint // version after Up
	Dirty          bool
}

// ApplyMigrationsFromFS runs every pending up-migration found in dir of fsys,
// typically an embed.FS compiled into the binary. Calling it again once the
// schema is current is a no-op. A dirty schema is refused.
func ApplyMigrationsFromFS(dsn string, fsys fs.FS, dir string) (MigrationInfo, error) {
	m, err := newMigrate(dsn, fsys, dir)
	if err != nil {
		return MigrationInfo{}, err
	}
	defer closeMigrate(m)

	var info MigrationInfo

	current, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return info, fmt.Errorf("failed to get current version: %w", err)
	}
	info.CurrentVersion = current
	info.FinalVersion = current
	info.Dirty = dirty

	if dirty {
		return info, fmt.Errorf("database is in dirty state at version %d", current)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return info, nil
		}
		return info, fmt.Errorf("failed to apply migrations: %w", err)
	}

	info.Applied = true
	if final, _, err := m.Version(); err == nil {
		info.FinalVersion = final
	}

	return info, nil
}

// GetMigrationVersionFromFS returns the applied schema version. A database
// that never saw a migration reports version 0 without error.
func GetMigrationVersionFromFS(dsn string, fsys fs.FS, dir string) (uint, bool, error) {
	m, err := newMigrate(dsn, fsys, dir)
	if err != nil {
		return 0, false, err
	}
	defer closeMigrate(m)

	version, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get migration version: %w", err)
	}
	return version, dirty, nil
}

// ResetMigrationsFromFS runs every down-migration, dropping title_basics.
func ResetMigrationsFromFS(dsn string, fsys fs.FS, dir string) error {
	m, err := newMigrate(dsn, fsys, dir)
	if err != nil {
		return err
	}
	defer closeMigrate(m)

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to reset migrations: %w", err)
	}
	return nil
}

func newMigrate(dsn string, fsys fs.FS, dir string) (*migrate.Migrate, error) {
	source, err := iofs.New(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

func closeMigrate(m *migrate.Migrate) {
	_, _ = m.Close()
}
