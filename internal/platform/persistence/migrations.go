package persistence

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // postgres database driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // file:// source driver
)

// RunMigrations brings the ledger schema up to date before the connection
// pool is opened. migrationsPath is a plain directory path; the file://
// scheme is added here. A database already at the latest version is not an
// error.
func RunMigrations(databaseURL, migrationsPath string) error {
	if databaseURL == "" {
		return errors.New("database URL is required for migrations")
	}
	if migrationsPath == "" {
		return errors.New("migrations path is required")
	}

	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	srcErr, dbErr := m.Close()
	if srcErr != nil {
		return fmt.Errorf("migration source close: %w", srcErr)
	}
	if dbErr != nil {
		return fmt.Errorf("migration database close: %w", dbErr)
	}

	return nil
}
