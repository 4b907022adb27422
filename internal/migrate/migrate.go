// Package migrate runs the control plane's embedded SQL schema migrations
// via golang-migrate, adapted from the shared migrate runner used across
// the monorepo's services.
package migrate

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var embedded embed.FS

// Runner applies the control plane's schema migrations.
type Runner struct {
	db         *sql.DB
	migrations embed.FS
	migrateDir string
}

// New creates a Runner over the control plane's embedded migration set.
func New(db *sql.DB) *Runner {
	return &Runner{db: db, migrations: embedded, migrateDir: "migrations"}
}

// Up runs all pending migrations.
func (r *Runner) Up() error {
	m, err := r.createMigrator()
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Down rolls back all migrations.
func (r *Runner) Down() error {
	m, err := r.createMigrator()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to rollback migrations: %w", err)
	}
	return nil
}

// Version returns the current migration version and dirty state.
func (r *Runner) Version() (version uint, dirty bool, err error) {
	m, err := r.createMigrator()
	if err != nil {
		return 0, false, err
	}
	version, dirty, err = m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return 0, false, fmt.Errorf("failed to get version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the migration version without running migrations, to recover
// from a dirty state.
func (r *Runner) Force(version int) error {
	m, err := r.createMigrator()
	if err != nil {
		return err
	}
	if err := m.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

func (r *Runner) createMigrator() (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(r.migrations, r.migrateDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}
