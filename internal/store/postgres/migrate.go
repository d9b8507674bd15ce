package postgres

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations
var migrationsFS embed.FS

// Migrate applies every pending embedded migration against dsn. newPool runs
// it at startup in both cmd/admin and cmd/user; a database that is already
// up to date is left unchanged (migrate.ErrNoChange is not an error). dsn is a
// standard "postgres://" URL; the golang-migrate pgx/v5 driver is
// registered under the "pgx5" scheme, so it is rewritten before use.
func Migrate(dsn string) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("postgres: migration source: %w", err)
	}
	defer sourceDriver.Close()

	migrateDSN := strings.Replace(dsn, "postgres://", "pgx5://", 1)
	migrateDSN = strings.Replace(migrateDSN, "postgresql://", "pgx5://", 1)

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, migrateDSN)
	if err != nil {
		return fmt.Errorf("postgres: migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("postgres: apply migrations: %w", err)
	}
	return nil
}
