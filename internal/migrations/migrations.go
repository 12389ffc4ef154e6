// Package migrations provisions the feedback table. The SQL is embedded in the
// binary and applied with golang-migrate by cmd/migrate; the web server itself
// never creates schema and reports a missing table as a setup problem.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// Dialects with an embedded migration set.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// Source returns the embedded migration files for dialect.
func Source(dialect string) (fs.FS, error) {
	switch dialect {
	case Postgres, SQLite:
		return fs.Sub(files, dialect)
	default:
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
}

// DatabaseURL converts a connection string into the URL golang-migrate
// expects: pgx5:// for Postgres and sqlite:// for a SQLite file path.
func DatabaseURL(dialect, dsn string) (string, error) {
	switch dialect {
	case Postgres:
		if rest, ok := strings.CutPrefix(dsn, "postgresql:"); ok {
			return "pgx5:" + rest, nil
		}
		if rest, ok := strings.CutPrefix(dsn, "postgres:"); ok {
			return "pgx5:" + rest, nil
		}
		if strings.HasPrefix(dsn, "pgx5:") {
			return dsn, nil
		}
		return "", fmt.Errorf("unsupported postgres url %q", dsn)
	case SQLite:
		if strings.HasPrefix(dsn, "sqlite://") {
			return dsn, nil
		}
		return "sqlite://" + strings.TrimPrefix(dsn, "file:"), nil
	default:
		return "", fmt.Errorf("no migrations for dialect %q", dialect)
	}
}

// Direction selects which way Run moves the schema.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Run applies (or rolls back) every embedded migration for dialect against dsn.
func Run(dialect, dsn string, dir Direction, log *zap.SugaredLogger) error {
	src, err := newSource(dialect)
	if err != nil {
		return err
	}
	url, err := DatabaseURL(dialect, dsn)
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	return apply(m, dir, log)
}

// ApplySQLite migrates an already open SQLite handle. golang-migrate's driver
// takes ownership of db on Close, so the migrate instance is left open and
// the caller keeps using db.
func ApplySQLite(db *sql.DB, log *zap.SugaredLogger) error {
	src, err := newSource(SQLite)
	if err != nil {
		return err
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, SQLite, driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return apply(m, Up, log)
}

func newSource(dialect string) (source.Driver, error) {
	if _, err := Source(dialect); err != nil {
		return nil, err
	}
	d, err := iofs.New(files, dialect)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}
	return d, nil
}

func apply(m *migrate.Migrate, dir Direction, log *zap.SugaredLogger) error {
	var err error
	switch dir {
	case Up:
		err = m.Up()
	case Down:
		err = m.Down()
	default:
		return fmt.Errorf("unknown migration direction %q", dir)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("Feedback schema is up to date, no migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", dir, err)
	}

	version, dirty, verr := m.Version()
	if verr != nil {
		log.Infow("Migrations applied", "direction", dir)
		return nil
	}
	log.Infow("Migrations applied", "direction", dir, "version", version, "dirty", dirty)
	return nil
}
