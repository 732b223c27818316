package database

import (
	"embed"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*/*.sql
var migrations embed.FS

// goose keeps its dialect and base FS in package state.
var gooseMu sync.Mutex

func gooseDialect(db *sqlx.DB) (dialect, dir string, err error) {
	switch db.DriverName() {
	case EnginePostgres:
		return "postgres", "migrations/postgres", nil
	case EngineSQLite:
		return "sqlite3", "migrations/sqlite", nil
	default:
		return "", "", errors.Errorf("no migrations for driver %q", db.DriverName())
	}
}

// RunMigrations runs a goose command ("up", "down", "status", "version", "redo", "reset", ...) against db
// with the migrations embedded for its dialect.
func RunMigrations(db *sqlx.DB, command string, args ...string) error {
	dialect, dir, err := gooseDialect(db)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	if err := goose.Run(command, db.DB, dir, args...); err != nil {
		return errors.Wrapf(err, "migrating database (%s)", command)
	}
	return nil
}

// Migrate applies every pending migration.
func Migrate(db *sqlx.DB) error {
	return RunMigrations(db, "up")
}
