// Package db owns the relational schema and the helpers to open and
// migrate it.
package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Tables lists every table of the schema in dependency order.
var Tables = []string{
	"lang",
	"attribute",
	"monster_type",
	"type",
	"region",
	"rarity",
	"card",
	"type_card",
	"localization",
	"cardset",
	"cardset_localization",
	"cardset_card",
	"edition",
	"edition_rarity",
	"banlist",
	"limitation",
}

type migrationLogger struct{}

func (migrationLogger) Printf(format string, v ...any) {
	slog.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (migrationLogger) Verbose() bool {
	return false
}

// Migrate brings the schema to the latest version. The database handle
// stays open.
func Migrate(database *sql.DB) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	driver, err := sqlite.WithInstance(database, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	m.Log = migrationLogger{}

	// m.Close would close the database handle with the driver
	defer source.Close()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		slog.Debug("no new migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	version, _, err := m.Version()
	if err == nil {
		slog.Debug("applied migrations", "version", version)
	}
	return nil
}

// InTx runs fn inside a transaction, committing when it returns nil and
// rolling back otherwise.
func InTx(ctx context.Context, database *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := database.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	err = fn(tx)
	if err != nil {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rollbackErr))
		}
		return err
	}
	err = tx.Commit()
	if err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
