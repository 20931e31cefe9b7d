// Package store persists scraped records into the relational schema.
//
// Every write is one transaction. Dictionary tables (lang, attribute,
// monster_type, type, region, rarity) are append-only, their ids never
// change once assigned.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"superdb/internal/db"
	"superdb/internal/ygodb"

	"github.com/jmoiron/sqlx"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type Config struct {
	// File is a local sqlite database, created when missing.
	File string `json:"file"`
	// Url is a remote libsql database, it takes precedence over File.
	Url       string `json:"url"`
	AuthToken string `json:"auth_token"`

	// FirstCardID is the lowest card id accepted, 0 means
	// ygodb.FirstCardID.
	FirstCardID int64 `json:"first_card_id"`
}

func (c Config) firstCardID() int64 {
	if c.FirstCardID <= 0 {
		return ygodb.FirstCardID
	}
	return c.FirstCardID
}

type Store struct {
	db          *sqlx.DB
	firstCardID int64
	local       bool
}

func wrapOpen(err error) error {
	return fmt.Errorf("open store: %w", err)
}

func openLocal(path string) (*sql.DB, error) {
	if path != ":memory:" {
		err := os.MkdirAll(filepath.Dir(path), 0777)
		if err != nil {
			return nil, err
		}
	}
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	database.SetMaxOpenConns(1)
	_, err = database.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		database.Close()
		return nil, err
	}
	return database, nil
}

func openRemote(link, authToken string) (*sql.DB, error) {
	if authToken != "" {
		parsed, err := url.Parse(link)
		if err != nil {
			return nil, err
		}
		query := parsed.Query()
		query.Set("authToken", authToken)
		parsed.RawQuery = query.Encode()
		link = parsed.String()
	}
	database, err := sql.Open("libsql", link)
	if err != nil {
		return nil, err
	}
	database.SetMaxOpenConns(1)
	return database, nil
}

// Open connects to the configured database and migrates it.
func Open(ctx context.Context, config Config) (*Store, error) {
	var (
		database *sql.DB
		err      error
	)
	switch {
	case config.Url != "":
		database, err = openRemote(config.Url, config.AuthToken)
	case config.File != "":
		database, err = openLocal(config.File)
	default:
		err = fmt.Errorf("neither a database file nor a url was specified")
	}
	if err != nil {
		return nil, wrapOpen(err)
	}
	err = database.PingContext(ctx)
	if err != nil {
		database.Close()
		return nil, wrapOpen(err)
	}

	s, err := New(database, config)
	if err != nil {
		database.Close()
		return nil, err
	}
	s.local = config.Url == "" && config.File != ":memory:"
	slog.DebugContext(ctx, "opened store", "file", config.File, "remote", config.Url != "")
	return s, nil
}

// New wraps an already open database, enabling foreign keys and running
// migrations.
func New(database *sql.DB, config Config) (*Store, error) {
	_, err := database.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, wrapOpen(err)
	}
	err = db.Migrate(database)
	if err != nil {
		return nil, wrapOpen(err)
	}
	return &Store{
		db:          sqlx.NewDb(database, "sqlite"),
		firstCardID: config.firstCardID(),
	}, nil
}

// FirstCardID is the lowest card id the store accepts.
func (s *Store) FirstCardID() int64 {
	return s.firstCardID
}

// Close flushes the write-ahead log of a local database into the main
// file and closes the connection.
func (s *Store) Close() error {
	var errs []error
	if s.local {
		_, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		if err != nil {
			errs = append(errs, fmt.Errorf("checkpoint: %w", err))
		}
	}
	err := s.db.Close()
	if err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// dictionary tables, each with an integer id and one unique text column
const (
	tableLang        = "lang"
	tableAttribute   = "attribute"
	tableMonsterType = "monster_type"
	tableType        = "type"
	tableRegion      = "region"
)

var dictionaryColumn = map[string]string{
	tableLang:        "abbr",
	tableAttribute:   "name",
	tableMonsterType: "name",
	tableType:        "name",
	tableRegion:      "region",
}

// getOrCreate returns the id of value in a dictionary table, inserting it
// first when it is new.
func getOrCreate(ctx context.Context, tx *sqlx.Tx, table, value string) (int64, error) {
	column := dictionaryColumn[table]
	_, err := tx.ExecContext(
		ctx,
		fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (?)", table, column),
		value,
	)
	if err != nil {
		return 0, fmt.Errorf("insert %s %q: %w", table, value, err)
	}
	var id int64
	err = tx.GetContext(
		ctx,
		&id,
		fmt.Sprintf("SELECT id FROM %s WHERE %s = ?", table, column),
		value,
	)
	if err != nil {
		return 0, fmt.Errorf("select %s %q: %w", table, value, err)
	}
	return id, nil
}

// getOrCreateOptional is getOrCreate that maps "" to NULL.
func getOrCreateOptional(ctx context.Context, tx *sqlx.Tx, table, value string) (sql.NullInt64, error) {
	if value == "" {
		return sql.NullInt64{}, nil
	}
	id, err := getOrCreate(ctx, tx, table, value)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: id, Valid: true}, nil
}

func getOrCreateRarity(ctx context.Context, tx *sqlx.Tx, name, longName string) (int64, error) {
	_, err := tx.ExecContext(
		ctx,
		"INSERT OR IGNORE INTO rarity (name, long_name) VALUES (?, ?)",
		name, longName,
	)
	if err != nil {
		return 0, fmt.Errorf("insert rarity %q: %w", name, err)
	}
	var id int64
	err = tx.GetContext(
		ctx,
		&id,
		"SELECT id FROM rarity WHERE name = ? AND long_name = ?",
		name, longName,
	)
	if err != nil {
		return 0, fmt.Errorf("select rarity %q: %w", name, err)
	}
	return id, nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullInt(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}

type TableCount struct {
	Table string
	Rows  int64
}

// Counts returns the number of rows of every table.
func (s *Store) Counts(ctx context.Context) ([]TableCount, error) {
	counts := make([]TableCount, 0, len(db.Tables))
	for _, table := range db.Tables {
		var rows int64
		err := s.db.GetContext(ctx, &rows, fmt.Sprintf("SELECT COUNT(*) FROM %s", table))
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts = append(counts, TableCount{Table: table, Rows: rows})
	}
	return counts, nil
}
