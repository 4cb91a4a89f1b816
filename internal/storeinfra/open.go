// Package storeinfra is the SQL record store behind student.Repository and
// auth.UserStore. It runs on SQLite or PostgreSQL through bun and keeps its
// schema current with embedded goose migrations.
package storeinfra

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-studentdb/student"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed migrations
var migrations embed.FS

// Options configures Open.
type Options struct {
	Driver string
	DSN    string
	// MaxOpenConns caps the pool. Zero picks 1 for SQLite, which allows a
	// single writer, and 10 otherwise.
	MaxOpenConns int
	Logger       zerolog.Logger
}

// Validate checks if the options are usable.
func (o Options) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&o.DSN, validation.Required),
		validation.Field(&o.MaxOpenConns, validation.Min(0)),
	)
}

// DB is an open, migrated database handle.
type DB struct {
	*bun.DB
	logger zerolog.Logger
}

// Open connects to the database, applies pending migrations and verifies the
// connection. The handle is closed again on every error path.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("store options: %w", err)
	}

	driverName, gooseDialect, dir := "sqlite3", goose.DialectSQLite3, "migrations/sqlite"
	maxOpen := opts.MaxOpenConns
	if opts.Driver == DriverPostgres {
		driverName, gooseDialect, dir = "postgres", goose.DialectPostgres, "migrations/postgres"
		if maxOpen == 0 {
			maxOpen = 10
		}
	} else {
		if maxOpen == 0 {
			maxOpen = 1
		}
		if err := ensureSQLiteDir(opts.DSN); err != nil {
			return nil, student.NewStoreError("open", err)
		}
	}

	sqldb, err := sql.Open(driverName, opts.DSN)
	if err != nil {
		return nil, student.NewStoreError("open", err)
	}
	if err := sqldb.PingContext(ctx); err != nil {
		sqldb.Close()
		return nil, student.NewStoreError("ping", err)
	}

	if err := migrate(ctx, sqldb, gooseDialect, dir, opts.Logger); err != nil {
		sqldb.Close()
		return nil, student.NewStoreError("migrate", err)
	}
	sqldb.SetMaxOpenConns(maxOpen)

	var bdb *bun.DB
	if opts.Driver == DriverPostgres {
		bdb = bun.NewDB(sqldb, pgdialect.New())
	} else {
		bdb = bun.NewDB(sqldb, sqlitedialect.New())
	}

	logger := opts.Logger.With().Str("component", "store").Str("driver", opts.Driver).Logger()
	logger.Info().Int("max_open_conns", maxOpen).Msg("store opened")
	return &DB{DB: bdb, logger: logger}, nil
}

func migrate(ctx context.Context, db *sql.DB, d goose.Dialect, dir string, logger zerolog.Logger) error {
	fsys, err := fs.Sub(migrations, dir)
	if err != nil {
		return err
	}

	provider, err := goose.NewProvider(d, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, r := range results {
		logger.Info().Str("migration", r.Source.Path).Dur("duration", r.Duration).Msg("migration applied")
	}
	return nil
}

// ensureSQLiteDir creates the directory of a file-backed SQLite DSN.
func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" || strings.HasPrefix(path, ":memory:") {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Ping verifies that the database answers.
func (db *DB) Ping(ctx context.Context) error {
	return student.NewStoreError("ping", db.PingContext(ctx))
}

// Close releases the connection pool.
func (db *DB) Close() error {
	return db.DB.Close()
}

func (db *DB) isPostgres() bool {
	return db.Dialect().Name() == dialect.PG
}
