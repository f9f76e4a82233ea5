// internal/database/db.go
//
// Database helpers for the Geekdle server.
// Responsibilities:
//   - Opening the configured database (SQLite by default, PostgreSQL or MySQL).
//   - Applying embedded migrations for the active dialect (recorded in _migrations).
//   - Dialect-aware query wrappers shared by the repositories.

package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed migrations
var migrationsFS embed.FS

// TimeLayout is the fixed-width UTC layout used for stored timestamps, so
// lexical order matches chronological order on every engine.
const TimeLayout = "2006-01-02T15:04:05.000000Z"

// Timestamp formats t for storage.
func Timestamp(t time.Time) string { return t.UTC().Format(TimeLayout) }

// ParseTimestamp parses a stored timestamp; on error returns zero time.
func ParseTimestamp(s string) time.Time {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339, s)
	}
	return t
}

// Queryer is satisfied by both *DB and *Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	Dialect() Dialect
}

// DB wraps *sql.DB with dialect-aware placeholder rewriting.
type DB struct {
	sql     *sql.DB
	dialect Dialect
}

/**
 * Open opens (and for SQLite creates if missing) the configured database.
 *
 * - Ensures the parent directory exists for relative SQLite paths (e.g. ./data/app.db).
 * - Pings the server so misconfiguration fails at startup.
 * - Applies dialect pool settings and pragmas.
 */
func Open(ctx context.Context, cfg Config) (*DB, error) {
	d, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if d.Name() == "sqlite" {
		if cfg.Path == "" {
			return nil, errors.New("sqlite: empty path")
		}
		dir := filepath.Dir(cfg.Path)
		if dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("mkdir %s: %w", dir, err)
			}
		}
	} else if cfg.URL == "" {
		return nil, fmt.Errorf("%s: DATABASE_URL is required", d.Name())
	}

	sqlDB, err := sql.Open(d.DriverName(), d.DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := d.Configure(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("configure connection: %w", err)
	}
	return &DB{sql: sqlDB, dialect: d}, nil
}

// Close closes the underlying pool.
func (db *DB) Close() error { return db.sql.Close() }

// Dialect returns the active dialect.
func (db *DB) Dialect() Dialect { return db.dialect }

// ExecContext executes a statement with placeholder rewriting.
func (db *DB) ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return db.sql.ExecContext(ctx, db.dialect.Rebind(q), args...)
}

// QueryContext runs a query with placeholder rewriting.
func (db *DB) QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return db.sql.QueryContext(ctx, db.dialect.Rebind(q), args...)
}

// QueryRowContext runs a single-row query with placeholder rewriting.
func (db *DB) QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row {
	return db.sql.QueryRowContext(ctx, db.dialect.Rebind(q), args...)
}

// Tx wraps *sql.Tx with the same rewriting as DB.
type Tx struct {
	tx      *sql.Tx
	dialect Dialect
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{tx: tx, dialect: db.dialect}, nil
}

// InTx runs fn inside a transaction, committing on nil and rolling back otherwise.
func (db *DB) InTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (tx *Tx) Dialect() Dialect { return tx.dialect }

func (tx *Tx) ExecContext(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return tx.tx.ExecContext(ctx, tx.dialect.Rebind(q), args...)
}

func (tx *Tx) QueryContext(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return tx.tx.QueryContext(ctx, tx.dialect.Rebind(q), args...)
}

func (tx *Tx) QueryRowContext(ctx context.Context, q string, args ...any) *sql.Row {
	return tx.tx.QueryRowContext(ctx, tx.dialect.Rebind(q), args...)
}

func (tx *Tx) Commit() error { return tx.tx.Commit() }

// Rollback aborts the transaction; calling it after Commit is a no-op.
func (tx *Tx) Rollback() error {
	if err := tx.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

/**
 * Migrate applies the embedded migrations for the active dialect.
 *
 * - Uses a _migrations table to track applied files.
 * - Executes each migrations/<dialect>/*.sql file in lexical order, one transaction per file.
 * - Skips files already applied.
 */
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name VARCHAR(255) PRIMARY KEY)`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}

	dir := path.Join("migrations", db.dialect.Name())
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, f := range files {
		var done int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM _migrations WHERE name=?`, f).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", f).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		body, err := migrationsFS.ReadFile(path.Join(dir, f))
		if err != nil {
			return fmt.Errorf("read %s: %w", f, err)
		}
		err = db.InTx(ctx, func(tx *Tx) error {
			for _, stmt := range splitStatements(string(body)) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("apply %s: %w", f, err)
				}
			}
			if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations(name) VALUES (?)`, f); err != nil {
				return fmt.Errorf("record %s: %w", f, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
		log.Info().Str("migration", f).Str("dialect", db.dialect.Name()).Msg("applied")
	}
	return nil
}

// splitStatements splits a migration file on ';', dropping comment-only chunks.
// Migration files never contain ';' inside literals.
func splitStatements(body string) []string {
	var out []string
	for _, chunk := range strings.Split(body, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			if t := strings.TrimSpace(line); t != "" && !strings.HasPrefix(t, "--") {
				lines = append(lines, line)
			}
		}
		if stmt := strings.TrimSpace(strings.Join(lines, "\n")); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
