// internal/database/dialect.go
//
// SQL dialects supported by the Geekdle server.
// Queries are written once with `?` placeholders; the dialect rewrites them
// and supplies the few statements that differ between engines.

package database

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect defines database-specific behaviour.
type Dialect interface {
	// Name is the canonical dialect name, also the migrations subdirectory.
	Name() string

	// DriverName returns the driver name for sql.Open.
	DriverName() string

	// DSN turns the configured path/URL into a driver DSN.
	DSN(cfg Config) string

	// Rebind converts `?` placeholders if the driver needs another syntax.
	Rebind(query string) string

	// InsertIgnore builds an INSERT that silently skips rows violating a unique key.
	InsertIgnore(table string, columns ...string) string

	// Configure applies pool settings and session pragmas after opening.
	Configure(db *sql.DB) error
}

// Config selects and locates a database.
type Config struct {
	Driver string // sqlite | postgres | mysql
	Path   string // SQLite file path
	URL    string // PostgreSQL/MySQL connection URL
}

// DialectFor resolves a driver name to its Dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3", "":
		return sqliteDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	case "mysql":
		return mysqlDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func pool(db *sql.DB, open int) {
	db.SetMaxOpenConns(open)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)
}

/* --------------------------------- sqlite --------------------------------- */

type sqliteDialect struct{}

func (sqliteDialect) Name() string       { return "sqlite" }
func (sqliteDialect) DriverName() string { return "sqlite3" }

// DSN enables busy timeout, WAL and foreign keys through driver parameters so
// every pooled connection gets them.
func (sqliteDialect) DSN(cfg Config) string {
	return cfg.Path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
}

func (sqliteDialect) Rebind(q string) string { return q }

func (sqliteDialect) InsertIgnore(table string, cols ...string) string {
	return fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders(len(cols)))
}

func (sqliteDialect) Configure(db *sql.DB) error {
	pool(db, 25)
	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return fmt.Errorf("set pragmas: %w", err)
	}
	return nil
}

/* -------------------------------- postgres -------------------------------- */

type postgresDialect struct{}

func (postgresDialect) Name() string          { return "postgres" }
func (postgresDialect) DriverName() string    { return "postgres" }
func (postgresDialect) DSN(cfg Config) string { return cfg.URL }

// Rebind rewrites ? to $1, $2, ... (queries here never contain literal '?').
func (postgresDialect) Rebind(q string) string {
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (postgresDialect) InsertIgnore(table string, cols ...string) string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		table, strings.Join(cols, ", "), placeholders(len(cols)))
}

func (postgresDialect) Configure(db *sql.DB) error {
	pool(db, 25)
	return nil
}

/* ---------------------------------- mysql --------------------------------- */

type mysqlDialect struct{}

func (mysqlDialect) Name() string          { return "mysql" }
func (mysqlDialect) DriverName() string    { return "mysql" }
func (mysqlDialect) DSN(cfg Config) string { return cfg.URL }
func (mysqlDialect) Rebind(q string) string {
	return q
}

func (mysqlDialect) InsertIgnore(table string, cols ...string) string {
	return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders(len(cols)))
}

func (mysqlDialect) Configure(db *sql.DB) error {
	pool(db, 25)
	if _, err := db.Exec("SET FOREIGN_KEY_CHECKS = 1"); err != nil {
		return err
	}
	return nil
}
