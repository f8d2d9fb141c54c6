// Package sqlstore implements the repositories on top of database/sql via
// sqlx. It serves sqlite (development) and postgres (production) with the
// same statements: queries are written with ? placeholders and rebound per
// driver.
package sqlstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Open opens a database for the given driver. For sqlite the DSN is a file
// path and parent directories are created; for postgres it is a connection
// string.
func Open(driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite:
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}

		db, err := sqlx.Open(DriverSQLite, dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite db: %w", err)
		}

		// modernc sqlite is single-writer; one connection avoids
		// SQLITE_BUSY under concurrent requests
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
		return db, nil
	case DriverPostgres, "postgres":
		db, err := sqlx.Open(DriverPostgres, dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres db: %w", err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// idColumn returns the dialect's auto-incrementing primary key column.
func idColumn(db *sqlx.DB) string {
	if db.DriverName() == DriverPostgres {
		return "id BIGSERIAL PRIMARY KEY"
	}
	return "id INTEGER PRIMARY KEY AUTOINCREMENT"
}

// timestampType returns the dialect's timestamp column type.
func timestampType(db *sqlx.DB) string {
	if db.DriverName() == DriverPostgres {
		return "TIMESTAMPTZ"
	}
	return "DATETIME"
}

// isUniqueViolation reports whether err was caused by a uniqueness
// constraint. Postgres is detected via SQLSTATE 23505, sqlite via the error
// text.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique")
}
