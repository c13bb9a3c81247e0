package storage

import (
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq" // Registers the postgres driver
	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// Dialect hides the differences between the supported SQL backends.
type Dialect interface {
	// DriverName is the name registered with database/sql.
	DriverName() string
	// Rebind rewrites ? placeholders into the backend's syntax.
	Rebind(query string) string
	// Schema is the DDL applied on open.
	Schema() string
	// Configure applies connection pool and session settings.
	Configure(db *sql.DB) error
}

// DialectFor returns the dialect for a configured driver name.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3", "":
		return sqliteDialect{}, nil
	case "postgres", "postgresql":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
}

type sqliteDialect struct{}

func (sqliteDialect) DriverName() string         { return "sqlite" }
func (sqliteDialect) Rebind(query string) string { return query }
func (sqliteDialect) Schema() string             { return sqliteSchema }

func (sqliteDialect) Configure(db *sql.DB) error {
	// A single connection keeps :memory: databases coherent and serializes
	// writers, which SQLite does anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON; PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("failed to set sqlite pragmas: %w", err)
	}
	return nil
}

type postgresDialect struct{}

func (postgresDialect) DriverName() string { return "postgres" }
func (postgresDialect) Schema() string     { return postgresSchema }

var placeholder = regexp.MustCompile(`\?`)

func (postgresDialect) Rebind(query string) string {
	n := 0
	return placeholder.ReplaceAllStringFunc(query, func(string) string {
		n++
		return "$" + strconv.Itoa(n)
	})
}

func (postgresDialect) Configure(db *sql.DB) error {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(time.Minute)
	return nil
}
