package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when no row matches a lookup.
var ErrNotFound = errors.New("not found")

const timeLayout = "2006-01-02 15:04:05"

type DB struct {
	conn   *sql.DB
	driver string
}

// Open connects to the store and applies the schema. driver is "sqlite"
// (dsn is a file path) or "postgres" (dsn is a connection string).
func Open(driver, dsn string) (*DB, error) {
	var conn *sql.DB
	var err error

	switch driver {
	case "sqlite":
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
		conn, err = sql.Open("sqlite", dsn)
		if err == nil {
			conn.SetMaxOpenConns(2)
		}
	case "postgres":
		conn, err = sql.Open("postgres", dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	db := &DB{conn: conn, driver: driver}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return db, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// rebind rewrites ? placeholders to $1, $2, ... for postgres.
func (db *DB) rebind(query string) string {
	if db.driver != "postgres" {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func (db *DB) migrate() error {
	idColumn := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if db.driver == "postgres" {
		idColumn = "BIGSERIAL PRIMARY KEY"
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS daily_bundles (
			date         TEXT NOT NULL,
			category     TEXT NOT NULL,
			section      TEXT NOT NULL DEFAULT '',
			name         TEXT NOT NULL DEFAULT '',
			cards        TEXT NOT NULL DEFAULT '[]',
			summary_text TEXT NOT NULL DEFAULT '',
			provider     TEXT NOT NULL DEFAULT '',
			run_id       TEXT NOT NULL DEFAULT '',
			created_at   TEXT NOT NULL,
			PRIMARY KEY (date, category)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_bundles_category ON daily_bundles(category, date)`,
		`CREATE TABLE IF NOT EXISTS daily_quotes (
			date       TEXT PRIMARY KEY,
			content    TEXT NOT NULL,
			author     TEXT NOT NULL DEFAULT '',
			provider   TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS seen_urls (
			url     TEXT PRIMARY KEY,
			title   TEXT NOT NULL DEFAULT '',
			seen_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_seen_urls_seen_at ON seen_urls(seen_at)`,
		`CREATE TABLE IF NOT EXISTS run_log (
			id         ` + idColumn + `,
			run_id     TEXT    NOT NULL,
			category   TEXT    NOT NULL,
			provider   TEXT    NOT NULL DEFAULT '',
			materials  INTEGER NOT NULL DEFAULT 0,
			cards      INTEGER NOT NULL DEFAULT 0,
			dropped    INTEGER NOT NULL DEFAULT 0,
			error      TEXT    NOT NULL DEFAULT '',
			created_at TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_log_created_at ON run_log(created_at)`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.Exec(stmt); err != nil {
			return fmt.Errorf("exec migration: %w\nstatement: %s", err, stmt)
		}
	}
	return nil
}
