// Package db implements studio persistence on SQLite.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps sql.DB for the studio backend.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

// NewDB opens the database at path and creates tables if they don't exist.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := createTables(sqlDB); err != nil {
		return nil, err
	}

	db := Wrap(sqlDB, logger)
	db.path = path
	logger.Info().Str("path", path).Msg("database initialized")
	return db, nil
}

// Wrap uses an already opened connection without running migrations.
func Wrap(sqlDB *sql.DB, logger *zerolog.Logger) *DB {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &DB{DB: sqlDB, logger: logger}
}

func createTables(db *sql.DB) error {
	queries := []string{
		// Versioned settings. effective_from is YYYY-MM-DD text, NULL = immediately.
		`CREATE TABLE IF NOT EXISTS app_settings (
			id TEXT PRIMARY KEY,
			setting_key TEXT NOT NULL,
			setting_value TEXT NOT NULL,
			effective_from TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_by TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		// A NULL effective date occupies a single slot per key.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_app_settings_key_effective
			ON app_settings(setting_key, COALESCE(effective_from, ''))`,

		`CREATE TABLE IF NOT EXISTS members (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			full_name TEXT NOT NULL,
			email TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS machines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			number INTEGER UNIQUE NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT 1
		)`,

		// Timestamps are stored in UTC so text comparison orders them.
		`CREATE TABLE IF NOT EXISTS sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			member_id INTEGER,
			machine_id INTEGER,
			scheduled_start DATETIME NOT NULL,
			scheduled_end DATETIME NOT NULL,
			status TEXT NOT NULL DEFAULT 'scheduled',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (member_id) REFERENCES members(id) ON DELETE SET NULL,
			FOREIGN KEY (machine_id) REFERENCES machines(id) ON DELETE SET NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_sessions_start ON sessions(scheduled_start)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
