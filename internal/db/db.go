package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/platescan/platescan/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 2

// FileName is the database file created under the base directory.
const FileName = "accounts.db"

// Init initializes the SQLite account database at baseDir/accounts.db.
// Only identity-provider accounts and onboarding profiles live here; meal history
// is never written to disk.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.platescan.
func Init(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// best-effort, may not work on all platforms
	_ = os.Chmod(baseDir, 0700)

	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: accounts
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS users (
		  uid             TEXT PRIMARY KEY,
		  email_raw       TEXT NOT NULL,
		  email_norm      TEXT NOT NULL,
		  password_hash   BLOB NOT NULL,
		  display_name    TEXT,
		  photo_url       TEXT,
		  disabled        INTEGER NOT NULL DEFAULT 0,
		  failed_attempts INTEGER NOT NULL DEFAULT 0,
		  created_at      INTEGER NOT NULL,
		  last_sign_in_at INTEGER
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_norm
		ON users(email_norm);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Migration 1 -> 2: lockout window + onboarding profiles
	if version < 2 {
		schema := `
		ALTER TABLE users ADD COLUMN last_failed_at INTEGER;

		CREATE TABLE IF NOT EXISTS profiles (
		  uid           TEXT PRIMARY KEY,
		  goals         TEXT NOT NULL DEFAULT '[]',
		  preference    TEXT,
		  meals_per_day INTEGER NOT NULL,
		  concerns      TEXT NOT NULL DEFAULT '[]',
		  skipped       INTEGER NOT NULL DEFAULT 0,
		  updated_at    INTEGER NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 2 failed: %w", err)
		}
		if err := SetUserVersion(db, 2); err != nil {
			return err
		}
	}

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
