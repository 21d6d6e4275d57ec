package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"material-router/internal/logger"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	sql *sql.DB
}

// DefaultPath returns the database location: the working directory, or the
// executable's directory when the working directory is unavailable.
func DefaultPath() string {
	if wd, err := os.Getwd(); err == nil {
		return filepath.Join(wd, "matroute.db")
	}
	exe, _ := os.Executable()
	return filepath.Join(filepath.Dir(exe), "matroute.db")
}

// Open opens (or creates) the SQLite database at path and runs migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	d := &DB{sql: sqlDB}
	if err := d.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	logger.Success("DB", fmt.Sprintf("Opened %s", path))
	return d, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate() error {
	version := 0
	// Missing table on a fresh database leaves version at 0.
	d.sql.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)

	if version < 1 {
		_, err := d.sql.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY);

			CREATE TABLE IF NOT EXISTS config (
				key   TEXT PRIMARY KEY,
				value TEXT NOT NULL
			);

			CREATE TABLE IF NOT EXISTS catalog_loads (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				timestamp   TEXT NOT NULL,
				path        TEXT NOT NULL,
				category    TEXT NOT NULL,
				materials   INTEGER NOT NULL,
				items       INTEGER NOT NULL DEFAULT 0,
				rejected    INTEGER NOT NULL DEFAULT 0,
				skipped     INTEGER NOT NULL DEFAULT 0
			);
			CREATE INDEX IF NOT EXISTS idx_catalog_loads_ts ON catalog_loads(timestamp);

			INSERT OR IGNORE INTO schema_version (version) VALUES (1);
		`)
		if err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
		logger.Info("DB", "Applied migration v1")
	}

	if version < 2 {
		_, err := d.sql.Exec(`
			ALTER TABLE catalog_loads ADD COLUMN duration_ms INTEGER DEFAULT 0;

			INSERT OR IGNORE INTO schema_version (version) VALUES (2);
		`)
		if err != nil {
			return fmt.Errorf("migration v2: %w", err)
		}
		logger.Info("DB", "Applied migration v2 (load timings)")
	}

	return nil
}

// SqlDB returns the underlying *sql.DB.
func (d *DB) SqlDB() *sql.DB {
	return d.sql
}
