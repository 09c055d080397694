package db

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// SqliteConfig holds the options for opening the daemon's SQLite database.
type SqliteConfig struct {
	// DatabaseFileName is the full path of the database file.
	DatabaseFileName string

	// SkipMigrations disables schema migrations on open. Used by tests
	// that manage the schema themselves.
	SkipMigrations bool
}

// SqliteStore wraps an open SQLite database with migrations applied.
type SqliteStore struct {
	cfg *SqliteConfig

	*BaseDB
}

// NewSqliteStore opens (creating if needed) the SQLite database, applies the
// performance pragmas and runs all pending migrations.
func NewSqliteStore(cfg *SqliteConfig, log *slog.Logger) (*SqliteStore, error) {
	sqlDB, err := openSQLite(cfg.DatabaseFileName)
	if err != nil {
		return nil, err
	}

	if !cfg.SkipMigrations {
		if err := ApplyAllMigrations(sqlDB, log); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
	}

	return &SqliteStore{
		cfg:    cfg,
		BaseDB: NewBaseDB(sqlDB),
	}, nil
}

// openSQLite opens a SQLite database connection with WAL mode and foreign
// keys enabled, constrained to a single writer connection. The single
// connection plus the busy-timeout retry path is what gives the store its
// per-key serializability guarantee.
func openSQLite(dbPath string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000",
		dbPath,
	)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := configurePragmas(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	return sqlDB, nil
}

// configurePragmas applies additional SQLite pragmas for performance.
func configurePragmas(sqlDB *sql.DB) error {
	pragmas := []string{
		// NORMAL gives good durability with better performance than
		// FULL under WAL.
		"PRAGMA synchronous = NORMAL",

		// Negative cache size is in KiB: 32MB page cache.
		"PRAGMA cache_size = -32768",

		// Keep temporary tables in memory.
		"PRAGMA temp_store = MEMORY",
	}

	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}

	return nil
}
