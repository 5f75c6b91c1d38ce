// Package runstore provides SQL-backed persistence for completed
// generation runs, supporting SQLite and PostgreSQL backends.
package runstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Config holds database connection configuration.
type Config struct {
	// Dialect specifies which database to use: "sqlite" or "postgres"
	Dialect string

	// Path is the SQLite database file path. Ignored for postgres.
	Path string

	// DSN is the PostgreSQL connection string. Ignored for sqlite.
	DSN string

	// Connection pool settings (postgres only)
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns a Config with sensible defaults for SQLite.
func DefaultConfig(path string) Config {
	return Config{
		Dialect: "sqlite",
		Path:    path,
	}
}

// Database wraps the SQL connection and provides run persistence.
type Database struct {
	db      *sql.DB
	dialect Dialect
	qb      *QueryBuilder
}

// Open opens the run store described by the config, creating the
// SQLite file (and its directory) if needed, and runs migrations.
func Open(cfg Config) (*Database, error) {
	dialect := NewDialect(DialectType(cfg.Dialect))

	dsn := cfg.DSN
	if _, ok := dialect.(*SQLiteDialect); ok {
		// Ensure directory exists
		dir := filepath.Dir(cfg.Path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = cfg.Path
	}

	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range dialect.InitStatements() {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	d := &Database{
		db:      db,
		dialect: dialect,
		qb:      NewQueryBuilder(dialect),
	}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return d, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// migrate creates the database schema if it doesn't exist.
func (d *Database) migrate() error {
	migrations := []string{
		// Runs table
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMP NOT NULL,
			seed BIGINT NOT NULL,
			dim_x INTEGER NOT NULL,
			dim_y INTEGER NOT NULL,
			dim_z INTEGER NOT NULL,
			tileset TEXT NOT NULL DEFAULT 'basic',
			status TEXT NOT NULL DEFAULT 'completed',
			steps INTEGER NOT NULL DEFAULT 0,
			yields INTEGER NOT NULL DEFAULT 0,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			tile_count INTEGER NOT NULL DEFAULT 0,
			grid %s
		)`, d.dialect.BlobType()),

		// Index for listing newest runs first
		`CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}

	return nil
}

// DB returns the underlying sql.DB for advanced operations.
func (d *Database) DB() *sql.DB {
	return d.db
}
