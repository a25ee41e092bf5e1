package adapter

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteAdapter SQLite adapter (pure-Go modernc driver)
type SQLiteAdapter struct {
	db     *sql.DB
	config *SQLiteConfig
}

// SQLiteConfig SQLite connection config
type SQLiteConfig struct {
	FilePath string // DB file path, ":memory:" for in-memory
	Mode     string // ro (default), rw, rwc, memory
}

// NewSQLiteAdapter creates SQLite adapter
func NewSQLiteAdapter(config *SQLiteConfig) *SQLiteAdapter {
	if config.Mode == "" {
		config.Mode = "ro"
	}
	return &SQLiteAdapter{
		config: config,
	}
}

// DSN builds the driver DSN. Files open read-only unless another mode is set;
// a missing file is an error in ro mode.
func (a *SQLiteAdapter) DSN() string {
	if a.config.FilePath == ":memory:" {
		return ":memory:"
	}
	return fmt.Sprintf("file:%s?mode=%s", a.config.FilePath, a.config.Mode)
}

// Connect connects to database
func (a *SQLiteAdapter) Connect(ctx context.Context) error {
	db, err := openDB(ctx, "sqlite", a.DSN())
	if err != nil {
		return err
	}
	// A single connection keeps ":memory:" databases consistent across queries
	db.SetMaxOpenConns(1)
	a.db = db
	return nil
}

// Close closes connection
func (a *SQLiteAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// ExecuteQuery executes query
func (a *SQLiteAdapter) ExecuteQuery(ctx context.Context, query string) (*QueryResult, error) {
	return runQuery(ctx, a.db, query)
}

// GetDatabaseType gets database type
func (a *SQLiteAdapter) GetDatabaseType() string {
	return "SQLite"
}

// GetDatabaseVersion gets database version
func (a *SQLiteAdapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	return queryVersion(ctx, a, "SELECT sqlite_version() AS version")
}
