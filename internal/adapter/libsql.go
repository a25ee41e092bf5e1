package adapter

import (
	"context"
	"database/sql"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

// LibSQLAdapter libSQL / Turso adapter for remote copies of the benchmark databases
type LibSQLAdapter struct {
	db     *sql.DB
	config *LibSQLConfig
}

// LibSQLConfig libSQL connection config
type LibSQLConfig struct {
	URL string // libsql://<db>.turso.io?authToken=...
}

// NewLibSQLAdapter creates libSQL adapter
func NewLibSQLAdapter(config *LibSQLConfig) *LibSQLAdapter {
	return &LibSQLAdapter{config: config}
}

// Connect connects to database
func (a *LibSQLAdapter) Connect(ctx context.Context) error {
	db, err := openDB(ctx, "libsql", a.config.URL)
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

// Close closes connection
func (a *LibSQLAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// ExecuteQuery executes query
func (a *LibSQLAdapter) ExecuteQuery(ctx context.Context, query string) (*QueryResult, error) {
	return runQuery(ctx, a.db, query)
}

// GetDatabaseType gets database type
func (a *LibSQLAdapter) GetDatabaseType() string {
	return "libSQL"
}

// GetDatabaseVersion gets database version
func (a *LibSQLAdapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	return queryVersion(ctx, a, "SELECT sqlite_version() AS version")
}
