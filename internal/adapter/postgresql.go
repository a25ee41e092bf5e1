package adapter

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgreSQLAdapter PostgreSQL adapter
type PostgreSQLAdapter struct {
	db     *sql.DB
	config *PostgreSQLConfig
}

// PostgreSQLConfig PostgreSQL connection config
type PostgreSQLConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string // disable, require, verify-ca, verify-full
}

// NewPostgreSQLAdapter creates PostgreSQL adapter
func NewPostgreSQLAdapter(config *PostgreSQLConfig) *PostgreSQLAdapter {
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	return &PostgreSQLAdapter{
		config: config,
	}
}

// DSN builds the lib/pq key/value DSN
func (a *PostgreSQLAdapter) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		a.config.Host,
		a.config.Port,
		a.config.User,
		a.config.Password,
		a.config.Database,
		a.config.SSLMode,
	)
}

// Connect connects to database
func (a *PostgreSQLAdapter) Connect(ctx context.Context) error {
	db, err := openDB(ctx, "postgres", a.DSN())
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

// Close closes connection
func (a *PostgreSQLAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// ExecuteQuery executes query
func (a *PostgreSQLAdapter) ExecuteQuery(ctx context.Context, query string) (*QueryResult, error) {
	return runQuery(ctx, a.db, query)
}

// GetDatabaseType gets database type
func (a *PostgreSQLAdapter) GetDatabaseType() string {
	return "PostgreSQL"
}

// GetDatabaseVersion gets database version
func (a *PostgreSQLAdapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	return queryVersion(ctx, a, "SELECT version() AS version")
}
