package adapter

import (
	"context"
	"database/sql"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

// MySQLAdapter MySQL adapter
type MySQLAdapter struct {
	db     *sql.DB
	config *MySQLConfig
}

// MySQLConfig MySQL connection config
type MySQLConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
}

// NewMySQLAdapter creates MySQL adapter
func NewMySQLAdapter(config *MySQLConfig) *MySQLAdapter {
	return &MySQLAdapter{
		config: config,
	}
}

// DSN builds the go-sql-driver DSN
func (a *MySQLAdapter) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = a.config.User
	cfg.Passwd = a.config.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(a.config.Host, strconv.Itoa(a.config.Port))
	cfg.DBName = a.config.Database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// Connect connects to database
func (a *MySQLAdapter) Connect(ctx context.Context) error {
	db, err := openDB(ctx, "mysql", a.DSN())
	if err != nil {
		return err
	}
	a.db = db
	return nil
}

// Close closes connection
func (a *MySQLAdapter) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// ExecuteQuery executes query
func (a *MySQLAdapter) ExecuteQuery(ctx context.Context, query string) (*QueryResult, error) {
	return runQuery(ctx, a.db, query)
}

// GetDatabaseType gets database type
func (a *MySQLAdapter) GetDatabaseType() string {
	return "MySQL"
}

// GetDatabaseVersion gets database version
func (a *MySQLAdapter) GetDatabaseVersion(ctx context.Context) (string, error) {
	return queryVersion(ctx, a, "SELECT VERSION() AS version")
}
