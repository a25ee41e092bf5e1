package adapter

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// runQuery executes query on db and reads every row. It is shared by all
// database/sql backed adapters.
func runQuery(ctx context.Context, db *sql.DB, query string) (*QueryResult, error) {
	if db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	start := time.Now()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return &QueryResult{
			Error:         err.Error(),
			ExecutionTime: time.Since(start).Milliseconds(),
		}, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return &QueryResult{Error: err.Error()}, err
	}

	var result [][]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return &QueryResult{Error: err.Error()}, err
		}

		for i, val := range values {
			if b, ok := val.([]byte); ok {
				values[i] = string(b)
			}
		}
		result = append(result, values)
	}

	// Errors raised while stepping (e.g. runtime type errors in SQLite) surface here
	if err := rows.Err(); err != nil {
		return &QueryResult{Error: err.Error()}, err
	}

	return &QueryResult{
		Columns:       columns,
		Rows:          result,
		RowCount:      len(result),
		ExecutionTime: time.Since(start).Milliseconds(),
	}, nil
}

// queryVersion runs a single-value version query.
func queryVersion(ctx context.Context, a DBAdapter, query string) (string, error) {
	result, err := a.ExecuteQuery(ctx, query)
	if err != nil {
		return "", err
	}
	if result.RowCount > 0 {
		if version := result.StringValue(0, "version"); version != "" {
			return version, nil
		}
	}
	return "unknown", nil
}

// openDB opens and pings a database/sql handle.
func openDB(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}
