package sqlexec

import (
	"context"
	"errors"
	"strings"

	"sqlcotbench/internal/adapter"
)

var errEmptyQuery = errors.New("empty query")

// OpenFunc opens an unconnected adapter for a connection string.
type OpenFunc func(databaseURL string) (adapter.DBAdapter, error)

// Fetcher executes queries over short-lived connections.
type Fetcher struct {
	open OpenFunc
}

// NewFetcher creates a Fetcher. A nil open uses adapter.Open.
func NewFetcher(open OpenFunc) *Fetcher {
	if open == nil {
		open = adapter.Open
	}
	return &Fetcher{open: open}
}

// FetchResult executes query against databaseURL. Database errors become an
// error mapping; it never fails.
func (f *Fetcher) FetchResult(ctx context.Context, query, databaseURL string) ResultSet {
	result, err := f.execute(ctx, query, databaseURL)
	if err != nil {
		return ErrorResult(err.Error())
	}
	return fromRows(result.Columns, result.Rows)
}

// IsRunnable reports whether query executes without error.
func (f *Fetcher) IsRunnable(ctx context.Context, query, databaseURL string) bool {
	_, err := f.execute(ctx, query, databaseURL)
	return err == nil
}

func (f *Fetcher) execute(ctx context.Context, query, databaseURL string) (*adapter.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errEmptyQuery
	}
	db, err := f.open(databaseURL)
	if err != nil {
		return nil, err
	}
	if err := db.Connect(ctx); err != nil {
		return nil, err
	}
	defer db.Close()

	return db.ExecuteQuery(ctx, query)
}
