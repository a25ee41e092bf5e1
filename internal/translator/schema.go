package translator

import (
	"context"
	"fmt"
	"strings"

	"sqlcotbench/internal/adapter"
)

const (
	sampleRows      = 3
	maxSampleLength = 100
)

// DescribeSchema renders the table definitions of the connected database for
// the prompt. SQLite-family databases get their CREATE TABLE statements plus a
// few sample rows; server databases get a column/type listing.
func DescribeSchema(ctx context.Context, db adapter.DBAdapter) (string, error) {
	switch db.GetDatabaseType() {
	case "SQLite", "libSQL":
		return describeSQLite(ctx, db)
	case "MySQL":
		return describeColumns(ctx, db,
			"SELECT table_name AS table_name, column_name AS column_name, column_type AS data_type "+
				"FROM information_schema.columns WHERE table_schema = DATABASE() "+
				"ORDER BY table_name, ordinal_position")
	case "PostgreSQL":
		return describeColumns(ctx, db,
			"SELECT table_name, column_name, data_type FROM information_schema.columns "+
				"WHERE table_schema = 'public' ORDER BY table_name, ordinal_position")
	default:
		return "", fmt.Errorf("unsupported database type: %s", db.GetDatabaseType())
	}
}

func describeSQLite(ctx context.Context, db adapter.DBAdapter) (string, error) {
	tables, err := db.ExecuteQuery(ctx,
		"SELECT name, sql FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}

	parts := make([]string, 0, tables.RowCount)
	for i := 0; i < tables.RowCount; i++ {
		name := tables.StringValue(i, "name")
		var sb strings.Builder
		sb.WriteString(strings.TrimSpace(tables.StringValue(i, "sql")))

		// Sample rows are best effort; views over missing tables etc. are skipped
		sample, err := db.ExecuteQuery(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(name), sampleRows))
		if err == nil {
			sb.WriteString(fmt.Sprintf("\n\n/*\n%d rows from %s table:\n", sample.RowCount, name))
			sb.WriteString(strings.Join(sample.Columns, "\t"))
			for _, row := range sample.Rows {
				cells := make([]string, len(row))
				for j, v := range row {
					cells[j] = truncate(formatCell(v))
				}
				sb.WriteString("\n")
				sb.WriteString(strings.Join(cells, "\t"))
			}
			sb.WriteString("\n*/")
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n\n"), nil
}

func describeColumns(ctx context.Context, db adapter.DBAdapter, query string) (string, error) {
	result, err := db.ExecuteQuery(ctx, query)
	if err != nil {
		return "", fmt.Errorf("list columns: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Database: %s\n", db.GetDatabaseType()))
	current := ""
	for i := 0; i < result.RowCount; i++ {
		table := result.StringValue(i, "table_name")
		if table != current {
			sb.WriteString(fmt.Sprintf("\nTable %s:\n", table))
			current = table
		}
		sb.WriteString(fmt.Sprintf("  - %s: %s\n", result.StringValue(i, "column_name"), result.StringValue(i, "data_type")))
	}
	return sb.String(), nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func formatCell(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxSampleLength {
		return s
	}
	return string(r[:maxSampleLength]) + "..."
}
