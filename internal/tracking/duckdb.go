package tracking

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"
)

//go:embed schema.sql
var schemaDDL string

// DetailedMetricsSuffix marks per-question CSV artifacts, which are also
// loaded into the evaluations table.
const DetailedMetricsSuffix = "_detailed_metrics.csv"

// DuckDBTracker stores runs in a DuckDB file so results across experiments can
// be queried with SQL.
type DuckDBTracker struct {
	db          *sql.DB
	artifactDir string
	store       ArtifactStore
	now         func() time.Time
}

// NewDuckDBTracker opens (or creates) the database at path and applies the schema.
func NewDuckDBTracker(ctx context.Context, dbPath string, store ArtifactStore) (*DuckDBTracker, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create duckdb directory: %w", err)
		}
	}
	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply duckdb schema: %w", err)
	}
	return &DuckDBTracker{
		db:          db,
		artifactDir: dbPath + ".artifacts",
		store:       store,
		now:         time.Now,
	}, nil
}

// DB exposes the underlying handle for ad-hoc queries.
func (t *DuckDBTracker) DB() *sql.DB { return t.db }

// StartRun implements Tracker.
func (t *DuckDBTracker) StartRun(ctx context.Context, experiment, runName string) (Run, error) {
	runID := uuid.NewString()
	_, err := t.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, experiment, run_name, status, start_time) VALUES (?, ?, ?, 'RUNNING', ?)`,
		runID, experiment, runName, t.now())
	if err != nil {
		return nil, fmt.Errorf("create run %s: %w", runName, err)
	}
	return &duckdbRun{tracker: t, id: runID, experiment: experiment}, nil
}

// Close implements Tracker.
func (t *DuckDBTracker) Close() error { return t.db.Close() }

type duckdbRun struct {
	tracker    *DuckDBTracker
	id         string
	experiment string
}

func (r *duckdbRun) ID() string { return r.id }

func (r *duckdbRun) LogParams(ctx context.Context, params map[string]string) error {
	for _, key := range sortedKeys(params) {
		_, err := r.tracker.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO params (run_id, key, value) VALUES (?, ?, ?)`,
			r.id, key, params[key])
		if err != nil {
			return fmt.Errorf("log param %s: %w", key, err)
		}
	}
	return nil
}

func (r *duckdbRun) LogMetrics(ctx context.Context, metrics map[string]float64) error {
	at := r.tracker.now()
	for _, key := range sortedKeys(metrics) {
		_, err := r.tracker.db.ExecContext(ctx,
			`INSERT INTO metrics (run_id, key, value, logged_at) VALUES (?, ?, ?, ?)`,
			r.id, key, metrics[key], at)
		if err != nil {
			return fmt.Errorf("log metric %s: %w", key, err)
		}
	}
	return nil
}

func (r *duckdbRun) LogArtifact(ctx context.Context, localPath string) error {
	name := filepath.Base(localPath)

	var rows sql.NullInt64
	if strings.HasSuffix(name, DetailedMetricsSuffix) {
		n, err := r.ingestEvaluations(ctx, localPath)
		if err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		rows = sql.NullInt64{Int64: n, Valid: true}
	}

	var uri string
	if r.tracker.store != nil {
		var err error
		if uri, err = r.tracker.store.Upload(ctx, path.Join(r.experiment, r.id, name), localPath); err != nil {
			return err
		}
	} else {
		dst := filepath.Join(r.tracker.artifactDir, r.id, name)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return fmt.Errorf("log artifact %s: %w", name, err)
		}
		if err := copyFile(localPath, dst); err != nil {
			return fmt.Errorf("log artifact %s: %w", name, err)
		}
		uri = "file://" + filepath.ToSlash(dst)
	}

	_, err := r.tracker.db.ExecContext(ctx,
		`INSERT INTO artifacts (run_id, name, uri, row_count) VALUES (?, ?, ?, ?)`,
		r.id, name, uri, rows)
	if err != nil {
		return fmt.Errorf("record artifact %s: %w", name, err)
	}
	return nil
}

// ingestEvaluations appends the CSV rows to the evaluations table.
func (r *duckdbRun) ingestEvaluations(ctx context.Context, csvPath string) (int64, error) {
	query := fmt.Sprintf(
		`INSERT INTO evaluations BY NAME SELECT %s AS run_id, * FROM read_csv(%s, header = true, all_varchar = true)`,
		sqlString(r.id), sqlString(csvPath))
	res, err := r.tracker.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *duckdbRun) End(ctx context.Context, status Status) error {
	_, err := r.tracker.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, end_time = ? WHERE run_id = ?`,
		string(status), r.tracker.now(), r.id)
	if err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	return nil
}

// sqlString quotes s as a SQL string literal.
func sqlString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
