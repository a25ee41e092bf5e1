// Package tracking records benchmark runs: parameters, scalar metrics and
// artifacts, grouped by experiment.
package tracking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"sqlcotbench/internal/config"
)

// Status terminal run status
type Status string

const (
	StatusFinished Status = "FINISHED"
	StatusFailed   Status = "FAILED"
	StatusKilled   Status = "KILLED"
)

// Tracker opens runs inside named experiments.
type Tracker interface {
	StartRun(ctx context.Context, experiment, runName string) (Run, error)
	Close() error
}

// Run is one open tracking run. It is not safe for concurrent use.
type Run interface {
	ID() string
	LogParams(ctx context.Context, params map[string]string) error
	LogMetrics(ctx context.Context, metrics map[string]float64) error
	LogArtifact(ctx context.Context, localPath string) error
	End(ctx context.Context, status Status) error
}

// ExperimentName builds "<prefix>_<YYYY-MM-DD_HH-MM-SS>".
func ExperimentName(prefix string, at time.Time) string {
	return prefix + "_" + at.Format("2006-01-02_15-04-05")
}

// Open creates the tracker selected by cfg.
func Open(ctx context.Context, cfg config.TrackingConfig, log *zap.SugaredLogger) (Tracker, error) {
	var store ArtifactStore
	if cfg.S3 != nil {
		s3, err := NewS3ArtifactStore(*cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("create s3 artifact store: %w", err)
		}
		store = s3
	}

	switch cfg.Backend {
	case config.BackendFile, "":
		log.Infow("tracking to file store", "root", cfg.URI)
		return NewFileTracker(cfg.URI, store)
	case config.BackendMLflow:
		log.Infow("tracking to mlflow server", "uri", cfg.URI)
		return NewMLflowTracker(cfg.URI, nil, store), nil
	case config.BackendDuckDB:
		log.Infow("tracking to duckdb", "path", cfg.URI)
		return NewDuckDBTracker(ctx, cfg.URI, store)
	default:
		return nil, fmt.Errorf("unsupported tracking backend %q", cfg.Backend)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}
