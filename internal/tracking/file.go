package tracking

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const metaFile = "meta.yaml"

// MLflow file store run status codes
var fileStatusCodes = map[Status]int{
	"RUNNING":      1,
	StatusFinished: 3,
	StatusFailed:   4,
	StatusKilled:   5,
}

type experimentMeta struct {
	ArtifactLocation string `yaml:"artifact_location"`
	CreationTime     int64  `yaml:"creation_time"`
	ExperimentID     string `yaml:"experiment_id"`
	LastUpdateTime   int64  `yaml:"last_update_time"`
	LifecycleStage   string `yaml:"lifecycle_stage"`
	Name             string `yaml:"name"`
}

type runMeta struct {
	ArtifactURI    string `yaml:"artifact_uri"`
	EndTime        *int64 `yaml:"end_time"`
	EntryPointName string `yaml:"entry_point_name"`
	ExperimentID   string `yaml:"experiment_id"`
	LifecycleStage string `yaml:"lifecycle_stage"`
	RunID          string `yaml:"run_id"`
	RunName        string `yaml:"run_name"`
	RunUUID        string `yaml:"run_uuid"`
	SourceName     string `yaml:"source_name"`
	SourceType     int    `yaml:"source_type"`
	SourceVersion  string `yaml:"source_version"`
	StartTime      int64  `yaml:"start_time"`
	Status         int    `yaml:"status"`
	UserID         string `yaml:"user_id"`
}

// FileTracker writes runs in the MLflow file store layout under root, so
// `mlflow ui --backend-store-uri <root>` can browse them.
type FileTracker struct {
	root  string
	store ArtifactStore
	now   func() time.Time
}

// NewFileTracker creates root if needed. A nil store keeps artifacts local only.
func NewFileTracker(root string, store ArtifactStore) (*FileTracker, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve tracking root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create tracking root: %w", err)
	}
	return &FileTracker{root: abs, store: store, now: time.Now}, nil
}

// Root returns the absolute store directory.
func (t *FileTracker) Root() string { return t.root }

// StartRun implements Tracker.
func (t *FileTracker) StartRun(_ context.Context, experiment, runName string) (Run, error) {
	expID, err := t.experimentID(experiment)
	if err != nil {
		return nil, err
	}

	runID := strings.ReplaceAll(uuid.NewString(), "-", "")
	dir := filepath.Join(t.root, expID, runID)
	for _, sub := range []string{"params", "metrics", "tags", "artifacts"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create run directory: %w", err)
		}
	}

	run := &fileRun{
		tracker:    t,
		dir:        dir,
		experiment: experiment,
		meta: runMeta{
			ArtifactURI:    "file://" + filepath.ToSlash(filepath.Join(dir, "artifacts")),
			ExperimentID:   expID,
			LifecycleStage: "active",
			RunID:          runID,
			RunName:        runName,
			RunUUID:        runID,
			SourceType:     4,
			StartTime:      millis(t.now()),
			Status:         fileStatusCodes["RUNNING"],
			UserID:         os.Getenv("USER"),
		},
	}
	if err := writeYAML(filepath.Join(dir, metaFile), run.meta); err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, "tags", "mlflow.runName"), []byte(runName), 0o644); err != nil {
		return nil, fmt.Errorf("write run name tag: %w", err)
	}
	return run, nil
}

// Close implements Tracker.
func (t *FileTracker) Close() error { return nil }

// experimentID finds the experiment named name or creates it.
func (t *FileTracker) experimentID(name string) (string, error) {
	entries, err := os.ReadDir(t.root)
	if err != nil {
		return "", fmt.Errorf("list experiments: %w", err)
	}
	next := 1
	for _, entry := range entries {
		id, err := strconv.Atoi(entry.Name())
		if !entry.IsDir() || err != nil {
			continue
		}
		if id >= next {
			next = id + 1
		}
		var meta experimentMeta
		if err := readYAML(filepath.Join(t.root, entry.Name(), metaFile), &meta); err != nil {
			continue
		}
		if meta.Name == name {
			return entry.Name(), nil
		}
	}

	id := strconv.Itoa(next)
	dir := filepath.Join(t.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create experiment: %w", err)
	}
	now := millis(t.now())
	meta := experimentMeta{
		ArtifactLocation: "file://" + filepath.ToSlash(dir),
		CreationTime:     now,
		ExperimentID:     id,
		LastUpdateTime:   now,
		LifecycleStage:   "active",
		Name:             name,
	}
	if err := writeYAML(filepath.Join(dir, metaFile), meta); err != nil {
		return "", err
	}
	return id, nil
}

type fileRun struct {
	tracker    *FileTracker
	dir        string
	experiment string
	meta       runMeta
}

func (r *fileRun) ID() string { return r.meta.RunID }

func (r *fileRun) LogParams(_ context.Context, params map[string]string) error {
	for _, key := range sortedKeys(params) {
		if err := os.WriteFile(filepath.Join(r.dir, "params", key), []byte(params[key]), 0o644); err != nil {
			return fmt.Errorf("log param %s: %w", key, err)
		}
	}
	return nil
}

func (r *fileRun) LogMetrics(_ context.Context, metrics map[string]float64) error {
	ts := millis(r.tracker.now())
	for _, key := range sortedKeys(metrics) {
		f, err := os.OpenFile(filepath.Join(r.dir, "metrics", key), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("log metric %s: %w", key, err)
		}
		_, err = fmt.Fprintf(f, "%d %s 0\n", ts, strconv.FormatFloat(metrics[key], 'g', -1, 64))
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("log metric %s: %w", key, err)
		}
	}
	return nil
}

func (r *fileRun) LogArtifact(ctx context.Context, localPath string) error {
	name := filepath.Base(localPath)
	if err := copyFile(localPath, filepath.Join(r.dir, "artifacts", name)); err != nil {
		return fmt.Errorf("log artifact %s: %w", name, err)
	}
	if r.tracker.store != nil {
		if _, err := r.tracker.store.Upload(ctx, path.Join(r.experiment, r.meta.RunID, name), localPath); err != nil {
			return err
		}
	}
	return nil
}

func (r *fileRun) End(_ context.Context, status Status) error {
	code, ok := fileStatusCodes[status]
	if !ok {
		return fmt.Errorf("unknown run status %q", status)
	}
	end := millis(r.tracker.now())
	r.meta.EndTime = &end
	r.meta.Status = code
	return writeYAML(filepath.Join(r.dir, metaFile), r.meta)
}

func writeYAML(path string, v interface{}) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readYAML(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err = io.Copy(out, in); err != nil {
		return err
	}
	return nil
}
