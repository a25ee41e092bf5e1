package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	mlflowAPI          = "/api/2.0/mlflow"
	mlflowArtifactsAPI = "/api/2.0/mlflow-artifacts/artifacts"
	proxiedScheme      = "mlflow-artifacts:"
)

// MLflowTracker logs runs to an MLflow tracking server over its REST API.
type MLflowTracker struct {
	baseURL string
	client  *http.Client
	store   ArtifactStore
	now     func() time.Time

	experiments map[string]string
}

// NewMLflowTracker creates a client for the server at baseURL. A nil client
// uses http.DefaultClient. When store is set, artifacts go there instead of
// through the server's artifact proxy.
func NewMLflowTracker(baseURL string, client *http.Client, store ArtifactStore) *MLflowTracker {
	if client == nil {
		client = http.DefaultClient
	}
	return &MLflowTracker{
		baseURL:     strings.TrimRight(baseURL, "/"),
		client:      client,
		store:       store,
		now:         time.Now,
		experiments: make(map[string]string),
	}
}

// APIError error payload returned by the server
type APIError struct {
	Status    int
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

func (e *APIError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("mlflow: http %d", e.Status)
	}
	return fmt.Sprintf("mlflow: http %d %s: %s", e.Status, e.ErrorCode, e.Message)
}

type mlflowTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type mlflowMetric struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step"`
}

type runInfo struct {
	RunID        string `json:"run_id"`
	ExperimentID string `json:"experiment_id"`
	ArtifactURI  string `json:"artifact_uri"`
}

// StartRun implements Tracker.
func (t *MLflowTracker) StartRun(ctx context.Context, experiment, runName string) (Run, error) {
	expID, err := t.experimentID(ctx, experiment)
	if err != nil {
		return nil, err
	}

	var created struct {
		Run struct {
			Info runInfo `json:"info"`
		} `json:"run"`
	}
	err = t.call(ctx, "runs/create", map[string]interface{}{
		"experiment_id": expID,
		"run_name":      runName,
		"start_time":    millis(t.now()),
		"tags":          []mlflowTag{{Key: "mlflow.runName", Value: runName}},
	}, &created)
	if err != nil {
		return nil, fmt.Errorf("create run %s: %w", runName, err)
	}
	info := created.Run.Info
	if info.ExperimentID == "" {
		info.ExperimentID = expID
	}
	return &mlflowRun{tracker: t, info: info}, nil
}

// Close implements Tracker.
func (t *MLflowTracker) Close() error { return nil }

func (t *MLflowTracker) experimentID(ctx context.Context, name string) (string, error) {
	if id, ok := t.experiments[name]; ok {
		return id, nil
	}

	var found struct {
		Experiment struct {
			ExperimentID string `json:"experiment_id"`
		} `json:"experiment"`
	}
	err := t.get(ctx, "experiments/get-by-name", url.Values{"experiment_name": {name}}, &found)
	var apiErr *APIError
	switch {
	case err == nil:
		t.experiments[name] = found.Experiment.ExperimentID
		return found.Experiment.ExperimentID, nil
	case errors.As(err, &apiErr) && apiErr.ErrorCode == "RESOURCE_DOES_NOT_EXIST":
	default:
		return "", fmt.Errorf("get experiment %s: %w", name, err)
	}

	var created struct {
		ExperimentID string `json:"experiment_id"`
	}
	if err := t.call(ctx, "experiments/create", map[string]string{"name": name}, &created); err != nil {
		return "", fmt.Errorf("create experiment %s: %w", name, err)
	}
	t.experiments[name] = created.ExperimentID
	return created.ExperimentID, nil
}

func (t *MLflowTracker) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+mlflowAPI+"/"+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	return t.do(req, out)
}

func (t *MLflowTracker) call(ctx context.Context, endpoint string, payload, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+mlflowAPI+"/"+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return t.do(req, out)
}

func (t *MLflowTracker) do(req *http.Request, out interface{}) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(body, apiErr)
		return apiErr
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

type mlflowRun struct {
	tracker *MLflowTracker
	info    runInfo
}

func (r *mlflowRun) ID() string { return r.info.RunID }

func (r *mlflowRun) LogParams(ctx context.Context, params map[string]string) error {
	batch := make([]mlflowTag, 0, len(params))
	for _, key := range sortedKeys(params) {
		batch = append(batch, mlflowTag{Key: key, Value: params[key]})
	}
	if err := r.tracker.call(ctx, "runs/log-batch", map[string]interface{}{
		"run_id": r.info.RunID,
		"params": batch,
	}, nil); err != nil {
		return fmt.Errorf("log params: %w", err)
	}
	return nil
}

func (r *mlflowRun) LogMetrics(ctx context.Context, metrics map[string]float64) error {
	ts := millis(r.tracker.now())
	batch := make([]mlflowMetric, 0, len(metrics))
	for _, key := range sortedKeys(metrics) {
		batch = append(batch, mlflowMetric{Key: key, Value: metrics[key], Timestamp: ts})
	}
	if err := r.tracker.call(ctx, "runs/log-batch", map[string]interface{}{
		"run_id":  r.info.RunID,
		"metrics": batch,
	}, nil); err != nil {
		return fmt.Errorf("log metrics: %w", err)
	}
	return nil
}

// LogArtifact uploads through the external store when configured, otherwise
// through the server's artifact proxy.
func (r *mlflowRun) LogArtifact(ctx context.Context, localPath string) error {
	name := filepath.Base(localPath)
	if r.tracker.store != nil {
		_, err := r.tracker.store.Upload(ctx, path.Join(r.info.ExperimentID, r.info.RunID, "artifacts", name), localPath)
		return err
	}

	if !strings.HasPrefix(r.info.ArtifactURI, proxiedScheme) {
		return fmt.Errorf("artifact uri %q is not served by the tracking server; configure tracking.s3", r.info.ArtifactURI)
	}
	rel := strings.TrimLeft(strings.TrimPrefix(r.info.ArtifactURI, proxiedScheme), "/")

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("log artifact %s: %w", name, err)
	}
	defer f.Close()

	target := r.tracker.baseURL + mlflowArtifactsAPI + "/" + path.Join(rel, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, f)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if err := r.tracker.do(req, nil); err != nil {
		return fmt.Errorf("log artifact %s: %w", name, err)
	}
	return nil
}

func (r *mlflowRun) End(ctx context.Context, status Status) error {
	if err := r.tracker.call(ctx, "runs/update", map[string]interface{}{
		"run_id":   r.info.RunID,
		"status":   string(status),
		"end_time": millis(r.tracker.now()),
	}, nil); err != nil {
		return fmt.Errorf("end run: %w", err)
	}
	return nil
}
