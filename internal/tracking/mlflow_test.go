package tracking

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMLflow struct {
	mu          sync.Mutex
	experiments map[string]string
	calls       []string
	batches     []map[string]interface{}
	artifacts   map[string]string
	updates     []map[string]interface{}
	artifactURI string
}

func newFakeMLflow() *fakeMLflow {
	return &fakeMLflow{
		experiments: map[string]string{},
		artifacts:   map[string]string{},
		artifactURI: "mlflow-artifacts:/7/run-1/artifacts",
	}
}

func (f *fakeMLflow) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	var body map[string]interface{}
	if r.Method == http.MethodPost {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	reply := func(v interface{}) { _ = json.NewEncoder(w).Encode(v) }

	switch r.URL.Path {
	case "/api/2.0/mlflow/experiments/get-by-name":
		id, ok := f.experiments[r.URL.Query().Get("experiment_name")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			reply(map[string]string{"error_code": "RESOURCE_DOES_NOT_EXIST", "message": "no such experiment"})
			return
		}
		reply(map[string]interface{}{"experiment": map[string]string{"experiment_id": id}})
	case "/api/2.0/mlflow/experiments/create":
		f.experiments[body["name"].(string)] = "7"
		reply(map[string]string{"experiment_id": "7"})
	case "/api/2.0/mlflow/runs/create":
		reply(map[string]interface{}{"run": map[string]interface{}{"info": map[string]string{
			"run_id":        "run-1",
			"experiment_id": body["experiment_id"].(string),
			"artifact_uri":  f.artifactURI,
		}}})
	case "/api/2.0/mlflow/runs/log-batch":
		f.batches = append(f.batches, body)
		reply(map[string]string{})
	case "/api/2.0/mlflow/runs/update":
		f.updates = append(f.updates, body)
		reply(map[string]string{})
	default:
		if r.Method == http.MethodPut {
			data, _ := io.ReadAll(r.Body)
			f.artifacts[r.URL.Path] = string(data)
			reply(map[string]string{})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestMLflowTracker(t *testing.T) {
	fake := newFakeMLflow()
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	tracker := NewMLflowTracker(srv.URL+"/", srv.Client(), nil)
	run, err := tracker.StartRun(ctx, "exp", "plan_and_solve_cot")
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID())

	require.NoError(t, run.LogParams(ctx, map[string]string{"cot_prompt": "plan", "model": "gpt-4o-mini"}))
	require.NoError(t, run.LogMetrics(ctx, map[string]float64{"is_runnable_ratio": 1}))
	require.NoError(t, run.LogArtifact(ctx, writeArtifact(t, "plan_and_solve_cot_detailed_metrics.csv", "agent\n")))
	require.NoError(t, run.End(ctx, StatusFinished))

	// second run in the same experiment reuses the cached id
	_, err = tracker.StartRun(ctx, "exp", "no_cot")
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, []string{
		"GET /api/2.0/mlflow/experiments/get-by-name",
		"POST /api/2.0/mlflow/experiments/create",
		"POST /api/2.0/mlflow/runs/create",
		"POST /api/2.0/mlflow/runs/log-batch",
		"POST /api/2.0/mlflow/runs/log-batch",
		"PUT /api/2.0/mlflow-artifacts/artifacts/7/run-1/artifacts/plan_and_solve_cot_detailed_metrics.csv",
		"POST /api/2.0/mlflow/runs/update",
		"POST /api/2.0/mlflow/runs/create",
	}, fake.calls)

	params := fake.batches[0]["params"].([]interface{})
	require.Len(t, params, 2)
	assert.Equal(t, "cot_prompt", params[0].(map[string]interface{})["key"])
	metrics := fake.batches[1]["metrics"].([]interface{})
	assert.Equal(t, 1.0, metrics[0].(map[string]interface{})["value"])
	assert.Equal(t, "agent\n", fake.artifacts["/api/2.0/mlflow-artifacts/artifacts/7/run-1/artifacts/plan_and_solve_cot_detailed_metrics.csv"])
	assert.Equal(t, "FINISHED", fake.updates[0]["status"])
}

func TestMLflowTrackerNonProxiedArtifacts(t *testing.T) {
	fake := newFakeMLflow()
	fake.artifactURI = "s3://bucket/7/run-1/artifacts"
	srv := httptest.NewServer(fake)
	defer srv.Close()

	ctx := context.Background()
	run, err := NewMLflowTracker(srv.URL, srv.Client(), nil).StartRun(ctx, "exp", "no_cot")
	require.NoError(t, err)
	err = run.LogArtifact(ctx, writeArtifact(t, "no_cot_detailed_metrics.csv", "agent\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tracking.s3")

	store := &recordingStore{}
	run, err = NewMLflowTracker(srv.URL, srv.Client(), store).StartRun(ctx, "exp", "no_cot")
	require.NoError(t, err)
	require.NoError(t, run.LogArtifact(ctx, writeArtifact(t, "no_cot_detailed_metrics.csv", "agent\n")))
	assert.Equal(t, []string{"7/run-1/artifacts/no_cot_detailed_metrics.csv"}, store.keys)
}

func TestMLflowAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error_code":"PERMISSION_DENIED","message":"nope"}`))
	}))
	defer srv.Close()

	_, err := NewMLflowTracker(srv.URL, srv.Client(), nil).StartRun(context.Background(), "exp", "no_cot")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "PERMISSION_DENIED", apiErr.ErrorCode)
}
