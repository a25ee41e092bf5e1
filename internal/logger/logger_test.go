package logger

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf)
	p.SetPhase("zero_shot_cot", 2)
	p.Info("run %s in experiment %s", "r1", "exp")

	p.StartTask("db/1")
	p.CompleteTask("db/1")
	p.StartTask("db/2")
	p.FailTask("db/2", errors.New("judge said maybe"))
	p.PrintSummary()

	completed, failed := p.Counts()
	assert.Equal(t, 1, completed)
	assert.Equal(t, 1, failed)

	out := buf.String()
	assert.Contains(t, out, "📍 zero_shot_cot")
	assert.Contains(t, out, "run r1 in experiment exp")
	assert.Contains(t, out, "[db/2] ✗ Failed: judge said maybe")
	assert.Contains(t, out, "Progress: 2/2 (100.0%)")
	assert.Contains(t, out, "  - db/2: judge said maybe")
}

func TestSetPhaseResets(t *testing.T) {
	p := NewProgress(nil)
	p.SetPhase("a", 1)
	p.StartTask("x")
	p.FailTask("x", errors.New("boom"))
	p.SetPhase("b", 1)

	completed, failed := p.Counts()
	assert.Zero(t, completed)
	assert.Zero(t, failed)
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "N/A", formatDuration(0))
	assert.Equal(t, "1.5s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m5s", formatDuration(125*time.Second))
	assert.Equal(t, "1h1m", formatDuration(61*time.Minute))
}

func TestNewWritesFile(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	path := filepath.Join(t.TempDir(), "bench.log")
	log, err := New(Options{File: path})
	require.NoError(t, err)
	log.Debugw("fetched", "db_id", "shop")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"db_id":"shop"`)
}

func TestNewInvalidLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "loud")
	_, err := New(Options{})
	require.Error(t, err)
}
