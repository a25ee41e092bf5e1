package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlcotbench/internal/testutil"
)

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "(none)", firstLine(""))
	assert.Equal(t, "Let's think step by step.", firstLine("Let's think step by step."))
	assert.Equal(t, "Plan: ...", firstLine("\nPlan:\n1. read"))
}

func TestStrategiesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newStrategiesCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())

	for _, name := range []string{"no_cot", "zero_shot_cot", "plan_and_solve_cot", "plan_and_solve_cot_v2"} {
		assert.Contains(t, out.String(), name)
	}
}

func TestDatasetsCommand(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "dev_tables.json"), []byte(`[{"db_id": "shop"}, {"db_id": "zoo"}]`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "dev.json"), []byte(`[
		{"question_id": 1, "db_id": "shop", "question": "q", "evidence": "", "SQL": "SELECT 1", "difficulty": "simple"}
	]`), 0o644))
	testutil.CreateSQLite(t, filepath.Join(dataDir, "dev_databases", "shop", "shop.sqlite"), "CREATE TABLE t (id INTEGER)")

	var out bytes.Buffer
	cmd := newDatasetsCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--data", dataDir})
	require.NoError(t, cmd.Execute())

	assert.Regexp(t, `shop\s+1\s+SQLite \d`, out.String())
	assert.Regexp(t, `zoo\s+0\s+missing`, out.String())
}
