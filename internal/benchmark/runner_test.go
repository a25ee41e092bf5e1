package benchmark

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlcotbench/internal/dataset"
	"sqlcotbench/internal/judge"
	"sqlcotbench/internal/logger"
	"sqlcotbench/internal/prompt"
	"sqlcotbench/internal/testutil"
	"sqlcotbench/internal/tracking"
	"sqlcotbench/internal/translator"
)

type fixture struct {
	runner      *Runner
	sqlModel    *testutil.StubModel
	judgeModel  *testutil.StubModel
	tracker     *tracking.FileTracker
	tempDir     string
	out         *bytes.Buffer
	translators int
}

func newFixture(t *testing.T, questions []dataset.Question, sqlModel, judgeModel *testutil.StubModel) *fixture {
	t.Helper()
	url := testutil.SQLiteURL(t,
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, customer TEXT, price REAL)",
		"INSERT INTO orders VALUES (1, 'ann', 9.5), (2, 'bob', 20.25)",
	)
	tracker, err := tracking.NewFileTracker(filepath.Join(t.TempDir(), "mlruns"), nil)
	require.NoError(t, err)
	j, err := judge.New(judgeModel)
	require.NoError(t, err)

	f := &fixture{
		sqlModel:   sqlModel,
		judgeModel: judgeModel,
		tracker:    tracker,
		tempDir:    t.TempDir(),
		out:        &bytes.Buffer{},
	}
	f.runner = &Runner{
		Datasets:   []dataset.TestDataset{{DbID: "shop", DatabaseURL: url, Questions: questions}},
		Strategies: []prompt.Strategy{{Name: prompt.ZeroShot, Prompt: prompt.ZeroShotCoT}},
		NewTranslator: func(databaseURL, strategyPrompt string) SQLTranslator {
			f.translators++
			return translator.New(sqlModel, databaseURL, strategyPrompt)
		},
		Judge:      j,
		Tracker:    tracker,
		Experiment: "exp",
		Params:     map[string]string{"model": "stub"},
		Out:        f.out,
		TempDir:    f.tempDir,
	}
	return f
}

func question(id int, difficulty, sql string) dataset.Question {
	return dataset.Question{QuestionID: id, DbID: "shop", Question: "q?", SQL: sql, Difficulty: difficulty, Evidence: "hint"}
}

func TestRunSingleQuestion(t *testing.T) {
	f := newFixture(t,
		[]dataset.Question{question(1, "simple", "SELECT 1")},
		testutil.NewStubModel("&&&SELECT 1&&&"),
		testutil.NewStubModel(`{"result": true}`),
	)
	var progress bytes.Buffer
	f.runner.Progress = logger.NewProgress(&progress)

	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.Contains(t, progress.String(), "run "+res.RunID+" in experiment exp")
	require.Len(t, res.Evaluations, 1)
	eval := res.Evaluations[0]
	assert.Equal(t, prompt.ZeroShot, eval.Agent)
	assert.Equal(t, "SELECT 1", eval.GeneratedSQL)
	assert.True(t, eval.IsRunnable)
	assert.True(t, eval.ReturnsCorrectResult)
	assert.Equal(t, eval.ExpectedResult, eval.GeneratedResult)
	assert.Nil(t, res.Skipped)
	assert.Equal(t, 1.0, res.Summary.CorrectResultsRatio)

	assert.Contains(t, f.judgeModel.LastPrompt(), "Evaluated Query:\nSELECT 1")
	assert.NotContains(t, f.sqlModel.LastPrompt(), "Evidence: hint")

	runDir := filepath.Join(f.tracker.Root(), "1", res.RunID)
	csvData, err := os.ReadFile(filepath.Join(runDir, "artifacts", "zero_shot_cot_detailed_metrics.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "zero_shot_cot,shop,1,simple,q?,SELECT 1,SELECT 1,")
	assert.FileExists(t, filepath.Join(runDir, "metrics", "correct_results_ratio_simple"))

	cotPrompt, err := os.ReadFile(filepath.Join(runDir, "params", "cot_prompt"))
	require.NoError(t, err)
	assert.Equal(t, prompt.ZeroShotCoT, string(cotPrompt))
	assert.FileExists(t, filepath.Join(runDir, "params", "model"))

	entries, err := os.ReadDir(f.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Contains(t, f.out.String(), "Correct: 100.00%")
}

func TestRunClampsQuestions(t *testing.T) {
	f := newFixture(t,
		[]dataset.Question{
			question(1, "simple", "SELECT COUNT(*) FROM orders"),
			question(2, "moderate", "SELECT customer FROM orders"),
			question(3, "challenging", "SELECT price FROM orders"),
		},
		testutil.NewStubModel("no delimiter here"),
		testutil.NewStubModel(`{"result": false}`),
	)
	f.runner.MaxQuestions = 2
	f.runner.IncludeEvidence = true

	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	evals := report.Results[0].Evaluations
	require.Len(t, evals, 2)
	assert.Equal(t, 2, f.sqlModel.Calls())
	assert.Equal(t, 2, f.judgeModel.Calls())
	assert.Equal(t, 1, f.translators)
	assert.Contains(t, f.sqlModel.LastPrompt(), "q?\nEvidence: hint")

	for _, e := range evals {
		assert.Equal(t, "", e.GeneratedSQL)
		assert.False(t, e.IsRunnable)
		assert.False(t, e.ReturnsCorrectResult)
		assert.Contains(t, e.GeneratedResult, `"error"`)
	}
}

func TestRunMaxQuestionsLargerThanDataset(t *testing.T) {
	f := newFixture(t,
		[]dataset.Question{question(1, "simple", "SELECT 1")},
		testutil.NewStubModel("&&&SELECT 1&&&"),
		testutil.NewStubModel(`{"result": true}`),
	)
	f.runner.MaxQuestions = 10
	assert.Equal(t, 1, f.runner.TotalQuestions())

	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, report.Results[0].Evaluations, 1)
}

func TestRunSkipsFailedQuestions(t *testing.T) {
	f := newFixture(t,
		[]dataset.Question{
			question(1, "simple", "SELECT 1"),
			question(2, "simple", "SELECT 1"),
			question(3, "simple", "SELECT 1"),
		},
		testutil.NewStubModel("&&&SELECT 1&&&"),
		testutil.NewStubModel(`{"result": true}`, "I cannot tell", `{"result": false}`),
	)

	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	res := report.Results[0]
	require.Len(t, res.Evaluations, 2)
	assert.Equal(t, 1, res.Evaluations[0].QuestionID)
	assert.Equal(t, 3, res.Evaluations[1].QuestionID)

	require.NotNil(t, res.Skipped)
	require.Len(t, res.Skipped.Errors, 1)
	var parseErr *judge.ParseError
	assert.ErrorAs(t, res.Skipped.Errors[0], &parseErr)
	assert.Contains(t, res.Skipped.Errors[0].Error(), "shop/2")
}

func TestRunTranslatorErrorSkipsQuestion(t *testing.T) {
	sqlModel := testutil.NewStubModel()
	sqlModel.Err = errors.New("quota exceeded")
	f := newFixture(t,
		[]dataset.Question{question(1, "simple", "SELECT 1")},
		sqlModel,
		testutil.NewStubModel(`{"result": true}`),
	)

	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	res := report.Results[0]
	assert.Empty(t, res.Evaluations)
	require.NotNil(t, res.Skipped)
	assert.Contains(t, res.Skipped.Error(), "quota exceeded")
	assert.Zero(t, f.judgeModel.Calls())

	runDir := filepath.Join(f.tracker.Root(), "1", res.RunID)
	assert.NoFileExists(t, filepath.Join(runDir, "metrics", "correct_results_ratio"))
	assert.FileExists(t, filepath.Join(runDir, "artifacts", "zero_shot_cot_detailed_metrics.csv"))
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t,
		[]dataset.Question{question(1, "simple", "SELECT 1")},
		testutil.NewStubModel("&&&SELECT 1&&&"),
		testutil.NewStubModel(`{"result": true}`),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.sqlModel.Calls())
}

func TestRunMultipleStrategies(t *testing.T) {
	f := newFixture(t,
		[]dataset.Question{question(1, "simple", "SELECT 1")},
		testutil.NewStubModel("&&&SELECT 1&&&"),
		testutil.NewStubModel(`{"result": true}`),
	)
	f.runner.Strategies = prompt.Builtin()

	report, err := f.runner.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 4)
	for i, s := range prompt.Builtin() {
		assert.Equal(t, s.Name, report.Results[i].Strategy)
	}
	assert.Equal(t, 4, f.translators)
}

func TestRunRequiresCollaborators(t *testing.T) {
	_, err := (&Runner{}).Run(context.Background())
	assert.Error(t, err)
}
