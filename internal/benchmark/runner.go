// Package benchmark evaluates prompting strategies against text-to-SQL
// datasets and records the results.
package benchmark

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"sqlcotbench/internal/dataset"
	"sqlcotbench/internal/judge"
	"sqlcotbench/internal/logger"
	"sqlcotbench/internal/prompt"
	"sqlcotbench/internal/sqlexec"
	"sqlcotbench/internal/tracking"
	"sqlcotbench/internal/translator"
)

// SQLTranslator turns a question into SQL.
type SQLTranslator interface {
	Translate(ctx context.Context, question string) (translator.Translation, error)
}

// TranslatorFactory builds a translator for one database and strategy prompt.
type TranslatorFactory func(databaseURL, strategyPrompt string) SQLTranslator

// Judge decides whether two result sets are equivalent.
type Judge interface {
	Compare(ctx context.Context, c judge.Comparison) (bool, error)
}

// ResultFetcher executes SQL against a connection string.
type ResultFetcher interface {
	FetchResult(ctx context.Context, query, databaseURL string) sqlexec.ResultSet
	IsRunnable(ctx context.Context, query, databaseURL string) bool
}

// Runner runs every strategy over every dataset.
type Runner struct {
	Datasets        []dataset.TestDataset
	Strategies      []prompt.Strategy
	MaxQuestions    int // 0 means all
	IncludeEvidence bool

	NewTranslator TranslatorFactory
	Judge         Judge
	Fetcher       ResultFetcher // nil uses sqlexec.NewFetcher(nil)
	Tracker       tracking.Tracker
	Experiment    string
	// Params are logged on every run next to cot_prompt and strategy.
	Params map[string]string

	Progress *logger.Progress
	Log      *zap.SugaredLogger
	Out      io.Writer // strategy summaries; nil discards
	TempDir  string    // parent of temporary CSV files; "" uses os.TempDir
}

// StrategyResult outcome of one strategy
type StrategyResult struct {
	Strategy    string
	RunID       string
	Summary     Summary
	Evaluations []Evaluation
	// Skipped collects per-question errors; nil when nothing was skipped.
	Skipped *multierror.Error
}

// Report outcome of a whole run
type Report struct {
	Experiment string
	Results    []StrategyResult
}

func (r *Runner) setDefaults() {
	if r.Fetcher == nil {
		r.Fetcher = sqlexec.NewFetcher(nil)
	}
	if r.Progress == nil {
		r.Progress = logger.NewProgress(nil)
	}
	if r.Log == nil {
		r.Log = logger.Nop()
	}
	if r.Out == nil {
		r.Out = io.Discard
	}
}

// Run evaluates all strategies. Per-question failures are skipped and
// reported; tracking failures and cancellation abort the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.NewTranslator == nil || r.Judge == nil || r.Tracker == nil {
		return nil, errors.New("benchmark runner needs a translator factory, a judge and a tracker")
	}
	r.setDefaults()

	report := &Report{Experiment: r.Experiment}
	for _, strategy := range r.Strategies {
		result, err := r.runStrategy(ctx, strategy)
		if result != nil {
			report.Results = append(report.Results, *result)
		}
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// TotalQuestions number of questions one strategy processes.
func (r *Runner) TotalQuestions() int {
	total := 0
	for _, ds := range r.Datasets {
		total += dataset.ClampQuestions(r.MaxQuestions, ds)
	}
	return total
}

func (r *Runner) runStrategy(ctx context.Context, strategy prompt.Strategy) (*StrategyResult, error) {
	log := r.Log.With("strategy", strategy.Name)

	run, err := r.Tracker.StartRun(ctx, r.Experiment, strategy.Name)
	if err != nil {
		return nil, fmt.Errorf("start run for %s: %w", strategy.Name, err)
	}
	result := &StrategyResult{Strategy: strategy.Name, RunID: run.ID()}
	fail := func(status tracking.Status, err error) (*StrategyResult, error) {
		if endErr := run.End(context.WithoutCancel(ctx), status); endErr != nil {
			log.Warnw("failed to end tracking run", "run_id", run.ID(), "error", endErr)
		}
		return result, err
	}

	params := map[string]string{}
	for k, v := range r.Params {
		params[k] = v
	}
	params["cot_prompt"] = strategy.Prompt
	params["strategy"] = strategy.Name
	if err := run.LogParams(ctx, params); err != nil {
		return fail(tracking.StatusFailed, err)
	}

	log.Infow("evaluating strategy", "run_id", run.ID(), "questions", r.TotalQuestions())
	r.Progress.SetPhase("Strategy: "+strategy.Name, r.TotalQuestions())
	r.Progress.Info("run %s in experiment %s", run.ID(), r.Experiment)

	result.Evaluations, result.Skipped = r.evaluateStrategy(ctx, strategy, log)
	if err := ctx.Err(); err != nil {
		return fail(tracking.StatusKilled, err)
	}

	result.Summary = Summarize(result.Evaluations)
	if result.Summary.Count > 0 {
		if err := run.LogMetrics(ctx, result.Summary.Metrics()); err != nil {
			return fail(tracking.StatusFailed, err)
		}
	} else {
		log.Warnw("no evaluations recorded; metrics not logged")
	}

	if err := r.uploadDetails(ctx, run, strategy.Name, result.Evaluations); err != nil {
		return fail(tracking.StatusFailed, err)
	}
	if err := run.End(ctx, tracking.StatusFinished); err != nil {
		return result, err
	}

	r.Progress.PrintSummary()
	PrintSummary(r.Out, strategy.Name, result.Summary)
	log.Infow("strategy finished",
		"evaluated", result.Summary.Count,
		"skipped", skippedCount(result.Skipped),
		MetricCorrectResultsRatio, result.Summary.CorrectResultsRatio)
	return result, nil
}

// uploadDetails writes the CSV to a temporary directory, logs it as an
// artifact and removes it.
func (r *Runner) uploadDetails(ctx context.Context, run tracking.Run, strategy string, evals []Evaluation) error {
	dir, err := os.MkdirTemp(r.TempDir, "sqlcotbench-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path, err := WriteCSVFile(dir, strategy, evals)
	if err != nil {
		return err
	}
	if err := run.LogArtifact(ctx, path); err != nil {
		return fmt.Errorf("upload %s: %w", DetailedMetricsFile(strategy), err)
	}
	return nil
}

func (r *Runner) evaluateStrategy(ctx context.Context, strategy prompt.Strategy, log *zap.SugaredLogger) ([]Evaluation, *multierror.Error) {
	var evals []Evaluation
	var skipped *multierror.Error

	for _, ds := range r.Datasets {
		tr := r.NewTranslator(ds.DatabaseURL, strategy.Prompt)
		for _, q := range ds.Head(r.MaxQuestions) {
			if ctx.Err() != nil {
				return evals, skipped
			}
			task := fmt.Sprintf("%s/%d", ds.DbID, q.QuestionID)
			r.Progress.StartTask(task)

			eval, err := r.evaluate(ctx, tr, strategy.Name, ds, q)
			if err != nil {
				if ctx.Err() != nil {
					return evals, skipped
				}
				r.Progress.FailTask(task, err)
				log.Warnw("question skipped", "db_id", ds.DbID, "question_id", q.QuestionID, "error", err)
				skipped = multierror.Append(skipped, fmt.Errorf("%s: %w", task, err))
				continue
			}
			r.Progress.CompleteTask(task)
			log.Debugw("question evaluated",
				"db_id", ds.DbID,
				"question_id", q.QuestionID,
				"runnable", eval.IsRunnable,
				"correct", eval.ReturnsCorrectResult,
				"tokens", eval.TokensUsed)
			evals = append(evals, eval)
		}
	}
	return evals, skipped
}

func (r *Runner) evaluate(ctx context.Context, tr SQLTranslator, agent string, ds dataset.TestDataset, q dataset.Question) (Evaluation, error) {
	question := q.Question
	if r.IncludeEvidence && q.Evidence != "" {
		question += "\nEvidence: " + q.Evidence
	}

	out, err := tr.Translate(ctx, question)
	if err != nil {
		return Evaluation{}, fmt.Errorf("translate: %w", err)
	}

	expected := r.Fetcher.FetchResult(ctx, q.SQL, ds.DatabaseURL)
	generated := r.Fetcher.FetchResult(ctx, out.SQL, ds.DatabaseURL)

	correct, err := r.Judge.Compare(ctx, judge.Comparison{
		Question:          q.Question,
		GroundTruthQuery:  q.SQL,
		EvaluatedQuery:    out.SQL,
		GroundTruthResult: expected.String(),
		EvaluatedResult:   generated.String(),
	})
	if err != nil {
		return Evaluation{}, fmt.Errorf("judge: %w", err)
	}

	return Evaluation{
		Agent:                agent,
		DbID:                 ds.DbID,
		QuestionID:           q.QuestionID,
		QuestionDifficulty:   q.Difficulty,
		Question:             q.Question,
		GeneratedSQL:         out.SQL,
		ExpectedSQL:          q.SQL,
		ExpectedResult:       expected.String(),
		GeneratedResult:      generated.String(),
		IsRunnable:           r.Fetcher.IsRunnable(ctx, out.SQL, ds.DatabaseURL),
		ReturnsCorrectResult: correct,
		EvaluationTime:       out.Elapsed.Seconds(),
		TokensUsed:           out.TokensUsed,
	}, nil
}

func skippedCount(err *multierror.Error) int {
	if err == nil {
		return 0
	}
	return len(err.Errors)
}
