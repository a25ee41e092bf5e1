package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sqlcotbench/internal/benchmark"
	"sqlcotbench/internal/config"
	"sqlcotbench/internal/judge"
	"sqlcotbench/internal/llm"
	"sqlcotbench/internal/logger"
	"sqlcotbench/internal/prompt"
	"sqlcotbench/internal/tracking"
	"sqlcotbench/internal/translator"
)

func newRunCmd() *cobra.Command {
	var (
		common       commonFlags
		maxQuestions int
		strategies   []string
		backend      string
		trackingURI  string
		evidence     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate prompting strategies and log one tracking run per strategy",
		Example: "  sqlcotbench run --data ./data --max-questions 10\n" +
			"  sqlcotbench run -c bench.yml --strategy no_cot --strategy zero_shot_cot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := common.loadConfig(cmd, func(cfg *config.Config) {
				if cmd.Flags().Changed("max-questions") {
					cfg.MaxQuestions = maxQuestions
				}
				if cmd.Flags().Changed("strategy") {
					cfg.Strategies = strategies
				}
				if cmd.Flags().Changed("backend") {
					cfg.Tracking.UseBackend(backend)
				}
				if cmd.Flags().Changed("tracking-uri") {
					cfg.Tracking.URI = trackingURI
				}
				if cmd.Flags().Changed("evidence") {
					cfg.IncludeEvidence = evidence
				}
			})
			if err != nil {
				return err
			}
			if err := cfg.RequireCredentials(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runBenchmark(ctx, cfg)
		},
	}

	common.register(cmd)
	cmd.Flags().IntVarP(&maxQuestions, "max-questions", "n", config.DefaultMaxQuestions, "questions per database (0 = all)")
	cmd.Flags().StringSliceVarP(&strategies, "strategy", "s", nil, "strategies to evaluate (default: all built-ins)")
	cmd.Flags().StringVar(&backend, "backend", "", "tracking backend: file, mlflow or duckdb")
	cmd.Flags().StringVar(&trackingURI, "tracking-uri", "", "tracking store directory, server url or duckdb file")
	cmd.Flags().BoolVar(&evidence, "evidence", false, "append the question evidence to the prompt")
	return cmd
}

func runBenchmark(ctx context.Context, cfg config.Config) error {
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	datasets, err := loadDatasets(cfg)
	if err != nil {
		return err
	}
	strategies, err := prompt.Resolve(cfg.Strategies, cfg.CustomStrategies)
	if err != nil {
		return err
	}

	sqlModel, err := llm.CreateLLM(cfg.Model)
	if err != nil {
		return fmt.Errorf("create model %s: %w", cfg.Model.DisplayName(), err)
	}
	judgeModel, err := llm.CreateLLM(cfg.JudgeModel)
	if err != nil {
		return fmt.Errorf("create judge model %s: %w", cfg.JudgeModel.DisplayName(), err)
	}
	equivalence, err := judge.New(judgeModel, cfg.JudgeModel.CallOptions()...)
	if err != nil {
		return err
	}
	tokenizer, err := llm.NewTokenizer(cfg.Model.ModelName)
	if err != nil {
		log.Warnw("token counting disabled", "model", cfg.Model.ModelName, "error", err)
	}

	tracker, err := tracking.Open(ctx, cfg.Tracking, log)
	if err != nil {
		return fmt.Errorf("open tracker: %w", err)
	}
	defer tracker.Close()

	params := benchmark.HostParams()
	params["model"] = cfg.Model.ModelName
	params["judge_model"] = cfg.JudgeModel.ModelName
	params["temperature"] = strconv.FormatFloat(cfg.Model.Temperature, 'f', -1, 64)
	params["max_questions"] = strconv.Itoa(cfg.MaxQuestions)
	params["include_evidence"] = strconv.FormatBool(cfg.IncludeEvidence)
	params["datasets"] = strconv.Itoa(len(datasets))

	runner := &benchmark.Runner{
		Datasets:        datasets,
		Strategies:      strategies,
		MaxQuestions:    cfg.MaxQuestions,
		IncludeEvidence: cfg.IncludeEvidence,
		NewTranslator: func(databaseURL, strategyPrompt string) benchmark.SQLTranslator {
			return translator.New(sqlModel, databaseURL, strategyPrompt,
				translator.WithTokenCounter(tokenizer),
				translator.WithCallOptions(cfg.Model.CallOptions()...))
		},
		Judge:      equivalence,
		Tracker:    tracker,
		Experiment: tracking.ExperimentName(cfg.Tracking.ExperimentPrefix, time.Now()),
		Params:     params,
		Progress:   logger.NewProgress(os.Stdout),
		Log:        log,
		Out:        os.Stdout,
	}

	log.Infow("starting benchmark",
		"experiment", runner.Experiment,
		"model", cfg.Model.DisplayName(),
		"strategies", len(strategies),
		"datasets", len(datasets),
		"questions_per_strategy", runner.TotalQuestions())

	report, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	for _, res := range report.Results {
		if res.Skipped != nil {
			log.Warnw("questions skipped", "strategy", res.Strategy, "count", len(res.Skipped.Errors))
		}
	}
	fmt.Printf("\nExperiment %s finished: %d strategies\n", report.Experiment, len(report.Results))
	return nil
}
