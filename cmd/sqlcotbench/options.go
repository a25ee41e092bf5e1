package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sqlcotbench/internal/config"
	"sqlcotbench/internal/dataset"
)

// commonFlags flags shared by commands that read the config and data
type commonFlags struct {
	configPath string
	dataDir    string
	dbIDs      []string
	difficulty string
}

func (f *commonFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "", "YAML run configuration")
	cmd.Flags().StringVar(&f.dataDir, "data", "", "data directory with dev_tables.json, dev.json and dev_databases/")
	cmd.Flags().StringSliceVar(&f.dbIDs, "db-id", nil, "only evaluate these databases")
	cmd.Flags().StringVar(&f.difficulty, "difficulty", "", "only evaluate questions of this difficulty")
}

// loadConfig reads .env and the config file, then applies flag overrides.
func (f *commonFlags) loadConfig(cmd *cobra.Command, override func(*config.Config)) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("data") {
		cfg.DataDir = f.dataDir
	}
	if cmd.Flags().Changed("db-id") {
		cfg.DbIDs = f.dbIDs
	}
	if cmd.Flags().Changed("difficulty") {
		cfg.Difficulty = f.difficulty
	}
	if override != nil {
		override(&cfg)
	}
	config.Normalize(&cfg)
	if err := config.Validate(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func loadDatasets(cfg config.Config) ([]dataset.TestDataset, error) {
	datasets, err := dataset.Load(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("load datasets: %w", err)
	}
	filter := dataset.Filter{DbIDs: cfg.DbIDs, Difficulty: cfg.Difficulty}
	return filter.Apply(datasets), nil
}
