// Package config loads the benchmark run configuration.
package config

import (
	"sqlcotbench/internal/llm"
	"sqlcotbench/internal/prompt"
)

// Tracking backends
const (
	BackendFile   = "file"
	BackendMLflow = "mlflow"
	BackendDuckDB = "duckdb"
)

// Defaults
const (
	DefaultDataDir          = "data"
	DefaultMaxQuestions     = 50
	DefaultTrackingURI      = "mlruns"
	DefaultDuckDBPath       = "benchmark.duckdb"
	DefaultExperimentPrefix = "sql_cot_benchmark"
	DefaultLogLevel         = "info"
)

// Config benchmark run configuration
type Config struct {
	DataDir          string            `yaml:"data_dir"`
	MaxQuestions     int               `yaml:"max_questions"`
	Strategies       []string          `yaml:"strategies"`
	CustomStrategies []prompt.Strategy `yaml:"custom_strategies"`
	DbIDs            []string          `yaml:"db_ids"`
	Difficulty       string            `yaml:"difficulty"`
	IncludeEvidence  bool              `yaml:"include_evidence"`
	Model            llm.ModelConfig   `yaml:"model"`
	JudgeModel       llm.ModelConfig   `yaml:"judge_model"`
	Tracking         TrackingConfig    `yaml:"tracking"`
	Log              LogConfig         `yaml:"log"`
}

// TrackingConfig experiment tracking sink
type TrackingConfig struct {
	Backend          string    `yaml:"backend"`
	URI              string    `yaml:"uri"`
	ExperimentPrefix string    `yaml:"experiment_prefix"`
	S3               *S3Config `yaml:"s3"`
}

// UseBackend switches the backend. A URI still holding the previous
// backend's default is cleared so Normalize fills the new one.
func (t *TrackingConfig) UseBackend(backend string) {
	if t.URI != "" && t.URI == defaultURI(t.Backend) {
		t.URI = ""
	}
	t.Backend = backend
}

func defaultURI(backend string) string {
	switch backend {
	case BackendFile:
		return DefaultTrackingURI
	case BackendDuckDB:
		return DefaultDuckDBPath
	}
	return ""
}

// S3Config optional artifact bucket. Credentials fall back to
// AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY.
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	Region    string `yaml:"region"`
	Secure    bool   `yaml:"secure"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// LogConfig structured logger settings
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DataDir:      DefaultDataDir,
		MaxQuestions: DefaultMaxQuestions,
		Model: llm.ModelConfig{
			ModelName:   llm.DefaultModelName,
			Temperature: llm.DefaultTemperature,
		},
		Tracking: TrackingConfig{
			Backend:          BackendFile,
			ExperimentPrefix: DefaultExperimentPrefix,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}
