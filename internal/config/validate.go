package config

import (
	"fmt"
	"net/url"
	"strings"

	"sqlcotbench/internal/prompt"
)

// Issue captures a validation problem with a config field.
type Issue struct {
	Field   string
	Message string
}

// ValidationError aggregates config validation issues.
type ValidationError struct {
	Issues []Issue
}

// Error renders validation errors as a multi-line string.
func (err *ValidationError) Error() string {
	if err == nil || len(err.Issues) == 0 {
		return "config validation failed"
	}
	lines := make([]string, 0, len(err.Issues))
	for _, issue := range err.Issues {
		lines = append(lines, fmt.Sprintf("%s: %s", issue.Field, issue.Message))
	}
	return strings.Join(lines, "\n")
}

var difficulties = map[string]bool{"": true, "simple": true, "moderate": true, "challenging": true}

// Validate checks a normalized config.
func Validate(cfg *Config) error {
	var issues []Issue
	add := func(field, format string, args ...interface{}) {
		issues = append(issues, Issue{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if cfg.MaxQuestions < 0 {
		add("max_questions", "must be >= 0 (0 means all questions)")
	}
	if _, err := prompt.Resolve(cfg.Strategies, cfg.CustomStrategies); err != nil {
		add("strategies", "%v", err)
	}
	if !difficulties[cfg.Difficulty] {
		add("difficulty", "must be one of simple, moderate, challenging")
	}
	if cfg.Model.ModelName == "" {
		add("model.model_name", "is required")
	}
	if t := cfg.Model.Temperature; t < 0 || t > 2 {
		add("model.temperature", "must be between 0 and 2")
	}
	if t := cfg.JudgeModel.Temperature; t < 0 || t > 2 {
		add("judge_model.temperature", "must be between 0 and 2")
	}

	switch cfg.Tracking.Backend {
	case BackendFile, BackendDuckDB:
	case BackendMLflow:
		u, err := url.Parse(cfg.Tracking.URI)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("tracking.uri", "mlflow backend needs an http(s) tracking server url")
		}
	default:
		add("tracking.backend", "unsupported backend %q (file, mlflow, duckdb)", cfg.Tracking.Backend)
	}
	if s3 := cfg.Tracking.S3; s3 != nil {
		if s3.Endpoint == "" {
			add("tracking.s3.endpoint", "is required")
		}
		if s3.Bucket == "" {
			add("tracking.s3.bucket", "is required")
		}
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}

// RequireCredentials reports a missing model API key. Only commands that call
// the model need it.
func (cfg *Config) RequireCredentials() error {
	if cfg.Model.Token == "" && cfg.Model.BaseURL == "" {
		return &ValidationError{Issues: []Issue{{Field: "OPENAI_API_KEY", Message: "is not set"}}}
	}
	return nil
}
