package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads path (if non-empty) over the defaults, applies the environment,
// then normalizes and validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if cfg, err = Parse(data); err != nil {
			return Config{}, err
		}
	}
	ApplyEnv(&cfg)
	Normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a single YAML document over the defaults. Unknown keys are
// rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return Config{}, fmt.Errorf("parse config: multiple YAML documents are not supported")
		}
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding existing values. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("load %s: %w", file, err)
		}
	}
	return nil
}

// ApplyEnv fills credentials and overrides from the environment.
func ApplyEnv(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.Model.Token = key
		cfg.JudgeModel.Token = key
	}
	if base := os.Getenv("OPENAI_BASE_URL"); base != "" {
		cfg.Model.BaseURL = base
		if cfg.JudgeModel.BaseURL == "" {
			cfg.JudgeModel.BaseURL = base
		}
	}
	if uri := os.Getenv("MLFLOW_TRACKING_URI"); uri != "" {
		cfg.Tracking.Backend = BackendMLflow
		cfg.Tracking.URI = uri
	}
	if s3 := cfg.Tracking.S3; s3 != nil {
		if s3.AccessKey == "" {
			s3.AccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		}
		if s3.SecretKey == "" {
			s3.SecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		}
	}
}
