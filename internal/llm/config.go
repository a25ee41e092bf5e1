package llm

import (
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Defaults used by the benchmark
const (
	DefaultModelName   = "gpt-4o-mini"
	DefaultTemperature = 0.0
)

// ModelConfig LLM model config
type ModelConfig struct {
	ModelName   string  `yaml:"model_name"`
	Token       string  `yaml:"-"`
	BaseURL     string  `yaml:"base_url"`
	Temperature float64 `yaml:"temperature"`
}

// DisplayName model display name
func (c ModelConfig) DisplayName() string {
	if c.BaseURL != "" {
		return c.ModelName + " @ " + c.BaseURL
	}
	return c.ModelName
}

// CallOptions options applied to every generation call
func (c ModelConfig) CallOptions() []llms.CallOption {
	return []llms.CallOption{llms.WithTemperature(c.Temperature)}
}

// CreateLLM creates an OpenAI-compatible LLM instance
func CreateLLM(config ModelConfig) (llms.Model, error) {
	opts := []openai.Option{
		openai.WithModel(config.ModelName),
		openai.WithToken(config.Token),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	return openai.New(opts...)
}
