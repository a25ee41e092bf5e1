package config

import "strings"

// Normalize trims values and fills derived defaults.
func Normalize(cfg *Config) {
	cfg.DataDir = strings.TrimSpace(cfg.DataDir)
	if cfg.DataDir == "" {
		cfg.DataDir = DefaultDataDir
	}
	cfg.Strategies = trimAll(cfg.Strategies)
	cfg.DbIDs = trimAll(cfg.DbIDs)
	cfg.Difficulty = strings.ToLower(strings.TrimSpace(cfg.Difficulty))

	cfg.Model.ModelName = strings.TrimSpace(cfg.Model.ModelName)
	if cfg.JudgeModel.ModelName == "" {
		token := cfg.JudgeModel.Token
		cfg.JudgeModel = cfg.Model
		if token != "" {
			cfg.JudgeModel.Token = token
		}
	}
	if cfg.JudgeModel.Token == "" {
		cfg.JudgeModel.Token = cfg.Model.Token
	}

	cfg.Tracking.Backend = strings.ToLower(strings.TrimSpace(cfg.Tracking.Backend))
	if cfg.Tracking.Backend == "" {
		cfg.Tracking.Backend = BackendFile
	}
	if cfg.Tracking.URI == "" {
		cfg.Tracking.URI = defaultURI(cfg.Tracking.Backend)
	}
	if cfg.Tracking.ExperimentPrefix == "" {
		cfg.Tracking.ExperimentPrefix = DefaultExperimentPrefix
	}
	cfg.Tracking.URI = strings.TrimRight(cfg.Tracking.URI, "/")

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
}

func trimAll(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
