package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultAPIKeyEnv = "GEMINI_API_KEY"

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL             string `yaml:"ttl"`
		QuestionSeconds int    `yaml:"question_seconds"`
		TickInterval    string `yaml:"tick_interval"`
	} `yaml:"quiz"`
	Grader struct {
		Provider     string `yaml:"provider"`
		BaseURL      string `yaml:"base_url"`
		Endpoint     string `yaml:"gemini_endpoint"`
		Model        string `yaml:"model"`
		APIKeyEnv    string `yaml:"api_key_env"`
		RetryBackoff string `yaml:"retry_backoff"`
		Timeout      string `yaml:"timeout"`
		// APIKey is read from the environment, never from the file.
		APIKey string `yaml:"-"`
	} `yaml:"grader"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Load reads YAML config from path and resolves the grader key from the environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Grader.APIKeyEnv == "" {
		cfg.Grader.APIKeyEnv = defaultAPIKeyEnv
	}
	cfg.Grader.APIKey = os.Getenv(cfg.Grader.APIKeyEnv)
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
