// Package config loads the service configuration from the JSON config file,
// a local .env file, and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	LLM      LLMConfig
	Analysis AnalysisConfig
	Notify   NotifyConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port  int
	Token string
}

type StorageConfig struct {
	DataDir string
}

type LLMConfig struct {
	APIKey           string
	BaseURL          string
	Model            string
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

type AnalysisConfig struct {
	StaleAfter   string
	PollInterval string
}

type NotifyConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	From         string
	To           string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4600,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		LLM: LLMConfig{
			Model:       "gpt-4o-mini",
			Temperature: 0.7,
			MaxTokens:   1000,
			TopP:        1.0,
		},
		Analysis: AnalysisConfig{
			StaleAfter:   "10m",
			PollInterval: "500ms",
		},
		Notify: NotifyConfig{
			SMTPPort: 587,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file at
// $XDG_CONFIG_HOME/inima/config.json, then a .env file in the working
// directory if one exists, then INIMA_* environment variables. Later sources
// win. Secrets (the LLM API key, SMTP password, API token) are accepted only
// from the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return loadWith(newFileBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// RequireLLM fails loudly when the serving path is started without model
// credentials. Management commands do not call this.
func (c Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("missing required config: LLM API key. Set it via environment variable INIMA_LLM_API_KEY or a .env file")
	}
	return nil
}

// StaleAfterDuration parses analysis.stale_after, falling back to the
// default on garbage.
func (c Config) StaleAfterDuration() time.Duration {
	if d, err := time.ParseDuration(c.Analysis.StaleAfter); err == nil && d > 0 {
		return d
	}
	return 10 * time.Minute
}

// PollIntervalDuration parses analysis.poll_interval, falling back to the
// default on garbage.
func (c Config) PollIntervalDuration() time.Duration {
	if d, err := time.ParseDuration(c.Analysis.PollInterval); err == nil && d > 0 {
		return d
	}
	return 500 * time.Millisecond
}
