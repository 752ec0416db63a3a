package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kFloat
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "INIMA_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.token", typ: kString, env: "INIMA_SERVER_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.Token = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Token },
	},
	{
		key: "storage.data_dir", typ: kString, env: "INIMA_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "llm.api_key", typ: kString, env: "INIMA_LLM_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LLM.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.APIKey },
	},
	{
		key: "llm.base_url", typ: kString, env: "INIMA_LLM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.model", typ: kString, env: "INIMA_LLM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.temperature", typ: kFloat, env: "INIMA_LLM_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.LLM.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.LLM.Temperature },
	},
	{
		key: "llm.max_tokens", typ: kInt, env: "INIMA_LLM_MAX_TOKENS",
		apply:   func(cfg *Config, v any) { cfg.LLM.MaxTokens = v.(int) },
		extract: func(cfg Config) any { return cfg.LLM.MaxTokens },
	},
	{
		key: "llm.top_p", typ: kFloat, env: "INIMA_LLM_TOP_P",
		apply:   func(cfg *Config, v any) { cfg.LLM.TopP = v.(float64) },
		extract: func(cfg Config) any { return cfg.LLM.TopP },
	},
	{
		key: "llm.frequency_penalty", typ: kFloat, env: "INIMA_LLM_FREQUENCY_PENALTY",
		apply:   func(cfg *Config, v any) { cfg.LLM.FrequencyPenalty = v.(float64) },
		extract: func(cfg Config) any { return cfg.LLM.FrequencyPenalty },
	},
	{
		key: "llm.presence_penalty", typ: kFloat, env: "INIMA_LLM_PRESENCE_PENALTY",
		apply:   func(cfg *Config, v any) { cfg.LLM.PresencePenalty = v.(float64) },
		extract: func(cfg Config) any { return cfg.LLM.PresencePenalty },
	},
	{
		key: "analysis.stale_after", typ: kString, env: "INIMA_ANALYSIS_STALE_AFTER",
		apply:   func(cfg *Config, v any) { cfg.Analysis.StaleAfter = v.(string) },
		extract: func(cfg Config) any { return cfg.Analysis.StaleAfter },
	},
	{
		key: "analysis.poll_interval", typ: kString, env: "INIMA_ANALYSIS_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Analysis.PollInterval = v.(string) },
		extract: func(cfg Config) any { return cfg.Analysis.PollInterval },
	},
	{
		key: "notify.smtp_host", typ: kString, env: "INIMA_NOTIFY_SMTP_HOST",
		apply:   func(cfg *Config, v any) { cfg.Notify.SMTPHost = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.SMTPHost },
	},
	{
		key: "notify.smtp_port", typ: kInt, env: "INIMA_NOTIFY_SMTP_PORT",
		apply:   func(cfg *Config, v any) { cfg.Notify.SMTPPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Notify.SMTPPort },
	},
	{
		key: "notify.smtp_user", typ: kString, env: "INIMA_NOTIFY_SMTP_USER",
		apply:   func(cfg *Config, v any) { cfg.Notify.SMTPUser = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.SMTPUser },
	},
	{
		key: "notify.smtp_password", typ: kString, env: "INIMA_NOTIFY_SMTP_PASSWORD",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Notify.SMTPPassword = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.SMTPPassword },
	},
	{
		key: "notify.from", typ: kString, env: "INIMA_NOTIFY_FROM",
		apply:   func(cfg *Config, v any) { cfg.Notify.From = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.From },
	},
	{
		key: "notify.to", typ: kString, env: "INIMA_NOTIFY_TO",
		apply:   func(cfg *Config, v any) { cfg.Notify.To = v.(string) },
		extract: func(cfg Config) any { return cfg.Notify.To },
	},
	{
		key: "log.level", typ: kString, env: "INIMA_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kFloat:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.apply(cfg, f)
				} else {
					fmt.Fprintf(os.Stderr, "[WARN] could not parse float from config key %s=%q: %v. Using default value.\n", s.key, v, err)
				}
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kFloat:
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				s.apply(cfg, f)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse float from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
