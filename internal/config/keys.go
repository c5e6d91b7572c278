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
		key: "server.port", typ: kInt, env: "SCOUT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "groq.base_url", typ: kString, env: "SCOUT_GROQ_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Groq.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Groq.BaseURL },
	},
	{
		key: "groq.model", typ: kString, env: "SCOUT_GROQ_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Groq.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Groq.Model },
	},
	{
		key: "groq.temperature", typ: kFloat, env: "SCOUT_GROQ_TEMPERATURE",
		apply:   func(cfg *Config, v any) { cfg.Groq.Temperature = v.(float64) },
		extract: func(cfg Config) any { return cfg.Groq.Temperature },
	},
	{
		key: "groq.api_key", typ: kString, env: "SCOUT_GROQ_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Groq.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Groq.APIKey },
	},
	{
		key: "storage.data_dir", typ: kString, env: "SCOUT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "chat.history_limit", typ: kInt, env: "SCOUT_CHAT_HISTORY_LIMIT",
		apply:   func(cfg *Config, v any) { cfg.Chat.HistoryLimit = v.(int) },
		extract: func(cfg Config) any { return cfg.Chat.HistoryLimit },
	},
	{
		key: "log.level", typ: kString, env: "SCOUT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
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
