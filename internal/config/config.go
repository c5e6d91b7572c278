// Package config loads scout configuration from the config file backend
// and environment variables.
package config

import (
	"fmt"
	"os"
)

type Config struct {
	Server  ServerConfig
	Groq    GroqConfig
	Storage StorageConfig
	Chat    ChatConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type GroqConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	APIKey      string
}

type StorageConfig struct {
	DataDir string
}

type ChatConfig struct {
	HistoryLimit int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
		},
		Groq: GroqConfig{
			BaseURL:     "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			Temperature: 0.7,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Chat: ChatConfig{
			HistoryLimit: 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/scout/config.json, then applies SCOUT_* environment
// variable overrides. The Groq API key is env-only; GROQ_API_KEY is
// accepted as a fallback for SCOUT_GROQ_API_KEY.
func Load() (Config, error) {
	return loadWith(newFileBackend())
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Groq.APIKey == "" {
		cfg.Groq.APIKey = os.Getenv("GROQ_API_KEY")
	}
	if cfg.Groq.APIKey == "" {
		return Config{}, fmt.Errorf("missing required config: Groq API key. " +
			"Set it via environment variable SCOUT_GROQ_API_KEY or GROQ_API_KEY")
	}

	return cfg, nil
}
