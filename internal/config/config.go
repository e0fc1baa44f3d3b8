package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	BackendGemini  = "gemini"
	BackendKeyword = "keyword"
)

type Config struct {
	// Server
	Port           string        `env:"PORT" envDefault:"8080"`
	Env            string        `env:"ENV" envDefault:"development"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"90s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`

	// Redis (optional, fans websocket updates out across instances)
	RedisURL string `env:"REDIS_URL"`

	// Assistant backend
	AssistantBackend     string `env:"ASSISTANT_BACKEND" envDefault:"gemini"`
	GeminiAPIKey         string `env:"GEMINI_API_KEY"`
	GeminiDecisionModel  string `env:"GEMINI_DECISION_MODEL" envDefault:"gemini-2.0-flash"`
	GeminiImageModel     string `env:"GEMINI_IMAGE_MODEL" envDefault:"gemini-2.0-flash-preview-image-generation"`
	GeminiConcurrentReqs int    `env:"GEMINI_CONCURRENT_REQUESTS" envDefault:"5"`

	// Persona
	AssistantName      string `env:"ASSISTANT_NAME" envDefault:"AI Assistant"`
	AssistantSignature string `env:"ASSISTANT_SIGNATURE" envDefault:"Written by AI Assistant"`

	// Frontend
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AssistantBackend {
	case BackendGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("required environment variable GEMINI_API_KEY is not set")
		}
	case BackendKeyword:
	default:
		return fmt.Errorf("unknown ASSISTANT_BACKEND %q (want %q or %q)", c.AssistantBackend, BackendGemini, BackendKeyword)
	}
	if c.GeminiConcurrentReqs < 1 {
		c.GeminiConcurrentReqs = 1
	}
	if strings.TrimSpace(c.AssistantSignature) == "" {
		return fmt.Errorf("ASSISTANT_SIGNATURE must not be blank")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
