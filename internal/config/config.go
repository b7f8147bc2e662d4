package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Token              string        `env:"TOKEN,required,notEmpty"`
	AllowedUsers       []int64       `env:"ALLOWED_USERS"`
	DBPath             string        `env:"DB_PATH"                      envDefault:"db.sqlite"`
	Provider           string        `env:"SUMMARIZER_PROVIDER"          envDefault:"gemini"`
	GoogleAPIKey       string        `env:"GOOGLE_API_KEY"`
	OpenAIAPIKey       string        `env:"OPENAI_API_KEY"`
	GeminiModel        string        `env:"GEMINI_MODEL"                 envDefault:"gemini-2.0-flash"`
	OpenAIModel        string        `env:"OPENAI_MODEL"                 envDefault:"gpt-5-mini-2025-08-07"`
	TranscriptLanguage string        `env:"TRANSCRIPT_LANGUAGE"          envDefault:"en"`
	PDFFontPath        string        `env:"PDF_FONT_PATH"`
	SessionTTL         time.Duration `env:"SESSION_TTL"                  envDefault:"24h"`
	MaxSessions        int           `env:"MAX_SESSIONS"                 envDefault:"1024"`
	LogLevel           slog.Level    `env:"LOG_LEVEL"                    envDefault:"info"`
}

// Load reads an optional .env file and then parses the environment.
func Load(dotenvFiles ...string) (Config, error) {
	if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env file: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err = cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Provider {
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			return errors.New("GOOGLE_API_KEY is not set in the environment variables")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return errors.New("OPENAI_API_KEY is not set in the environment variables")
		}
	default:
		return fmt.Errorf("unknown SUMMARIZER_PROVIDER %q", c.Provider)
	}

	if c.MaxSessions <= 0 {
		return fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.MaxSessions)
	}

	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}

	return nil
}
