package config

import (
	"fmt"
	"log/slog"

	"github.com/caarlos0/env/v11"

	"github.com/playperu/sketchroom/internal/game"
)

type Config struct {
	Port     int        `env:"PORT" envDefault:"5000"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// WordsFile replaces the embedded word list when set.
	WordsFile string `env:"WORDS_FILE"`
	// DBPath enables the match archive. Empty disables it.
	DBPath string `env:"DB_PATH"`
	// RedisURL enables the live leaderboard mirror. Empty disables it.
	RedisURL string `env:"REDIS_URL"`

	// AllowedOrigins are host patterns accepted on the socket upgrade.
	// Empty accepts any origin.
	AllowedOrigins   []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	RequireGuessText bool     `env:"REQUIRE_GUESS_TEXT"`

	Scoring game.Scoring `envPrefix:"SCORING_"`
}

func Load() (*Config, error) {
	cfg := Config{Scoring: game.DefaultScoring()}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	return nil
}

// HTTPAddr is the listen address for the HTTP server.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
