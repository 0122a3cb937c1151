package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	DBPath            string        `env:"DB_PATH"              envDefault:"data.db"`
	FeedsPath         string        `env:"FEEDS_PATH"           envDefault:"feeds.json"`
	HTTPTimeout       time.Duration `env:"HTTP_TIMEOUT"         envDefault:"20s"`
	MaxEntries        int           `env:"MAX_ENTRIES"          envDefault:"10"`
	SummaryMaxChars   int           `env:"SUMMARY_MAX_CHARS"    envDefault:"250"`
	LatestCount       int           `env:"LATEST_COUNT"`
	TopCount          int           `env:"TOP_COUNT"`
	CuratedCount      int           `env:"CURATED_COUNT"`
	Schedule          string        `env:"SCHEDULE"`
	AbortOnFetchError bool          `env:"ABORT_ON_FETCH_ERROR"`
	RandomSeed        uint64        `env:"RANDOM_SEED"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
}

func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if cfg.HTTPTimeout <= 0 {
		return Config{}, fmt.Errorf("HTTP_TIMEOUT must be positive (got %s)", cfg.HTTPTimeout)
	}
	if cfg.MaxEntries <= 0 {
		return Config{}, fmt.Errorf("MAX_ENTRIES must be positive (got %d)", cfg.MaxEntries)
	}
	if cfg.SummaryMaxChars <= 0 {
		return Config{}, fmt.Errorf("SUMMARY_MAX_CHARS must be positive (got %d)", cfg.SummaryMaxChars)
	}

	return cfg, nil
}
