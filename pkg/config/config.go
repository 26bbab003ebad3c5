package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the process-wide configuration, parsed once at startup and passed
// into constructors as a read-only value.
type Config struct {
	LogFormat string `env:"KITSAPCOMMUTE_LOG_FORMAT"`
	Debug     string `env:"KITSAPCOMMUTE_DEBUG"`

	DataDirectory string `env:"KITSAPCOMMUTE_DATA_DIR" envDefault:"./data"`

	WSDOTAPIKey      string `env:"KITSAPCOMMUTE_WSDOT_API_KEY"`
	GoogleMapsAPIKey string `env:"KITSAPCOMMUTE_GOOGLE_MAPS_API_KEY"`

	RedisAddress  string `env:"KITSAPCOMMUTE_REDIS_ADDRESS"`
	RedisPassword string `env:"KITSAPCOMMUTE_REDIS_PASSWORD"`
	RedisDatabase int    `env:"KITSAPCOMMUTE_REDIS_DATABASE" envDefault:"0"`

	ElasticsearchAddress  string `env:"KITSAPCOMMUTE_ELASTICSEARCH_ADDRESS"`
	ElasticsearchUsername string `env:"KITSAPCOMMUTE_ELASTICSEARCH_USERNAME"`
	ElasticsearchPassword string `env:"KITSAPCOMMUTE_ELASTICSEARCH_PASSWORD"`

	EventIndex string `env:"KITSAPCOMMUTE_EVENT_INDEX" envDefault:"events"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment configuration: %w", err)
	}

	return cfg, nil
}

// ValidateProviders checks the keys needed for live external provider calls.
// Only commands that talk to the providers call this, so offline commands keep
// working without keys.
func (c Config) ValidateProviders() error {
	var missing []string

	if c.WSDOTAPIKey == "" {
		missing = append(missing, "KITSAPCOMMUTE_WSDOT_API_KEY")
	}
	if c.GoogleMapsAPIKey == "" {
		missing = append(missing, "KITSAPCOMMUTE_GOOGLE_MAPS_API_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}

	return nil
}
