package redis_client

import (
	"context"

	"github.com/kitsapcommute/kitsapcommute/pkg/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Client *redis.Client

// Connect establishes the shared Redis connection. Redis is optional: with no
// address configured the drive time cache is simply skipped.
func Connect(cfg config.Config) error {
	if cfg.RedisAddress == "" {
		log.Info().Msg("Skipping Redis setup")
		return nil
	}

	Client = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDatabase,
	})

	if err := Client.Ping(context.Background()).Err(); err != nil {
		return err
	}

	log.Info().Msgf("Redis client setup for %s", cfg.RedisAddress)

	return nil
}

func Connected() bool {
	return Client != nil
}
