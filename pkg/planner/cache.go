package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/kitsapcommute/kitsapcommute/pkg/geo"
	"github.com/kitsapcommute/kitsapcommute/pkg/maps"
	"github.com/kitsapcommute/kitsapcommute/pkg/redis_client"
	"github.com/rs/zerolog/log"
)

// CachedDriveTimeProvider memoises geocode and drive time lookups in Redis.
// Transparent to planner semantics: any cache failure falls through to the
// live provider.
type CachedDriveTimeProvider struct {
	Provider DriveTimeProvider

	cache *cache.Cache[string]
}

func NewCachedDriveTimeProvider(provider DriveTimeProvider) *CachedDriveTimeProvider {
	redisStore := redisstore.NewRedis(redis_client.Client, store.WithExpiration(30*time.Minute))

	return &CachedDriveTimeProvider{
		Provider: provider,
		cache:    cache.New[string](redisStore),
	}
}

func (c *CachedDriveTimeProvider) Geocode(ctx context.Context, address string) (geo.Coordinates, error) {
	cacheKey := fmt.Sprintf("kitsapcommute/geocode/%s", address)

	if cached, err := c.cache.Get(ctx, cacheKey); err == nil {
		var coordinates geo.Coordinates
		if err := json.Unmarshal([]byte(cached), &coordinates); err == nil {
			return coordinates, nil
		}
	}

	coordinates, err := c.Provider.Geocode(ctx, address)
	if err != nil {
		return geo.Coordinates{}, err
	}

	c.put(ctx, cacheKey, coordinates)

	return coordinates, nil
}

func (c *CachedDriveTimeProvider) DriveTime(ctx context.Context, origin string, destination string, options maps.DriveTimeOptions) (*maps.DriveEstimate, error) {
	// Time-anchored estimates are bucketed to the minute so repeated planning
	// calls for the same event share entries.
	cacheKey := fmt.Sprintf("kitsapcommute/drivetime/%s/%s/%d/%d",
		origin, destination,
		options.DepartureTime.Truncate(time.Minute).Unix(),
		options.ArrivalTime.Truncate(time.Minute).Unix(),
	)

	if cached, err := c.cache.Get(ctx, cacheKey); err == nil {
		var estimate maps.DriveEstimate
		if err := json.Unmarshal([]byte(cached), &estimate); err == nil {
			return &estimate, nil
		}
	}

	estimate, err := c.Provider.DriveTime(ctx, origin, destination, options)
	if err != nil {
		return nil, err
	}

	c.put(ctx, cacheKey, estimate)

	return estimate, nil
}

func (c *CachedDriveTimeProvider) put(ctx context.Context, cacheKey string, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return
	}

	if err := c.cache.Set(ctx, cacheKey, string(encoded)); err != nil {
		log.Debug().Err(err).Str("key", cacheKey).Msg("Failed to cache drive time lookup")
	}
}
