package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Amund211/haloclient/internal/logging"
)

// GetOrCreate returns the cached value for key, or calls create and stores its result.
//
// Returns data, created, error. Failed creations are not cached.
func GetOrCreate[T any](ctx context.Context, cache Cache[T], key string, create func() (T, error)) (T, bool, error) {
	logger := logging.FromContext(ctx).With(slog.String("cacheKey", key))

	// Release the claim if we don't set the entry so other callers can try again
	claimed := false
	set := false
	defer func() {
		if claimed && !set {
			cache.delete(key)
		}
	}()

	for {
		if err := ctx.Err(); err != nil {
			var empty T
			return empty, false, fmt.Errorf("gave up waiting for cache: %w", err)
		}

		result := cache.getOrClaim(key)

		if result.claimed {
			claimed = true
			logger.InfoContext(ctx, "Cache lookup", "cache", "miss")

			data, err := create()
			if err != nil {
				var empty T
				return empty, false, fmt.Errorf("failed to create cache entry: %w", err)
			}

			cache.set(key, data)
			set = true

			return data, true, nil
		}

		if result.valid {
			logger.InfoContext(ctx, "Cache lookup", "cache", "hit")
			return result.data, false, nil
		}

		logger.DebugContext(ctx, "Waiting for cache")
		cache.wait()
	}
}
