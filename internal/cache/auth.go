package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskdeck/taskdeck/internal/model"
)

const (
	// principalCachePrefix is the Redis key prefix for resolved principals.
	principalCachePrefix = "auth:principal:"
	// principalCacheTTL is the time-to-live for cached principals.
	principalCacheTTL = 5 * time.Minute
)

// cachedPrincipal represents a resolved identity stored in Redis.
type cachedPrincipal struct {
	UserID string     `json:"user_id"`
	Email  string     `json:"email"`
	Role   model.Role `json:"role"`
}

// GetPrincipal retrieves a cached principal by user ID.
// Returns nil on a cache miss; a miss is not an error.
func (c *Cache) GetPrincipal(ctx context.Context, userID string) (*model.AuthContext, error) {
	key := principalCachePrefix + userID

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached cachedPrincipal
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.AuthContext{
		UserID: cached.UserID,
		Email:  cached.Email,
		Role:   cached.Role,
	}, nil
}

// SetPrincipal caches a resolved principal.
func (c *Cache) SetPrincipal(ctx context.Context, principal *model.AuthContext) error {
	key := principalCachePrefix + principal.UserID

	cached := cachedPrincipal{
		UserID: principal.UserID,
		Email:  principal.Email,
		Role:   principal.Role,
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal principal: %w", err)
	}

	return c.client.Set(ctx, key, data, principalCacheTTL).Err()
}

// DeletePrincipal removes a cached principal.
func (c *Cache) DeletePrincipal(ctx context.Context, userID string) error {
	key := principalCachePrefix + userID
	return c.client.Del(ctx, key).Err()
}
