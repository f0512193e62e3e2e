package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sangkips/brokerdesk-api/internal/config"
)

const permissionTableKey = "brokerdesk:rbac:role_permissions"

// NewRedisClient creates a Redis client and checks the connection
func NewRedisClient(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// PermissionCache shares the role -> permissions table between API instances
// so a refresh on one instance is picked up by the others without each
// hitting the database.
type PermissionCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPermissionCache creates a new permission cache
func NewPermissionCache(client *redis.Client, ttl time.Duration) *PermissionCache {
	return &PermissionCache{client: client, ttl: ttl}
}

// Load returns the cached table. ok is false on a cache miss.
func (c *PermissionCache) Load(ctx context.Context) (map[string][]string, bool, error) {
	raw, err := c.client.Get(ctx, permissionTableKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read permission table: %w", err)
	}

	var table map[string][]string
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, false, fmt.Errorf("decode permission table: %w", err)
	}
	return table, true, nil
}

// Store replaces the cached table
func (c *PermissionCache) Store(ctx context.Context, table map[string][]string) error {
	raw, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode permission table: %w", err)
	}
	return c.client.Set(ctx, permissionTableKey, raw, c.ttl).Err()
}

// Invalidate drops the cached table so the next load goes to the database
func (c *PermissionCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, permissionTableKey).Err()
}
