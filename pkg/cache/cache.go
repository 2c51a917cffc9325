package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Cache layers a local in-process map over Redis. Reads hit the local layer
// first; writes go to both. Used for collection schemas, which are expensive
// to derive and change rarely.
type Cache struct {
	client *redis.Client
	local  sync.Map
	logger *logrus.Logger
}

type localEntry struct {
	value     string
	expiresAt time.Time
}

type Settings struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func NewCache(settings Settings, logger *logrus.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", settings.Host, settings.Port),
		Password: settings.Password,
		DB:       settings.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Cache{client: client, logger: logger}, nil
}

// NewCacheWithClient wires an existing Redis client, used by tests.
func NewCacheWithClient(client *redis.Client, logger *logrus.Logger) *Cache {
	return &Cache{client: client, logger: logger}
}

func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	if raw, ok := c.local.Load(key); ok {
		entry := raw.(localEntry)
		if time.Now().Before(entry.expiresAt) {
			return entry.value, nil
		}
		c.local.Delete(key)
	}

	value, err := c.client.Get(ctx, key).Result()
	if err != nil {
		return "", err
	}

	ttl, err := c.client.TTL(ctx, key).Result()
	if err == nil && ttl > 0 {
		c.local.Store(key, localEntry{value: value, expiresAt: time.Now().Add(ttl)})
	}
	return value, nil
}

func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return err
	}
	c.local.Store(key, localEntry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.local.Delete(key)
	return c.client.Del(ctx, key).Err()
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}
