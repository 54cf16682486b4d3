package users

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/truthbyte/backend/internal/config"
	"github.com/truthbyte/backend/internal/models"
	"go.uber.org/zap"
)

const profileKeyPrefix = "trivia:user:"

// Cache stores rendered profiles. A miss returns (nil, nil).
type Cache interface {
	Get(ctx context.Context, userID string) (*models.UserProfile, error)
	Set(ctx context.Context, p *models.UserProfile) error
	Delete(ctx context.Context, userID string) error
}

// NoopCache is used when Redis is disabled.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*models.UserProfile, error) { return nil, nil }

func (NoopCache) Set(context.Context, *models.UserProfile) error { return nil }

func (NoopCache) Delete(context.Context, string) error { return nil }

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig, log *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     20,
		MinIdleConns: 2,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	log.Info("redis connection established", zap.String("addr", cfg.Addr))
	return rdb, nil
}

func (c *RedisCache) Get(ctx context.Context, userID string) (*models.UserProfile, error) {
	raw, err := c.client.Get(ctx, profileKeyPrefix+userID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var p models.UserProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *RedisCache) Set(ctx context.Context, p *models.UserProfile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, profileKeyPrefix+p.UserID, raw, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, userID string) error {
	return c.client.Del(ctx, profileKeyPrefix+userID).Err()
}
