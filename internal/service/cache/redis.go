package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hodadako/blue-archive-voice-downloader/internal/constants"
	"github.com/hodadako/blue-archive-voice-downloader/internal/domain"
	"github.com/hodadako/blue-archive-voice-downloader/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const resolutionKeyPrefix = "voice:links:"

// RedisCache is the optional hot layer in front of the file caches.
// It only ever mirrors entries the file layer already produced, so
// losing it costs latency, not correctness.
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func NewRedisCache(cfg RedisConfig, logger *zap.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), constants.RedisCache.ReadyTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.NewCacheError("failed to connect to Redis", "ping", "", err)
	}

	logger.Info("Redis connected",
		zap.String("addr", fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)),
		zap.Int("db", cfg.DB),
	)

	return &RedisCache{client: client, logger: logger}, nil
}

// GetResolution returns the cached entry for key, nil when absent.
func (c *RedisCache) GetResolution(ctx context.Context, key string) (*domain.AudioResolution, error) {
	value, err := c.client.Get(ctx, resolutionKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewCacheError("get failed", "get", key, err)
	}

	var entry domain.AudioResolution
	if err := json.Unmarshal([]byte(value), &entry); err != nil {
		return nil, errors.NewCacheError("unmarshal failed", "get", key, err)
	}
	return &entry, nil
}

func (c *RedisCache) SetResolution(ctx context.Context, key string, entry *domain.AudioResolution, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return errors.NewCacheError("marshal failed", "set", key, err)
	}

	if err := c.client.Set(ctx, resolutionKeyPrefix+key, data, ttl).Err(); err != nil {
		return errors.NewCacheError("set failed", "set", key, err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Error("Failed to close Redis connection", zap.Error(err))
		return err
	}
	c.logger.Info("Redis disconnected")
	return nil
}
