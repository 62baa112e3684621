package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hodadako/blue-archive-voice-downloader/internal/constants"
	"github.com/joho/godotenv"
)

type Config struct {
	Wiki    WikiConfig
	Data    DataConfig
	Redis   RedisConfig
	Sync    SyncConfig
	Logging LoggingConfig
}

type WikiConfig struct {
	BaseURLs        []string
	StaticAssetHost string
	UserAgent       string
}

type DataConfig struct {
	Dir      string
	CacheDir string
}

// RedisConfig is optional: an empty Host disables the hot cache layer.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type SyncConfig struct {
	Concurrency int
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Wiki: WikiConfig{
			BaseURLs:        parseCommaSeparated(getEnv("WIKI_BASE_URLS", strings.Join(constants.Wiki.BaseURLs, ","))),
			StaticAssetHost: getEnv("WIKI_STATIC_ASSET_HOST", constants.Wiki.StaticAssetHost),
			UserAgent:       getEnv("WIKI_USER_AGENT", constants.Wiki.UserAgent),
		},
		Data: DataConfig{
			Dir:      getEnv("DATA_DIR", "data"),
			CacheDir: getEnv("CACHE_DIR", filepath.Join("data", "cache")),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Sync: SyncConfig{
			Concurrency: getEnvInt("SYNC_CONCURRENCY", constants.Sync.DefaultConcurrency),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Wiki.BaseURLs) == 0 {
		return fmt.Errorf("WIKI_BASE_URLS is required")
	}
	for _, u := range c.Wiki.BaseURLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("WIKI_BASE_URLS entry %q must be an absolute http(s) URL", u)
		}
	}
	if c.Wiki.StaticAssetHost == "" {
		return fmt.Errorf("WIKI_STATIC_ASSET_HOST is required")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.Data.CacheDir == "" {
		return fmt.Errorf("CACHE_DIR is required")
	}
	if c.Sync.Concurrency < 1 {
		return fmt.Errorf("SYNC_CONCURRENCY must be at least 1")
	}
	return nil
}

// RedisEnabled reports whether the optional hot cache is configured.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, strings.TrimRight(trimmed, "/"))
		}
	}
	return result
}
