package app

import (
	"context"
	"fmt"

	"github.com/hodadako/blue-archive-voice-downloader/internal/config"
	"github.com/hodadako/blue-archive-voice-downloader/internal/service"
	"github.com/hodadako/blue-archive-voice-downloader/internal/service/cache"
	"github.com/hodadako/blue-archive-voice-downloader/internal/service/matcher"
	"go.uber.org/zap"
)

// Container bundles the assembled service graph. Heavy-weight
// initialization (Redis, dataset load) happens in Build so commands
// stay focused on orchestration.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Registry *service.StudentRegistry
	Voice    *service.VoiceService
	Syncer   *service.LinkSyncer
	Scraper  *service.WikiScraper

	closers []func()
}

// Close releases held resources in reverse construction order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

// Build assembles all services. The Redis hot cache is optional: when
// it is unconfigured or unreachable the container falls back to the
// file caches alone.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (container *Container, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var closers []func()
	defer func() {
		if err != nil {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		}
	}()

	var hot *cache.RedisCache
	if cfg.RedisEnabled() {
		hot, err = cache.NewRedisCache(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, logger)
		if err != nil {
			logger.Warn("Redis unavailable, continuing with file caches only", zap.Error(err))
			hot = nil
			err = nil
		} else {
			closers = append(closers, func() {
				_ = hot.Close()
			})
		}
	}

	fetcher := service.NewHTTPFetcher(cfg.Wiki.UserAgent, logger)
	registry := service.NewStudentRegistry(cfg.Data.Dir, cfg.Data.CacheDir, logger)
	studentMatcher := matcher.NewStudentMatcher(logger)
	scraper := service.NewWikiScraper(fetcher, cfg.Wiki.BaseURLs, cfg.Wiki.StaticAssetHost, logger)
	linkCache := cache.NewLinkCache(cfg.Data.CacheDir, hot, logger)

	voice := service.NewVoiceService(registry, studentMatcher, scraper, linkCache, fetcher, logger)
	syncer := service.NewLinkSyncer(registry, scraper, linkCache, logger)

	return &Container{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Voice:    voice,
		Syncer:   syncer,
		Scraper:  scraper,
		closers:  closers,
	}, nil
}
