package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/hodadako/blue-archive-voice-downloader/internal/constants"
	"github.com/hodadako/blue-archive-voice-downloader/internal/domain"
	"github.com/hodadako/blue-archive-voice-downloader/pkg/errors"
	"go.uber.org/zap"
)

// LinkCache persists resolved audio links per student. Lookups check
// the optional Redis hot layer, then the writable on-disk cache, then
// the bundled read-only copy. Only batch sync writes the file, and
// only as one atomic replace.
type LinkCache struct {
	path    string
	bundled *domain.VoiceLinkCache
	hot     *RedisCache
	logger  *zap.Logger
}

func NewLinkCache(cacheDir string, hot *RedisCache, logger *zap.Logger) *LinkCache {
	return &LinkCache{
		path:    filepath.Join(cacheDir, constants.CacheFiles.VoiceLinks),
		bundled: domain.LoadBundledVoiceLinks(),
		hot:     hot,
		logger:  logger,
	}
}

// Lookup returns the usable cache entry for key, or nil. Entries that
// lack a page title or file identifiers are treated as absent.
func (c *LinkCache) Lookup(ctx context.Context, key string) *domain.AudioResolution {
	if key == "" {
		return nil
	}

	if c.hot != nil {
		entry, err := c.hot.GetResolution(ctx, key)
		if err != nil {
			c.logger.Warn("Hot cache lookup failed", zap.String("key", key), zap.Error(err))
		} else if entry.Usable() {
			return entry
		}
	}

	if entry := c.ReadWritable().Students[key]; entry.Usable() {
		return entry
	}
	if entry := c.bundled.Students[key]; entry.Usable() {
		return entry
	}
	return nil
}

// MirrorHot writes a resolved entry into the Redis layer when
// configured. Advisory: failures are logged, never propagated.
func (c *LinkCache) MirrorHot(ctx context.Context, key string, entry *domain.AudioResolution) {
	if c.hot == nil || !entry.Usable() {
		return
	}
	if err := c.hot.SetResolution(ctx, key, entry, constants.RedisCache.ResolutionTTL); err != nil {
		c.logger.Warn("Hot cache mirror failed", zap.String("key", key), zap.Error(err))
	}
}

// ReadWritable loads the writable cache file, degrading to an empty
// envelope when absent or corrupt.
func (c *LinkCache) ReadWritable() *domain.VoiceLinkCache {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return domain.NewVoiceLinkCache()
	}
	return domain.ParseVoiceLinkPayload(data)
}

// Bundled exposes the read-only bundled copy.
func (c *LinkCache) Bundled() *domain.VoiceLinkCache {
	return c.bundled
}

// Write replaces the writable cache file atomically. Partial progress
// is never persisted; the old file survives any mid-run crash.
func (c *LinkCache) Write(cache *domain.VoiceLinkCache) error {
	cache.UpdatedAt = time.Now().UnixMilli()

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return errors.NewCacheError("encode failed", "write", c.path, err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewCacheError("mkdir failed", "write", c.path, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return errors.NewCacheError("temp create failed", "write", c.path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.NewCacheError("temp write failed", "write", c.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.NewCacheError("temp close failed", "write", c.path, err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return errors.NewCacheError("replace failed", "write", c.path, err)
	}

	c.logger.Info("Voice link cache written",
		zap.String("path", c.path),
		zap.Int("students", len(cache.Students)),
	)
	return nil
}
