package service

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hodadako/blue-archive-voice-downloader/internal/constants"
	"github.com/hodadako/blue-archive-voice-downloader/internal/domain"
	"github.com/hodadako/blue-archive-voice-downloader/internal/service/cache"
	"github.com/hodadako/blue-archive-voice-downloader/internal/util"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// SyncOptions controls one batch run. Zero values mean: default
// concurrency, reuse cached entries, no filter.
type SyncOptions struct {
	Concurrency  int
	ForceRefresh bool
	// FilterQuery keeps only students whose name fields contain the
	// substring; FilterKey keeps only the exact cache key. Both empty
	// means the whole registry.
	FilterQuery string
	FilterKey   string
	Progress    domain.ProgressFunc
}

// SyncReport aggregates a batch run's outcome.
type SyncReport struct {
	SuccessCount int `json:"successCount"`
	FailCount    int `json:"failCount"`
	SkippedCount int `json:"skippedCount"`
	Total        int `json:"total"`
}

// LinkSyncer walks the registry, resolves each student's audio links
// and merges the results into the link cache with one atomic write at
// the end. Workers race over a shared cursor; per-entry failures are
// isolated.
type LinkSyncer struct {
	registry *StudentRegistry
	scraper  *WikiScraper
	links    *cache.LinkCache
	logger   *zap.Logger
}

func NewLinkSyncer(registry *StudentRegistry, scraper *WikiScraper, links *cache.LinkCache, logger *zap.Logger) *LinkSyncer {
	return &LinkSyncer{
		registry: registry,
		scraper:  scraper,
		links:    links,
		logger:   logger,
	}
}

// SyncAllVoiceLinks resolves every matching registry entry. A
// non-forced run copies existing cache entries forward without network
// work. Partial progress is never persisted: the cache file is
// replaced once, after all workers finish.
func (s *LinkSyncer) SyncAllVoiceLinks(ctx context.Context, opts SyncOptions) (*SyncReport, error) {
	students := s.filterStudents(s.registry.Load(), opts)
	existing := s.links.ReadWritable()
	bundled := s.links.Bundled()

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = constants.Sync.DefaultConcurrency
	}
	concurrency = util.Clamp(concurrency, 1, constants.Sync.MaxConcurrency)

	s.logger.Info("Voice link sync started",
		zap.Int("students", len(students)),
		zap.Int("concurrency", concurrency),
		zap.Bool("force_refresh", opts.ForceRefresh),
	)

	var (
		cursor       atomic.Int64
		completed    atomic.Int64
		successCount atomic.Int64
		failCount    atomic.Int64
		skippedCount atomic.Int64

		mu  sync.Mutex
		out = domain.NewVoiceLinkCache()
	)

	// A filtered run only touches the selected students; every other
	// cached entry must survive the rewrite.
	if opts.FilterQuery != "" || opts.FilterKey != "" {
		for key, entry := range existing.Students {
			out.Students[key] = entry
		}
	}

	report := func(student *domain.StudentRecord, ok bool, reason string) {
		opts.Progress.Report(domain.ProgressEvent{
			Completed:   int(completed.Add(1)),
			Total:       len(students),
			CurrentItem: student.DisplayName(),
			OK:          ok,
			Reason:      reason,
		})
	}

	workers := pool.New().WithMaxGoroutines(concurrency)
	for i := 0; i < concurrency; i++ {
		workers.Go(func() {
			for {
				idx := int(cursor.Add(1)) - 1
				if idx >= len(students) {
					return
				}
				if ctx.Err() != nil {
					return
				}

				student := students[idx]
				key := student.CacheKey()
				if key == "" {
					failCount.Add(1)
					report(student, false, "missing cache key")
					continue
				}

				if !opts.ForceRefresh {
					entry := existing.Students[key]
					if !entry.Usable() {
						entry = bundled.Students[key]
					}
					if entry.Usable() {
						mu.Lock()
						out.Students[key] = entry
						mu.Unlock()
						skippedCount.Add(1)
						report(student, true, "cached")
						continue
					}
				}

				resolved, err := s.scraper.ResolveAudioFiles(ctx, student.WikiSearchName)
				if err != nil || !resolved.Usable() {
					failCount.Add(1)
					reason := "no audio files found"
					if err != nil {
						reason = err.Error()
					}
					s.logger.Warn("Sync entry failed",
						zap.String("student", student.DisplayName()),
						zap.String("reason", reason),
					)
					report(student, false, reason)
					continue
				}

				mu.Lock()
				out.Students[key] = resolved
				mu.Unlock()
				successCount.Add(1)
				s.logger.Info("Sync entry resolved",
					zap.String("student", student.DisplayName()),
					zap.Int("files", len(resolved.FileTitles)),
				)
				report(student, true, "")
			}
		})
	}
	workers.Wait()

	if err := s.links.Write(out); err != nil {
		return nil, err
	}

	result := &SyncReport{
		SuccessCount: int(successCount.Load()),
		FailCount:    int(failCount.Load()),
		SkippedCount: int(skippedCount.Load()),
		Total:        len(students),
	}
	s.logger.Info("Voice link sync finished",
		zap.Int("success", result.SuccessCount),
		zap.Int("fail", result.FailCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("total", result.Total),
	)
	return result, nil
}

func (s *LinkSyncer) filterStudents(students []*domain.StudentRecord, opts SyncOptions) []*domain.StudentRecord {
	if opts.FilterQuery == "" && opts.FilterKey == "" {
		return students
	}

	query := util.Normalize(opts.FilterQuery)
	out := make([]*domain.StudentRecord, 0, len(students))
	for _, student := range students {
		if opts.FilterKey != "" && student.CacheKey() == opts.FilterKey {
			out = append(out, student)
			continue
		}
		if query != "" && strings.Contains(util.Normalize(student.SearchText), query) {
			out = append(out, student)
		}
	}
	return out
}
