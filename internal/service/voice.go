package service

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hodadako/blue-archive-voice-downloader/internal/domain"
	"github.com/hodadako/blue-archive-voice-downloader/internal/service/cache"
	"github.com/hodadako/blue-archive-voice-downloader/internal/service/matcher"
	"github.com/hodadako/blue-archive-voice-downloader/internal/util"
	"go.uber.org/zap"
)

// VoiceService is the public surface for UI/CLI collaborators: ranked
// student search, per-student voice resolution and file download.
// Results are structured values; callers never see a panic or a bare
// scrape error.
type VoiceService struct {
	registry *StudentRegistry
	matcher  *matcher.StudentMatcher
	scraper  *WikiScraper
	links    *cache.LinkCache
	fetcher  PageFetcher
	logger   *zap.Logger
}

func NewVoiceService(
	registry *StudentRegistry,
	studentMatcher *matcher.StudentMatcher,
	scraper *WikiScraper,
	links *cache.LinkCache,
	fetcher PageFetcher,
	logger *zap.Logger,
) *VoiceService {
	return &VoiceService{
		registry: registry,
		matcher:  studentMatcher,
		scraper:  scraper,
		links:    links,
		fetcher:  fetcher,
		logger:   logger,
	}
}

// ResolveResult is the structured outcome of ResolveVoicesForStudent.
type ResolveResult struct {
	OK             bool                  `json:"ok"`
	Message        string                `json:"message,omitempty"`
	Student        *domain.StudentRecord `json:"student,omitempty"`
	AudioPageTitle string                `json:"audioTitle,omitempty"`
	FileTitles     []string              `json:"fileTitles,omitempty"`
	LinksByFile    map[string][]string   `json:"fileLinksByTitle,omitempty"`
	FromCache      bool                  `json:"fromCache,omitempty"`
}

// SearchStudents returns up to 15 ranked matches for a free-form
// Korean or Latin query.
func (s *VoiceService) SearchStudents(query string) []*domain.StudentRecord {
	return s.matcher.Rank(s.registry.Load(), query)
}

// ResolveVoicesForStudent maps a user-typed name to its best-matching
// student and that student's audio file set. The link cache is
// consulted before any network work.
func (s *VoiceService) ResolveVoicesForStudent(ctx context.Context, query string) *ResolveResult {
	matches := s.SearchStudents(query)
	if len(matches) == 0 {
		return &ResolveResult{
			OK:      false,
			Message: "학생을 찾지 못했습니다. 검색어를 바꿔보세요.",
		}
	}

	picked := matches[0]
	key := picked.CacheKey()

	if entry := s.links.Lookup(ctx, key); entry != nil {
		s.logger.Debug("Voice resolution cache hit",
			zap.String("key", key),
			zap.String("audio_title", entry.AudioPageTitle),
		)
		return &ResolveResult{
			OK:             true,
			Student:        picked,
			AudioPageTitle: entry.AudioPageTitle,
			FileTitles:     entry.FileTitles,
			LinksByFile:    entry.LinksByTitle(),
			FromCache:      true,
		}
	}

	resolved, err := s.scraper.ResolveAudioFiles(ctx, picked.WikiSearchName)
	if err != nil {
		s.logger.Warn("Voice resolution failed",
			zap.String("student", picked.DisplayName()),
			zap.Error(err),
		)
		return &ResolveResult{
			OK:      false,
			Student: picked,
			Message: "음성 페이지를 찾지 못했습니다: " + err.Error(),
		}
	}

	s.links.MirrorHot(ctx, key, resolved)

	return &ResolveResult{
		OK:             true,
		Student:        picked,
		AudioPageTitle: resolved.AudioPageTitle,
		FileTitles:     resolved.FileTitles,
		LinksByFile:    resolved.LinksByTitle(),
	}
}

// FileDownloadResult reports one file's download outcome.
type FileDownloadResult struct {
	FileTitle string `json:"fileTitle"`
	OK        bool   `json:"ok"`
	Path      string `json:"path,omitempty"`
	URL       string `json:"url,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// DownloadResult aggregates a whole student's download run.
type DownloadResult struct {
	OK           bool                  `json:"ok"`
	SuccessCount int                   `json:"successCount"`
	TotalCount   int                   `json:"totalCount"`
	TargetDir    string                `json:"targetDir,omitempty"`
	Results      []*FileDownloadResult `json:"results"`
	Message      string                `json:"message"`
}

// DownloadVoiceFiles fetches each file into targetDir under a
// sanitized per-student directory, trying candidate URLs in order
// with the hash fallback last. Per-file failures do not abort the
// rest; progress is reported after every file.
func (s *VoiceService) DownloadVoiceFiles(
	ctx context.Context,
	studentName string,
	fileTitles []string,
	linksByFile map[string][]string,
	targetDir string,
	progress domain.ProgressFunc,
) *DownloadResult {
	if len(fileTitles) == 0 {
		return &DownloadResult{OK: false, Message: "다운로드할 파일이 없습니다."}
	}

	downloadRoot := filepath.Join(targetDir, util.SanitizeForDir(studentName))
	if err := os.MkdirAll(downloadRoot, 0755); err != nil {
		return &DownloadResult{OK: false, Message: "저장 폴더 생성 실패: " + err.Error()}
	}

	results := make([]*FileDownloadResult, 0, len(fileTitles))
	successCount := 0

	for i, fileTitle := range fileTitles {
		result := s.downloadOneFile(ctx, downloadRoot, fileTitle, linksByFile[fileTitle])
		results = append(results, result)
		if result.OK {
			successCount++
		}

		progress.Report(domain.ProgressEvent{
			Completed:   i + 1,
			Total:       len(fileTitles),
			CurrentItem: fileTitle,
			OK:          result.OK,
			Reason:      result.Reason,
		})
	}

	message := "다운로드 완료"
	if successCount == 0 {
		message = "다운로드 실패"
	}
	return &DownloadResult{
		OK:           successCount > 0,
		SuccessCount: successCount,
		TotalCount:   len(results),
		TargetDir:    downloadRoot,
		Results:      results,
		Message:      message,
	}
}

func (s *VoiceService) downloadOneFile(ctx context.Context, dir, fileTitle string, links []string) *FileDownloadResult {
	candidates := make([]string, 0, len(links)+1)
	candidates = append(candidates, links...)
	if fallback := s.scraper.BuildStaticAudioURL(fileTitle); fallback != "" && !util.ContainsString(candidates, fallback) {
		candidates = append(candidates, fallback)
	}

	if len(candidates) == 0 {
		return &FileDownloadResult{FileTitle: fileTitle, OK: false, Reason: "URL 생성 실패"}
	}

	var lastErr error
	for _, candidate := range candidates {
		data, err := s.fetcher.FetchBytes(ctx, candidate)
		if err != nil {
			lastErr = err
			continue
		}

		localPath := filepath.Join(dir, localDownloadName(fileTitle, candidate))
		if err := os.WriteFile(localPath, data, 0644); err != nil {
			lastErr = err
			continue
		}

		return &FileDownloadResult{FileTitle: fileTitle, OK: true, Path: localPath, URL: candidate}
	}

	reason := "다운로드 실패"
	if lastErr != nil {
		reason = lastErr.Error()
	}
	return &FileDownloadResult{FileTitle: fileTitle, OK: false, Reason: reason}
}

// localDownloadName derives the on-disk filename. Transcoded
// .ogg.mp3 downloads keep the .mp3 extension.
func localDownloadName(fileTitle, downloadURL string) string {
	raw := strings.TrimSpace(strings.TrimPrefix(fileTitle, "File:"))
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	if raw == "" {
		raw = "unknown"
	}

	if strings.Contains(downloadURL, ".ogg.mp3") && strings.HasSuffix(strings.ToLower(raw), ".ogg") {
		raw = raw[:len(raw)-len(".ogg")] + ".mp3"
	}
	return util.SanitizeForDir(raw)
}
