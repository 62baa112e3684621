package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/hodadako/blue-archive-voice-downloader/internal/domain"
	"github.com/hodadako/blue-archive-voice-downloader/internal/service/cache"
	"github.com/hodadako/blue-archive-voice-downloader/internal/service/matcher"
	"github.com/hodadako/blue-archive-voice-downloader/pkg/errors"
	"go.uber.org/zap"
)

const testBaseURL = "https://bluearchive.wiki"

// fakeFetcher serves canned pages and payloads and counts every call,
// so tests can assert that cache hits do no network work.
type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	data  map[string][]byte

	fetchCount atomic.Int64
}

func (f *fakeFetcher) FetchPage(_ context.Context, url string) (string, error) {
	f.fetchCount.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if page, ok := f.pages[url]; ok {
		return page, nil
	}
	return "", errors.NewNetworkError("unexpected status", url, nil)
}

func (f *fakeFetcher) FetchBytes(_ context.Context, url string) ([]byte, error) {
	f.fetchCount.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if payload, ok := f.data[url]; ok {
		return payload, nil
	}
	return nil, errors.NewNetworkError("unexpected status", url, nil)
}

func newTestVoiceService(t *testing.T, fetcher *fakeFetcher) *VoiceService {
	t.Helper()
	logger := zap.NewNop()
	registry := NewStudentRegistry(t.TempDir(), t.TempDir(), logger)
	scraper := NewWikiScraper(fetcher, []string{testBaseURL}, staticHost, logger)
	links := cache.NewLinkCache(t.TempDir(), nil, logger)
	return NewVoiceService(registry, matcher.NewStudentMatcher(logger), scraper, links, fetcher, logger)
}

func TestResolveVoicesForStudent(t *testing.T) {
	scrapedLink := staticHost + "/transcoded/6/61/Hoshino_Title.ogg/Hoshino_Title.ogg.mp3?download"
	fetcher := &fakeFetcher{
		pages: map[string]string{
			testBaseURL + "/wiki/Hoshino/audio": `
				<div data-title="Hoshino_Title.ogg"></div>
				<div data-title="Hoshino_Battle_01.ogg"></div>
			`,
			testBaseURL + "/wiki/File:Hoshino_Title.ogg": `
				<a href="` + scrapedLink + `">download</a>
			`,
		},
	}

	svc := newTestVoiceService(t, fetcher)
	result := svc.ResolveVoicesForStudent(context.Background(), "hoshino")

	if !result.OK {
		t.Fatalf("resolution failed: %s", result.Message)
	}
	if result.FromCache {
		t.Error("fresh resolution must not report a cache hit")
	}
	if result.Student == nil || result.Student.Href != "/student-detail/hoshino" {
		t.Fatalf("wrong student picked: %+v", result.Student)
	}
	if result.AudioPageTitle != "Hoshino/audio" {
		t.Errorf("AudioPageTitle = %q", result.AudioPageTitle)
	}
	if len(result.FileTitles) != 2 {
		t.Fatalf("FileTitles = %v", result.FileTitles)
	}

	links := result.LinksByFile["File:Hoshino_Title.ogg"]
	if len(links) < 2 {
		t.Fatalf("expected scraped link plus fallback, got %v", links)
	}
	if links[0] != scrapedLink {
		t.Errorf("scraped link should rank first, got %q", links[0])
	}
	if last := links[len(links)-1]; !strings.HasSuffix(last, ".mp3?download") || strings.Contains(last, "/transcoded/") {
		t.Errorf("hash fallback should be last, got %q", last)
	}

	// The file page for Battle_01 is unreachable; its entry degrades to
	// the fallback alone.
	if battle := result.LinksByFile["File:Hoshino_Battle_01.ogg"]; len(battle) != 1 {
		t.Errorf("expected fallback-only links for unreachable file page, got %v", battle)
	}
}

func TestResolveVoicesForStudentCacheHit(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc := newTestVoiceService(t, fetcher)

	// Yuuka ships in the bundled link cache.
	result := svc.ResolveVoicesForStudent(context.Background(), "yuuka")

	if !result.OK {
		t.Fatalf("resolution failed: %s", result.Message)
	}
	if !result.FromCache {
		t.Error("bundled cache entry should short-circuit resolution")
	}
	if got := fetcher.fetchCount.Load(); got != 0 {
		t.Errorf("cache hit performed %d fetches, want 0", got)
	}
}

func TestResolveVoicesForStudentNoMatch(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc := newTestVoiceService(t, fetcher)

	result := svc.ResolveVoicesForStudent(context.Background(), "zzzzzzzz")
	if result.OK {
		t.Fatal("expected failure for unmatched query")
	}
	if result.Message == "" {
		t.Error("failure must carry a user-facing message")
	}
	if got := fetcher.fetchCount.Load(); got != 0 {
		t.Errorf("unmatched query performed %d fetches, want 0", got)
	}
}

func TestResolveVoicesForStudentScrapeFailure(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc := newTestVoiceService(t, fetcher)

	result := svc.ResolveVoicesForStudent(context.Background(), "hoshino")
	if result.OK {
		t.Fatal("expected failure when every page fetch fails")
	}
	if result.Student == nil {
		t.Error("failure should still identify the picked student")
	}
	if result.Message == "" {
		t.Error("failure must carry a user-facing message")
	}
}

func TestDownloadVoiceFiles(t *testing.T) {
	goodURL := staticHost + "/transcoded/6/61/Hoshino_Title.ogg/Hoshino_Title.ogg.mp3?download"
	fetcher := &fakeFetcher{
		data: map[string][]byte{
			goodURL: []byte("audio-bytes"),
		},
	}
	svc := newTestVoiceService(t, fetcher)
	targetDir := t.TempDir()

	var events []domain.ProgressEvent
	result := svc.DownloadVoiceFiles(
		context.Background(),
		"Hoshino",
		[]string{"File:Hoshino_Title.ogg", "File:Hoshino_Missing.ogg"},
		map[string][]string{"File:Hoshino_Title.ogg": {goodURL}},
		targetDir,
		func(ev domain.ProgressEvent) { events = append(events, ev) },
	)

	if !result.OK {
		t.Fatalf("download run failed: %s", result.Message)
	}
	if result.SuccessCount != 1 || result.TotalCount != 2 {
		t.Errorf("counts = %d/%d, want 1/2", result.SuccessCount, result.TotalCount)
	}
	if len(events) != 2 {
		t.Errorf("expected one progress event per file, got %d", len(events))
	}

	// Transcoded source keeps the mp3 extension on disk.
	wantPath := filepath.Join(targetDir, "Hoshino", "Hoshino_Title.mp3")
	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("downloaded file missing at %s: %v", wantPath, err)
	}
	if string(data) != "audio-bytes" {
		t.Errorf("file content = %q", data)
	}
}

func TestDownloadVoiceFilesEmpty(t *testing.T) {
	svc := newTestVoiceService(t, &fakeFetcher{})
	result := svc.DownloadVoiceFiles(context.Background(), "Hoshino", nil, nil, t.TempDir(), nil)
	if result.OK {
		t.Error("empty file list should fail")
	}
}
