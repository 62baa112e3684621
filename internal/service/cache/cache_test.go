package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hodadako/blue-archive-voice-downloader/internal/constants"
	"github.com/hodadako/blue-archive-voice-downloader/internal/domain"
	"go.uber.org/zap"
)

func testResolution() *domain.AudioResolution {
	return &domain.AudioResolution{
		AudioPageTitle: "Hoshino/audio",
		FileTitles:     []string{"File:Hoshino_Title.ogg"},
		Files: []*domain.AudioFile{
			{
				FileTitle: "File:Hoshino_Title.ogg",
				Links:     []string{"https://static.wikitide.net/bluearchivewiki/6/61/Hoshino_Title.ogg?download"},
			},
		},
	}
}

func TestWriteThenLookup(t *testing.T) {
	dir := t.TempDir()
	c := NewLinkCache(dir, nil, zap.NewNop())

	out := domain.NewVoiceLinkCache()
	out.Students["/student-detail/hoshino"] = testResolution()
	if err := c.Write(out); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := c.Lookup(context.Background(), "/student-detail/hoshino")
	if got == nil {
		t.Fatal("Lookup returned nil after Write")
	}
	if got.AudioPageTitle != "Hoshino/audio" {
		t.Errorf("AudioPageTitle = %q", got.AudioPageTitle)
	}
	if out.UpdatedAt == 0 {
		t.Error("Write should stamp UpdatedAt")
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	c := NewLinkCache(dir, nil, zap.NewNop())

	out := domain.NewVoiceLinkCache()
	out.Students["/student-detail/hoshino"] = testResolution()
	if err := c.Write(out); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Errorf("leftover temp file %q", entry.Name())
		}
	}
}

func TestReadWritableCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, constants.CacheFiles.VoiceLinks)
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	c := NewLinkCache(dir, nil, zap.NewNop())
	got := c.ReadWritable()
	if got == nil || got.Students == nil {
		t.Fatal("corrupt file should degrade to an empty envelope")
	}
	if len(got.Students) != 0 {
		t.Errorf("expected no entries, got %d", len(got.Students))
	}
}

func TestLookupIgnoresUnusableEntries(t *testing.T) {
	dir := t.TempDir()
	c := NewLinkCache(dir, nil, zap.NewNop())

	out := domain.NewVoiceLinkCache()
	out.Students["/student-detail/empty"] = &domain.AudioResolution{AudioPageTitle: "Empty/audio"}
	if err := c.Write(out); err != nil {
		t.Fatal(err)
	}

	if got := c.Lookup(context.Background(), "/student-detail/empty"); got != nil {
		t.Errorf("entry without file titles should be treated as absent, got %+v", got)
	}
	if got := c.Lookup(context.Background(), ""); got != nil {
		t.Errorf("empty key should miss, got %+v", got)
	}
}

func TestLookupFallsBackToBundled(t *testing.T) {
	c := NewLinkCache(t.TempDir(), nil, zap.NewNop())

	got := c.Lookup(context.Background(), "/student-detail/yuuka")
	if got == nil {
		t.Fatal("bundled entry for yuuka should be visible through Lookup")
	}
	if len(got.FileTitles) == 0 {
		t.Error("bundled entry has no file titles")
	}
}
