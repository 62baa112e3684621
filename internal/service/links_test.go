package service

import (
	"reflect"
	"testing"

	"go.uber.org/zap"
)

const staticHost = "https://static.wikitide.net/bluearchivewiki"

func newTestScraper() *WikiScraper {
	return NewWikiScraper(nil, []string{"https://bluearchive.wiki"}, staticHost, zap.NewNop())
}

func TestParseFileTitles(t *testing.T) {
	html := `
		<div data-title="Hoshino_Battle_01.ogg"></div>
		<a href="/wiki/File:Hoshino_Battle_02.ogg">battle 2</a>
		<a href="https://static.wikitide.net/bluearchivewiki/a/ab/Hoshino_Title.ogg">title</a>
		<a href="/wiki/Hoshino">not a file</a>
		<div data-title="File:Hoshino_Battle_01.ogg"></div>
	`

	got := ParseFileTitles(html)
	want := []string{
		"File:Hoshino_Battle_01.ogg",
		"File:Hoshino_Battle_02.ogg",
		"File:Hoshino_Title.ogg",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseFileTitles = %v, want %v", got, want)
	}
}

func TestParseFileTitlesIdempotent(t *testing.T) {
	html := `<a href="/wiki/File:Aru_Intro.ogg">x</a><div data-title="Aru_Intro.ogg"></div>`
	first := ParseFileTitles(html)
	second := ParseFileTitles(html)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeat parse differs: %v vs %v", first, second)
	}
	if len(first) != 1 {
		t.Errorf("expected deduplicated single title, got %v", first)
	}
}

func TestParseFileTitlesEmpty(t *testing.T) {
	if got := ParseFileTitles("<html><body>nothing here</body></html>"); len(got) != 0 {
		t.Errorf("expected no titles, got %v", got)
	}
}

func TestBuildStaticAudioURL(t *testing.T) {
	s := newTestScraper()

	got := s.BuildStaticAudioURL("File:Hoshino Title.ogg")
	want := staticHost + "/6/61/Hoshino_Title.ogg/Hoshino_Title.ogg.mp3?download"
	if got != want {
		t.Errorf("BuildStaticAudioURL = %q, want %q", got, want)
	}

	// Same input, same output.
	if again := s.BuildStaticAudioURL("File:Hoshino Title.ogg"); again != got {
		t.Errorf("not deterministic: %q vs %q", again, got)
	}

	if got := s.BuildStaticAudioURL("File:"); got != "" {
		t.Errorf("empty name should yield empty URL, got %q", got)
	}
}

func TestRankLinksPrefersTranscodedMP3(t *testing.T) {
	links := []string{
		"https://elsewhere.example/Hoshino_Title.ogg",
		staticHost + "/6/61/Hoshino_Title.ogg?download",
		staticHost + "/transcoded/6/61/Hoshino_Title.ogg/Hoshino_Title.ogg.mp3?download",
	}

	got := RankLinks(staticHost, links)
	if got[0] != staticHost+"/transcoded/6/61/Hoshino_Title.ogg/Hoshino_Title.ogg.mp3?download" {
		t.Errorf("transcoded mp3 should rank first, got %q", got[0])
	}
	if got[len(got)-1] != "https://elsewhere.example/Hoshino_Title.ogg" {
		t.Errorf("off-host ogg should rank last, got %q", got[len(got)-1])
	}
}

func TestRankLinksMP3NeverBelowOGG(t *testing.T) {
	links := []string{
		staticHost + "/6/61/Hoshino_Title.ogg?download",
		staticHost + "/6/61/Hoshino_Title.mp3?download",
	}

	got := RankLinks(staticHost, links)

	mp3At, oggAt := -1, -1
	for i, link := range got {
		if mp3Re.MatchString(link) && mp3At == -1 {
			mp3At = i
		}
		if oggRe.MatchString(link) && !mp3Re.MatchString(link) {
			oggAt = i
		}
	}
	if mp3At == -1 || oggAt == -1 {
		t.Fatalf("fixture lost a link: %v", got)
	}
	if mp3At > oggAt {
		t.Errorf("mp3 ranked below ogg: %v", got)
	}
}

func TestRankLinksStableOnTies(t *testing.T) {
	links := []string{
		staticHost + "/a/ab/first.mp3?download",
		staticHost + "/a/ab/second.mp3?download",
	}
	got := RankLinks(staticHost, append([]string(nil), links...))
	if !reflect.DeepEqual(got, links) {
		t.Errorf("equal scores should keep input order: %v", got)
	}
}
