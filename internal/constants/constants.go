package constants

import "time"

// Wiki endpoints. The resolver supports multiple mirrors; the first
// entry is the canonical site, the rest are tried in order when a
// fetch or scrape fails.
var Wiki = struct {
	BaseURLs        []string
	StaticAssetHost string
	UserAgent       string
}{
	BaseURLs:        []string{"https://bluearchive.wiki"},
	StaticAssetHost: "https://static.wikitide.net/bluearchivewiki",
	UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
}

var HTTPTimeouts = struct {
	Page     time.Duration
	Download time.Duration
}{
	Page:     20 * time.Second, // HTML/검색 요청
	Download: 30 * time.Second, // 음성 파일 다운로드
}

var CacheFiles = struct {
	StudentMap string
	VoiceLinks string
}{
	StudentMap: "student-map-cache.json",
	VoiceLinks: "voice-link-cache.json",
}

var Sync = struct {
	DefaultConcurrency int
	MaxConcurrency     int
}{
	DefaultConcurrency: 4,
	MaxConcurrency:     8, // 원격 rate limit 보호
}

var Search = struct {
	MaxResults int
}{
	MaxResults: 15,
}

var RedisCache = struct {
	ResolutionTTL time.Duration
	ReadyTimeout  time.Duration
}{
	ResolutionTTL: 6 * time.Hour,
	ReadyTimeout:  5 * time.Second,
}
