package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hodadako/blue-archive-voice-downloader/internal/util"
	"go.uber.org/zap"
)

var (
	oggRe = regexp.MustCompile(`(?i)\.ogg($|\?)`)
	mp3Re = regexp.MustCompile(`(?i)\.mp3($|\?)`)
)

// Link ranking weights. Higher scores sort first; ties keep their
// relative order.
const (
	weightStaticHost = 100
	weightTranscoded = 80
	weightMP3        = 60
	weightDownload   = 30
	weightOGG        = 20
)

// ParseFileTitles collects File: identifiers from audio page markup.
// Two sources contribute: machine-readable data-title attributes and
// anchors referencing .ogg resources. The result preserves insertion
// order and contains no duplicates; scraping the same markup twice
// yields the same list.
func ParseFileTitles(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	out := make([]string, 0)
	add := func(title string) {
		title = util.NormalizeWhitespace(title)
		if title == "" {
			return
		}
		if !strings.HasPrefix(title, "File:") {
			title = "File:" + title
		}
		if _, dup := seen[title]; dup {
			return
		}
		seen[title] = struct{}{}
		out = append(out, title)
	}

	doc.Find("[data-title]").Each(func(_ int, sel *goquery.Selection) {
		add(sel.AttrOr("data-title", ""))
	})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := sel.AttrOr("href", "")
		if href == "" || !oggRe.MatchString(href) {
			return
		}

		if idx := strings.Index(href, "/wiki/File:"); idx >= 0 {
			part := strings.SplitN(href[idx+len("/wiki/File:"):], "?", 2)[0]
			if decoded, err := url.PathUnescape(part); err == nil {
				add(decoded)
			}
			return
		}

		segments := strings.Split(strings.SplitN(href, "?", 2)[0], "/")
		if name := segments[len(segments)-1]; name != "" {
			if decoded, err := url.PathUnescape(name); err == nil {
				add(decoded)
			}
		}
	})

	return out
}

// collectFileLinks scrapes one file's own page for direct download
// URLs, ranks them, and appends the hash-derived fallback last. Errors
// degrade to just the fallback; one broken file never aborts the rest.
func (s *WikiScraper) collectFileLinks(ctx context.Context, baseURL, fileTitle string) []string {
	links, err := s.scrapeFileLinks(ctx, baseURL, fileTitle)
	if err != nil {
		s.logger.Debug("File link scraping failed",
			zap.String("file", fileTitle),
			zap.Error(err),
		)
		links = nil
	}

	links = RankLinks(s.staticHost, links)

	if fallback := s.BuildStaticAudioURL(fileTitle); fallback != "" {
		duplicate := false
		for _, link := range links {
			if link == fallback {
				duplicate = true
				break
			}
		}
		if !duplicate {
			links = append(links, fallback)
		}
	}
	return links
}

func (s *WikiScraper) scrapeFileLinks(ctx context.Context, baseURL, fileTitle string) ([]string, error) {
	pageURL := wikiPageURL(baseURL, fileTitle)
	html, err := s.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	links := make([]string, 0)
	add := func(ref string) {
		if ref == "" {
			return
		}
		parsed, err := url.Parse(ref)
		if err != nil {
			return
		}
		abs := base.ResolveReference(parsed).String()
		if !s.isDownloadCandidate(abs) {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	}

	doc.Find("source[src], audio[src]").Each(func(_ int, sel *goquery.Selection) {
		add(sel.AttrOr("src", ""))
	})
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		add(sel.AttrOr("href", ""))
	})

	return links, nil
}

// isDownloadCandidate keeps URLs on the static asset host that carry a
// download indicator and look like audio (extension or transcoded
// path segment).
func (s *WikiScraper) isDownloadCandidate(u string) bool {
	if !strings.HasPrefix(u, s.staticHost) {
		return false
	}
	if !strings.Contains(u, "download") {
		return false
	}
	return mp3Re.MatchString(u) || oggRe.MatchString(u) || strings.Contains(u, "/transcoded/")
}

// BuildStaticAudioURL derives the deterministic last-resort URL for a
// file identifier from the MediaWiki image hash layout:
// <host>/<h[0]>/<h[0:2]>/<name>/<name>.mp3?download where h is the MD5
// of the underscore-normalized filename.
func (s *WikiScraper) BuildStaticAudioURL(fileTitle string) string {
	name := strings.TrimPrefix(util.NormalizeWhitespace(fileTitle), "File:")
	name = strings.ReplaceAll(strings.TrimSpace(name), " ", "_")
	if name == "" {
		return ""
	}

	sum := md5.Sum([]byte(name))
	digest := hex.EncodeToString(sum[:])
	encoded := url.PathEscape(name)

	return fmt.Sprintf("%s/%s/%s/%s/%s.mp3?download",
		s.staticHost, digest[:1], digest[:2], encoded, encoded)
}

// RankLinks sorts candidate URLs by the weighted download heuristic,
// best first, preserving relative order on ties.
func RankLinks(staticHost string, links []string) []string {
	sort.SliceStable(links, func(i, j int) bool {
		return linkScore(staticHost, links[i]) > linkScore(staticHost, links[j])
	})
	return links
}

func linkScore(staticHost, u string) int {
	score := 0
	if staticHost != "" && strings.HasPrefix(u, staticHost) {
		score += weightStaticHost
	}
	if strings.Contains(u, "/transcoded/") {
		score += weightTranscoded
	}
	if mp3Re.MatchString(u) {
		score += weightMP3
	}
	if strings.Contains(u, "download") {
		score += weightDownload
	}
	if oggRe.MatchString(u) {
		score += weightOGG
	}
	return score
}
