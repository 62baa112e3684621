package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hodadako/blue-archive-voice-downloader/internal/domain"
	"github.com/hodadako/blue-archive-voice-downloader/internal/util"
	"github.com/hodadako/blue-archive-voice-downloader/pkg/errors"
	"go.uber.org/zap"
)

// WikiScraper owns steps 2-7 of the audio resolution pipeline: find
// the audio page for a student name, collect its file identifiers,
// and collect download candidates per file. Mirrors are tried in
// order; any per-mirror failure moves on to the next.
type WikiScraper struct {
	fetcher    PageFetcher
	baseURLs   []string
	staticHost string
	logger     *zap.Logger
}

func NewWikiScraper(fetcher PageFetcher, baseURLs []string, staticHost string, logger *zap.Logger) *WikiScraper {
	return &WikiScraper{
		fetcher:    fetcher,
		baseURLs:   baseURLs,
		staticHost: strings.TrimRight(staticHost, "/"),
		logger:     logger,
	}
}

// pageStrategy is one way of locating the audio page. Strategies are
// iterated in order; the first one that yields file identifiers wins.
type pageStrategy struct {
	name    string
	resolve func(ctx context.Context, baseURL, name string) (string, []string, error)
}

func (s *WikiScraper) strategies() []pageStrategy {
	return []pageStrategy{
		{name: "direct-page", resolve: s.resolveDirectPage},
		{name: "site-search", resolve: s.resolveViaSearch},
	}
}

// ResolveAudioFiles runs the full scraping pipeline for one student
// name. A nil error means at least one file identifier was found.
func (s *WikiScraper) ResolveAudioFiles(ctx context.Context, name string) (*domain.AudioResolution, error) {
	name = util.NormalizeWhitespace(name)
	if name == "" {
		return nil, errors.NewScrapeError("empty student name", "")
	}

	var lastErr error
	for _, baseURL := range s.baseURLs {
		title, fileTitles, err := s.resolveAudioPage(ctx, baseURL, name)
		if err != nil {
			s.logger.Warn("Audio page resolution failed on mirror",
				zap.String("base_url", baseURL),
				zap.String("name", name),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		res := &domain.AudioResolution{
			AudioPageTitle: title,
			FileTitles:     fileTitles,
		}
		for _, fileTitle := range fileTitles {
			res.Files = append(res.Files, &domain.AudioFile{
				FileTitle: fileTitle,
				Links:     s.collectFileLinks(ctx, baseURL, fileTitle),
			})
		}

		s.logger.Info("Audio files resolved",
			zap.String("name", name),
			zap.String("audio_title", title),
			zap.Int("files", len(fileTitles)),
		)
		return res, nil
	}

	if lastErr == nil {
		lastErr = errors.NewScrapeError("no audio page found", name)
	}
	return nil, lastErr
}

func (s *WikiScraper) resolveAudioPage(ctx context.Context, baseURL, name string) (string, []string, error) {
	var lastErr error
	for _, strat := range s.strategies() {
		title, fileTitles, err := strat.resolve(ctx, baseURL, name)
		if err != nil {
			s.logger.Debug("Strategy failed",
				zap.String("strategy", strat.name),
				zap.String("name", name),
				zap.Error(err),
			)
			lastErr = err
			continue
		}
		if len(fileTitles) > 0 {
			return title, fileTitles, nil
		}
		lastErr = errors.NewScrapeError("no files found on page", title)
	}
	return "", nil, lastErr
}

// resolveDirectPage tries "<name>/audio" as a page title without
// searching.
func (s *WikiScraper) resolveDirectPage(ctx context.Context, baseURL, name string) (string, []string, error) {
	title := name + "/audio"
	html, err := s.fetcher.FetchPage(ctx, wikiPageURL(baseURL, title))
	if err != nil {
		return "", nil, err
	}
	return title, ParseFileTitles(html), nil
}

// resolveViaSearch falls back to the site search, preferring the
// first hit whose title ends in /audio.
func (s *WikiScraper) resolveViaSearch(ctx context.Context, baseURL, name string) (string, []string, error) {
	title, err := s.searchAudioPageTitle(ctx, baseURL, name)
	if err != nil {
		return "", nil, err
	}
	if title == "" {
		title = titleCase(name) + "/audio"
	}

	html, err := s.fetcher.FetchPage(ctx, wikiPageURL(baseURL, title))
	if err != nil {
		return "", nil, err
	}
	return title, ParseFileTitles(html), nil
}

func (s *WikiScraper) searchAudioPageTitle(ctx context.Context, baseURL, name string) (string, error) {
	searchURL := baseURL + "/index.php?search=" + url.QueryEscape(name+"/audio") + "&fulltext=1&ns0=1"
	html, err := s.fetcher.FetchPage(ctx, searchURL)
	if err != nil {
		return "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", errors.NewScrapeError("search results unparsable", searchURL)
	}

	var first, exact string
	doc.Find(".mw-search-result-heading a").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title, ok := sel.Attr("title")
		if !ok || title == "" {
			title = util.NormalizeWhitespace(sel.Text())
		}
		if title == "" {
			return true
		}
		if first == "" {
			first = title
		}
		if strings.HasSuffix(strings.ToLower(title), "/audio") {
			exact = title
			return false
		}
		return true
	})

	if exact != "" {
		return exact, nil
	}
	return first, nil
}

// CharacterEntry is one row of the wiki's character index.
type CharacterEntry struct {
	Title    string
	ImageURL string
}

// FetchCharacterEntries scrapes the character index used by the batch
// dataset rebuild.
func (s *WikiScraper) FetchCharacterEntries(ctx context.Context) ([]*CharacterEntry, error) {
	var lastErr error
	for _, baseURL := range s.baseURLs {
		html, err := s.fetcher.FetchPage(ctx, wikiPageURL(baseURL, "Characters"))
		if err != nil {
			lastErr = err
			continue
		}

		entries := parseCharacterEntries(html, baseURL)
		if len(entries) == 0 {
			lastErr = errors.NewScrapeError("no character entries found", baseURL)
			continue
		}
		return entries, nil
	}
	return nil, lastErr
}

func parseCharacterEntries(html, baseURL string) []*CharacterEntry {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	base, _ := url.Parse(baseURL)
	seen := make(map[string]struct{})
	entries := make([]*CharacterEntry, 0)

	doc.Find("a[href][title]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		title := util.NormalizeWhitespace(sel.AttrOr("title", ""))
		if title == "" || !strings.Contains(href, "/wiki/") || strings.Contains(title, ":") {
			return
		}
		if _, dup := seen[title]; dup {
			return
		}
		seen[title] = struct{}{}

		entry := &CharacterEntry{Title: title}
		if src, ok := sel.Find("img[src]").Attr("src"); ok && base != nil {
			if ref, err := url.Parse(src); err == nil {
				entry.ImageURL = base.ResolveReference(ref).String()
			}
		}
		entries = append(entries, entry)
	})

	return entries
}

// wikiPageURL builds /wiki/<title> with spaces as underscores and
// slashes preserved as subpage separators.
func wikiPageURL(baseURL, title string) string {
	title = strings.ReplaceAll(util.NormalizeWhitespace(title), " ", "_")
	segments := strings.Split(title, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(baseURL, "/") + "/wiki/" + strings.Join(segments, "/")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
