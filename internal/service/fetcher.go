package service

import (
	"context"
	"io"
	"net/http"

	"github.com/hodadako/blue-archive-voice-downloader/internal/constants"
	"github.com/hodadako/blue-archive-voice-downloader/pkg/errors"
	"go.uber.org/zap"
)

// PageFetcher is the network capability the pipeline depends on: a
// URL in, a body out, with a fixed identification header and timeout
// behind it. Tests substitute a fake.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

type HTTPFetcher struct {
	pageClient     *http.Client
	downloadClient *http.Client
	userAgent      string
	logger         *zap.Logger
}

func NewHTTPFetcher(userAgent string, logger *zap.Logger) *HTTPFetcher {
	return &HTTPFetcher{
		pageClient:     &http.Client{Timeout: constants.HTTPTimeouts.Page},
		downloadClient: &http.Client{Timeout: constants.HTTPTimeouts.Download},
		userAgent:      userAgent,
		logger:         logger,
	}
}

func (f *HTTPFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	body, err := f.fetch(ctx, f.pageClient, url, "text/html,application/json;q=0.9,*/*;q=0.8")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (f *HTTPFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return f.fetch(ctx, f.downloadClient, url, "*/*")
}

func (f *HTTPFetcher) fetch(ctx context.Context, client *http.Client, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewNetworkError("invalid request", url, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError("request failed", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Debug("Non-2xx response",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode),
		)
		return nil, errors.NewNetworkError("unexpected status", url, nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetworkError("body read failed", url, err)
	}
	return body, nil
}
