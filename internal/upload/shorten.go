package upload

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ShortenClient talks to a link shortener that accepts a form-encoded POST
// and answers with the short URL in the response body.
type ShortenClient struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

type ShortenClientConfig struct {
	Endpoint string
	Timeout  time.Duration
	Logger   *slog.Logger
}

func NewShortenClient(cfg ShortenClientConfig) *ShortenClient {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &ShortenClient{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		client:   newHTTPClient(cfg.Timeout),
		logger:   cfg.Logger,
	}
}

// Shorten creates a shortlink for longURL. Any failure is returned as an
// error; callers decide whether that failure is user-visible.
func (s *ShortenClient) Shorten(ctx context.Context, longURL string) (string, error) {
	form := url.Values{"url": {longURL}}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("shortener request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("read shortener response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("shortener error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	short := strings.TrimSpace(string(body))
	parsed, err := url.Parse(short)
	if err != nil || !parsed.IsAbs() {
		return "", fmt.Errorf("shortener returned no URL: %q", short)
	}

	s.logger.Info("shortlink created", "url", longURL, "short", short)
	return short, nil
}
