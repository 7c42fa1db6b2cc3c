// Package upload implements the two remote collaborators the coordinator
// depends on: the paste host and the link shortener. Both are treated as
// opaque calls that either return a URL or fail.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultPasteName = "paste.txt"

// PasteClient talks to a paste host that accepts multipart file uploads
// and answers with the hosted URL in the response body.
type PasteClient struct {
	endpoint  string
	authToken string
	client    *http.Client
	logger    *slog.Logger
}

type PasteClientConfig struct {
	Endpoint  string
	AuthToken string
	Timeout   time.Duration
	Logger    *slog.Logger
}

func NewPasteClient(cfg PasteClientConfig) *PasteClient {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &PasteClient{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		authToken: cfg.AuthToken,
		client:    newHTTPClient(cfg.Timeout),
		logger:    cfg.Logger,
	}
}

// UploadPaste hosts text content. An empty filename falls back to a generic
// name; asImage asks the host to render the content as an image.
func (p *PasteClient) UploadPaste(ctx context.Context, content, filename string, asImage bool) (string, error) {
	if filename == "" {
		filename = defaultPasteName
	}
	extra := map[string]string{}
	if asImage {
		extra["render"] = "image"
	}
	return p.post(ctx, strings.NewReader(content), filename, extra)
}

// UploadFile hosts an attachment body under the given filename.
func (p *PasteClient) UploadFile(ctx context.Context, body io.Reader, filename string) (string, error) {
	return p.post(ctx, body, filename, nil)
}

func (p *PasteClient) post(ctx context.Context, body io.Reader, filename string, fields map[string]string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, body); err != nil {
		return "", fmt.Errorf("copy upload body: %w", err)
	}
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if p.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("paste host request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("read paste host response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("paste host error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	hosted := strings.TrimSpace(string(respBody))
	if !strings.HasPrefix(hosted, "http://") && !strings.HasPrefix(hosted, "https://") {
		return "", fmt.Errorf("paste host returned no URL: %q", hosted)
	}

	p.logger.Info("upload complete",
		"filename", filename,
		"url", hosted,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return hosted, nil
}
