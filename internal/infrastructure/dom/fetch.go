package dom

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/taskstate/tasksync/internal/infrastructure/logger"
)

type FetchConfig struct {
	Timeout  time.Duration
	MaxBytes int64
	// Cookie is sent verbatim, usually a session cookie.
	Cookie    string
	UserAgent string
	Client    *http.Client
	Logger    *logger.Logger
}

// Fetch downloads and parses the page at pageURL.
func Fetch(ctx context.Context, pageURL string, cfg FetchConfig) (*Document, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid page URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("only http and https pages are supported, got %q", parsed.Scheme)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes == 0 {
		maxBytes = 5 * 1024 * 1024
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNop()
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	if cfg.Cookie != "" {
		req.Header.Set("Cookie", cfg.Cookie)
	}

	start := time.Now()
	log.Infow("page_fetch_request", "url", parsed.String())
	resp, err := client.Do(req)
	if err != nil {
		log.Warnw("page_fetch_network_error", "url", parsed.String(), "error", err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnw("page_fetch_bad_status", "url", parsed.String(), "status", resp.StatusCode)
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) > maxBytes {
		return nil, fmt.Errorf("page exceeds maximum size of %d bytes", maxBytes)
	}

	log.Infow("page_fetch_response",
		"url", parsed.String(),
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"bytes", len(body),
	)

	// redirects move the origin the channels must be opened against
	final := parsed
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL
	}
	return Parse(bytes.NewReader(body), final)
}
