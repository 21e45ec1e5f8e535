// Package fetch retrieves candidate-URI lists from remote subscription
// sources: plain text, base64-wrapped text, or zip archives of either.
package fetch

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"time"
)

// Config controls retry behaviour and the set of schemes recognised when
// scanning fetched bodies for candidate URIs.
type Config struct {
	RetryCount int
	Schemes    []string
	UserAgent  string
	Timeout    time.Duration
}

// DefaultConfig mirrors the reference fetcher's retry count and headers.
func DefaultConfig() Config {
	return Config{
		RetryCount: 3,
		Schemes:    []string{"vmess", "vless", "trojan", "ss", "tuic", "hysteria2"},
		UserAgent:  "proxyfleet-orchestrator/1.0",
		Timeout:    8 * time.Second,
	}
}

// Fetcher retrieves and decodes subscription source bodies into raw
// candidate URIs. It does not validate or deduplicate; callers are
// expected to run the result through the validator and a dedup set.
type Fetcher struct {
	cfg        Config
	client     *http.Client
	uriPattern *regexp.Regexp

	// rateLimited latches true once a known API host returns 403, so
	// callers can stop hammering it for the rest of the run.
	rateLimited atomic.Bool
}

// New builds a Fetcher with its own HTTP client, matching the reference
// implementation's per-call aiohttp session (no cross-request pooling
// assumptions needed; each run creates its own transport).
func New(cfg Config) *Fetcher {
	schemeAlt := strings.Join(cfg.Schemes, "|")
	pattern := regexp.MustCompile(`(?i)(` + schemeAlt + `)://\S+`)
	return &Fetcher{
		cfg:        cfg,
		client:     &http.Client{Timeout: cfg.Timeout},
		uriPattern: pattern,
	}
}

// RateLimited reports whether a known API host has rejected us with 403
// during this run.
func (f *Fetcher) RateLimited() bool {
	return f.rateLimited.Load()
}

// Fetch retrieves url with retry/backoff, decodes the body, and extracts
// candidate URIs. All failure modes return an empty slice; errors are
// logged, not propagated, matching the source-fetcher contract where a
// single bad source must never abort the ingestion phase.
func (f *Fetcher) Fetch(ctx context.Context, url string, logger *slog.Logger) []string {
	body, err := f.get(ctx, url, logger)
	if err != nil || body == nil {
		return nil
	}

	var texts []string
	if strings.HasSuffix(strings.ToLower(url), ".zip") {
		texts = extractZipTexts(body, logger)
	} else {
		texts = []string{decodeText(body)}
	}

	var uris []string
	for _, text := range texts {
		uris = append(uris, f.extractURIs(text)...)
	}
	return uris
}

func (f *Fetcher) get(ctx context.Context, url string, logger *slog.Logger) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < f.cfg.RetryCount; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(500*(1<<uint(attempt-1))) * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", f.cfg.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = err
			if logger != nil {
				logger.Debug("source fetch attempt failed", "url", url, "attempt", attempt+1, "error", err)
			}
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if readErr != nil {
				lastErr = readErr
				continue
			}
			return body, nil
		case resp.StatusCode == http.StatusForbidden && isKnownAPIHost(url):
			f.rateLimited.Store(true)
			if logger != nil {
				logger.Warn("source fetch rate limited by known API host", "url", url)
			}
			return nil, fmt.Errorf("fetch: %s rate limited (403)", url)
		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("fetch: %s returned 429", url)
			if logger != nil {
				logger.Warn("source fetch rate limited, retrying", "url", url, "attempt", attempt+1)
			}
			continue
		default:
			lastErr = fmt.Errorf("fetch: %s returned status %d", url, resp.StatusCode)
		}
	}
	if lastErr != nil && logger != nil {
		logger.Warn("source fetch exhausted retries", "url", url, "error", lastErr)
	}
	return nil, lastErr
}

// decodeText applies the base64-first heuristic: if the body looks like
// a base64 blob (no whitespace in the first 100 bytes, long enough to be
// worth trying) attempt to decode it; otherwise or on failure, fall back
// to treating it as plain text.
func decodeText(body []byte) string {
	probe := body
	if len(probe) > 100 {
		probe = probe[:100]
	}
	looksBase64 := len(body) > 10 && !bytes.ContainsAny(probe, " \t\r\n")
	if !looksBase64 {
		return string(body)
	}

	trimmed := bytes.TrimSpace(body)
	padded := trimmed
	if rem := len(trimmed) % 4; rem != 0 {
		padded = append(padded, bytes.Repeat([]byte("="), 4-rem)...)
	}
	decoded, err := base64.StdEncoding.DecodeString(string(padded))
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func extractZipTexts(body []byte, logger *slog.Logger) []string {
	reader, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		if logger != nil {
			logger.Warn("failed to read zip body", "error", err)
		}
		return nil
	}
	var texts []string
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		texts = append(texts, decodeText(content))
	}
	return texts
}

func (f *Fetcher) extractURIs(text string) []string {
	return f.uriPattern.FindAllString(text, -1)
}

func isKnownAPIHost(url string) bool {
	return strings.Contains(url, "github.com") || strings.Contains(url, "githubusercontent.com")
}
