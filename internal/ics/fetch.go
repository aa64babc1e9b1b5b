package ics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	appLog "wtt/internal/log"
)

// MaxFeedBytes caps a remote calendar body.
const MaxFeedBytes = 2 << 20

// FetchResult contains the outcome of fetching a remote calendar.
type FetchResult struct {
	URL       string
	Body      []byte // ICS payload (either freshly fetched or from cache)
	FromCache bool   // true if we reused cached body due to 304 or an upstream failure
}

// cacheEntry holds HTTP cache metadata and the last good body for one URL.
type cacheEntry struct {
	ETag         string
	LastModified string
	Body         []byte
	UpdatedAt    time.Time
}

// Fetcher downloads calendar feeds for import, honoring ETag and
// Last-Modified. The cache is in memory and shared by all sessions.
type Fetcher struct {
	client *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewFetcher creates a Fetcher. A nil client gets a 15s timeout client.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{
		client: client,
		cache:  make(map[string]cacheEntry),
	}
}

// Fetch gets one feed. Network errors and non-OK statuses fall back to the
// cached body when there is one.
func (f *Fetcher) Fetch(ctx context.Context, url string) (FetchResult, error) {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") && !strings.HasPrefix(url, "webcal://") {
		return FetchResult{}, errors.Errorf("unsupported feed url %q", redactURL(url))
	}
	// webcal:// is an alias used by calendar apps
	target := url
	if strings.HasPrefix(target, "webcal://") {
		target = "https://" + strings.TrimPrefix(target, "webcal://")
	}

	f.mu.Lock()
	meta, cached := f.cache[url]
	f.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return FetchResult{}, errors.Wrap(err, "build feed request")
	}
	if meta.ETag != "" {
		req.Header.Set("If-None-Match", meta.ETag)
	}
	if meta.LastModified != "" {
		req.Header.Set("If-Modified-Since", meta.LastModified)
	}

	appLog.Info("ics fetch start", "url", redactURL(url))

	resp, err := f.client.Do(req)
	if err != nil {
		if cached {
			appLog.Error("ics fetch network error, using cached body", err, "url", redactURL(url))
			return FetchResult{URL: url, Body: meta.Body, FromCache: true}, nil
		}
		return FetchResult{}, errors.Wrap(err, "fetch feed")
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, MaxFeedBytes+1))
		if err != nil {
			return FetchResult{}, errors.Wrap(err, "read feed")
		}
		if len(body) > MaxFeedBytes {
			return FetchResult{}, errors.Errorf("feed larger than %d bytes", MaxFeedBytes)
		}

		f.mu.Lock()
		f.cache[url] = cacheEntry{
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
			Body:         body,
			UpdatedAt:    time.Now().UTC(),
		}
		f.mu.Unlock()

		appLog.Info("ics fetch success", "url", redactURL(url), "status", resp.StatusCode, "bytes", len(body))
		return FetchResult{URL: url, Body: body}, nil

	case http.StatusNotModified:
		if !cached {
			return FetchResult{}, errors.New("received 304 Not Modified but no cached body available")
		}
		appLog.Info("ics fetch not modified; using cache", "url", redactURL(url))
		return FetchResult{URL: url, Body: meta.Body, FromCache: true}, nil

	default:
		if cached {
			appLog.Error("ics fetch non-OK, using cached body", errors.New(resp.Status), "url", redactURL(url), "status", resp.StatusCode)
			return FetchResult{URL: url, Body: meta.Body, FromCache: true}, nil
		}
		return FetchResult{}, errors.Errorf("fetch feed: %s", resp.Status)
	}
}

// redactURL keeps only scheme and host; private feed URLs carry tokens.
func redactURL(u string) string {
	const redactedSuffix = "/...(redacted)"

	i := strings.Index(u, "://")
	if i == -1 {
		return "ics://...(redacted)"
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + redactedSuffix
}
