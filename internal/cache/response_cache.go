package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/faresight/faresight-go/internal/config"
	"github.com/faresight/faresight-go/internal/models"
	"github.com/faresight/faresight-go/internal/utils"
)

// Recorder receives hit/miss notifications for diagnostics. Implemented by
// the cache analytics service; correctness never depends on it.
type Recorder interface {
	RecordHit(category string)
	RecordMiss(category string)
}

// httpDoer is the slice of *http.Client the cache needs.
type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// RequestOptions carries the optional request shape for cached fetches.
type RequestOptions struct {
	Method string
	Header http.Header
	Body   []byte
}

// FetchFunc performs the network fetch on a cache miss. RetryFetcher's
// FetchWithRetry satisfies it, which stacks retry and offline queueing
// beneath the cache.
type FetchFunc func(ctx context.Context, url string, opts *RequestOptions) ([]byte, error)

// Stats tracks cache performance counters and the stored byte footprint.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Evictions int64 `json:"evictions"`
	Bytes     int64 `json:"bytes"`
	mu        sync.RWMutex
}

// ResponseCache memoizes fetched responses in a Store with TTL expiry.
// Expired entries are never returned: an expired read counts as a miss and
// removes the entry.
type ResponseCache struct {
	store    Store
	cfg      config.CacheConfig
	client   httpDoer
	fetcher  FetchFunc
	recorder Recorder
	logger   *logrus.Logger
	stats    *Stats
	now      func() time.Time
}

// NewResponseCache creates a cache over the given store. recorder may be nil.
func NewResponseCache(store Store, cfg config.CacheConfig, recorder Recorder, logger *logrus.Logger) *ResponseCache {
	return &ResponseCache{
		store:    store,
		cfg:      cfg,
		client:   &http.Client{Timeout: 30 * time.Second},
		recorder: recorder,
		logger:   logger,
		stats:    &Stats{},
		now:      time.Now,
	}
}

// WithClient overrides the HTTP client, mainly for tests.
func (c *ResponseCache) WithClient(client httpDoer) *ResponseCache {
	c.client = client
	return c
}

// WithFetcher routes miss-path fetches through the given function instead of
// the plain HTTP client.
func (c *ResponseCache) WithFetcher(fetcher FetchFunc) *ResponseCache {
	c.fetcher = fetcher
	return c
}

// WithClock overrides the time source for tests.
func (c *ResponseCache) WithClock(now func() time.Time) *ResponseCache {
	c.now = now
	return c
}

// Get returns the cached envelope for a URL, or nil on a miss. A read at or
// past the entry's expiry removes it and counts as a miss.
func (c *ResponseCache) Get(ctx context.Context, url string) (*models.CachedEntry, bool) {
	key := normalizeKey(c.cfg.Prefix, url)

	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache read failed")
		c.recordMiss()
		return nil, false
	}
	if !ok {
		c.recordMiss()
		return nil, false
	}

	var entry models.CachedEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Malformed entries are evicted immediately, never propagated.
		c.logger.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Evicting malformed cache entry")
		c.evict(ctx, key, int64(len(raw)))
		c.recordMiss()
		return nil, false
	}

	if entry.Expired(c.now()) {
		c.evict(ctx, key, int64(len(raw)))
		c.recordMiss()
		return nil, false
	}

	c.recordHit()
	return &entry, true
}

// Set writes a payload under a URL with the given TTL. On a quota failure it
// sweeps expired entries once and retries exactly once before reporting
// failure.
func (c *ResponseCache) Set(ctx context.Context, url string, payload json.RawMessage, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = c.cfg.TTL()
	}
	key := normalizeKey(c.cfg.Prefix, url)

	now := c.now()
	entry := models.CachedEntry{
		Data:      payload,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
		TTL:       ttl,
		URL:       url,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		c.logger.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache entry serialization failed")
		return false
	}

	err = c.store.Set(ctx, key, raw, ttl)
	if errors.Is(err, utils.ErrQuotaExceeded) {
		c.ClearExpired(ctx)
		err = c.store.Set(ctx, key, raw, ttl)
		if errors.Is(err, utils.ErrQuotaExceeded) {
			// Expired sweep freed nothing; drop the oldest entry as a
			// last resort before giving up.
			if ms, ok := c.store.(*MemoryStore); ok {
				if oldest, found := ms.OldestKey(); found {
					c.evict(ctx, oldest, 0)
					err = c.store.Set(ctx, key, raw, ttl)
				}
			}
		}
	}
	if err != nil {
		c.logger.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache write failed")
		return false
	}

	c.stats.mu.Lock()
	c.stats.Sets++
	c.stats.Bytes += int64(len(raw))
	c.stats.mu.Unlock()
	return true
}

// FetchWithCache returns the cached payload for a URL when fresh, otherwise
// performs the fetch, stores the parsed JSON body and returns it. A cache
// hit makes zero network calls.
func (c *ResponseCache) FetchWithCache(ctx context.Context, url string, opts *RequestOptions, ttl time.Duration, forceRefresh bool) (json.RawMessage, error) {
	start := c.now()
	if !forceRefresh {
		if entry, ok := c.Get(ctx, url); ok {
			c.logger.WithFields(logrus.Fields{
				"url":         url,
				"age_seconds": int(start.Sub(entry.CachedAt).Seconds()),
			}).Debug("Cache hit")
			return entry.Data, nil
		}
	}

	var payload json.RawMessage
	var err error
	if c.fetcher != nil {
		payload, err = c.fetcher(ctx, url, opts)
		if err == nil && !json.Valid(payload) {
			err = fmt.Errorf("fetch %s returned invalid JSON", url)
		}
	} else {
		payload, err = c.fetch(ctx, url, opts)
	}
	if err != nil {
		return nil, err
	}

	c.Set(ctx, url, payload, ttl)
	return payload, nil
}

// fetch performs the network request and validates the JSON body.
func (c *ResponseCache) fetch(ctx context.Context, url string, opts *RequestOptions) (json.RawMessage, error) {
	method := http.MethodGet
	var body io.Reader
	if opts != nil {
		if opts.Method != "" {
			method = opts.Method
		}
		if len(opts.Body) > 0 {
			body = bytes.NewReader(opts.Body)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if opts != nil {
		for name, values := range opts.Header {
			for _, value := range values {
				req.Header.Add(name, value)
			}
		}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("Error closing response body")
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s failed with status %d", url, resp.StatusCode)
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("fetch %s returned invalid JSON", url)
	}
	return respBody, nil
}

// ClearExpired sweeps the whole store and removes every expired entry.
// Returns the number of entries removed.
func (c *ResponseCache) ClearExpired(ctx context.Context) int {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Cache sweep failed")
		return 0
	}

	removed := 0
	now := c.now()
	for _, key := range keys {
		raw, ok, err := c.store.Get(ctx, key)
		if err != nil || !ok {
			continue
		}
		var entry models.CachedEntry
		if err := json.Unmarshal(raw, &entry); err != nil || entry.Expired(now) {
			c.evict(ctx, key, int64(len(raw)))
			removed++
		}
	}
	if removed > 0 {
		c.logger.WithFields(logrus.Fields{"removed": removed}).Info("Cleared expired cache entries")
	}
	return removed
}

// Clear removes every entry in the namespace.
func (c *ResponseCache) Clear(ctx context.Context) int {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Cache clear failed")
		return 0
	}
	for _, key := range keys {
		c.evict(ctx, key, 0)
	}
	c.stats.mu.Lock()
	c.stats.Bytes = 0
	c.stats.mu.Unlock()
	return len(keys)
}

// ClearPattern removes every entry whose key contains the given substring.
func (c *ResponseCache) ClearPattern(ctx context.Context, pattern string) int {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("Cache clear failed")
		return 0
	}
	removed := 0
	for _, key := range keys {
		if matchesPattern(c.cfg.Prefix, key, pattern) {
			c.evict(ctx, key, 0)
			removed++
		}
	}
	return removed
}

// Stats returns a copy of the current counters.
func (c *ResponseCache) Stats() Stats {
	c.stats.mu.RLock()
	defer c.stats.mu.RUnlock()
	return Stats{
		Hits:      c.stats.Hits,
		Misses:    c.stats.Misses,
		Sets:      c.stats.Sets,
		Evictions: c.stats.Evictions,
		Bytes:     c.stats.Bytes,
	}
}

// ResetStats zeroes the counters, for test isolation.
func (c *ResponseCache) ResetStats() {
	c.stats.mu.Lock()
	defer c.stats.mu.Unlock()
	c.stats.Hits, c.stats.Misses, c.stats.Sets, c.stats.Evictions, c.stats.Bytes = 0, 0, 0, 0, 0
}

func (c *ResponseCache) evict(ctx context.Context, key string, size int64) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.WithFields(logrus.Fields{"key": key, "error": err.Error()}).Warn("Cache eviction failed")
		return
	}
	c.stats.mu.Lock()
	c.stats.Evictions++
	if size > 0 && c.stats.Bytes >= size {
		c.stats.Bytes -= size
	}
	c.stats.mu.Unlock()
}

func (c *ResponseCache) recordHit() {
	c.stats.mu.Lock()
	c.stats.Hits++
	c.stats.mu.Unlock()
	if c.recorder != nil {
		c.recorder.RecordHit("response_cache")
	}
}

func (c *ResponseCache) recordMiss() {
	c.stats.mu.Lock()
	c.stats.Misses++
	c.stats.mu.Unlock()
	if c.recorder != nil {
		c.recorder.RecordMiss("response_cache")
	}
}
