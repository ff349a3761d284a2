package cache

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Store is the key-value space a ResponseCache writes its envelopes into.
// Implementations report utils.ErrQuotaExceeded from Set when a write would
// exceed their capacity.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Len(ctx context.Context) (int, error)
}

// normalizeKey derives the cache key from a request URL: scheme and host are
// stripped so the same resource hits the same entry regardless of origin.
func normalizeKey(prefix, rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return prefix + rawURL
	}
	key := parsed.Path
	if key == "" {
		key = "/"
	}
	if parsed.RawQuery != "" {
		key += "?" + parsed.RawQuery
	}
	return prefix + key
}

// matchesPattern reports whether a stored key matches a caller-supplied
// substring pattern, ignoring the namespace prefix.
func matchesPattern(prefix, key, pattern string) bool {
	return strings.Contains(strings.TrimPrefix(key, prefix), pattern)
}
