package models

import (
	"encoding/json"
	"time"
)

// CachedEntry is the envelope written to a cache store for one URL. The
// payload is kept opaque; callers unmarshal it into their own types.
type CachedEntry struct {
	Data      json.RawMessage `json:"data"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `json:"expires_at"`
	TTL       time.Duration   `json:"ttl"`
	URL       string          `json:"url"`
}

// Expired reports whether the entry must be treated as a miss at the given
// instant. Reads at exactly ExpiresAt count as expired.
func (e *CachedEntry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Size returns the byte footprint of the stored payload.
func (e *CachedEntry) Size() int {
	return len(e.Data)
}
