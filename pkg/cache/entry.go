// Package cache provides optional Redis-backed caching of SODA responses
// with ETag revalidation.
package cache

import (
	"net/http"
	"time"
)

// Entry is a cached SODA response body plus the validators needed for
// conditional requests.
type Entry struct {
	// Data is the response body.
	Data []byte `json:"data"`

	// ETag for conditional requests (If-None-Match).
	ETag string `json:"etag"`

	// LastModified from the response, fallback validator when no ETag.
	LastModified time.Time `json:"last_modified"`

	// Expires is when the entry becomes stale. SODA responses carry no
	// Expires header, so this is a locally chosen deadline.
	Expires time.Time `json:"expires"`

	// CachedAt is when the response was stored.
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry builds a cache entry from a response body and headers, valid
// for the given TTL.
func NewEntry(body []byte, headers http.Header, ttl time.Duration) *Entry {
	now := time.Now()
	entry := &Entry{
		Data:     body,
		ETag:     headers.Get("ETag"),
		Expires:  now.Add(ttl),
		CachedAt: now,
	}

	if lastModStr := headers.Get("Last-Modified"); lastModStr != "" {
		if lastMod, err := http.ParseTime(lastModStr); err == nil {
			entry.LastModified = lastMod
		}
	}

	return entry
}

// IsExpired returns true if the entry has passed its freshness deadline.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// CanRevalidate reports whether the entry carries a validator usable for a
// conditional request.
func (e *Entry) CanRevalidate() bool {
	return e.ETag != "" || !e.LastModified.IsZero()
}

// CanRevalidate is the nil-safe form of Entry.CanRevalidate.
func CanRevalidate(entry *Entry) bool {
	return entry != nil && entry.CanRevalidate()
}

// AddConditionalHeaders sets If-None-Match or If-Modified-Since on the
// request from the entry's validators. ETag wins when both are present.
func AddConditionalHeaders(req *http.Request, entry *Entry) {
	if req == nil || entry == nil {
		return
	}

	if entry.ETag != "" {
		req.Header.Set("If-None-Match", entry.ETag)
	} else if !entry.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", entry.LastModified.Format(http.TimeFormat))
	}
}
