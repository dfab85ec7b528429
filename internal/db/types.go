package db

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// CrawledPage represents a cached profile page
type CrawledPage struct {
	ID          uuid.UUID `json:"id"`
	URL         string    `json:"url"`
	FinalURL    *string   `json:"final_url,omitempty"`
	Title       *string   `json:"title,omitempty"`
	RawHTML     *string   `json:"-"` // Don't serialize (large)
	ContentHash *string   `json:"content_hash,omitempty"`
	HTTPStatus  *int      `json:"http_status,omitempty"`
	// Error tracking
	FetchStatus        string     `json:"fetch_status"` // 'success', 'error', 'not_found', 'timeout', 'blocked'
	ErrorMessage       *string    `json:"error_message,omitempty"`
	IsPermanentFailure bool       `json:"is_permanent_failure"`
	RetryCount         int        `json:"retry_count"`
	RetryAfter         *time.Time `json:"retry_after,omitempty"`
	// Timestamps
	FetchedAt      time.Time  `json:"fetched_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	LastAccessedAt time.Time  `json:"last_accessed_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Extraction is one stored extraction result for a profile URL
type Extraction struct {
	ID               uuid.UUID  `json:"id"`
	ProfileURL       string     `json:"profile_url"`
	PageID           *uuid.UUID `json:"page_id,omitempty"`
	ProfilePicture   *string    `json:"profile_picture,omitempty"`
	ProfilePictureHD *string    `json:"profile_picture_hd,omitempty"`
	CoverPhoto       *string    `json:"cover_photo,omitempty"`
	CoverPhotoHD     *string    `json:"cover_photo_hd,omitempty"`
	PhotoImages      []string   `json:"photo_images"`
	AllImages        []string   `json:"all_images"`
	FromCache        bool       `json:"from_cache"`
	DurationMS       int64      `json:"duration_ms"`
	CreatedAt        time.Time  `json:"created_at"`
}

// FetchStatus constants for crawled pages
const (
	FetchStatusSuccess  = "success"   // Page fetched successfully
	FetchStatusError    = "error"     // Generic error (may retry)
	FetchStatusNotFound = "not_found" // 404/410 - permanent failure
	FetchStatusTimeout  = "timeout"   // Request timed out (may retry)
	FetchStatusBlocked  = "blocked"   // 403/429 - blocked by server
)

// DefaultPageCacheTTL is how long a fetched profile page is served from cache.
const DefaultPageCacheTTL = 24 * time.Hour

// DefaultHistoryLimit bounds ListExtractions when no limit is given.
const DefaultHistoryLimit = 20

// Retry backoff constants for transient failures
// Schedule: 1 min → 5 min → 25 min → 2 hours (capped)
const (
	RetryInitialBackoff = 1 * time.Minute
	RetryBackoffFactor  = 5
	RetryMaxBackoff     = 2 * time.Hour
)

// IsPermanentHTTPStatus returns true for status codes that indicate permanent failure
func IsPermanentHTTPStatus(status int) bool {
	switch status {
	case 404, 410, 451: // Not Found, Gone, Unavailable for Legal Reasons
		return true
	default:
		return false
	}
}

// FetchStatusFromHTTP determines fetch status from HTTP status code.
// A zero status means no response was received.
func FetchStatusFromHTTP(status int) string {
	switch {
	case status >= 200 && status < 300:
		return FetchStatusSuccess
	case status == 404 || status == 410:
		return FetchStatusNotFound
	case status == 403 || status == 429:
		return FetchStatusBlocked
	case status == 408 || status == 504:
		return FetchStatusTimeout
	default:
		return FetchStatusError
	}
}

// RetryBackoff returns how long to wait after the given number of failed attempts.
func RetryBackoff(retryCount int) time.Duration {
	backoff := RetryInitialBackoff
	for i := 1; i < retryCount; i++ {
		backoff *= RetryBackoffFactor
		if backoff >= RetryMaxBackoff {
			return RetryMaxBackoff
		}
	}
	return backoff
}

// HashContent computes SHA-256 hash of content for change detection
func HashContent(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

// IsExpired returns true if the page cache has expired
func (p *CrawledPage) IsExpired() bool {
	if p.ExpiresAt == nil {
		return false // No expiry set, never expires
	}
	return time.Now().After(*p.ExpiresAt)
}

// IsFresh returns true if the page was fetched within maxAge
func (p *CrawledPage) IsFresh(maxAge time.Duration) bool {
	return time.Since(p.FetchedAt) < maxAge
}
