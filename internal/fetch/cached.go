// Package fetch - cached.go wraps the client with a database-backed page cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/profile-images/internal/db"
)

// PageStore is the subset of *db.DB the cached fetcher needs.
type PageStore interface {
	ShouldSkipURL(ctx context.Context, pageURL string) (bool, string, error)
	GetFreshCrawledPage(ctx context.Context, pageURL string, maxAge time.Duration) (*db.CrawledPage, error)
	UpsertCrawledPage(ctx context.Context, page *db.CrawledPage) error
	RecordFailedFetch(ctx context.Context, pageURL string, httpStatus int, errorMsg string) error
	ExpireCrawledPage(ctx context.Context, pageURL string) error
}

// CachedFetcher wraps URL fetching with database-backed caching.
type CachedFetcher struct {
	store     PageStore
	cacheTTL  time.Duration
	skipCache bool // For forcing fresh fetches
}

// CachedFetcherConfig holds configuration for the cached fetcher.
type CachedFetcherConfig struct {
	CacheTTL  time.Duration
	SkipCache bool
}

// DefaultCachedFetcherConfig returns sensible defaults.
func DefaultCachedFetcherConfig() *CachedFetcherConfig {
	return &CachedFetcherConfig{
		CacheTTL:  db.DefaultPageCacheTTL,
		SkipCache: false,
	}
}

// NewCachedFetcher creates a new cached fetcher. A nil store disables caching.
func NewCachedFetcher(store PageStore, config *CachedFetcherConfig) *CachedFetcher {
	if config == nil {
		config = DefaultCachedFetcherConfig()
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = db.DefaultPageCacheTTL
	}
	return &CachedFetcher{
		store:     store,
		cacheTTL:  config.CacheTTL,
		skipCache: config.SkipCache,
	}
}

// CachedResult extends Result with cache metadata.
type CachedResult struct {
	*Result
	FromCache bool       // Whether this result came from cache
	PageID    *uuid.UUID // Database ID of the cached page, nil when not stored
}

// Fetch retrieves urlStr through client, using the cache if the stored copy is fresh.
// Failures are recorded so permanently broken URLs are skipped on later calls.
func (f *CachedFetcher) Fetch(ctx context.Context, client *Client, urlStr, referer string) (*CachedResult, error) {
	useCache := !f.skipCache && f.store != nil

	// Step 1: Check if URL should be skipped (permanent failure or backoff)
	if useCache {
		shouldSkip, reason, err := f.store.ShouldSkipURL(ctx, urlStr)
		if err != nil {
			return nil, fmt.Errorf("failed to check skip status: %w", err)
		}
		if shouldSkip {
			return nil, &Error{
				URL:       urlStr,
				Message:   fmt.Sprintf("URL skipped: %s", reason),
				Retryable: false,
			}
		}
	}

	// Step 2: Try to get fresh cached page
	if useCache {
		cached, err := f.store.GetFreshCrawledPage(ctx, urlStr, f.cacheTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to check cache: %w", err)
		}
		if cached != nil {
			id := cached.ID
			return &CachedResult{
				Result: &Result{
					URL:        cached.URL,
					FinalURL:   derefString(cached.FinalURL, cached.URL),
					HTML:       derefString(cached.RawHTML, ""),
					Title:      derefString(cached.Title, ""),
					StatusCode: derefInt(cached.HTTPStatus),
				},
				FromCache: true,
				PageID:    &id,
			}, nil
		}
	}

	// Step 3: Fetch fresh content
	result, err := client.Get(ctx, urlStr, referer)
	if err != nil {
		if useCache && shouldRecordFailure(ctx, err) {
			statusCode := 0
			if result != nil {
				statusCode = result.StatusCode
			}
			if recErr := f.store.RecordFailedFetch(ctx, urlStr, statusCode, err.Error()); recErr != nil {
				log.Printf("[CACHE] Failed to record fetch failure for %s: %v", urlStr, recErr)
			}
		}
		return nil, err
	}

	// Step 4: Store in cache
	if f.store != nil {
		page := &db.CrawledPage{
			URL:         urlStr,
			FinalURL:    &result.FinalURL,
			Title:       &result.Title,
			RawHTML:     &result.HTML,
			HTTPStatus:  &result.StatusCode,
			FetchStatus: db.FetchStatusSuccess,
		}
		expires := time.Now().Add(f.cacheTTL)
		page.ExpiresAt = &expires
		if err := f.store.UpsertCrawledPage(ctx, page); err != nil {
			// The fetch succeeded; only the cache write failed
			log.Printf("[CACHE] Failed to store %s: %v", urlStr, err)
		} else {
			return &CachedResult{
				Result:    result,
				FromCache: false,
				PageID:    &page.ID,
			}, nil
		}
	}

	return &CachedResult{
		Result:    result,
		FromCache: false,
	}, nil
}

// shouldRecordFailure reports whether err says something about the page itself.
// Session bootstrap failures and cancelled requests never reached the page.
func shouldRecordFailure(ctx context.Context, err error) bool {
	var sessionErr *SessionError
	if errors.As(err, &sessionErr) {
		return false
	}
	return ctx.Err() == nil
}

// InvalidateCache marks a cached page as stale, forcing a re-fetch on next request.
func (f *CachedFetcher) InvalidateCache(ctx context.Context, urlStr string) error {
	if f.store == nil {
		return nil
	}
	return f.store.ExpireCrawledPage(ctx, urlStr)
}

// Helper functions

func derefString(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}
