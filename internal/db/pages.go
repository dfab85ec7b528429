package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const crawledPageColumns = `id, url, final_url, title, raw_html, content_hash,
	http_status, fetch_status, error_message, is_permanent_failure, retry_count, retry_after,
	fetched_at, expires_at, last_accessed_at, created_at, updated_at`

// GetCrawledPageByURL retrieves a cached page by URL
func (db *DB) GetCrawledPageByURL(ctx context.Context, pageURL string) (*CrawledPage, error) {
	var p CrawledPage
	err := db.pool.QueryRow(ctx,
		`SELECT `+crawledPageColumns+` FROM crawled_pages WHERE url = $1`,
		pageURL,
	).Scan(&p.ID, &p.URL, &p.FinalURL, &p.Title, &p.RawHTML, &p.ContentHash,
		&p.HTTPStatus, &p.FetchStatus, &p.ErrorMessage, &p.IsPermanentFailure, &p.RetryCount, &p.RetryAfter,
		&p.FetchedAt, &p.ExpiresAt, &p.LastAccessedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get crawled page: %w", err)
	}
	return &p, nil
}

// GetFreshCrawledPage retrieves a page only if it's not stale and was successful
func (db *DB) GetFreshCrawledPage(ctx context.Context, pageURL string, maxAge time.Duration) (*CrawledPage, error) {
	page, err := db.GetCrawledPageByURL(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if page == nil {
		return nil, nil
	}

	if !page.IsFresh(maxAge) || page.IsExpired() {
		return nil, nil // Stale, should re-fetch
	}

	// Only return successful pages from cache
	if page.FetchStatus != FetchStatusSuccess {
		return nil, nil
	}

	_ = db.TouchCrawledPage(ctx, page.ID)

	return page, nil
}

// ShouldSkipURL checks if a URL should be skipped due to previous permanent failure
func (db *DB) ShouldSkipURL(ctx context.Context, pageURL string) (bool, string, error) {
	page, err := db.GetCrawledPageByURL(ctx, pageURL)
	if err != nil {
		return false, "", err
	}
	if page == nil {
		return false, "", nil // Never tried, don't skip
	}
	skip, reason := shouldSkip(page, time.Now())
	return skip, reason, nil
}

// shouldSkip applies the skip rules to a stored page.
func shouldSkip(page *CrawledPage, now time.Time) (bool, string) {
	if page.IsPermanentFailure {
		reason := "permanent failure"
		if page.ErrorMessage != nil {
			reason = *page.ErrorMessage
		}
		return true, reason
	}

	if page.RetryAfter != nil && now.Before(*page.RetryAfter) {
		return true, "retry backoff"
	}

	return false, ""
}

// UpsertCrawledPage inserts or updates a crawled page (for successful fetches)
func (db *DB) UpsertCrawledPage(ctx context.Context, page *CrawledPage) error {
	var contentHash *string
	if page.RawHTML != nil {
		hash := HashContent(*page.RawHTML)
		contentHash = &hash
	}

	expiresAt := page.ExpiresAt
	if expiresAt == nil {
		t := time.Now().Add(DefaultPageCacheTTL)
		expiresAt = &t
	}

	fetchStatus := page.FetchStatus
	if fetchStatus == "" {
		fetchStatus = FetchStatusSuccess
	}

	err := db.pool.QueryRow(ctx,
		`INSERT INTO crawled_pages (url, final_url, title, raw_html, content_hash,
		                            http_status, fetch_status, error_message, is_permanent_failure,
		                            retry_count, fetched_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, NOW(), $10)
		 ON CONFLICT (url) DO UPDATE SET
		     final_url = $2,
		     title = $3,
		     raw_html = $4,
		     content_hash = $5,
		     http_status = $6,
		     fetch_status = $7,
		     error_message = $8,
		     is_permanent_failure = $9,
		     retry_count = 0,
		     retry_after = NULL,
		     fetched_at = NOW(),
		     expires_at = $10,
		     updated_at = NOW()
		 RETURNING id, fetched_at, created_at, updated_at`,
		page.URL, page.FinalURL, page.Title, page.RawHTML, contentHash,
		page.HTTPStatus, fetchStatus, page.ErrorMessage, page.IsPermanentFailure, expiresAt,
	).Scan(&page.ID, &page.FetchedAt, &page.CreatedAt, &page.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert crawled page: %w", err)
	}
	page.ContentHash = contentHash
	page.ExpiresAt = expiresAt
	page.FetchStatus = fetchStatus
	return nil
}

// RecordFailedFetch records a failed fetch attempt with exponential backoff.
// Permanent failures are never retried.
func (db *DB) RecordFailedFetch(ctx context.Context, pageURL string, httpStatus int, errorMsg string) error {
	existing, err := db.GetCrawledPageByURL(ctx, pageURL)
	if err != nil {
		return err
	}

	retryCount := 1
	isPermanent := IsPermanentHTTPStatus(httpStatus)
	if existing != nil {
		retryCount = existing.RetryCount + 1
		isPermanent = isPermanent || existing.IsPermanentFailure
	}

	var retryAfter *time.Time
	if !isPermanent {
		t := time.Now().Add(RetryBackoff(retryCount))
		retryAfter = &t
	}

	var status *int
	if httpStatus > 0 {
		status = &httpStatus
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO crawled_pages (url, http_status, fetch_status, error_message, is_permanent_failure, retry_count, retry_after, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		 ON CONFLICT (url) DO UPDATE SET
		     http_status = $2,
		     fetch_status = $3,
		     error_message = $4,
		     is_permanent_failure = $5,
		     retry_count = $6,
		     retry_after = $7,
		     fetched_at = NOW(),
		     updated_at = NOW()`,
		pageURL, status, FetchStatusFromHTTP(httpStatus), errorMsg, isPermanent, retryCount, retryAfter,
	)
	if err != nil {
		return fmt.Errorf("failed to record failed fetch: %w", err)
	}
	return nil
}

// TouchCrawledPage updates the last_accessed_at timestamp
func (db *DB) TouchCrawledPage(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE crawled_pages SET last_accessed_at = NOW() WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch crawled page: %w", err)
	}
	return nil
}

// ExpireCrawledPage marks a cached page as stale so the next fetch goes to the network.
func (db *DB) ExpireCrawledPage(ctx context.Context, pageURL string) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE crawled_pages SET expires_at = NOW() - INTERVAL '1 hour', updated_at = NOW() WHERE url = $1`,
		pageURL,
	)
	if err != nil {
		return fmt.Errorf("failed to expire crawled page: %w", err)
	}
	return nil
}

// DeleteExpiredPages removes pages that have passed their expires_at
func (db *DB) DeleteExpiredPages(ctx context.Context) (int64, error) {
	result, err := db.pool.Exec(ctx,
		`DELETE FROM crawled_pages WHERE expires_at < NOW()`,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired pages: %w", err)
	}
	return result.RowsAffected(), nil
}
