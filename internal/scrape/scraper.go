package scrape

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/profile-images/internal/db"
	"github.com/jonathan/profile-images/internal/fetch"
	"github.com/jonathan/profile-images/internal/images"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is used by ScrapeMany when no positive limit is given.
const DefaultConcurrency = 4

// HistoryStore records finished extractions. *db.DB satisfies it.
type HistoryStore interface {
	SaveExtraction(ctx context.Context, e *db.Extraction) error
}

// Options configures a Scraper.
type Options struct {
	Fetch   *fetch.Options
	Cache   *fetch.CachedFetcher // nil fetches every page
	History HistoryStore         // nil skips recording
	HomeURL string               // session bootstrap URL, defaults to fetch.HomeURL
	Referer string               // sent with the profile request, defaults to fetch.HomeURL
}

// Scraper turns profile URLs into image results.
// Every ScrapeProfile call uses a fresh cookie session.
type Scraper struct {
	fetchOpts fetch.Options
	cache     *fetch.CachedFetcher
	history   HistoryStore
	referer   string
}

// Outcome is the result of scraping one profile URL.
type Outcome struct {
	RequestURL string
	ProfileURL string // normalized URL that was fetched
	Title      string
	Result     *images.Result
	FromCache  bool
	PageID     *uuid.UUID
	Elapsed    time.Duration
	Err        error // set only by ScrapeMany
}

// New creates a Scraper.
func New(opts Options) *Scraper {
	fetchOpts := fetch.DefaultOptions()
	if opts.Fetch != nil {
		fetchOpts = opts.Fetch
	}
	s := &Scraper{
		fetchOpts: *fetchOpts,
		cache:     opts.Cache,
		history:   opts.History,
		referer:   opts.Referer,
	}

	s.fetchOpts.SessionURL = opts.HomeURL
	if s.fetchOpts.SessionURL == "" {
		s.fetchOpts.SessionURL = fetch.HomeURL
	}
	if s.referer == "" {
		s.referer = fetch.HomeURL
	}
	if s.cache == nil {
		s.cache = fetch.NewCachedFetcher(nil, nil)
	}
	return s
}

// ScrapeProfile validates rawURL, resolves share links, fetches the profile page
// and extracts its images. Errors are *Error values wrapping ErrInvalidURL,
// ErrSessionFailed or ErrFetchFailed.
func (s *Scraper) ScrapeProfile(ctx context.Context, rawURL string) (*Outcome, error) {
	start := time.Now()
	rawURL = strings.TrimSpace(rawURL)

	if err := fetch.ValidateProfileURL(rawURL); err != nil {
		log.Printf("[SCRAPE] Invalid URL provided: %s", rawURL)
		return nil, &Error{URL: rawURL, Stage: "validate", Kind: ErrInvalidURL, Cause: err}
	}

	client, err := fetch.NewClient(&s.fetchOpts)
	if err != nil {
		return nil, &Error{URL: rawURL, Stage: "client", Kind: ErrFetchFailed, Cause: err}
	}

	target := rawURL
	if fetch.IsShareLink(rawURL) {
		resolved, err := client.ResolveRedirect(ctx, rawURL)
		if err != nil {
			log.Printf("[SCRAPE] Failed to resolve share link %s: %v", rawURL, err)
			return nil, classifyNetworkError(rawURL, "resolve", err)
		}
		target = resolved
	}

	profileURL, err := fetch.NormalizeProfileURL(target)
	if err != nil {
		if target != rawURL {
			return nil, &Error{URL: target, Stage: "resolve", Kind: ErrFetchFailed, Cause: err}
		}
		return nil, &Error{URL: rawURL, Stage: "normalize", Kind: ErrInvalidURL, Cause: err}
	}

	page, err := s.cache.Fetch(ctx, client, profileURL, s.referer)
	if err != nil {
		log.Printf("[SCRAPE] Fetch failed for %s: %v", profileURL, err)
		return nil, classifyNetworkError(profileURL, "fetch", err)
	}

	result := images.Extract(page.HTML)
	out := &Outcome{
		RequestURL: rawURL,
		ProfileURL: profileURL,
		Title:      page.Title,
		Result:     result,
		FromCache:  page.FromCache,
		PageID:     page.PageID,
		Elapsed:    time.Since(start),
	}

	if s.fetchOpts.Verbose {
		log.Printf("[SCRAPE] %s: %d images, profile=%t cover=%t photos=%d cached=%t",
			profileURL, len(result.AllImages), result.HasProfilePicture(), result.HasCoverPhoto(),
			len(result.PhotoImages), page.FromCache)
	}

	s.record(ctx, out)
	return out, nil
}

// record stores the outcome in the history store; failures are logged only.
func (s *Scraper) record(ctx context.Context, out *Outcome) {
	if s.history == nil {
		return
	}
	if err := s.history.SaveExtraction(ctx, ToExtraction(out)); err != nil {
		log.Printf("[SCRAPE] Failed to record extraction for %s: %v", out.ProfileURL, err)
	}
}

// ScrapeMany scrapes urls with at most limit requests in flight.
// Outcomes are returned in input order; per-URL failures are reported in Outcome.Err.
func (s *Scraper) ScrapeMany(ctx context.Context, urls []string, limit int) []*Outcome {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	outcomes := make([]*Outcome, len(urls))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, u := range urls {
		g.Go(func() error {
			out, err := s.ScrapeProfile(ctx, u)
			if err != nil {
				out = &Outcome{RequestURL: u, Err: err}
			}
			outcomes[i] = out
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

// ToExtraction converts an outcome into a history record.
func ToExtraction(out *Outcome) *db.Extraction {
	r := out.Result
	if r == nil {
		r = &images.Result{}
	}
	return &db.Extraction{
		ProfileURL:       out.ProfileURL,
		PageID:           out.PageID,
		ProfilePicture:   optional(r.ProfilePicture),
		ProfilePictureHD: optional(r.ProfilePictureHD),
		CoverPhoto:       optional(r.CoverPhoto),
		CoverPhotoHD:     optional(r.CoverPhotoHD),
		PhotoImages:      r.PhotoImages,
		AllImages:        r.AllImages,
		FromCache:        out.FromCache,
		DurationMS:       out.Elapsed.Milliseconds(),
	}
}

// FromExtraction rebuilds an image result from a history record.
func FromExtraction(e *db.Extraction) *images.Result {
	result := &images.Result{
		ProfilePicture:   deref(e.ProfilePicture),
		ProfilePictureHD: deref(e.ProfilePictureHD),
		CoverPhoto:       deref(e.CoverPhoto),
		CoverPhotoHD:     deref(e.CoverPhotoHD),
		PhotoImages:      e.PhotoImages,
		AllImages:        e.AllImages,
	}
	if result.PhotoImages == nil {
		result.PhotoImages = []string{}
	}
	if result.AllImages == nil {
		result.AllImages = []string{}
	}
	return result
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
