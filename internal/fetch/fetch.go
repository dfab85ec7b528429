// Package fetch retrieves profile pages over HTTP with a cookie-carrying session.
// This package centralizes HTTP fetching logic used by the scraper and the page cache.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/codeGROOVE-dev/retry"
	"golang.org/x/net/publicsuffix"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// DefaultMaxAttempts is the number of tries for a page before giving up.
const DefaultMaxAttempts = 2

// DefaultRetryDelay is the base delay between attempts; it doubles on each retry.
const DefaultRetryDelay = time.Second

// DefaultMaxBodyBytes caps how much of a response body is read.
const DefaultMaxBodyBytes int64 = 10 << 20

// Result holds the raw content from a URL fetch.
type Result struct {
	URL         string // Requested URL
	FinalURL    string // URL after redirects
	HTML        string
	Title       string
	ContentType string
	StatusCode  int
}

// Error represents an error during URL fetching.
type Error struct {
	URL        string
	Message    string
	Cause      error
	StatusCode int
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// SessionError reports that the session bootstrap request failed.
type SessionError struct {
	URL   string
	Cause error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session initialization via %s failed: %v", e.URL, e.Cause)
}

func (e *SessionError) Unwrap() error {
	return e.Cause
}

// Options configures the fetch behavior.
// Headers are sent with every request; the Referer is set per request, never here.
type Options struct {
	Timeout      time.Duration
	UserAgent    string
	Headers      map[string]string
	MaxAttempts  int
	RetryDelay   time.Duration
	MaxBodyBytes int64
	Verbose      bool

	// SessionURL, when set, is visited once before the first other request.
	SessionURL string

	// Transport overrides the HTTP transport; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// DefaultHeaders returns the browser-like header set sent to the profile site.
// Accept-Encoding is left to the transport so compressed bodies are decoded.
func DefaultHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"Cache-Control":             "max-age=0",
		"Sec-Ch-Ua":                 `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		"Sec-Ch-Ua-Mobile":          "?0",
		"Sec-Ch-Ua-Platform":        `"Windows"`,
		"Sec-Fetch-Dest":            "document",
		"Sec-Fetch-Mode":            "navigate",
		"Sec-Fetch-Site":            "none",
		"Sec-Fetch-User":            "?1",
		"Upgrade-Insecure-Requests": "1",
		"Dnt":                       "1",
	}
}

// DefaultOptions returns sensible defaults for fetching.
func DefaultOptions() *Options {
	return &Options{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		Headers:      DefaultHeaders(),
		MaxAttempts:  DefaultMaxAttempts,
		RetryDelay:   DefaultRetryDelay,
		MaxBodyBytes: DefaultMaxBodyBytes,
	}
}

// withDefaults fills zero-valued fields from DefaultOptions.
func (o *Options) withDefaults() *Options {
	defaults := DefaultOptions()
	if o == nil {
		return defaults
	}
	result := *o
	if result.Timeout <= 0 {
		result.Timeout = defaults.Timeout
	}
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}
	if result.MaxAttempts <= 0 {
		result.MaxAttempts = defaults.MaxAttempts
	}
	if result.RetryDelay <= 0 {
		result.RetryDelay = defaults.RetryDelay
	}
	if result.MaxBodyBytes <= 0 {
		result.MaxBodyBytes = defaults.MaxBodyBytes
	}
	return &result
}

// Client fetches pages within one cookie session.
// A Client is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	options      *Options
	sessionMu    sync.Mutex
	sessionReady atomic.Bool
}

// NewClient creates a client with its own cookie jar.
func NewClient(opts *Options) (*Client, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	opts = opts.withDefaults()
	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Jar:       jar,
			Transport: opts.Transport,
		},
		options: opts,
	}, nil
}

// Options returns the effective options of the client.
func (c *Client) Options() Options {
	return *c.options
}

// InitSession visits homeURL so the site sets its session cookies.
// Any status other than 200 is a *SessionError.
func (c *Client) InitSession(ctx context.Context, homeURL string) error {
	if _, err := c.get(ctx, homeURL, ""); err != nil {
		return &SessionError{URL: homeURL, Cause: err}
	}
	c.sessionReady.Store(true)
	return nil
}

// ensureSession runs InitSession against Options.SessionURL once per client.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.options.SessionURL == "" || c.sessionReady.Load() {
		return nil
	}

	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()
	if c.sessionReady.Load() {
		return nil
	}
	return c.InitSession(ctx, c.options.SessionURL)
}

// ResolveRedirect follows redirects from urlStr and returns the final URL.
// The status of the final response is not checked.
func (c *Client) ResolveRedirect(ctx context.Context, urlStr string) (string, error) {
	if err := c.ensureSession(ctx); err != nil {
		return "", err
	}

	result, err := c.do(ctx, urlStr, "")
	if result == nil {
		return "", err
	}
	return result.FinalURL, nil
}

// Get retrieves urlStr, retrying on rate limiting, server errors and transport failures.
// On a non-200 response the last Result is returned together with the error.
func (c *Client) Get(ctx context.Context, urlStr string, referer string) (*Result, error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, err
	}
	return c.get(ctx, urlStr, referer)
}

func (c *Client) get(ctx context.Context, urlStr string, referer string) (*Result, error) {
	var result *Result
	err := retry.Do(
		func() error {
			res, err := c.do(ctx, urlStr, referer)
			if res != nil {
				result = res
			}
			return err
		},
		retry.Context(ctx),
		retry.Attempts(uint(c.options.MaxAttempts)),
		retry.Delay(c.options.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("[FETCH] Attempt %d for %s failed: %v", n+1, urlStr, err)
		}),
	)
	if err != nil {
		return result, err
	}

	if c.options.Verbose {
		log.Printf("[FETCH] %s: %d bytes (status %d)", result.FinalURL, len(result.HTML), result.StatusCode)
	}
	return result, nil
}

// do performs a single GET request.
func (c *Client) do(ctx context.Context, urlStr string, referer string) (*Result, error) {
	// Validate URL
	parsedURL, err := url.Parse(urlStr)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return nil, &Error{
			URL:     urlStr,
			Message: "invalid URL",
			Cause:   err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, &Error{
			URL:     urlStr,
			Message: "failed to create request",
			Cause:   err,
		}
	}

	req.Header.Set("User-Agent", c.options.UserAgent)
	for key, value := range c.options.Headers {
		req.Header.Set(key, value)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{
			URL:       urlStr,
			Message:   "HTTP request failed",
			Cause:     err,
			Retryable: ctx.Err() == nil,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, c.options.MaxBodyBytes))
	if err != nil {
		return nil, &Error{
			URL:       urlStr,
			Message:   "failed to read response body",
			Cause:     err,
			Retryable: ctx.Err() == nil,
		}
	}

	result := &Result{
		URL:         urlStr,
		FinalURL:    resp.Request.URL.String(),
		HTML:        string(bodyBytes),
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
	}

	if resp.StatusCode != http.StatusOK {
		return result, &Error{
			URL:        urlStr,
			Message:    fmt.Sprintf("HTTP status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
			Retryable:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError,
		}
	}

	result.Title = ExtractTitle(result.HTML)
	return result, nil
}

// isRetryable reports whether err is a fetch error worth another attempt.
func isRetryable(err error) bool {
	var fetchErr *Error
	return errors.As(err, &fetchErr) && fetchErr.Retryable
}

// URL retrieves HTML content from a URL using a fresh client.
func URL(ctx context.Context, urlStr string, opts *Options) (*Result, error) {
	client, err := NewClient(opts)
	if err != nil {
		return nil, err
	}
	return client.Get(ctx, urlStr, "")
}

// ExtractTitle returns the page title, falling back to og:title.
func ExtractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	og, _ := doc.Find(`meta[property="og:title"]`).First().Attr("content")
	return strings.TrimSpace(og)
}
