package scrape

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonathan/profile-images/internal/db"
	"github.com/jonathan/profile-images/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testProfileImage = "https://scontent.xx.fbcdn.net/v/t39.30808-1/7_1_320_n.jpg?stp=cp0_dst-jpg_s320x320"
	testCoverImage   = "https://scontent.xx.fbcdn.net/v/t39.30808-6/3_1_960_n.jpg?stp=dst-jpg_s960x960"
)

// siteTransport sends every request to the test server regardless of host.
type siteTransport struct {
	target string
}

func (st siteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.URL.Scheme = "http"
	clone.URL.Host = strings.TrimPrefix(st.target, "http://")
	resp, err := http.DefaultTransport.RoundTrip(clone)
	if err != nil {
		return nil, err
	}
	resp.Request = req
	return resp, nil
}

type fakeSite struct {
	mu           sync.Mutex
	homeStatus   int
	profileCalls map[string]int
	referers     []string
}

func newFakeSite(t *testing.T) (*fakeSite, *httptest.Server) {
	t.Helper()
	site := &fakeSite{homeStatus: http.StatusOK, profileCalls: map[string]int{}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		defer site.mu.Unlock()

		switch {
		case r.URL.Path == "/":
			w.WriteHeader(site.homeStatus)
		case r.URL.Path == "/share/offsite/":
			http.Redirect(w, r, "https://example.com/zuck", http.StatusFound)
		case strings.HasPrefix(r.URL.Path, "/share/"):
			http.Redirect(w, r, "https://www.facebook.com/zuck", http.StatusFound)
		case r.URL.Path == "/missing":
			site.profileCalls[r.URL.Path]++
			w.WriteHeader(http.StatusNotFound)
		default:
			site.profileCalls[r.URL.Path]++
			site.referers = append(site.referers, r.Header.Get("Referer"))
			fmt.Fprintf(w, `<html><head><title>Profile</title></head><body><img src="%s"><img src="%s"></body></html>`,
				testProfileImage, testCoverImage)
		}
	}))
	t.Cleanup(server.Close)
	return site, server
}

func (s *fakeSite) calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileCalls[path]
}

type fakeHistory struct {
	mu    sync.Mutex
	saved []*db.Extraction
	err   error
}

func (h *fakeHistory) SaveExtraction(_ context.Context, e *db.Extraction) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.saved = append(h.saved, e)
	return h.err
}

func newTestScraper(serverURL string, history HistoryStore) *Scraper {
	opts := fetch.DefaultOptions()
	opts.Timeout = 5 * time.Second
	opts.RetryDelay = time.Millisecond
	opts.MaxAttempts = 1
	opts.Transport = siteTransport{target: serverURL}
	return New(Options{Fetch: opts, History: history})
}

func TestScrapeProfile_Success(t *testing.T) {
	site, server := newFakeSite(t)
	history := &fakeHistory{}
	s := newTestScraper(server.URL, history)

	out, err := s.ScrapeProfile(context.Background(), "https://facebook.com/zuck/")
	require.NoError(t, err)

	assert.Equal(t, "https://www.facebook.com/zuck", out.ProfileURL)
	assert.Equal(t, "Profile", out.Title)
	assert.Equal(t, testProfileImage, out.Result.ProfilePicture)
	assert.Equal(t, testCoverImage, out.Result.CoverPhoto)
	assert.Len(t, out.Result.AllImages, 2)
	assert.False(t, out.FromCache)
	assert.Equal(t, 1, site.calls("/zuck"))
	assert.Equal(t, []string{fetch.HomeURL}, site.referers)

	require.Len(t, history.saved, 1)
	saved := history.saved[0]
	assert.Equal(t, "https://www.facebook.com/zuck", saved.ProfileURL)
	require.NotNil(t, saved.ProfilePicture)
	assert.Equal(t, testProfileImage, *saved.ProfilePicture)
}

func TestScrapeProfile_InvalidURL(t *testing.T) {
	_, server := newFakeSite(t)
	s := newTestScraper(server.URL, nil)

	tests := []string{
		"",
		"https://example.com/zuck",
		"ftp://www.facebook.com/zuck",
		`https://www.facebook.com/<script>`,
	}
	for _, u := range tests {
		t.Run(u, func(t *testing.T) {
			_, err := s.ScrapeProfile(context.Background(), u)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidURL)

			var scrapeErr *Error
			require.ErrorAs(t, err, &scrapeErr)
			assert.Equal(t, "validate", scrapeErr.Stage)
		})
	}
}

func TestScrapeProfile_ShareLinkResolved(t *testing.T) {
	site, server := newFakeSite(t)
	s := newTestScraper(server.URL, nil)

	out, err := s.ScrapeProfile(context.Background(), "https://www.facebook.com/share/abc123/")
	require.NoError(t, err)

	assert.Equal(t, "https://www.facebook.com/share/abc123/", out.RequestURL)
	assert.Equal(t, "https://www.facebook.com/zuck", out.ProfileURL)
	assert.Equal(t, testProfileImage, out.Result.ProfilePicture)
	assert.GreaterOrEqual(t, site.calls("/zuck"), 1)
}

func TestScrapeProfile_ShareLinkLeavingSiteIsFetchFailure(t *testing.T) {
	_, server := newFakeSite(t)
	s := newTestScraper(server.URL, nil)

	_, err := s.ScrapeProfile(context.Background(), "https://www.facebook.com/share/offsite/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)
	assert.NotErrorIs(t, err, ErrInvalidURL)

	var scrapeErr *Error
	require.ErrorAs(t, err, &scrapeErr)
	assert.Equal(t, "resolve", scrapeErr.Stage)
	assert.Equal(t, "https://example.com/zuck", scrapeErr.URL)
}

func TestScrapeProfile_SessionFailure(t *testing.T) {
	site, server := newFakeSite(t)
	site.homeStatus = http.StatusForbidden
	s := newTestScraper(server.URL, nil)

	_, err := s.ScrapeProfile(context.Background(), "https://www.facebook.com/zuck")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionFailed)
	assert.NotErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, 0, site.calls("/zuck"))
}

func TestScrapeProfile_FetchFailure(t *testing.T) {
	_, server := newFakeSite(t)
	history := &fakeHistory{}
	s := newTestScraper(server.URL, history)

	_, err := s.ScrapeProfile(context.Background(), "https://www.facebook.com/missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetchFailed)

	var fetchErr *fetch.Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Empty(t, history.saved)
}

func TestScrapeProfile_HistoryErrorIsNotFatal(t *testing.T) {
	_, server := newFakeSite(t)
	history := &fakeHistory{err: errors.New("database unavailable")}
	s := newTestScraper(server.URL, history)

	out, err := s.ScrapeProfile(context.Background(), "https://www.facebook.com/zuck")
	require.NoError(t, err)
	assert.NotNil(t, out.Result)
	assert.Len(t, history.saved, 1)
}

func TestScrapeMany_KeepsOrderAndErrors(t *testing.T) {
	_, server := newFakeSite(t)
	s := newTestScraper(server.URL, nil)

	urls := []string{
		"https://www.facebook.com/zuck",
		"https://example.com/nope",
		"https://www.facebook.com/missing",
		"https://m.facebook.com/someone",
	}
	outcomes := s.ScrapeMany(context.Background(), urls, 2)

	require.Len(t, outcomes, len(urls))
	for i, out := range outcomes {
		require.NotNil(t, out)
		assert.Equal(t, urls[i], out.RequestURL)
	}
	assert.NoError(t, outcomes[0].Err)
	assert.ErrorIs(t, outcomes[1].Err, ErrInvalidURL)
	assert.ErrorIs(t, outcomes[2].Err, ErrFetchFailed)
	assert.NoError(t, outcomes[3].Err)
	assert.Equal(t, "https://www.facebook.com/someone", outcomes[3].ProfileURL)
}

func TestScrapeMany_Empty(t *testing.T) {
	s := New(Options{})
	assert.Empty(t, s.ScrapeMany(context.Background(), nil, 0))
}

func TestExtractionRoundTrip(t *testing.T) {
	out := &Outcome{
		ProfileURL: "https://www.facebook.com/zuck",
		Elapsed:    1500 * time.Millisecond,
	}
	out.Result = nil
	record := ToExtraction(out)
	assert.Nil(t, record.ProfilePicture)
	assert.Equal(t, int64(1500), record.DurationMS)

	result := FromExtraction(record)
	assert.Empty(t, result.ProfilePicture)
	assert.NotNil(t, result.PhotoImages)
	assert.NotNil(t, result.AllImages)
}

func TestError_Message(t *testing.T) {
	err := &Error{URL: "https://www.facebook.com/zuck", Stage: "fetch", Kind: ErrFetchFailed}
	assert.Equal(t, "scrape https://www.facebook.com/zuck (fetch): profile fetch failed", err.Error())
	assert.ErrorIs(t, err, ErrFetchFailed)
}
