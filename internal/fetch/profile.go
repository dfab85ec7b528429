// Package fetch - profile.go validates and normalizes profile URLs before they are fetched.
package fetch

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
)

// HomeURL is visited first to obtain session cookies. It is also the Referer for profile fetches.
const HomeURL = "https://www.facebook.com/"

// canonicalHost is the host every profile URL is rewritten to.
const canonicalHost = "www.facebook.com"

// AllowedHosts lists the hosts a profile URL may point at.
var AllowedHosts = []string{
	"www.facebook.com",
	"m.facebook.com",
	"facebook.com",
}

// forbiddenURLChars may not appear anywhere in a profile URL.
const forbiddenURLChars = `<>"'`

const normalizeFlags = purell.FlagLowercaseScheme |
	purell.FlagLowercaseHost |
	purell.FlagRemoveDefaultPort |
	purell.FlagRemoveFragment |
	purell.FlagRemoveDotSegments |
	purell.FlagRemoveDuplicateSlashes |
	purell.FlagRemoveTrailingSlash

// IsAllowedHost reports whether host is one of AllowedHosts.
func IsAllowedHost(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range AllowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}

// ValidateProfileURL checks that urlStr is an http(s) URL on an allowed host.
func ValidateProfileURL(urlStr string) error {
	if strings.TrimSpace(urlStr) == "" {
		return &Error{URL: urlStr, Message: "URL is empty"}
	}
	if strings.ContainsAny(urlStr, forbiddenURLChars) {
		return &Error{URL: urlStr, Message: "URL contains forbidden characters"}
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return &Error{URL: urlStr, Message: "URL scheme must be http or https"}
	}
	if !IsAllowedHost(parsed.Hostname()) {
		return &Error{URL: urlStr, Message: "host " + parsed.Hostname() + " is not allowed"}
	}
	return nil
}

// IsShareLink reports whether urlStr is a share link that redirects to a profile.
func IsShareLink(urlStr string) bool {
	return strings.Contains(urlStr, "/share/")
}

// NormalizeProfileURL validates urlStr and rewrites it onto the canonical host.
// Mobile and bare hosts become www; fragments, default ports and trailing slashes are dropped.
func NormalizeProfileURL(urlStr string) (string, error) {
	if err := ValidateProfileURL(urlStr); err != nil {
		return "", err
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", &Error{URL: urlStr, Message: "invalid URL", Cause: err}
	}
	port := parsed.Port()
	parsed.Host = canonicalHost
	if port != "" {
		parsed.Host = canonicalHost + ":" + port
	}

	normalized := purell.NormalizeURL(parsed, normalizeFlags)
	if err := ValidateProfileURL(normalized); err != nil {
		return "", err
	}
	return normalized, nil
}
