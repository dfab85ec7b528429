package images

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// nonImageExtensions are suffixes that identify scripts, styles and data files
	nonImageExtensions = []string{".js", ".css", ".ico", ".json", ".xml", ".txt", ".html"}

	// imageIndicators are substrings of which at least one must appear in an image URL
	imageIndicators = []string{
		".jpg", ".jpeg", ".png", ".webp", ".gif",
		"photo", "picture", "image", "/t39.", "/t1.",
		"fbcdn.net", "scontent",
	}

	// profileMarkers identify profile picture assets (asset-type segment plus legacy hashes)
	profileMarkers = []string{"/t39.30808-1/", "3ab345", "1d2534"}
)

// disallowedChars never appear in a usable URL token.
const disallowedChars = urlTerminators + " \t\r\n"

// absoluteSchemes are the URL prefixes an image reference must start with.
var absoluteSchemes = []string{"https://", "http://"}

// coverMarker is the asset-type path segment of cover and timeline photos.
const coverMarker = "/t39.30808-6/"

// sizePatterns capture the requested width encoded in CDN URLs, checked in order.
var sizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`s(\d+)x(\d+)`),
	regexp.MustCompile(`p(\d+)x(\d+)`),
	regexp.MustCompile(`ctp=s(\d+)x(\d+)`),
}

// fixedSizes are the square thumbnail sizes the CDN serves.
var fixedSizes = []int{40, 160, 320, 480, 720, 960}

func hasAbsoluteScheme(lower string) bool {
	for _, scheme := range absoluteSchemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}

// IsValidImageURL reports whether url plausibly points at an image.
func IsValidImageURL(url string) bool {
	if url == "" || len(url) > MaxURLLength {
		return false
	}
	if strings.ContainsAny(url, disallowedChars) {
		return false
	}

	lower := strings.ToLower(url)
	if !hasAbsoluteScheme(lower) {
		return false
	}
	for _, ext := range nonImageExtensions {
		if strings.HasSuffix(lower, ext) {
			return false
		}
	}

	for _, indicator := range imageIndicators {
		if strings.Contains(lower, indicator) {
			return true
		}
	}
	return false
}

// DetectRole returns the semantic role of an already-validated image URL.
func DetectRole(url string) Role {
	if strings.Contains(url, coverMarker) {
		return RoleCover
	}
	for _, marker := range profileMarkers {
		if strings.Contains(url, marker) {
			return RoleProfile
		}
	}
	return RoleGeneric
}

// SizeScore estimates the resolution of the image behind url from the size hints the
// CDN encodes in the URL itself.
func SizeScore(url string) int {
	for _, re := range sizePatterns {
		if m := re.FindStringSubmatch(url); m != nil {
			if width, err := strconv.Atoi(m[1]); err == nil {
				return width
			}
		}
	}

	for _, size := range fixedSizes {
		token := "s" + strconv.Itoa(size) + "x" + strconv.Itoa(size)
		if strings.Contains(url, token) {
			return size
		}
	}

	// No size transform requested means the original upload is served
	if !strings.Contains(url, "?") || !strings.Contains(url, "stp=") {
		return ScoreOriginal
	}
	return ScoreDefault
}

// Classify validates url and, if it is an image URL, assigns its role, size score and
// asset identity.
func Classify(url string) ImageReference {
	if !IsValidImageURL(url) {
		return ImageReference{URL: url, Role: RoleRejected}
	}

	ref := ImageReference{
		URL:       url,
		Role:      DetectRole(url),
		SizeScore: SizeScore(url),
	}
	if id, ok := ExtractID(url); ok {
		ref.AssetID = id
	}
	return ref
}
