package images

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cdnHost must appear in every candidate harvested from raw text.
const cdnHost = "fbcdn.net"

// textPatterns find CDN image URLs in inline scripts and JSON payloads, where the URL may
// use JSON-escaped slashes. The quoted form captures only the string contents.
var textPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)https?:(?:\\?/){2}scontent[^"'\\<>\s]*\.fbcdn\.net[^"'<>\s]*\.(?:jpg|jpeg|png|webp)[^"'<>\s]*`),
	regexp.MustCompile(`(?i)"(https?:(?:\\?/){2}scontent[^"]*\.fbcdn\.net[^"]*\.(?:jpg|jpeg|png|webp)[^"]*)"`),
}

// imageSelector matches HTML images and SVG <image> elements, which the site uses to
// draw circular profile pictures.
const imageSelector = "img, image"

// Collect harvests candidate image URLs from document. Attribute values are returned as
// found; text matches are already sanitized and validated. The result is de-duplicated
// and sorted.
func Collect(document string) []string {
	seen := make(map[string]bool)

	for _, src := range collectElements(document) {
		seen[src] = true
	}
	for _, u := range collectText(document) {
		seen[u] = true
	}

	candidates := make([]string, 0, len(seen))
	for u := range seen {
		candidates = append(candidates, u)
	}
	sort.Strings(candidates)
	return candidates
}

// collectElements returns the source attribute of up to MaxStructuralElements image
// elements. Unparseable markup yields nothing.
func collectElements(document string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil
	}

	var sources []string
	visited := 0
	doc.Find(imageSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		visited++
		if src := elementSource(s); src != "" {
			sources = append(sources, src)
		}
		return visited < MaxStructuralElements
	})
	return sources
}

// elementSource returns the primary source attribute of an image element. SVG images
// carry it in href (the parser stores xlink:href under the key "href").
func elementSource(s *goquery.Selection) string {
	if goquery.NodeName(s) == "img" {
		return strings.TrimSpace(s.AttrOr("src", ""))
	}
	return strings.TrimSpace(s.AttrOr("href", ""))
}

// collectText scans the raw document text, including script bodies the HTML parser
// treats as opaque, for CDN image URLs.
func collectText(document string) []string {
	var found []string
	for _, re := range textPatterns {
		for _, m := range re.FindAllStringSubmatch(document, -1) {
			raw := m[0]
			if len(m) > 1 {
				raw = m[1]
			}
			u := Sanitize(raw)
			if IsValidImageURL(u) && strings.Contains(u, cdnHost) {
				found = append(found, u)
			}
		}
	}
	return found
}
