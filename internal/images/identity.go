package images

import "regexp"

// assetIDPattern matches CDN file names like /123_456_789_n.jpg. The middle group is the
// photo id; the outer groups vary between replicas and versions of the same photo.
var assetIDPattern = regexp.MustCompile(`/(\d+)_(\d+)_(\d+)_[on]\.jpg`)

// ExtractID returns the asset identity of url, if it has one.
func ExtractID(url string) (string, bool) {
	m := assetIDPattern.FindStringSubmatch(url)
	if m == nil {
		return "", false
	}
	return m[2], true
}
