package images

import "strings"

// urlEscapes are decoded in order, so "&amp;lt;" ends up as "<".
var urlEscapes = [][2]string{
	{"&amp;", "&"},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#039;", "'"},
	{`\/`, "/"},
	{`\"`, `"`},
}

// urlTerminators mark the end of a URL token inside surrounding markup or script text.
const urlTerminators = `"'<>\`

// Unescape decodes the entity and JS-string escapes seen around URLs embedded in
// attributes and inline script payloads.
func Unescape(raw string) string {
	for _, esc := range urlEscapes {
		raw = strings.ReplaceAll(raw, esc[0], esc[1])
	}
	return strings.TrimSpace(raw)
}

// Sanitize decodes escaped URL text and cuts it at the first character that cannot be
// part of the URL token. It never fails; the result may be empty.
func Sanitize(raw string) string {
	s := Unescape(raw)
	if i := strings.IndexAny(s, urlTerminators); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
