// Package render builds result card markup. Every field of a listing is
// untrusted and reaches the markup only through EscapeHTML or EscapeURL.
package render

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML replaces the five HTML-significant characters with entities.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

const upperhex = "0123456789ABCDEF"

// keepInURI reports whether b is left as-is by EscapeURL: the URI
// unreserved and reserved characters plus '#'.
func keepInURI(b byte) bool {
	switch {
	case 'a' <= b && b <= 'z', 'A' <= b && b <= 'Z', '0' <= b && b <= '9':
		return true
	}
	return strings.IndexByte(";,/?:@&=+$-_.!~*'()#", b) >= 0
}

// EscapeURL percent-encodes every byte of s outside the URI character set,
// matching ECMAScript encodeURI for valid UTF-8. '%' itself is encoded, so
// an already encoded URL is encoded again. The scheme is not checked:
// javascript: and data: links come out as usable hrefs.
func EscapeURL(s string) string {
	n := 0
	for i := 0; i < len(s); i++ {
		if !keepInURI(s[i]) {
			n++
		}
	}
	if n == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s) + 2*n)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keepInURI(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&15])
	}
	return b.String()
}
