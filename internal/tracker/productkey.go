package tracker

import (
	"net/url"
	"strings"
)

// ProductKey derives the stable identity for a tracked product from its
// URL: lowercase host plus path, fragment dropped, trailing slash
// trimmed. The query string is ignored so repeat visits with tracking
// parameters collapse onto the same key. Unparseable URLs fall back to
// the raw string so callers still get a deterministic key.
func ProductKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	path := strings.TrimSuffix(u.Path, "/")
	if path == "" {
		path = "/"
	}
	return strings.ToLower(u.Host) + path
}

// SiteFromHost maps a hostname onto a known site identifier using the
// same fixed patterns for every caller.
func SiteFromHost(host string) Site {
	h := strings.ToLower(host)
	switch {
	case strings.Contains(h, "amazon."):
		return SiteAmazon
	case strings.HasSuffix(h, "booking.com"):
		return SiteBooking
	default:
		return SiteGeneric
	}
}
