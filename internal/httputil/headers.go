package httputil

import "net/http"

const acceptLanguage = "sv-SE,sv;q=0.9,en;q=0.8"

// BrowserHeaders returns common browser-like headers for storefront pages.
func BrowserHeaders() http.Header {
	h := http.Header{}
	h.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	h.Set("Accept-Language", acceptLanguage)
	h.Set("Accept-Encoding", "gzip, br")
	h.Set("Upgrade-Insecure-Requests", "1")
	h.Set("Sec-Fetch-Dest", "document")
	h.Set("Sec-Fetch-Mode", "navigate")
	h.Set("Sec-Fetch-Site", "none")
	h.Set("Sec-Fetch-User", "?1")
	return h
}

// FeedHeaders returns headers for machine-readable catalog downloads.
func FeedHeaders(feedType string) http.Header {
	h := http.Header{}
	switch feedType {
	case "xml":
		h.Set("Accept", "application/xml,text/xml;q=0.9,*/*;q=0.5")
	default:
		h.Set("Accept", "text/csv,text/plain;q=0.9,*/*;q=0.5")
	}
	h.Set("Accept-Encoding", "gzip, br")
	return h
}
