package util

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseVideoURL validates a user supplied page URL. A missing scheme is
// read as https; anything other than http(s) with a host is rejected.
func ParseVideoURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty URL")
	}
	u, err := url.Parse(raw)
	if err == nil && u.Scheme == "" {
		if u2, e2 := url.Parse("https://" + raw); e2 == nil {
			u = u2
		}
	}
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q", raw)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported URL scheme %q in %q", u.Scheme, raw)
	}
	return u, nil
}
