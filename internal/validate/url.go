package validate

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// NormalizeURL canonicalizes a feed URL so equivalent spellings collide: the
// scheme defaults to https when missing, the host is lowercased, and the
// result is re-serialized through net/url. The normalized form is used as
// both the store key and the coalescer key.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("validate: empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("validate: invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("validate: unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("validate: url %q has no host", raw)
	}
	u.Host = strings.ToLower(u.Host)
	return u.String(), nil
}
