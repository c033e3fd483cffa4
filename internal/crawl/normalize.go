package crawl

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/socialcap/profile-api/internal/domain"
)

// NormalizeURL canonicalizes a user-supplied URL: the scheme defaults
// to https, the host is lower-cased, and query and fragment are
// stripped. Only http and https are accepted.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("normalize: empty url: %w", domain.ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("normalize: %q: %w", raw, domain.ErrInvalidURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("normalize: scheme %q: %w", u.Scheme, domain.ErrInvalidURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("normalize: missing host: %w", domain.ErrInvalidURL)
	}

	u.Host = strings.ToLower(u.Host)
	u.RawQuery = ""
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	if len(u.Path) > 1 {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String(), nil
}

// NormalizeDomain derives the stable profile key from a URL: the
// lower-cased host without scheme, port, or leading "www.".
func NormalizeDomain(raw string) (string, error) {
	normalized, err := NormalizeURL(raw)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(normalized)
	if err != nil {
		return "", fmt.Errorf("normalize: %q: %w", raw, domain.ErrInvalidURL)
	}
	host := u.Hostname()
	return strings.TrimPrefix(host, "www."), nil
}

// sameHost compares hosts ignoring a leading "www.".
func sameHost(a, b string) bool {
	return strings.TrimPrefix(strings.ToLower(a), "www.") == strings.TrimPrefix(strings.ToLower(b), "www.")
}
