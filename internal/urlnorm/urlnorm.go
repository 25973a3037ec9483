// Package urlnorm canonicalizes URL strings and derives the deduplication
// key used to decide whether two URLs are the same logical page.
//
// Generalized from the teacher's internal/utils/url.go (NormalizeURL,
// ExtractDomain, IsSameDomain, ResolveURL) into the two-form model spec §3
// and §4.1 require: a verbatim canonical form plus a lossy dedup key.
package urlnorm

import (
	"errors"
	"net/url"
	"strings"
)

var (
	// ErrUnparseable is returned for any input net/url cannot parse.
	ErrUnparseable = errors.New("urlnorm: unparseable URL")
)

// Join resolves a relative URL against a base URL and returns the
// canonical (verbatim, server-facing) form with any fragment stripped; the
// query is kept. The analyzer resolves link hrefs with it and the sitemap
// discoverer builds its probe URLs with it; the orchestrator's queue uses
// ResolveForQueue instead.
func Join(base, relative string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", ErrUnparseable
	}
	rel, err := url.Parse(relative)
	if err != nil {
		return "", ErrUnparseable
	}
	resolved := baseURL.ResolveReference(rel)
	resolved.Fragment = ""
	return resolved.String(), nil
}

// ResolveForQueue resolves a relative URL against a base URL and strips
// both the query and fragment, matching the orchestrator's URL-discovery
// rule (spec §4.5: "drop the query and fragment for enqueuing"). Use Join
// instead when the query string must survive (e.g. resolving a canonical
// or hreflang href for display/comparison).
func ResolveForQueue(base, relative string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", ErrUnparseable
	}
	rel, err := url.Parse(relative)
	if err != nil {
		return "", ErrUnparseable
	}
	resolved := baseURL.ResolveReference(rel)
	resolved.Fragment = ""
	resolved.RawQuery = ""
	return resolved.String(), nil
}

// Canonical strips the fragment from an absolute URL string, round-tripping
// it through net/url so that Join(base, Canonical(u)) == Canonical(u).
func Canonical(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrUnparseable
	}
	u.Fragment = ""
	return u.String(), nil
}

// Key computes the lossy deduplication key for a URL: lowercased scheme and
// host with a leading "www." stripped and the default port for the scheme
// dropped, path with any trailing "/" removed, fragment and query dropped.
// Two URLs with the same key are considered the same logical page (spec §3).
func Key(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrUnparseable
	}
	if u.Host == "" {
		return "", ErrUnparseable
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")

	port := u.Port()
	if port != "" && !isDefaultPort(scheme, port) {
		host = host + ":" + port
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}

	return scheme + "://" + host + path, nil
}

func isDefaultPort(scheme, port string) bool {
	switch scheme {
	case "http":
		return port == "80"
	case "https":
		return port == "443"
	default:
		return false
	}
}

// Host returns the lowercased, www-stripped host of a URL, with a
// non-default port kept, matching the normalization Key applies, so callers can compare against an effective
// base domain without computing the full key.
func Host(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrUnparseable
	}
	if u.Host == "" {
		return "", ErrUnparseable
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	if port := u.Port(); port != "" && !isDefaultPort(strings.ToLower(u.Scheme), port) {
		host = host + ":" + port
	}
	return host, nil
}

// SameHost reports whether two URLs normalize to the same effective host
// (scheme ignored, leading www. stripped on both sides).
func SameHost(a, b string) bool {
	ha, err := Host(a)
	if err != nil {
		return false
	}
	hb, err := Host(b)
	if err != nil {
		return false
	}
	return ha == hb
}

// IsHTTPLike reports whether a URL uses the http or https scheme, used to
// filter out mailto:, tel:, javascript:, data: and similar non-fetchable
// schemes before enqueuing or classifying a link.
func IsHTTPLike(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
