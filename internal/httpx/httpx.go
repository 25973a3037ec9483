// Package httpx provides the HTTP client shape the sitemap discoverer and
// the orchestrator's fetch layer share: TLS verification disabled (spec §6,
// to tolerate misconfigured certificates on audit targets), redirect
// history tracking, and a per-request timeout. The robots policy builds its
// own client and reuses only InsecureTLSConfig. No User-Agent is set here;
// callers set that header on each request.
//
// Grounded on the teacher's internal/crawler/fetcher.go
// (redirectTrackingTransport, CheckRedirect cap).
package httpx

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"
)

// InsecureTLSConfig returns a TLS config with verification disabled, per
// spec §6 ("TLS verification is disabled to tolerate misconfigured
// certificates on audit targets").
func InsecureTLSConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify: true}
}

// NewClient builds an http.Client with the fixed crawler shape: TLS
// verification off, redirects followed up to 10 hops, and the given
// timeout. The redirect history is captured on the returned
// *RedirectTrackingTransport so callers can tell whether a request hopped.
func NewClient(timeout time.Duration) (*http.Client, *RedirectTrackingTransport) {
	tracker := &RedirectTrackingTransport{
		Transport: &http.Transport{TLSClientConfig: InsecureTLSConfig()},
	}
	client := &http.Client{
		Timeout:   timeout,
		Transport: tracker,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}
	return client, tracker
}

// RedirectTrackingTransport records every URL visited across a redirect
// chain, and the status code each hop returned, so the caller can recover
// resp.History-equivalent data (net/http discards intermediate responses).
type RedirectTrackingTransport struct {
	Transport http.RoundTripper
	history   []string
	statuses  []int
}

func (t *RedirectTrackingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.history = append(t.history, req.URL.String())
	rt := t.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	resp, err := rt.RoundTrip(req)
	if resp != nil {
		t.statuses = append(t.statuses, resp.StatusCode)
	}
	return resp, err
}

// History returns every URL requested, in order, including the original
// and every intermediate redirect hop, since the last Reset. The
// orchestrator creates one client per worker, not per request, so it calls
// Reset before each Do and reads History after it.
func (t *RedirectTrackingTransport) History() []string {
	return t.history
}

// FirstStatus returns the status code of the first hop in the most recent
// request's redirect chain, used to record the real 301/302/307/308 on a
// redirect Page Record rather than assuming one value.
func (t *RedirectTrackingTransport) FirstStatus() int {
	if len(t.statuses) == 0 {
		return 0
	}
	return t.statuses[0]
}

// Reset clears the recorded history, called before each request so that
// request starts clean on a reused client.
func (t *RedirectTrackingTransport) Reset() {
	t.history = nil
	t.statuses = nil
}
