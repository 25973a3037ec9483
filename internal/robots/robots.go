// Package robots fetches and evaluates robots.txt for one crawl: the
// gating question ("is this path allowed for our user agent?") plus a
// reporting-only mode that checks access for a fixed catalogue of
// well-known bots.
//
// Grounded on the teacher's internal/crawler/robots.go (RobotsChecker,
// temoto/robotstxt FindGroup/Test) generalized per spec §4.3: per-domain
// caching stays, but the teacher's single-agent check grows a catalogue
// reporting mode and the crawl-level fetch-once-per-crawl contract.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sitelens/sitelens/internal/httpx"
	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// FetchTimeout is the fixed robots.txt fetch timeout (spec §4.3, §5).
const FetchTimeout = 10 * time.Second

// Status values recorded on the owning Crawl.
const (
	StatusFound    = "found"
	StatusNotFound = "not_found"
	StatusBlocked  = "blocked"
)

// wellKnownBots is the fixed catalogue used by AccessReport. Reporting
// only — never gates crawling (spec §4.3).
var wellKnownBots = []string{
	"Googlebot",
	"Bingbot",
	"facebookexternalhit",
	"Twitterbot",
	"LinkedInBot",
	"GPTBot",
	"ClaudeBot",
	"AhrefsBot",
	"SemrushBot",
	"MJ12bot",
}

// AccessLevel is the reporting-only verdict for one well-known bot.
type AccessLevel string

const (
	AccessAllowed           AccessLevel = "allowed"
	AccessPartiallyBlocked  AccessLevel = "partially_blocked"
	AccessBlocked           AccessLevel = "blocked"
)

// Policy answers path-allow questions for one crawl's robots.txt, fetched
// once and cached for the crawl's lifetime.
type Policy struct {
	userAgent string
	honor     bool
	client    *http.Client
	logger    *zap.Logger

	mu      sync.RWMutex
	data    *robotstxt.RobotsData
	content string
	status  string
}

// New creates a Policy. honor=false makes IsAllowed always return true
// (the operator's ignore-robots flag, spec §4.5).
func New(userAgent string, honor bool, logger *zap.Logger) *Policy {
	return &Policy{
		userAgent: userAgent,
		honor:     honor,
		logger:    logger,
		client: &http.Client{
			Timeout: FetchTimeout,
			Transport: &http.Transport{
				TLSClientConfig: httpx.InsecureTLSConfig(),
			},
		},
	}
}

// Fetch retrieves and parses /robots.txt for baseURL once. Safe to call
// exactly once per crawl at startup (spec §4.5 "Startup").
func (p *Policy) Fetch(ctx context.Context, baseURL string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	robotsURL, err := joinRobotsURL(baseURL)
	if err != nil {
		p.status = StatusNotFound
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		p.status = StatusNotFound
		return
	}
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("robots.txt fetch failed", zap.String("url", robotsURL), zap.Error(err))
		p.status = StatusNotFound
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		p.status = StatusBlocked
		return
	}
	if resp.StatusCode != http.StatusOK {
		p.status = StatusNotFound
		return
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		p.status = StatusNotFound
		return
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		p.logger.Debug("robots.txt parse failed", zap.String("url", robotsURL), zap.Error(err))
		p.status = StatusNotFound
		return
	}

	p.data = data
	p.content = string(body)
	p.status = StatusFound
}

// Status reports the fetch outcome for the owning Crawl record.
func (p *Policy) Status() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.status == "" {
		return StatusNotFound
	}
	return p.status
}

// RawContent returns the robots.txt body fetched during Fetch, if any.
func (p *Policy) RawContent() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.content
}

// IsAllowed reports whether targetURL's path may be fetched by our own
// user agent. Always true if honor is false or no rules were parsed
// (empty disallow means allow everything, spec §4.3).
func (p *Policy) IsAllowed(targetURL string) bool {
	if !p.honor {
		return true
	}

	p.mu.RLock()
	data := p.data
	p.mu.RUnlock()
	if data == nil {
		return true
	}

	u, err := url.Parse(targetURL)
	if err != nil {
		return true
	}

	group := data.FindGroup(p.userAgent)
	return group.Test(u.Path)
}

// AccessReport evaluates every well-known bot in the catalogue against the
// fetched robots.txt. Reporting only — does not gate crawling.
func (p *Policy) AccessReport() map[string]AccessLevel {
	p.mu.RLock()
	data := p.data
	p.mu.RUnlock()

	report := make(map[string]AccessLevel, len(wellKnownBots))
	if data == nil {
		for _, bot := range wellKnownBots {
			report[bot] = AccessAllowed
		}
		return report
	}

	for _, bot := range wellKnownBots {
		group := data.FindGroup(bot)
		report[bot] = classifyAccess(group)
	}
	return report
}

// classifyAccess samples a handful of representative paths to decide
// whether a bot's group allows everything, blocks everything, or sits
// somewhere in between.
func classifyAccess(group *robotstxt.Group) AccessLevel {
	probes := []string{"/", "/index.html", "/blog", "/products", "/search"}
	allowed, blocked := 0, 0
	for _, path := range probes {
		if group.Test(path) {
			allowed++
		} else {
			blocked++
		}
	}
	switch {
	case blocked == 0:
		return AccessAllowed
	case allowed == 0:
		return AccessBlocked
	default:
		return AccessPartiallyBlocked
	}
}

func joinRobotsURL(baseURL string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s://%s/robots.txt", u.Scheme, u.Host), nil
}
