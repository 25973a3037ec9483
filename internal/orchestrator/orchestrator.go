// Package orchestrator runs one crawl end to end: startup (resolve the
// start URL, fetch robots.txt and sitemaps, seed the queue), a worker pool
// that fetches/classifies/analyzes/stores pages and discovers new links,
// and the pending/running/paused/stopped/completed/failed state machine.
//
// Grounded on the teacher's internal/crawler/manager.go (Manager: worker
// pool over a buffered channel, atomic pending counter, context-cancel
// shutdown) generalized per spec §4.5 using the original's CrawlEngine
// (backend/app/crawler/engine.py) for the state machine, redirect handling,
// and termination behavior the teacher's simpler manager does not have.
package orchestrator

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/sitelens/sitelens/internal/analyzer"
	"github.com/sitelens/sitelens/internal/graph"
	"github.com/sitelens/sitelens/internal/httpx"
	"github.com/sitelens/sitelens/internal/metrics"
	"github.com/sitelens/sitelens/internal/robots"
	"github.com/sitelens/sitelens/internal/sitemap"
	"github.com/sitelens/sitelens/internal/store"
	"github.com/sitelens/sitelens/internal/urlnorm"
	"github.com/sitelens/sitelens/pkg/seo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxPages is the hard ceiling on Page Records created per crawl
	// (spec §4.5 "Resource limits").
	MaxPages = 10000

	// Concurrency is the default worker pool size (spec §4.5, §5).
	Concurrency = 10

	// FetchTimeout bounds each page fetch (spec §5).
	FetchTimeout = 15 * time.Second

	// WallClockBudget is the crawl-wide timeout after which remaining
	// workers are cancelled (spec §4.5 "7200s wall-clock budget").
	WallClockBudget = 7200 * time.Second

	// visitedShards is the number of sync.Mutex-guarded buckets the
	// visited-key set is split across (spec §4.5 "sharded visited set").
	visitedShards = 32

	// maxBodyBytes caps how much of a single response body is read into
	// memory for analysis (spec §4.5 "Resource limits").
	maxBodyBytes = 5 << 20 // 5 MiB

	userAgent = "SitelensBot/1.0 (+https://sitelens.example/bot)"
)

// Config controls one crawl run. Zero values fall back to the package
// defaults above.
type Config struct {
	Concurrency   int
	MaxPages      int
	RespectRobots bool
	WallClock     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = Concurrency
	}
	if c.MaxPages <= 0 {
		c.MaxPages = MaxPages
	}
	if c.WallClock <= 0 {
		c.WallClock = WallClockBudget
	}
	return c
}

// visitedSet is a fixed-width sharded set of dedup keys. Each shard holds
// its own lock so test-and-insert stays a single critical section per key
// while unrelated keys never contend (spec §4.5, §5).
type visitedSet struct {
	shards [visitedShards]struct {
		mu   sync.Mutex
		seen map[string]bool
	}
}

func newVisitedSet() *visitedSet {
	v := &visitedSet{}
	for i := range v.shards {
		v.shards[i].seen = make(map[string]bool)
	}
	return v
}

func (v *visitedSet) shardFor(key string) *struct {
	mu   sync.Mutex
	seen map[string]bool
} {
	idx := xxhash.Sum64String(key) % visitedShards
	return &v.shards[idx]
}

// TestAndSet reports whether key was already present, atomically marking
// it visited if not (the single lock-held-across-test-and-insert the spec
// requires).
func (v *visitedSet) TestAndSet(key string) (alreadyVisited bool) {
	shard := v.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	if shard.seen[key] {
		return true
	}
	shard.seen[key] = true
	return false
}

func (v *visitedSet) Contains(key string) bool {
	shard := v.shardFor(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	return shard.seen[key]
}

func (v *visitedSet) Len() int {
	total := 0
	for i := range v.shards {
		v.shards[i].mu.Lock()
		total += len(v.shards[i].seen)
		v.shards[i].mu.Unlock()
	}
	return total
}

func (v *visitedSet) Preload(keys []string) {
	for _, k := range keys {
		v.TestAndSet(k)
	}
}

// Engine runs a single crawl. It is created, run once, and discarded; a
// resumed crawl constructs a fresh Engine and preloads its visited set.
type Engine struct {
	crawlID int64
	runID   uuid.UUID
	store   store.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	cfg     Config

	baseURL string
	domain  string

	robotsPolicy *robots.Policy
	linkGraph    *graph.Graph

	visited     *visitedSet
	pagesCount  atomic.Int32
	queue       chan string
	pendingJobs atomic.Int64

	mu         sync.Mutex
	status     seo.Status
	pauseGate  chan struct{}
	stopSignal chan struct{}
	stopped    atomic.Bool
}

// New creates an Engine bound to one crawl row. startURL must already be
// normalized by the caller. m may be nil, in which case metrics recording
// is skipped (tests exercising the Engine directly need no registry).
func New(crawlID int64, startURL string, st store.Store, logger *zap.Logger, m *metrics.Metrics, cfg Config) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		crawlID:      crawlID,
		runID:        uuid.New(),
		store:        st,
		logger:       logger,
		metrics:      m,
		cfg:          cfg,
		baseURL:      startURL,
		visited:      newVisitedSet(),
		queue:        make(chan string, cfg.MaxPages),
		status:       seo.StatusPending,
		robotsPolicy: robots.New(userAgent, cfg.RespectRobots, logger),
		linkGraph:    graph.NewGraph(crawlID),
		stopSignal:   make(chan struct{}),
	}
	e.pauseGate = e.newOpenGate()
	return e
}

// newOpenGate returns a closed channel representing "not paused" — workers
// select on it and proceed immediately since a closed channel never blocks.
// Pausing swaps in a fresh, unclosed channel; resuming closes it. This is
// the Go translation of the original's asyncio.Event used as a broadcast
// gate (spec §5, §9).
func (e *Engine) newOpenGate() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// Status returns the engine's current lifecycle state.
func (e *Engine) Status() seo.Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Pause transitions running -> paused. No-op from any other state.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != seo.StatusRunning {
		return
	}
	e.status = seo.StatusPaused
	e.pauseGate = make(chan struct{}) // unclosed: workers now block
}

// Resume transitions paused -> running, reopening the pause gate.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != seo.StatusPaused {
		return
	}
	e.status = seo.StatusRunning
	close(e.pauseGate)
}

// Stop transitions running or paused -> stopped. Workers exit cleanly on
// their next queue receive or pause-gate wait.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.status != seo.StatusRunning && e.status != seo.StatusPaused {
		e.mu.Unlock()
		return
	}
	wasPaused := e.status == seo.StatusPaused
	e.status = seo.StatusStopped
	if wasPaused {
		close(e.pauseGate) // unblock paused workers so they can exit
	}
	e.mu.Unlock()

	if e.stopped.CompareAndSwap(false, true) {
		close(e.stopSignal)
	}
}

func (e *Engine) gate() chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pauseGate
}

// waitForGate blocks until the pause gate is open or the crawl is stopped.
func (e *Engine) waitForGate(ctx context.Context) bool {
	for {
		select {
		case <-e.stopSignal:
			return false
		case <-ctx.Done():
			return false
		case <-e.gate():
			if e.Status() != seo.StatusPaused {
				return true
			}
		}
	}
}

// PreloadVisited seeds the visited set from already-saved Page Record URLs,
// used by "resume from stopped" (spec §4.5 state machine).
func (e *Engine) PreloadVisited(urls []string) {
	keys := make([]string, 0, len(urls))
	for _, u := range urls {
		if k, err := urlnorm.Key(u); err == nil {
			keys = append(keys, k)
		}
	}
	e.visited.Preload(keys)
	e.pagesCount.Store(int32(len(keys)))
}

// Run executes the crawl to completion: startup, worker pool, termination.
// Blocks until the crawl reaches a terminal state.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	e.status = seo.StatusRunning
	e.mu.Unlock()

	e.logger.Info("engine run starting", zap.String("run_id", e.runID.String()))

	now := time.Now().UTC()
	running := seo.StatusRunning
	e.store.UpdateCrawl(ctx, e.crawlID, store.CrawlPatch{Status: &running, StartedAt: &now})

	if err := e.startup(ctx); err != nil {
		e.finish(ctx, seo.StatusFailed)
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.WallClock)
	defer cancel()

	group, groupCtx := errgroup.WithContext(runCtx)
	for i := 0; i < e.cfg.Concurrency; i++ {
		group.Go(func() error {
			e.worker(groupCtx)
			return nil
		})
	}
	group.Wait()

	finalStatus := seo.StatusCompleted
	if e.Status() == seo.StatusStopped {
		finalStatus = seo.StatusStopped
	}
	e.finish(ctx, finalStatus)
	return nil
}

func (e *Engine) finish(ctx context.Context, final seo.Status) {
	e.mu.Lock()
	e.status = final
	e.mu.Unlock()

	completed := time.Now().UTC()
	count := int(e.pagesCount.Load())
	e.store.UpdateCrawl(ctx, e.crawlID, store.CrawlPatch{
		Status:       &final,
		CompletedAt:  &completed,
		PagesCrawled: &count,
		PagesTotal:   &count,
	})

	e.logger.Info("engine run finished",
		zap.String("status", string(final)),
		zap.Int("pages", count),
		zap.Int("link_graph_nodes", e.linkGraph.NodeCount()),
		zap.Int("link_graph_edges", e.linkGraph.EdgeCount()),
	)
}

// startup resolves the effective start URL, fetches robots.txt and
// sitemaps, and seeds the queue (spec §4.5 "Startup").
func (e *Engine) startup(ctx context.Context) error {
	resolved, domain := e.resolveStartURL(ctx)
	e.baseURL = resolved
	e.domain = domain

	e.robotsPolicy.Fetch(ctx, e.baseURL)
	robotsStatus := e.robotsPolicy.Status()
	robotsContent := e.robotsPolicy.RawContent()
	e.store.UpdateCrawl(ctx, e.crawlID, store.CrawlPatch{
		RobotsTxtStatus:  &robotsStatus,
		RobotsTxtContent: &robotsContent,
		EffectiveBaseURL: &e.baseURL,
	})

	discoverer := sitemap.New(e.logger)
	result := discoverer.Discover(ctx, e.baseURL, robotsContent)
	e.store.UpdateCrawl(ctx, e.crawlID, store.CrawlPatch{SitemapsFound: result.Sitemaps})

	if key, err := urlnorm.Key(e.baseURL); err == nil {
		if !e.visited.Contains(key) {
			e.enqueue(e.baseURL)
		}
	}
	for _, u := range result.URLs {
		if int(e.pagesCount.Load())+int(e.pendingJobs.Load()) >= e.cfg.MaxPages {
			break
		}
		if !urlnorm.SameHost(u, e.baseURL) {
			continue
		}
		e.enqueue(u)
	}
	return nil
}

// resolveStartURL follows redirects on the starting URL to discover the
// real base domain (e.g. www.example.com -> example.com), matching the
// original's _resolve_start_url.
func (e *Engine) resolveStartURL(ctx context.Context) (resolvedURL, domain string) {
	client, _ := httpx.NewClient(FetchTimeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL, nil)
	if err != nil {
		host, _ := urlnorm.Host(e.baseURL)
		return e.baseURL, host
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		host, _ := urlnorm.Host(e.baseURL)
		e.logger.Warn("could not resolve start URL, using original", zap.Error(err))
		return e.baseURL, host
	}
	defer resp.Body.Close()

	finalURL := strings.TrimSuffix(resp.Request.URL.String(), "/")
	host, _ := urlnorm.Host(finalURL)
	return finalURL, host
}

func (e *Engine) enqueue(rawURL string) {
	key, err := urlnorm.Key(rawURL)
	if err != nil {
		return
	}
	if e.visited.Contains(key) {
		return
	}
	if int(e.pagesCount.Load())+int(e.pendingJobs.Load()) >= e.cfg.MaxPages {
		return
	}
	if skippablePath(rawURL) {
		return
	}
	select {
	case e.queue <- rawURL:
		e.pendingJobs.Add(1)
		if e.metrics != nil {
			e.metrics.QueueDepth.Set(float64(len(e.queue)))
		}
	default:
		e.logger.Debug("queue full, dropping discovered URL", zap.String("url", rawURL))
	}
}

// worker pulls URLs off the queue until it drains, the crawl stops, or the
// context is cancelled (spec §4.5 "Work loop").
func (e *Engine) worker(ctx context.Context) {
	client, tracker := httpx.NewClient(FetchTimeout)

	for {
		if !e.waitForGate(ctx) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-e.stopSignal:
			return
		case url, ok := <-e.queue:
			if !ok {
				return
			}
			e.pendingJobs.Add(-1)
			e.processURL(ctx, client, tracker, url)

			if e.pendingJobs.Load() == 0 && len(e.queue) == 0 {
				return
			}
		case <-time.After(2 * time.Second):
			if e.pendingJobs.Load() == 0 && len(e.queue) == 0 {
				return
			}
		}
	}
}

// processURL fetches, classifies, analyzes (for 2xx HTML), and persists one
// URL, then discovers and enqueues its internal links (spec §4.5
// "Classification" and "URL discovery").
func (e *Engine) processURL(ctx context.Context, client *http.Client, tracker *httpx.RedirectTrackingTransport, rawURL string) {
	key, err := urlnorm.Key(rawURL)
	if err != nil {
		return
	}
	if e.visited.TestAndSet(key) {
		return
	}
	if int(e.pagesCount.Load()) >= e.cfg.MaxPages {
		return
	}

	if !e.robotsPolicy.IsAllowed(rawURL) {
		e.logger.Debug("blocked by robots.txt", zap.String("url", rawURL))
		return
	}

	tracker.Reset()
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		e.logger.Warn("request failed", zap.String("url", rawURL), zap.Error(err))
		if e.metrics != nil {
			e.metrics.PagesFailed.Inc()
		}
		return
	}
	defer resp.Body.Close()
	elapsed := time.Since(start)
	if e.metrics != nil {
		e.metrics.FetchDuration.Observe(elapsed.Seconds())
	}

	history := tracker.History()
	finalURL := strings.TrimSuffix(resp.Request.URL.String(), "/")
	wasRedirected := len(history) > 1

	if wasRedirected {
		finalHost, _ := urlnorm.Host(finalURL)
		if finalHost != e.domain {
			e.logger.Debug("redirect landed off-domain, skipping", zap.String("url", rawURL), zap.String("final", finalURL))
			return
		}

		finalKey, keyErr := urlnorm.Key(finalURL)
		sameLogicalPage := keyErr == nil && finalKey == key

		if !sameLogicalPage {
			firstStatus := tracker.FirstStatus()
			if firstStatus == 0 {
				firstStatus = http.StatusMovedPermanently
			}
			redirectRecord := &seo.PageRecord{
				URL:            rawURL,
				StatusCode:     firstStatus,
				ResponseTime:   elapsed.Milliseconds(),
				RedirectTarget: finalURL,
			}
			e.savePage(ctx, redirectRecord)

			if keyErr == nil && e.visited.TestAndSet(finalKey) {
				e.updateProgress(ctx)
				return
			}
		}
	}

	analyzeURL := rawURL
	if wasRedirected {
		analyzeURL = finalURL
	}

	if resp.StatusCode >= 400 {
		errRecord := &seo.PageRecord{
			URL:          analyzeURL,
			StatusCode:   resp.StatusCode,
			ResponseTime: elapsed.Milliseconds(),
			ContentType:  resp.Header.Get("Content-Type"),
		}
		e.savePage(ctx, errRecord)
		e.updateProgress(ctx)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return
	}

	body := readBody(resp)
	rec := analyzer.Analyze(analyzeURL, body, resp.StatusCode, elapsed)
	rec.ContentType = contentType
	rec.CrawledAt = time.Now().UTC()

	if e.metrics != nil {
		e.metrics.RecordIssues(severityCounts(rec.Issues))
	}

	e.savePage(ctx, rec)
	e.updateProgress(ctx)
	e.discoverLinks(body, analyzeURL)
}

// severityCounts tallies a page's issues by severity for the per-crawl
// issues_total metric (spec §4.6 severity map, mirrored per-page here
// rather than only at aggregation time).
func severityCounts(issues []seo.Issue) map[string]int {
	counts := make(map[string]int, 3)
	for _, issue := range issues {
		counts[string(issue.Severity)]++
	}
	return counts
}

func (e *Engine) savePage(ctx context.Context, rec *seo.PageRecord) {
	if err := e.store.CreatePageRecord(ctx, e.crawlID, rec); err != nil {
		e.logger.Error("store write failed", zap.String("url", rec.URL), zap.Error(err))
		return
	}
	e.pagesCount.Add(1)
	if e.metrics != nil {
		e.metrics.PagesCrawled.Inc()
	}
}

func (e *Engine) updateProgress(ctx context.Context) {
	count := int(e.pagesCount.Load())
	e.store.UpdateCrawl(ctx, e.crawlID, store.CrawlPatch{PagesCrawled: &count})
}

func (e *Engine) discoverLinks(html []byte, pageURL string) {
	doc, err := parseLinks(html)
	if err != nil {
		return
	}
	for _, href := range doc {
		if skippableHref(href) {
			continue
		}
		resolved, err := urlnorm.ResolveForQueue(pageURL, href)
		if err != nil {
			continue
		}
		if !urlnorm.IsHTTPLike(resolved) {
			continue
		}
		if !urlnorm.SameHost(resolved, e.baseURL) {
			continue
		}
		e.linkGraph.AddEdge(pageURL, resolved)
		e.enqueue(resolved)
	}
}

// LinkGraph returns the internal link graph discovered so far: a directed
// edge pageURL -> resolved for every same-host link found during the
// crawl. Safe to call concurrently with a running crawl.
func (e *Engine) LinkGraph() *graph.Graph {
	return e.linkGraph
}

// RunID returns the process-local trace ID for this Engine instance,
// distinct from the DB-backed crawl ID: a crawl can be resumed across
// several Engine instances (see Registry.Resume), each getting its own
// RunID for correlating log lines to one in-memory run.
func (e *Engine) RunID() uuid.UUID {
	return e.runID
}

func skippableHref(href string) bool {
	return strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "data:")
}

// skipExtensions is the fixed catalogue of non-HTML file extensions a link's
// path must not match to be enqueued (spec §4.5 "URL discovery").
var skipExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".rtf": true, ".csv": true, ".txt": true,
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
	".webp": true, ".bmp": true, ".tiff": true, ".ico": true, ".avif": true,
	".js": true, ".mjs": true, ".css": true, ".map": true,
	".xml": true, ".json": true, ".rss": true, ".atom": true,
	".zip": true, ".rar": true, ".gz": true, ".tar": true, ".7z": true,
	".woff": true, ".woff2": true, ".ttf": true, ".eot": true, ".otf": true,
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wmv": true,
	".flv": true, ".webm": true, ".wav": true, ".ogg": true,
	".exe": true, ".dmg": true, ".apk": true, ".iso": true, ".bin": true,
}

// skipPathPrefixes is the fixed catalogue of path prefixes a link must not
// match to be enqueued (spec §4.5 "URL discovery").
var skipPathPrefixes = []string{"/wp-json", "/feed", "/wp-admin", "/api/", "/xmlrpc.php"}

// skippablePath reports whether resolved's path matches the non-HTML
// extension catalogue or a blocked path prefix, and so should never be
// fetched even though it is same-host and not yet visited.
func skippablePath(resolved string) bool {
	u, err := url.Parse(resolved)
	if err != nil {
		return false
	}
	urlPath := strings.ToLower(u.Path)

	if ext := path.Ext(urlPath); skipExtensions[ext] {
		return true
	}
	for _, prefix := range skipPathPrefixes {
		if strings.HasPrefix(urlPath, prefix) {
			return true
		}
	}
	return false
}

// parseLinks extracts every link-bearing href/src from an HTML document,
// used for link discovery after a page is analyzed (spec §4.5 "URL
// discovery from a fetched page"): <a href>, <link rel=alternate|canonical
// href>, <area href>, and <iframe src>.
func parseLinks(html []byte) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return nil, err
	}
	var hrefs []string
	collect := func(selector, attr string) {
		doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr(attr); ok {
				hrefs = append(hrefs, v)
			}
		})
	}
	collect("a[href]", "href")
	collect("link[rel=alternate][href]", "href")
	collect("link[rel=canonical][href]", "href")
	collect("area[href]", "href")
	collect("iframe[src]", "src")
	return hrefs, nil
}

// readBody reads and caps the response body so a single oversized page
// cannot exhaust worker memory (spec §4.5 "Resource limits").
func readBody(resp *http.Response) []byte {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil
	}
	return body
}
