package sqlgorm

import (
	"context"
	"testing"
	"time"

	"github.com/sitelens/sitelens/internal/store"
	"github.com/sitelens/sitelens/pkg/seo"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return s
}

func TestProjectRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	project := &seo.Project{ID: 1, Name: "Example Site", URL: "https://example.com", CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	if err := s.CreateProject(ctx, project); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	got, err := s.GetProject(ctx, 1)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Name != "Example Site" || got.URL != "https://example.com" {
		t.Errorf("unexpected project: %+v", got)
	}

	if _, err := s.GetProject(ctx, 999); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound for unknown project, got %v", err)
	}
}

func TestCrawlRoundTripWithSitemaps(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	crawl := &seo.Crawl{
		ProjectID: 1,
		StartURL:  "https://example.com",
		Status:    seo.StatusPending,
		SitemapsFound: []seo.SitemapDescriptor{
			{URL: "https://example.com/sitemap.xml", Type: "sitemap", Status: "found", URLsCount: 42},
		},
	}
	if err := s.CreateCrawl(ctx, crawl); err != nil {
		t.Fatalf("CreateCrawl: %v", err)
	}
	if crawl.ID == 0 {
		t.Fatal("expected CreateCrawl to populate ID")
	}

	status := seo.StatusRunning
	pagesCrawled := 5
	if err := s.UpdateCrawl(ctx, crawl.ID, store.CrawlPatch{Status: &status, PagesCrawled: &pagesCrawled}); err != nil {
		t.Fatalf("UpdateCrawl: %v", err)
	}

	got, err := s.GetCrawl(ctx, crawl.ID)
	if err != nil {
		t.Fatalf("GetCrawl: %v", err)
	}
	if got.Status != seo.StatusRunning || got.PagesCrawled != 5 {
		t.Errorf("unexpected crawl after patch: %+v", got)
	}
	if len(got.SitemapsFound) != 1 || got.SitemapsFound[0].URLsCount != 42 {
		t.Errorf("expected sitemap round trip, got %+v", got.SitemapsFound)
	}

	if err := s.UpdateCrawl(ctx, 999, store.CrawlPatch{}); err != store.ErrNotFound {
		t.Errorf("expected ErrNotFound updating unknown crawl, got %v", err)
	}
}

func TestPageRecordRoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	crawl := &seo.Crawl{ProjectID: 1, StartURL: "https://example.com", Status: seo.StatusRunning}
	if err := s.CreateCrawl(ctx, crawl); err != nil {
		t.Fatalf("CreateCrawl: %v", err)
	}

	record := &seo.PageRecord{
		URL:                  "https://example.com/",
		StatusCode:           200,
		Title:                "Example Home",
		H1Texts:              []string{"Welcome"},
		ImagesWithoutAltURLs: []string{"https://example.com/a.png"},
		SchemaTypes:          []string{"Organization"},
		HreflangEntries:      []seo.HreflangEntry{{Lang: "en", Href: "https://example.com/"}},
		CanonicalIssues:      []string{seo.CanonicalMissing},
		Issues: []seo.Issue{
			{Severity: seo.SeverityCritical, Type: "missing_title", Message: "no title"},
		},
		Score: 72,
	}
	if err := s.CreatePageRecord(ctx, crawl.ID, record); err != nil {
		t.Fatalf("CreatePageRecord: %v", err)
	}

	urls, err := s.ListPageURLs(ctx, crawl.ID)
	if err != nil {
		t.Fatalf("ListPageURLs: %v", err)
	}
	if len(urls) != 1 || urls[0] != "https://example.com/" {
		t.Errorf("unexpected urls: %+v", urls)
	}

	records, err := s.ListPageRecords(ctx, crawl.ID)
	if err != nil {
		t.Fatalf("ListPageRecords: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if got.Title != "Example Home" || got.Score != 72 {
		t.Errorf("unexpected record: %+v", got)
	}
	if len(got.H1Texts) != 1 || got.H1Texts[0] != "Welcome" {
		t.Errorf("expected H1Texts round trip, got %+v", got.H1Texts)
	}
	if len(got.HreflangEntries) != 1 || got.HreflangEntries[0].Lang != "en" {
		t.Errorf("expected HreflangEntries round trip, got %+v", got.HreflangEntries)
	}
	if len(got.Issues) != 1 || got.Issues[0].Type != "missing_title" {
		t.Errorf("expected Issues round trip, got %+v", got.Issues)
	}
}
