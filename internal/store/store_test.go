package store

import (
	"context"
	"testing"

	"github.com/sitelens/sitelens/pkg/seo"
)

func TestMemoryCreateAndGetCrawl(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	crawl := &seo.Crawl{ID: 1, StartURL: "https://e.x", Status: seo.StatusPending}
	if err := m.CreateCrawl(ctx, crawl); err != nil {
		t.Fatal(err)
	}

	got, err := m.GetCrawl(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got.StartURL != "https://e.x" {
		t.Errorf("got %q", got.StartURL)
	}
}

func TestMemoryGetCrawlNotFound(t *testing.T) {
	m := NewMemory()
	if _, err := m.GetCrawl(context.Background(), 999); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryUpdateCrawlPatch(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.CreateCrawl(ctx, &seo.Crawl{ID: 1, Status: seo.StatusPending})

	running := seo.StatusRunning
	crawled := 5
	if err := m.UpdateCrawl(ctx, 1, CrawlPatch{Status: &running, PagesCrawled: &crawled}); err != nil {
		t.Fatal(err)
	}

	got, _ := m.GetCrawl(ctx, 1)
	if got.Status != seo.StatusRunning || got.PagesCrawled != 5 {
		t.Errorf("got %+v", got)
	}
}

func TestMemoryPageRecordsRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.CreateCrawl(ctx, &seo.Crawl{ID: 1})

	m.CreatePageRecord(ctx, 1, &seo.PageRecord{URL: "https://e.x/a", StatusCode: 200})
	m.CreatePageRecord(ctx, 1, &seo.PageRecord{URL: "https://e.x/b", StatusCode: 200})

	urls, err := m.ListPageURLs(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %v", urls)
	}

	records, err := m.ListPageRecords(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	// Mutating a returned record must not affect store state (defensive copy).
	records[0].Title = "mutated"
	fresh, _ := m.ListPageRecords(ctx, 1)
	if fresh[0].Title == "mutated" {
		t.Error("store leaked internal page record pointer")
	}
}
