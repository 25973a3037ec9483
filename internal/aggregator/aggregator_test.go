package aggregator

import (
	"testing"

	"github.com/sitelens/sitelens/pkg/seo"
)

func TestAggregateEmptyPages(t *testing.T) {
	s := Aggregate(&seo.Crawl{}, nil)
	if s.TotalPages != 0 {
		t.Errorf("expected 0 total pages, got %d", s.TotalPages)
	}
}

func TestAggregateExcludesRedirectsFromContentMetrics(t *testing.T) {
	pages := []*seo.PageRecord{
		{URL: "https://e.x/a", StatusCode: 200, Score: 80, Title: "A"},
		{URL: "https://e.x/b", StatusCode: 301, RedirectTarget: "https://e.x/a", Score: 0},
	}
	s := Aggregate(&seo.Crawl{}, pages)
	if s.TotalPages != 2 {
		t.Fatalf("expected 2 total pages, got %d", s.TotalPages)
	}
	if s.AvgScore != 80 {
		t.Errorf("expected avg score 80 (redirect excluded), got %v", s.AvgScore)
	}
	if len(s.StatusCodeBreakdown) != 2 {
		t.Errorf("expected both status codes in breakdown, got %+v", s.StatusCodeBreakdown)
	}
}

func TestAggregateDuplicateTitles(t *testing.T) {
	pages := []*seo.PageRecord{
		{URL: "https://e.x/a", StatusCode: 200, Title: "Same Title"},
		{URL: "https://e.x/b", StatusCode: 200, Title: "Same Title"},
		{URL: "https://e.x/c", StatusCode: 200, Title: "Unique Title"},
	}
	s := Aggregate(&seo.Crawl{}, pages)
	if len(s.DuplicateTitles) != 1 {
		t.Fatalf("expected 1 duplicate title group, got %+v", s.DuplicateTitles)
	}
	if s.DuplicateTitles[0].Count != 2 {
		t.Errorf("expected count 2, got %d", s.DuplicateTitles[0].Count)
	}
}

func TestAggregateIssueSeverityCounts(t *testing.T) {
	pages := []*seo.PageRecord{
		{
			URL:        "https://e.x/a",
			StatusCode: 200,
			Issues: []seo.Issue{
				{Severity: seo.SeverityCritical, Type: "missing_title", Message: "no title"},
				{Severity: seo.SeverityWarning, Type: "short_title", Message: "too short"},
				{Severity: seo.SeverityInfo, Type: "no_schema_markup", Message: "no schema"},
			},
		},
	}
	s := Aggregate(&seo.Crawl{}, pages)
	if s.CriticalIssues != 1 || s.Warnings != 1 || s.InfoIssues != 1 {
		t.Errorf("got critical=%d warnings=%d info=%d", s.CriticalIssues, s.Warnings, s.InfoIssues)
	}
	if len(s.IssueGroups) != 3 {
		t.Fatalf("expected 3 issue groups, got %+v", s.IssueGroups)
	}
	if s.IssueGroups[0].Severity != "critical" {
		t.Errorf("expected critical group sorted first, got %+v", s.IssueGroups[0])
	}
}

func TestAggregateMissingAltRollup(t *testing.T) {
	pages := []*seo.PageRecord{
		{URL: "https://e.x/a", StatusCode: 200, TotalImages: 3, ImagesWithoutAlt: 2, ImagesWithoutAltURLs: []string{"https://e.x/img1.png"}},
	}
	s := Aggregate(&seo.Crawl{}, pages)
	if len(s.PagesMissingAlt) != 1 || s.TotalImagesMissingAlt != 2 {
		t.Errorf("got %+v total=%d", s.PagesMissingAlt, s.TotalImagesMissingAlt)
	}
	if s.PagesMissingAlt[0].SampleImageURL != "https://e.x/img1.png" {
		t.Errorf("expected sample image URL carried through, got %q", s.PagesMissingAlt[0].SampleImageURL)
	}
}

func TestAggregateSlowPages(t *testing.T) {
	pages := []*seo.PageRecord{
		{URL: "https://e.x/a", StatusCode: 200, ResponseTime: 500},
		{URL: "https://e.x/b", StatusCode: 200, ResponseTime: 5000},
	}
	s := Aggregate(&seo.Crawl{}, pages)
	if len(s.SlowPages) != 1 || s.SlowPages[0].URL != "https://e.x/b" {
		t.Errorf("expected exactly the 5000ms page flagged slow, got %+v", s.SlowPages)
	}
}

func TestAggregateThinContentAndPlaceholders(t *testing.T) {
	pages := []*seo.PageRecord{
		{URL: "https://e.x/a", StatusCode: 200, WordCount: 120},
		{URL: "https://e.x/b", StatusCode: 200, WordCount: 500, HasPlaceholders: true, PlaceholderHits: []string{"lorem ipsum"}},
	}
	s := Aggregate(&seo.Crawl{}, pages)
	if len(s.ThinContentPages) != 1 || s.ThinContentPages[0].URL != "https://e.x/a" {
		t.Errorf("expected thin content flagged for page a, got %+v", s.ThinContentPages)
	}
	if len(s.PlaceholderPages) != 1 || s.PlaceholderPages[0].URL != "https://e.x/b" {
		t.Errorf("expected placeholder flagged for page b, got %+v", s.PlaceholderPages)
	}
}
