// Package aggregator rolls up a crawl's Page Records into the Crawl
// Summary returned to operators: average score, issue counts and groups,
// duplicate title/meta clusters, status code breakdown, and per-signal
// rollups (canonical, noindex/nofollow, images, hreflang, thin content).
//
// Grounded on the original's get_crawl_summary (backend/app/api/routes.py):
// every rollup, threshold, and exclusion rule below is a direct port of
// that function's pass over a crawl's pages.
package aggregator

import (
	"sort"

	"github.com/sitelens/sitelens/pkg/seo"
)

const (
	slowPageThresholdMS = 3000
	thinContentWords    = 300
	lowTextRatio        = 10.0
	issueGroupCap       = 50
)

// PageRef identifies one page within a grouped listing.
type PageRef struct {
	URL    string `json:"url"`
	PageID int64  `json:"page_id,omitempty"`
}

// DuplicateGroup is a set of pages sharing the same title or meta
// description.
type DuplicateGroup struct {
	Value string    `json:"value"`
	Pages []PageRef `json:"pages"`
	Count int       `json:"count"`
}

// StatusCodeGroup buckets pages by HTTP status code.
type StatusCodeGroup struct {
	StatusCode int       `json:"status_code"`
	Count      int       `json:"count"`
	Pages      []PageRef `json:"pages"`
}

// CanonicalIssueEntry is one page with at least one canonical problem.
type CanonicalIssueEntry struct {
	URL          string   `json:"url"`
	CanonicalURL string   `json:"canonical_url"`
	Issues       []string `json:"issues"`
}

// AltIssueEntry is one page with images missing or carrying empty alt text.
type AltIssueEntry struct {
	URL            string `json:"url"`
	Count          int    `json:"count"`
	TotalImages    int    `json:"total_images"`
	SampleImageURL string `json:"sample_image_url,omitempty"`
}

// HreflangIssueEntry is one page with hreflang problems.
type HreflangIssueEntry struct {
	URL     string               `json:"url"`
	Issues  []string             `json:"issues"`
	Entries []seo.HreflangEntry  `json:"entries"`
}

// ContentIssueEntry is one page flagged for thin content, a low
// code-to-text ratio, or placeholder text.
type ContentIssueEntry struct {
	URL        string   `json:"url"`
	WordCount  int      `json:"word_count,omitempty"`
	Ratio      float64  `json:"ratio,omitempty"`
	Placeholders []string `json:"placeholders,omitempty"`
}

// SlowPageEntry is one page whose response time exceeded the slow-page
// threshold.
type SlowPageEntry struct {
	URL          string `json:"url"`
	ResponseTime int64  `json:"response_time_ms"`
}

// IssueGroup is one category's worth of occurrences across the crawl, used
// to render the grouped-issues table.
type IssueGroup struct {
	Category string    `json:"category"`
	Severity string    `json:"severity"`
	Count    int        `json:"count"`
	Pages    []IssueOccurrence `json:"pages"`
}

// IssueOccurrence is one instance of an issue on one page.
type IssueOccurrence struct {
	URL    string `json:"url"`
	Detail string `json:"detail"`
}

// Summary is the Crawl Summary returned to operators (spec §4.6).
type Summary struct {
	TotalPages     int     `json:"total_pages"`
	AvgScore       float64 `json:"avg_score"`
	CriticalIssues int     `json:"critical_issues"`
	Warnings       int     `json:"warnings"`
	InfoIssues     int     `json:"info_issues"`

	DuplicateTitles            []DuplicateGroup `json:"duplicate_titles"`
	DuplicateMetaDescriptions  []DuplicateGroup `json:"duplicate_meta_descriptions"`

	StatusCodeBreakdown []StatusCodeGroup `json:"status_code_breakdown"`

	CanonicalIssues []CanonicalIssueEntry `json:"canonical_issues"`

	NoindexPages  []PageRef `json:"noindex_pages"`
	NofollowPages []PageRef `json:"nofollow_pages"`

	PagesMissingAlt       []AltIssueEntry `json:"pages_missing_alt"`
	TotalImagesMissingAlt int              `json:"total_images_missing_alt"`
	PagesEmptyAlt         []AltIssueEntry `json:"pages_empty_alt"`
	TotalImagesEmptyAlt   int              `json:"total_images_empty_alt"`

	HreflangIssues []HreflangIssueEntry `json:"hreflang_issues"`

	ThinContentPages  []ContentIssueEntry `json:"thin_content_pages"`
	LowTextRatioPages []ContentIssueEntry `json:"low_text_ratio_pages"`
	PlaceholderPages  []ContentIssueEntry `json:"placeholder_pages"`

	PagesMissingTitle    int `json:"pages_missing_title"`
	PagesMissingMeta     int `json:"pages_missing_meta"`
	PagesMissingH1       int `json:"pages_missing_h1"`
	PagesMissingViewport int `json:"pages_missing_viewport"`

	AvgResponseTimeMS float64         `json:"avg_response_time_ms"`
	SlowPages         []SlowPageEntry `json:"slow_pages"`

	RobotsTxtStatus string                  `json:"robots_txt_status"`
	SitemapsFound   []seo.SitemapDescriptor `json:"sitemaps_found"`

	PagesWithoutSchema    int `json:"pages_without_schema"`
	PagesMissingCanonical int `json:"pages_missing_canonical"`

	IssueGroups []IssueGroup `json:"issue_groups"`
}

// severityRank orders severities for the issue-group sort: critical first,
// then warning, then info, then anything unrecognized.
var severityRank = map[string]int{
	string(seo.SeverityCritical): 0,
	string(seo.SeverityWarning):  1,
	string(seo.SeverityInfo):     2,
}

// Aggregate computes the Crawl Summary from a crawl's stored state and its
// Page Records. Returns a zero Summary with TotalPages 0 if pages is empty;
// callers decide whether that is an error (the original returns 404).
func Aggregate(crawl *seo.Crawl, pages []*seo.PageRecord) Summary {
	var s Summary
	s.TotalPages = len(pages)
	if len(pages) == 0 {
		return s
	}

	if crawl != nil {
		s.RobotsTxtStatus = crawl.RobotsTxtStatus
		s.SitemapsFound = crawl.SitemapsFound
	}

	var contentPages []*seo.PageRecord
	for _, p := range pages {
		if p.IsContentPage() {
			contentPages = append(contentPages, p)
		}
	}
	contentTotal := len(contentPages)
	if contentTotal == 0 {
		contentTotal = 1
	}

	scoreSum := 0
	for _, p := range contentPages {
		scoreSum += p.Score
	}
	s.AvgScore = round1(float64(scoreSum) / float64(contentTotal))

	issueOccurrences := make(map[string][]IssueOccurrence)
	for _, p := range contentPages {
		for _, issue := range p.Issues {
			switch issue.Severity {
			case seo.SeverityCritical:
				s.CriticalIssues++
			case seo.SeverityWarning:
				s.Warnings++
			case seo.SeverityInfo:
				s.InfoIssues++
			}
			itype := issue.Type
			if itype == "" {
				itype = "unknown"
			}
			issueOccurrences[itype] = append(issueOccurrences[itype], IssueOccurrence{
				URL:    p.URL,
				Detail: issue.Message,
			})
		}
	}
	for _, p := range pages {
		if !p.IsRedirectPage() {
			continue
		}
		for _, issue := range p.Issues {
			if issue.Type != "redirect" {
				continue
			}
			s.Warnings++
			issueOccurrences["redirect"] = append(issueOccurrences["redirect"], IssueOccurrence{
				URL:    p.URL,
				Detail: issue.Message,
			})
		}
	}

	s.DuplicateTitles = duplicateGroups(contentPages, func(p *seo.PageRecord) string { return p.Title })
	s.DuplicateMetaDescriptions = duplicateGroups(contentPages, func(p *seo.PageRecord) string { return p.MetaDescription })

	s.StatusCodeBreakdown = statusCodeBreakdown(pages)

	for _, p := range contentPages {
		if len(p.CanonicalIssues) > 0 {
			s.CanonicalIssues = append(s.CanonicalIssues, CanonicalIssueEntry{
				URL:          p.URL,
				CanonicalURL: p.CanonicalURL,
				Issues:       p.CanonicalIssues,
			})
		}
		if p.IsNoindex {
			s.NoindexPages = append(s.NoindexPages, PageRef{URL: p.URL})
		}
		if p.IsNofollowMeta {
			s.NofollowPages = append(s.NofollowPages, PageRef{URL: p.URL})
		}
		if p.ImagesWithoutAlt > 0 {
			entry := AltIssueEntry{URL: p.URL, Count: p.ImagesWithoutAlt, TotalImages: p.TotalImages}
			if len(p.ImagesWithoutAltURLs) > 0 {
				entry.SampleImageURL = p.ImagesWithoutAltURLs[0]
			}
			s.PagesMissingAlt = append(s.PagesMissingAlt, entry)
			s.TotalImagesMissingAlt += p.ImagesWithoutAlt
		}
		if p.ImagesWithEmptyAlt > 0 {
			entry := AltIssueEntry{URL: p.URL, Count: p.ImagesWithEmptyAlt, TotalImages: p.TotalImages}
			if len(p.ImagesWithEmptyAltURLs) > 0 {
				entry.SampleImageURL = p.ImagesWithEmptyAltURLs[0]
			}
			s.PagesEmptyAlt = append(s.PagesEmptyAlt, entry)
			s.TotalImagesEmptyAlt += p.ImagesWithEmptyAlt
		}
		if len(p.HreflangIssues) > 0 {
			s.HreflangIssues = append(s.HreflangIssues, HreflangIssueEntry{
				URL:     p.URL,
				Issues:  p.HreflangIssues,
				Entries: p.HreflangEntries,
			})
		}
		if p.WordCount > 0 && p.WordCount < thinContentWords {
			s.ThinContentPages = append(s.ThinContentPages, ContentIssueEntry{URL: p.URL, WordCount: p.WordCount})
		}
		if p.CodeToTextRatio > 0 && p.CodeToTextRatio < lowTextRatio {
			s.LowTextRatioPages = append(s.LowTextRatioPages, ContentIssueEntry{URL: p.URL, Ratio: p.CodeToTextRatio})
		}
		if p.HasPlaceholders {
			s.PlaceholderPages = append(s.PlaceholderPages, ContentIssueEntry{URL: p.URL, Placeholders: p.PlaceholderHits})
		}
		if p.Title == "" {
			s.PagesMissingTitle++
		}
		if p.MetaDescription == "" {
			s.PagesMissingMeta++
		}
		if p.H1Count == 0 {
			s.PagesMissingH1++
		}
		if !p.HasViewportMeta {
			s.PagesMissingViewport++
		}
		if !p.HasSchemaMarkup {
			s.PagesWithoutSchema++
		}
		for _, tag := range p.CanonicalIssues {
			if tag == seo.CanonicalMissing {
				s.PagesMissingCanonical++
				break
			}
		}
	}

	respSum := int64(0)
	for _, p := range pages {
		respSum += p.ResponseTime
		if p.ResponseTime > slowPageThresholdMS {
			s.SlowPages = append(s.SlowPages, SlowPageEntry{URL: p.URL, ResponseTime: p.ResponseTime})
		}
	}
	s.AvgResponseTimeMS = round1(float64(respSum) / float64(len(pages)))

	s.IssueGroups = buildIssueGroups(issueOccurrences)

	return s
}

func duplicateGroups(pages []*seo.PageRecord, key func(*seo.PageRecord) string) []DuplicateGroup {
	groups := make(map[string][]PageRef)
	order := make([]string, 0)
	for _, p := range pages {
		v := key(p)
		if v == "" {
			continue
		}
		if _, seen := groups[v]; !seen {
			order = append(order, v)
		}
		groups[v] = append(groups[v], PageRef{URL: p.URL})
	}
	var out []DuplicateGroup
	for _, v := range order {
		pg := groups[v]
		if len(pg) > 1 {
			out = append(out, DuplicateGroup{Value: v, Pages: pg, Count: len(pg)})
		}
	}
	return out
}

func statusCodeBreakdown(pages []*seo.PageRecord) []StatusCodeGroup {
	groups := make(map[int][]PageRef)
	for _, p := range pages {
		if p.StatusCode == 0 {
			continue
		}
		groups[p.StatusCode] = append(groups[p.StatusCode], PageRef{URL: p.URL})
	}
	codes := make([]int, 0, len(groups))
	for code := range groups {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	out := make([]StatusCodeGroup, 0, len(codes))
	for _, code := range codes {
		pg := groups[code]
		out = append(out, StatusCodeGroup{StatusCode: code, Count: len(pg), Pages: pg})
	}
	return out
}

func buildIssueGroups(occurrences map[string][]IssueOccurrence) []IssueGroup {
	groups := make([]IssueGroup, 0, len(occurrences))
	for itype, occs := range occurrences {
		capped := occs
		if len(capped) > issueGroupCap {
			capped = capped[:issueGroupCap]
		}
		groups = append(groups, IssueGroup{
			Category: itype,
			Severity: string(seo.SeverityForType(itype)),
			Count:    len(occs),
			Pages:    capped,
		})
	}
	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := rankOf(groups[i].Severity), rankOf(groups[j].Severity)
		if ri != rj {
			return ri < rj
		}
		return groups[i].Count > groups[j].Count
	})
	return groups
}

func rankOf(severity string) int {
	if r, ok := severityRank[severity]; ok {
		return r
	}
	return 3
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
