// Package seo holds the data types shared by the crawl orchestrator, the
// page analyzer, and the aggregation engine: the Page Record, the Crawl
// row, and the fixed issue taxonomy.
package seo

import "time"

// Severity is the fixed severity scale an Issue is classified against.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Issue is one detected SEO problem, emitted by exactly one analyzer
// extractor against one page.
type Issue struct {
	Severity Severity `json:"severity"`
	Type     string   `json:"type"`
	Message  string   `json:"message"`
}

// severityByType is the fixed identifier-to-severity map. Unknown
// identifiers default to info on aggregation (spec §3, issue taxonomy).
var severityByType = map[string]Severity{
	"missing_title":            SeverityCritical,
	"short_title":              SeverityWarning,
	"long_title":                SeverityWarning,
	"missing_meta_description": SeverityCritical,
	"short_meta_description":   SeverityWarning,
	"long_meta_description":    SeverityWarning,
	"missing_canonical":        SeverityWarning,
	"canonical_external":       SeverityWarning,
	"canonical_relative":       SeverityInfo,
	"noindex":                  SeverityWarning,
	"nofollow_meta":            SeverityWarning,
	"missing_h1":               SeverityCritical,
	"multiple_h1":              SeverityWarning,
	"images_missing_alt":       SeverityWarning,
	"images_empty_alt":         SeverityWarning,
	"role_img_missing_label":   SeverityWarning,
	"svg_missing_title":        SeverityInfo,
	"nofollow_internal":        SeverityWarning,
	"no_schema_markup":         SeverityInfo,
	"missing_viewport":         SeverityCritical,
	"thin_content":             SeverityWarning,
	"missing_og_title":         SeverityInfo,
	"missing_og_image":        SeverityInfo,
	"no_lazy_loading":          SeverityInfo,
	"hreflang_issue":           SeverityWarning,
	"low_text_ratio":           SeverityWarning,
	"high_text_ratio":          SeverityInfo,
	"placeholder_content":      SeverityCritical,
}

// SeverityForType returns the fixed severity for a known issue type
// identifier, defaulting to info for anything unrecognized.
func SeverityForType(issueType string) Severity {
	if sev, ok := severityByType[issueType]; ok {
		return sev
	}
	return SeverityInfo
}

// CanonicalIssue tags are stored on a Page Record but (per spec §4.2,
// "not_self_referencing") do not necessarily correspond to an Issue.
const (
	CanonicalMissing            = "missing"
	CanonicalExternal            = "external"
	CanonicalRelative            = "relative"
	CanonicalNotSelfReferencing  = "not_self_referencing"
)

// HreflangEntry is one <link rel=alternate hreflang> tag.
type HreflangEntry struct {
	Lang string `json:"lang"`
	Href string `json:"href"`
}

// PageRecord is one persisted row per unique deduplication key per crawl.
type PageRecord struct {
	URL          string    `json:"url"`
	StatusCode   int       `json:"status_code"`
	ResponseTime int64     `json:"response_time_ms"`
	ContentType  string    `json:"content_type"`
	ContentLength int64    `json:"content_length"`
	CrawledAt    time.Time `json:"crawled_at"`

	Title       string `json:"title"`
	TitleLength int    `json:"title_length"`

	MetaDescription       string `json:"meta_description"`
	MetaDescriptionLength int    `json:"meta_description_length"`

	CanonicalURL    string   `json:"canonical_url"`
	CanonicalIssues []string `json:"canonical_issues"`

	RobotsMeta     string `json:"robots_meta"`
	IsNoindex      bool   `json:"is_noindex"`
	IsNofollowMeta bool   `json:"is_nofollow_meta"`

	H1Count int      `json:"h1_count"`
	H1Texts []string `json:"h1_texts"`
	H2Count int      `json:"h2_count"`
	H3Count int      `json:"h3_count"`
	H4Count int      `json:"h4_count"`
	H5Count int      `json:"h5_count"`
	H6Count int      `json:"h6_count"`

	TotalImages          int      `json:"total_images"`
	ImagesWithoutAlt      int      `json:"images_without_alt"`
	ImagesWithoutAltURLs  []string `json:"images_without_alt_urls"`
	ImagesWithEmptyAlt    int      `json:"images_with_empty_alt"`
	ImagesWithEmptyAltURLs []string `json:"images_with_empty_alt_urls"`

	InternalLinks          int      `json:"internal_links"`
	ExternalLinks          int      `json:"external_links"`
	NofollowLinks          int      `json:"nofollow_links"`
	NofollowInternalLinks  []string `json:"nofollow_internal_links"`

	HasSchemaMarkup bool     `json:"has_schema_markup"`
	SchemaTypes     []string `json:"schema_types"`

	HasViewportMeta bool `json:"has_viewport_meta"`

	WordCount        int     `json:"word_count"`
	HasLazyLoading   bool    `json:"has_lazy_loading"`
	CodeToTextRatio  float64 `json:"code_to_text_ratio"`
	HTMLSize         int     `json:"html_size"`
	TextSize         int     `json:"text_size"`

	OGTitle       string `json:"og_title"`
	OGDescription string `json:"og_description"`
	OGImage       string `json:"og_image"`

	HasHreflang     bool            `json:"has_hreflang"`
	HreflangEntries []HreflangEntry `json:"hreflang_entries"`
	HreflangIssues  []string        `json:"hreflang_issues"`

	HasPlaceholders   bool     `json:"has_placeholders"`
	PlaceholderHits   []string `json:"placeholder_content"`

	RedirectTarget string `json:"redirect_target,omitempty"`

	Issues []Issue `json:"issues"`
	Score  int     `json:"score"`
}

// IsContentPage reports whether this record's status is 2xx (spec
// GLOSSARY: content-page).
func (p *PageRecord) IsContentPage() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300
}

// redirectStatusCodes is the fixed set of HTTP redirect statuses spec §3/§4.6
// classify a record against (GLOSSARY: redirect-page).
var redirectStatusCodes = map[int]bool{301: true, 302: true, 303: true, 307: true, 308: true}

// IsRedirectPage reports whether this record's status is a redirect code.
func (p *PageRecord) IsRedirectPage() bool {
	return redirectStatusCodes[p.StatusCode]
}
