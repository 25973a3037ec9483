// Package analyzer extracts SEO signals from a single fetched HTML page and
// produces a scored seo.PageRecord. Analyze is a pure function: no I/O, no
// shared state, tolerant of malformed HTML.
//
// Grounded on the teacher's internal/crawler/parser.go (goquery.Selection
// extraction pattern: title, meta, canonical, headings, links, images) and
// the original Python backend/app/crawler/analyzer.py (SEOAnalyzer), which
// supplies every extractor the teacher's parser does not have: robots meta,
// schema/JSON-LD, viewport, word count, Open Graph, lazy loading, hreflang,
// nofollow scan, code-to-text ratio, and placeholder detection.
package analyzer

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sitelens/sitelens/internal/urlnorm"
	"github.com/sitelens/sitelens/pkg/seo"
)

const (
	maxImageListCap    = 20
	maxNofollowListCap = 20
)

// placeholderRe matches clear, unambiguous placeholder text case-insensitively.
var placeholderRe = regexp.MustCompile(`(?i)lorem\s+ipsum|dolor\s+sit\s+amet|consectetur\s+adipiscing`)

// placeholderStrictRe requires the colon so "TODO:" doesn't match ordinary
// prose, and stays case-sensitive to avoid false positives on words like
// the Spanish "todo".
var placeholderStrictRe = regexp.MustCompile(`TODO:\s|FIXME:\s`)

// Analyze runs every extractor over one page's HTML and returns the
// resulting Page Record with its issues (in fixed order) and score.
func Analyze(pageURL string, html []byte, statusCode int, elapsed time.Duration) *seo.PageRecord {
	rec := &seo.PageRecord{
		URL:           pageURL,
		StatusCode:    statusCode,
		ResponseTime:  elapsed.Milliseconds(),
		ContentLength: int64(len(html)),
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		// Malformed HTML: every extractor below tolerates an empty document,
		// so an empty *goquery.Document still produces a fully-populated,
		// heavily-flagged record rather than a failure.
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}

	var issues []seo.Issue
	issues = analyzeTitle(doc, rec, issues)
	issues = analyzeMetaDescription(doc, rec, issues)
	issues = analyzeCanonical(doc, pageURL, rec, issues)
	issues = analyzeRobotsMeta(doc, rec, issues)
	issues = analyzeHeadings(doc, rec, issues)
	issues = analyzeImages(doc, rec, issues)
	issues = analyzeLinks(doc, pageURL, rec, issues)
	issues = analyzeSchema(doc, rec, issues)
	issues = analyzeViewport(doc, rec, issues)
	issues = analyzeContent(html, rec, issues)
	issues = analyzeOpenGraph(doc, rec, issues)
	issues = analyzePerformanceHints(doc, rec, issues)
	issues = analyzeHreflang(doc, pageURL, rec, issues)
	issues = analyzeNofollow(doc, pageURL, rec, issues)
	issues = analyzeCodeToTextRatio(html, rec, issues)
	issues = analyzePlaceholders(html, rec, issues)

	rec.Issues = issues
	rec.Score = score(issues)
	return rec
}

func score(issues []seo.Issue) int {
	total := 100
	for _, iss := range issues {
		switch iss.Severity {
		case seo.SeverityCritical:
			total -= 15
		case seo.SeverityWarning:
			total -= 7
		case seo.SeverityInfo:
			total -= 2
		}
	}
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}
	return total
}

func analyzeTitle(doc *goquery.Document, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	rec.Title = title
	rec.TitleLength = len(title)

	switch {
	case title == "":
		issues = append(issues, seo.Issue{Severity: seo.SeverityCritical, Type: "missing_title", Message: "Page is missing a <title> tag"})
	case rec.TitleLength < 30:
		issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "short_title", Message: "Title too short (" + itoa(rec.TitleLength) + " chars). Aim for 30-60."})
	case rec.TitleLength > 60:
		issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "long_title", Message: "Title too long (" + itoa(rec.TitleLength) + " chars). Aim for 30-60."})
	}
	return issues
}

func analyzeMetaDescription(doc *goquery.Document, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	var desc string
	var found bool
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !strings.EqualFold(name, "description") {
			return true
		}
		content, _ := s.Attr("content")
		desc = strings.TrimSpace(content)
		found = true
		return false
	})
	rec.MetaDescription = desc
	rec.MetaDescriptionLength = len(desc)

	switch {
	case !found || desc == "":
		issues = append(issues, seo.Issue{Severity: seo.SeverityCritical, Type: "missing_meta_description", Message: "Missing meta description"})
	case rec.MetaDescriptionLength < 120:
		issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "short_meta_description", Message: "Meta description short (" + itoa(rec.MetaDescriptionLength) + " chars). Aim for 120-160."})
	case rec.MetaDescriptionLength > 160:
		issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "long_meta_description", Message: "Meta description long (" + itoa(rec.MetaDescriptionLength) + " chars). Aim for 120-160."})
	}
	return issues
}

func analyzeCanonical(doc *goquery.Document, pageURL string, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	sel := doc.Find("link[rel='canonical']").First()
	href, hasHref := sel.Attr("href")
	href = strings.TrimSpace(href)

	var canonicalIssues []string
	pageHost, _ := urlnorm.Host(pageURL)

	if !hasHref || href == "" {
		issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "missing_canonical", Message: "Missing canonical URL"})
		canonicalIssues = append(canonicalIssues, seo.CanonicalMissing)
		rec.CanonicalURL = ""
	} else {
		rec.CanonicalURL = href

		canonHost, hostErr := urlnorm.Host(href)
		if hostErr == nil && canonHost != "" && canonHost != pageHost {
			issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "canonical_external", Message: "Canonical points to external domain: " + canonHost})
			canonicalIssues = append(canonicalIssues, seo.CanonicalExternal)
		}

		if !strings.Contains(href, "://") {
			issues = append(issues, seo.Issue{Severity: seo.SeverityInfo, Type: "canonical_relative", Message: "Canonical URL is relative, should be absolute"})
			canonicalIssues = append(canonicalIssues, seo.CanonicalRelative)
		}

		if stripQueryFragment(href) != stripQueryFragment(pageURL) {
			canonicalIssues = append(canonicalIssues, seo.CanonicalNotSelfReferencing)
		}
	}

	rec.CanonicalIssues = canonicalIssues
	return issues
}

func analyzeRobotsMeta(doc *goquery.Document, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	var content string
	var found bool
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		name, _ := s.Attr("name")
		if !strings.Contains(strings.ToLower(name), "robots") {
			return true
		}
		c, _ := s.Attr("content")
		content = strings.TrimSpace(c)
		found = true
		return false
	})

	rec.RobotsMeta = content
	if found && content != "" {
		lower := strings.ToLower(content)
		if strings.Contains(lower, "noindex") {
			rec.IsNoindex = true
			issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "noindex", Message: "Page has noindex directive"})
		}
		if strings.Contains(lower, "nofollow") {
			rec.IsNofollowMeta = true
			issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "nofollow_meta", Message: "Page has nofollow meta directive"})
		}
	}
	return issues
}

func analyzeHeadings(doc *goquery.Document, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	var h1Texts []string
	doc.Find("h1").Each(func(_ int, s *goquery.Selection) {
		h1Texts = append(h1Texts, strings.TrimSpace(s.Text()))
	})
	rec.H1Texts = h1Texts
	rec.H1Count = len(h1Texts)
	rec.H2Count = doc.Find("h2").Length()
	rec.H3Count = doc.Find("h3").Length()
	rec.H4Count = doc.Find("h4").Length()
	rec.H5Count = doc.Find("h5").Length()
	rec.H6Count = doc.Find("h6").Length()

	switch {
	case rec.H1Count == 0:
		issues = append(issues, seo.Issue{Severity: seo.SeverityCritical, Type: "missing_h1", Message: "Missing H1 heading"})
	case rec.H1Count > 1:
		issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "multiple_h1", Message: "Page has " + itoa(rec.H1Count) + " H1 headings. Use only one."})
	}
	return issues
}

func analyzeImages(doc *goquery.Document, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	images := doc.Find("img")
	total := images.Length()
	rec.TotalImages = total

	var withoutAlt, emptyAlt []string
	images.Each(func(_ int, s *goquery.Selection) {
		alt, hasAlt := s.Attr("alt")
		src := attrOrFallback(s, "src", "data-src", "data-lazy-src")
		switch {
		case !hasAlt:
			withoutAlt = append(withoutAlt, src)
		case strings.TrimSpace(alt) == "":
			emptyAlt = append(emptyAlt, src)
		}
	})
	rec.ImagesWithoutAlt = len(withoutAlt)
	rec.ImagesWithoutAltURLs = capStrings(withoutAlt, maxImageListCap)
	rec.ImagesWithEmptyAlt = len(emptyAlt)
	rec.ImagesWithEmptyAltURLs = capStrings(emptyAlt, maxImageListCap)

	roleImgMissing := 0
	doc.Find("[role='img']").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "img" {
			return
		}
		label := attrOrFallback(s, "aria-label", "aria-labelledby")
		if strings.TrimSpace(label) == "" {
			roleImgMissing++
		}
	})

	svgMissing := 0
	doc.Find("svg").Each(func(_ int, s *goquery.Selection) {
		hasTitle := s.Find("title").Length() > 0
		hasLabel := strings.TrimSpace(attrOrFallback(s, "aria-label", "aria-labelledby")) != ""
		if !hasTitle && !hasLabel {
			svgMissing++
		}
	})

	if len(withoutAlt) > 0 {
		issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "images_missing_alt", Message: itoa(len(withoutAlt)) + " of " + itoa(total) + " images missing alt attribute"})
	}
	if len(emptyAlt) > 0 {
		issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "images_empty_alt", Message: itoa(len(emptyAlt)) + " of " + itoa(total) + " images have empty alt text (alt='')"})
	}
	if roleImgMissing > 0 {
		issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "role_img_missing_label", Message: itoa(roleImgMissing) + " elements with role='img' missing aria-label"})
	}
	if svgMissing > 0 {
		issues = append(issues, seo.Issue{Severity: seo.SeverityInfo, Type: "svg_missing_title", Message: itoa(svgMissing) + " inline SVGs missing <title> or aria-label"})
	}
	return issues
}

func analyzeLinks(doc *goquery.Document, pageURL string, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	internal, external, nofollow := 0, 0, 0
	pageHost, _ := urlnorm.Host(pageURL)
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if skippableHref(href) {
			return
		}
		resolved, err := urlnorm.Join(pageURL, href)
		if err != nil {
			return
		}
		if hasRelToken(s, "nofollow") {
			nofollow++
		}

		linkHost, hostErr := urlnorm.Host(resolved)
		if hostErr != nil || linkHost == "" || linkHost == pageHost {
			internal++
		} else {
			external++
		}
	})
	rec.InternalLinks = internal
	rec.ExternalLinks = external
	rec.NofollowLinks = nofollow
	return issues
}

func analyzeSchema(doc *goquery.Document, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	var types []string
	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		raw := s.Text()
		var asObject map[string]any
		if err := json.Unmarshal([]byte(raw), &asObject); err == nil {
			types = append(types, schemaTypesFromObject(asObject)...)
			return
		}
		var asList []any
		if err := json.Unmarshal([]byte(raw), &asList); err == nil {
			for _, item := range asList {
				if obj, ok := item.(map[string]any); ok {
					types = append(types, schemaTypesFromObject(obj)...)
				}
			}
		}
	})
	rec.HasSchemaMarkup = len(types) > 0
	rec.SchemaTypes = types

	if !rec.HasSchemaMarkup {
		issues = append(issues, seo.Issue{Severity: seo.SeverityInfo, Type: "no_schema_markup", Message: "No structured data (JSON-LD) found"})
	}
	return issues
}

func schemaTypesFromObject(obj map[string]any) []string {
	var types []string
	if t, ok := obj["@type"]; ok {
		if s, ok := t.(string); ok {
			types = append(types, s)
		}
	}
	if graph, ok := obj["@graph"]; ok {
		if items, ok := graph.([]any); ok {
			for _, item := range items {
				if nested, ok := item.(map[string]any); ok {
					if t, ok := nested["@type"]; ok {
						if s, ok := t.(string); ok {
							types = append(types, s)
						}
					}
				}
			}
		}
	}
	return types
}

func analyzeViewport(doc *goquery.Document, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	rec.HasViewportMeta = doc.Find("meta[name='viewport']").Length() > 0
	if !rec.HasViewportMeta {
		issues = append(issues, seo.Issue{Severity: seo.SeverityCritical, Type: "missing_viewport", Message: "Missing viewport meta tag"})
	}
	return issues
}

func analyzeContent(html []byte, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	text := extractVisibleText(html)
	words := 0
	if trimmed := strings.TrimSpace(text); trimmed != "" {
		words = len(strings.Fields(trimmed))
	}
	rec.WordCount = words

	if words < 300 {
		issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "thin_content", Message: "Thin content: only " + itoa(words) + " words. Aim for 300+."})
	}
	return issues
}

func analyzeOpenGraph(doc *goquery.Document, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	ogTitle, hasTitle := findMetaProperty(doc, "og:title")
	ogDesc, _ := findMetaProperty(doc, "og:description")
	ogImage, hasImage := findMetaProperty(doc, "og:image")

	rec.OGTitle = ogTitle
	rec.OGDescription = ogDesc
	rec.OGImage = ogImage

	if !hasTitle {
		issues = append(issues, seo.Issue{Severity: seo.SeverityInfo, Type: "missing_og_title", Message: "Missing Open Graph title"})
	}
	if !hasImage {
		issues = append(issues, seo.Issue{Severity: seo.SeverityInfo, Type: "missing_og_image", Message: "Missing Open Graph image"})
	}
	return issues
}

func findMetaProperty(doc *goquery.Document, property string) (string, bool) {
	var content string
	var found bool
	doc.Find("meta[property]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		p, _ := s.Attr("property")
		if p != property {
			return true
		}
		content, _ = s.Attr("content")
		found = true
		return false
	})
	return content, found
}

func analyzePerformanceHints(doc *goquery.Document, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	images := doc.Find("img")
	hasLazy := false
	images.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if loading, _ := s.Attr("loading"); loading == "lazy" {
			hasLazy = true
			return false
		}
		return true
	})
	rec.HasLazyLoading = hasLazy

	if !hasLazy && images.Length() > 5 {
		issues = append(issues, seo.Issue{Severity: seo.SeverityInfo, Type: "no_lazy_loading", Message: "No lazy-loaded images. Add loading='lazy'."})
	}
	return issues
}

func analyzeHreflang(doc *goquery.Document, pageURL string, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	var entries []seo.HreflangEntry
	var problems []string

	doc.Find("link[rel='alternate']").Each(func(_ int, s *goquery.Selection) {
		lang, hasLang := s.Attr("hreflang")
		if !hasLang {
			return
		}
		href, _ := s.Attr("href")
		lang = strings.TrimSpace(lang)
		href = strings.TrimSpace(href)
		entries = append(entries, seo.HreflangEntry{Lang: lang, Href: href})

		if href == "" {
			problems = append(problems, "Hreflang '"+lang+"' has empty href")
		}
		if lang == "" {
			problems = append(problems, "Hreflang tag has empty language code")
		}
	})

	rec.HreflangEntries = entries
	rec.HasHreflang = len(entries) > 0

	if len(entries) > 0 {
		hasDefault := false
		selfRef := false
		pageNorm := stripQueryFragment(pageURL)
		for _, e := range entries {
			if e.Lang == "x-default" {
				hasDefault = true
			}
			if stripTrailingSlash(e.Href) == stripTrailingSlash(pageURL) {
				selfRef = true
			}
		}
		if !hasDefault {
			problems = append(problems, "Hreflang set found but missing x-default")
		}
		if !selfRef {
			problems = append(problems, "Hreflang set doesn't include self-referencing tag")
		}

		if rec.CanonicalURL != "" && stripQueryFragment(rec.CanonicalURL) != pageNorm {
			problems = append(problems, "Canonical points to "+rec.CanonicalURL+" but page has hreflang tags — conflicting signals")
		}
		if rec.IsNoindex {
			problems = append(problems, "Page has noindex meta but also hreflang tags — search engines will ignore hreflang")
		}
	}

	rec.HreflangIssues = problems
	for _, msg := range problems {
		issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "hreflang_issue", Message: msg})
	}
	return issues
}

func analyzeNofollow(doc *goquery.Document, pageURL string, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	pageHost, _ := urlnorm.Host(pageURL)
	var nofollowInternal []string

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if skippableHref(href) {
			return
		}
		if !hasRelToken(s, "nofollow") {
			return
		}
		resolved, err := urlnorm.Join(pageURL, href)
		if err != nil {
			return
		}
		linkHost, hostErr := urlnorm.Host(resolved)
		if hostErr != nil || linkHost == "" || linkHost == pageHost {
			nofollowInternal = append(nofollowInternal, href)
		}
	})

	rec.NofollowInternalLinks = capStrings(nofollowInternal, maxNofollowListCap)

	if len(nofollowInternal) > 0 {
		issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "nofollow_internal", Message: itoa(len(nofollowInternal)) + " internal links have nofollow"})
	}
	return issues
}

func analyzeCodeToTextRatio(html []byte, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	htmlSize := len(html)
	text := extractVisibleText(html)
	textSize := len(text)

	ratio := 0.0
	if htmlSize > 0 {
		ratio = roundTo1(float64(textSize) / float64(htmlSize) * 100)
	}
	rec.CodeToTextRatio = ratio
	rec.HTMLSize = htmlSize
	rec.TextSize = textSize

	switch {
	case ratio < 10:
		issues = append(issues, seo.Issue{Severity: seo.SeverityWarning, Type: "low_text_ratio", Message: "Low text-to-HTML ratio (" + formatRatio(ratio) + "%). Aim for 25-70%."})
	case ratio > 90:
		issues = append(issues, seo.Issue{Severity: seo.SeverityInfo, Type: "high_text_ratio", Message: "Very high text-to-HTML ratio (" + formatRatio(ratio) + "%). Page may lack structure."})
	}
	return issues
}

func analyzePlaceholders(html []byte, rec *seo.PageRecord, issues []seo.Issue) []seo.Issue {
	text := extractVisibleText(html)

	var found []string
	for _, loc := range placeholderRe.FindAllStringIndex(text, -1) {
		found = append(found, text[loc[0]:loc[1]])
	}
	for _, loc := range placeholderStrictRe.FindAllStringIndex(text, -1) {
		found = append(found, text[loc[0]:loc[1]])
	}

	rec.PlaceholderHits = capStrings(found, maxImageListCap)
	rec.HasPlaceholders = len(found) > 0

	if rec.HasPlaceholders {
		issues = append(issues, seo.Issue{Severity: seo.SeverityCritical, Type: "placeholder_content", Message: "Found " + itoa(len(found)) + " placeholder/lorem ipsum content on page"})
	}
	return issues
}

// extractVisibleText parses html fresh (independent of the shared doc used
// by tag-based extractors) and strips script/style/noscript subtrees before
// flattening to text, matching the original's soup-clone pattern so tag
// extractors never see a mutated document. Text nodes are concatenated as
// they are: no whitespace is inserted between adjacent elements, so
// "<h1>H</h1>word" yields "Hword".
func extractVisibleText(html []byte) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return ""
	}
	doc.Find("script, style, noscript").Remove()
	return strings.TrimSpace(doc.Text())
}

func skippableHref(href string) bool {
	return strings.HasPrefix(href, "#") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "javascript:")
}

func hasRelToken(s *goquery.Selection, token string) bool {
	rel, _ := s.Attr("rel")
	for _, r := range strings.Fields(rel) {
		if strings.EqualFold(r, token) {
			return true
		}
	}
	return false
}

func attrOrFallback(s *goquery.Selection, names ...string) string {
	for _, name := range names {
		if v, ok := s.Attr(name); ok {
			return v
		}
	}
	return ""
}

func capStrings(in []string, max int) []string {
	if len(in) <= max {
		return in
	}
	return in[:max]
}

func stripQueryFragment(rawURL string) string {
	withoutFragment := strings.SplitN(rawURL, "#", 2)[0]
	withoutQuery := strings.SplitN(withoutFragment, "?", 2)[0]
	return stripTrailingSlash(withoutQuery)
}

func stripTrailingSlash(s string) string {
	return strings.TrimSuffix(s, "/")
}

func roundTo1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}

func formatRatio(f float64) string {
	return strconv.FormatFloat(f, 'f', 1, 64)
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
