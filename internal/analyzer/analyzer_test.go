package analyzer

import (
	"strings"
	"testing"
	"time"

	"github.com/sitelens/sitelens/pkg/seo"
)

func hasIssue(issues []seo.Issue, issueType string) bool {
	for _, i := range issues {
		if i.Type == issueType {
			return true
		}
	}
	return false
}

func wrapHTML(head, body string) string {
	return "<html><head>" + head + "</head><body>" + body + "</body></html>"
}

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

func TestTitleBoundaries(t *testing.T) {
	cases := []struct {
		name      string
		titleLen  int
		wantIssue string
		noIssue   string
	}{
		{"exactly30", 30, "", "short_title"},
		{"29", 29, "short_title", ""},
		{"exactly60", 60, "", "long_title"},
		{"61", 61, "long_title", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			title := strings.Repeat("a", c.titleLen)
			html := wrapHTML("<title>"+title+"</title><meta name=\"description\" content=\""+strings.Repeat("d", 140)+"\"><meta name=\"viewport\" content=\"width=device-width\">", "<h1>Heading</h1>"+words(300))
			rec := Analyze("https://e.x/", []byte(html), 200, time.Millisecond)
			if rec.TitleLength != c.titleLen {
				t.Fatalf("title length = %d, want %d", rec.TitleLength, c.titleLen)
			}
			if c.wantIssue != "" && !hasIssue(rec.Issues, c.wantIssue) {
				t.Errorf("expected issue %q, got %+v", c.wantIssue, rec.Issues)
			}
			if c.noIssue != "" && hasIssue(rec.Issues, c.noIssue) {
				t.Errorf("expected no issue %q, got %+v", c.noIssue, rec.Issues)
			}
		})
	}
}

func TestMetaDescriptionBoundaries(t *testing.T) {
	cases := []struct {
		name      string
		descLen   int
		wantIssue string
		noIssue   string
	}{
		{"119", 119, "short_meta_description", ""},
		{"exactly120", 120, "", "short_meta_description"},
		{"exactly160", 160, "", "long_meta_description"},
		{"161", 161, "long_meta_description", ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			desc := strings.Repeat("d", c.descLen)
			html := wrapHTML(`<title>`+strings.Repeat("t", 40)+`</title><meta name="description" content="`+desc+`"><meta name="viewport" content="width=device-width">`, "<h1>Heading</h1>"+words(300))
			rec := Analyze("https://e.x/", []byte(html), 200, time.Millisecond)
			if rec.MetaDescriptionLength != c.descLen {
				t.Fatalf("meta description length = %d, want %d", rec.MetaDescriptionLength, c.descLen)
			}
			if c.wantIssue != "" && !hasIssue(rec.Issues, c.wantIssue) {
				t.Errorf("expected issue %q, got %+v", c.wantIssue, rec.Issues)
			}
			if c.noIssue != "" && hasIssue(rec.Issues, c.noIssue) {
				t.Errorf("expected no issue %q, got %+v", c.noIssue, rec.Issues)
			}
		})
	}
}

func TestWordCountBoundary(t *testing.T) {
	html299 := wrapHTML("<title>"+strings.Repeat("t", 40)+"</title>", "<h1>H</h1>"+words(299))
	rec := Analyze("https://e.x/", []byte(html299), 200, time.Millisecond)
	if !hasIssue(rec.Issues, "thin_content") {
		t.Error("expected thin_content at 299 words")
	}

	html300 := wrapHTML("<title>"+strings.Repeat("t", 40)+"</title>", "<h1>H</h1>"+words(300))
	rec300 := Analyze("https://e.x/", []byte(html300), 200, time.Millisecond)
	if hasIssue(rec300.Issues, "thin_content") {
		t.Error("expected no thin_content at 300 words")
	}
}

func TestCodeToTextRatioBoundary(t *testing.T) {
	// Build HTML where the text-to-html ratio lands below 10%.
	padding := strings.Repeat("<!-- pad --><div class='x'></div>", 40)
	html := wrapHTML("<title>t</title>", padding+"<p>short</p>")
	rec := Analyze("https://e.x/", []byte(html), 200, time.Millisecond)
	if rec.CodeToTextRatio >= 10.0 {
		t.Skip("synthetic ratio not below threshold, skip boundary assertion")
	}
	if !hasIssue(rec.Issues, "low_text_ratio") {
		t.Errorf("expected low_text_ratio at ratio %v", rec.CodeToTextRatio)
	}
}

func TestZeroImagesNoLazyLoadingGuard(t *testing.T) {
	html := wrapHTML("<title>"+strings.Repeat("t", 40)+"</title>", "<h1>H</h1>"+words(300))
	rec := Analyze("https://e.x/", []byte(html), 200, time.Millisecond)
	if hasIssue(rec.Issues, "no_lazy_loading") {
		t.Error("expected no no_lazy_loading issue with zero images")
	}
}

func TestLazyLoadingTriggersAtSixImages(t *testing.T) {
	imgs := strings.Repeat(`<img src="a.png" alt="a">`, 6)
	html := wrapHTML("<title>"+strings.Repeat("t", 40)+"</title>", "<h1>H</h1>"+words(300)+imgs)
	rec := Analyze("https://e.x/", []byte(html), 200, time.Millisecond)
	if !hasIssue(rec.Issues, "no_lazy_loading") {
		t.Error("expected no_lazy_loading issue with 6 non-lazy images")
	}
}

func TestPlaceholderCaseSensitivityAsymmetry(t *testing.T) {
	// lorem ipsum: case-insensitive.
	html := wrapHTML("<title>"+strings.Repeat("t", 40)+"</title>", "<h1>H</h1>LOREM IPSUM dolor content "+words(300))
	rec := Analyze("https://e.x/", []byte(html), 200, time.Millisecond)
	if !rec.HasPlaceholders {
		t.Error("expected LOREM IPSUM (uppercase) to match case-insensitively")
	}

	// TODO: strict, case-sensitive — lowercase "todo:" must not match.
	htmlLower := wrapHTML("<title>"+strings.Repeat("t", 40)+"</title>", "<h1>H</h1>todo: fix this later "+words(300))
	recLower := Analyze("https://e.x/", []byte(htmlLower), 200, time.Millisecond)
	if recLower.HasPlaceholders {
		t.Error("expected lowercase 'todo:' not to match the strict pattern")
	}

	htmlUpper := wrapHTML("<title>"+strings.Repeat("t", 40)+"</title>", "<h1>H</h1>TODO: fix this later "+words(300))
	recUpper := Analyze("https://e.x/", []byte(htmlUpper), 200, time.Millisecond)
	if !recUpper.HasPlaceholders {
		t.Error("expected uppercase 'TODO:' to match the strict pattern")
	}
}

func TestMissingTitleAndH1WithValidMeta(t *testing.T) {
	html := wrapHTML(`<meta name="description" content="`+strings.Repeat("d", 140)+`">`, words(300))
	rec := Analyze("https://e.x/", []byte(html), 200, time.Millisecond)
	if !hasIssue(rec.Issues, "missing_title") {
		t.Error("expected missing_title")
	}
	if !hasIssue(rec.Issues, "missing_h1") {
		t.Error("expected missing_h1")
	}
	if hasIssue(rec.Issues, "short_meta_description") || hasIssue(rec.Issues, "long_meta_description") {
		t.Error("valid-length meta description must not flag short/long")
	}
}

func TestCanonicalSelfReferencing(t *testing.T) {
	html := wrapHTML(`<link rel="canonical" href="https://e.x/page">`, "<h1>H</h1>")
	rec := Analyze("https://e.x/page", []byte(html), 200, time.Millisecond)
	for _, tag := range rec.CanonicalIssues {
		if tag == seo.CanonicalNotSelfReferencing {
			t.Error("self-referencing canonical must not be tagged not_self_referencing")
		}
	}
}

func TestCanonicalExternalDomain(t *testing.T) {
	html := wrapHTML(`<link rel="canonical" href="https://other.example/page">`, "<h1>H</h1>")
	rec := Analyze("https://e.x/page", []byte(html), 200, time.Millisecond)
	if !hasIssue(rec.Issues, "canonical_external") {
		t.Error("expected canonical_external issue")
	}
}

func TestSchemaGraphExtraction(t *testing.T) {
	head := `<script type="application/ld+json">{"@context":"https://schema.org","@graph":[{"@type":"Organization"},{"@type":"WebSite"}]}</script>`
	html := wrapHTML(head, "<h1>H</h1>")
	rec := Analyze("https://e.x/", []byte(html), 200, time.Millisecond)
	if !rec.HasSchemaMarkup || len(rec.SchemaTypes) != 2 {
		t.Fatalf("expected 2 schema types from @graph, got %+v", rec.SchemaTypes)
	}
}

func TestHreflangMissingXDefault(t *testing.T) {
	head := `<link rel="alternate" hreflang="en" href="https://e.x/en"><link rel="alternate" hreflang="fr" href="https://e.x/fr">`
	html := wrapHTML(head, "<h1>H</h1>")
	rec := Analyze("https://e.x/en", []byte(html), 200, time.Millisecond)
	found := false
	for _, msg := range rec.HreflangIssues {
		if strings.Contains(msg, "x-default") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected missing x-default hreflang issue, got %+v", rec.HreflangIssues)
	}
}

func TestMalformedHTMLTolerated(t *testing.T) {
	rec := Analyze("https://e.x/", []byte("<html><title>unterminated"), 200, time.Millisecond)
	if rec == nil {
		t.Fatal("expected non-nil record for malformed HTML")
	}
	if !hasIssue(rec.Issues, "missing_h1") {
		t.Error("expected missing_h1 for malformed/empty-bodied document")
	}
}

func TestScoreClamp(t *testing.T) {
	// An essentially empty page should trip most critical extractors but
	// never drop the score below zero.
	rec := Analyze("https://e.x/", []byte("<html></html>"), 200, time.Millisecond)
	if rec.Score < 0 || rec.Score > 100 {
		t.Errorf("score out of bounds: %d", rec.Score)
	}
}
