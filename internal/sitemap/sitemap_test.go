package sitemap

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

const urlsetXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://example.com/a</loc></url>
  <url><loc>https://example.com/b</loc></url>
</urlset>`

const indexXML = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>%s/child-sitemap.xml</loc></sitemap>
</sitemapindex>`

func TestDiscoverFindsDefaultSitemap(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(urlsetXML))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	d := New(zap.NewNop())
	result := d.Discover(context.Background(), srv.URL, "")

	if len(result.URLs) != 2 {
		t.Fatalf("expected 2 urls, got %d: %v", len(result.URLs), result.URLs)
	}
	if len(result.Sitemaps) != 1 || result.Sitemaps[0].Type != "urlset" {
		t.Fatalf("expected 1 urlset descriptor, got %+v", result.Sitemaps)
	}
}

func TestDiscoverExpandsSitemapIndex(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(fmt.Sprintf(indexXML, srvURL)))
	})
	mux.HandleFunc("/child-sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(urlsetXML))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	d := New(zap.NewNop())
	result := d.Discover(context.Background(), srv.URL, "")

	if len(result.URLs) != 2 {
		t.Fatalf("expected 2 urls from expanded index, got %d: %v", len(result.URLs), result.URLs)
	}
	foundIndex, foundChild := false, false
	for _, s := range result.Sitemaps {
		if s.Type == "sitemap_index" {
			foundIndex = true
		}
		if s.Type == "urlset" {
			foundChild = true
		}
	}
	if !foundIndex || !foundChild {
		t.Fatalf("expected both index and child descriptors, got %+v", result.Sitemaps)
	}
}

func TestDiscoverRobotsDirective(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/custom-sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(urlsetXML))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	robotsContent := "User-agent: *\nDisallow:\nSitemap: " + srv.URL + "/custom-sitemap.xml\n"

	d := New(zap.NewNop())
	result := d.Discover(context.Background(), srv.URL, robotsContent)

	if len(result.URLs) != 2 {
		t.Fatalf("expected 2 urls via robots directive, got %d: %v", len(result.URLs), result.URLs)
	}
}

func TestExtractSitemapDirectives(t *testing.T) {
	content := "User-agent: *\nDisallow: /admin\nSitemap: https://example.com/s1.xml\nsitemap: https://example.com/s2.xml\n"
	found := extractSitemapDirectives(content)
	if len(found) != 2 {
		t.Fatalf("expected 2 directives, got %v", found)
	}
}

func TestDetectType(t *testing.T) {
	cases := map[string]string{
		"<sitemapindex></sitemapindex>":                 "sitemap_index",
		"<urlset></urlset>":                             "urlset",
		"<urlset><video:video/></urlset>":                "video_sitemap",
		"<urlset><image:image/></urlset>":                "image_sitemap",
		"<urlset><news:news/></urlset>":                  "news_sitemap",
		"<rss></rss>":                                    "unknown",
	}
	for xmlBody, want := range cases {
		if got := detectType([]byte(xmlBody)); got != want {
			t.Errorf("detectType(%q) = %q, want %q", xmlBody, got, want)
		}
	}
}
