package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sitelens/sitelens/pkg/seo"
)

// ExportCSV writes one row per Page Record to filePath, adapting the
// teacher's flat per-page CSV export to the Page Record's field set.
func ExportCSV(records []*seo.PageRecord, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"URL",
		"Status Code",
		"Response Time (ms)",
		"Title",
		"Meta Description",
		"Canonical URL",
		"H1",
		"Internal Links",
		"External Links",
		"Word Count",
		"Score",
		"Redirect Target",
		"Crawled At",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.URL,
			strconv.Itoa(r.StatusCode),
			strconv.FormatInt(r.ResponseTime, 10),
			r.Title,
			r.MetaDescription,
			r.CanonicalURL,
			strings.Join(r.H1Texts, " | "),
			strconv.Itoa(r.InternalLinks),
			strconv.Itoa(r.ExternalLinks),
			strconv.Itoa(r.WordCount),
			strconv.Itoa(r.Score),
			r.RedirectTarget,
			r.CrawledAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	return nil
}
