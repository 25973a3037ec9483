package exporter

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sitelens/sitelens/internal/aggregator"
	"github.com/sitelens/sitelens/pkg/seo"
)

// crawlReport is the top-level JSON document written by ExportJSON: the
// full set of Page Records plus the crawl-wide Summary, matching the
// original's combined pages+summary response shape
// (backend/app/api/routes.py's crawl detail endpoint).
type crawlReport struct {
	Summary aggregator.Summary `json:"summary"`
	Pages   []*seo.PageRecord  `json:"pages"`
}

// ExportJSON writes records and their aggregated summary to filePath.
func ExportJSON(crawl *seo.Crawl, records []*seo.PageRecord, filePath string, pretty bool) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	report := crawlReport{
		Summary: aggregator.Aggregate(crawl, records),
		Pages:   records,
	}

	encoder := json.NewEncoder(file)
	if pretty {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(report); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
