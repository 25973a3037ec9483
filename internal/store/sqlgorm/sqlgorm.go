// Package sqlgorm is the GORM + SQLite Store implementation: the durable
// persistence layer behind the default in-memory Store used by tests and
// the CLI's single-run mode.
//
// Grounded on agentberlin-bluesnake's internal/store package (Store wraps
// *gorm.DB, AutoMigrate on open, slice/struct fields serialized to JSON
// text columns with explicit Get/Set-style (de)serialization rather than a
// custom sql.Scanner/Valuer type) and on the original's SQLAlchemy models
// (backend/app/models/models.py) for the exact column set.
package sqlgorm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sitelens/sitelens/internal/store"
	"github.com/sitelens/sitelens/pkg/seo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ProjectRow is the projects table row, grounded on the original's Project
// SQLAlchemy model.
type ProjectRow struct {
	ID        int64 `gorm:"primaryKey"`
	Name      string
	URL       string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CrawlRow is the crawls table row, grounded on the original's Crawl model.
// SitemapsFound is stored as a JSON text column, matching bluesnake's
// Config.DiscoveryMechanisms/SitemapURLs convention of JSON-in-text rather
// than a native array column (SQLite has none).
type CrawlRow struct {
	ID               int64 `gorm:"primaryKey"`
	ProjectID        int64 `gorm:"index"`
	StartURL         string `gorm:"type:text"`
	Status           string `gorm:"not null;default:'pending'"`
	PagesCrawled     int
	PagesTotal       int
	StartedAt        *time.Time
	CompletedAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
	RobotsTxtStatus  string `gorm:"type:text"`
	RobotsTxtContent string `gorm:"type:text"`
	SitemapsFoundJSON string `gorm:"column:sitemaps_found;type:text"`
}

func (CrawlRow) TableName() string { return "crawls" }

// PageRow is the pages table row, grounded on the original's Page model:
// every JSON/array column there (canonical_issues, h1_texts, schema_types,
// issues, and so on) becomes a `*_JSON string` column here, serialized and
// deserialized explicitly at the Store boundary.
type PageRow struct {
	ID            int64 `gorm:"primaryKey"`
	CrawlID       int64 `gorm:"index"`
	URL           string `gorm:"type:text;not null"`
	StatusCode    int
	ResponseTime  int64
	ContentType   string
	ContentLength int64
	CrawledAt     time.Time

	Title                 string `gorm:"type:text"`
	TitleLength           int
	MetaDescription       string `gorm:"type:text"`
	MetaDescriptionLength int

	CanonicalURL        string `gorm:"type:text"`
	CanonicalIssuesJSON string `gorm:"column:canonical_issues;type:text"`

	RobotsMeta     string
	IsNoindex      bool
	IsNofollowMeta bool

	H1Count     int
	H1TextsJSON string `gorm:"column:h1_texts;type:text"`
	H2Count     int
	H3Count     int
	H4Count     int
	H5Count     int
	H6Count     int

	TotalImages                int
	ImagesWithoutAlt            int
	ImagesWithoutAltURLsJSON    string `gorm:"column:images_without_alt_urls;type:text"`
	ImagesWithEmptyAlt          int
	ImagesWithEmptyAltURLsJSON  string `gorm:"column:images_with_empty_alt_urls;type:text"`

	InternalLinks                int
	ExternalLinks                int
	NofollowLinks                int
	NofollowInternalLinksJSON    string `gorm:"column:nofollow_internal_links;type:text"`

	HasSchemaMarkup    bool
	SchemaTypesJSON    string `gorm:"column:schema_types;type:text"`

	HasViewportMeta bool

	WordCount       int
	HasLazyLoading  bool
	CodeToTextRatio float64
	HTMLSize        int
	TextSize        int

	OGTitle       string `gorm:"type:text"`
	OGDescription string `gorm:"type:text"`
	OGImage       string `gorm:"type:text"`

	HasHreflang          bool
	HreflangEntriesJSON  string `gorm:"column:hreflang_entries;type:text"`
	HreflangIssuesJSON   string `gorm:"column:hreflang_issues;type:text"`

	HasPlaceholders       bool
	PlaceholderHitsJSON   string `gorm:"column:placeholder_content;type:text"`

	RedirectTarget string `gorm:"type:text"`

	IssuesJSON string `gorm:"column:issues;type:text"`
	Score      int
}

func (PageRow) TableName() string { return "pages" }

// Store is the GORM/SQLite-backed implementation of store.Store.
type Store struct {
	db *gorm.DB
}

// Open creates or opens a SQLite database at path and runs AutoMigrate.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("sqlgorm: open database: %w", err)
	}
	if err := db.AutoMigrate(&ProjectRow{}, &CrawlRow{}, &PageRow{}); err != nil {
		return nil, fmt.Errorf("sqlgorm: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

var _ store.Store = (*Store)(nil)

func (s *Store) CreateProject(ctx context.Context, project *seo.Project) error {
	row := ProjectRow{
		ID:        project.ID,
		Name:      project.Name,
		URL:       project.URL,
		CreatedAt: project.CreatedAt,
		UpdatedAt: project.UpdatedAt,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) GetProject(ctx context.Context, projectID int64) (*seo.Project, error) {
	var row ProjectRow
	if err := s.db.WithContext(ctx).First(&row, projectID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &seo.Project{
		ID:        row.ID,
		Name:      row.Name,
		URL:       row.URL,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}, nil
}

func (s *Store) CreateCrawl(ctx context.Context, crawl *seo.Crawl) error {
	row, err := crawlToRow(crawl)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return err
	}
	crawl.ID = row.ID
	return nil
}

func (s *Store) GetCrawl(ctx context.Context, crawlID int64) (*seo.Crawl, error) {
	var row CrawlRow
	if err := s.db.WithContext(ctx).First(&row, crawlID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return rowToCrawl(&row)
}

func (s *Store) UpdateCrawl(ctx context.Context, crawlID int64, patch store.CrawlPatch) error {
	updates := map[string]interface{}{"updated_at": time.Now().UTC()}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.StartedAt != nil {
		updates["started_at"] = *patch.StartedAt
	}
	if patch.CompletedAt != nil {
		updates["completed_at"] = *patch.CompletedAt
	}
	if patch.PagesCrawled != nil {
		updates["pages_crawled"] = *patch.PagesCrawled
	}
	if patch.PagesTotal != nil {
		updates["pages_total"] = *patch.PagesTotal
	}
	if patch.RobotsTxtStatus != nil {
		updates["robots_txt_status"] = *patch.RobotsTxtStatus
	}
	if patch.RobotsTxtContent != nil {
		updates["robots_txt_content"] = *patch.RobotsTxtContent
	}
	if patch.SitemapsFound != nil {
		data, err := json.Marshal(patch.SitemapsFound)
		if err != nil {
			return err
		}
		updates["sitemaps_found"] = string(data)
	}
	if patch.EffectiveBaseURL != nil {
		updates["start_url"] = *patch.EffectiveBaseURL
	}

	result := s.db.WithContext(ctx).Model(&CrawlRow{}).Where("id = ?", crawlID).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) CreatePageRecord(ctx context.Context, crawlID int64, record *seo.PageRecord) error {
	row, err := pageToRow(crawlID, record)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Create(row).Error
}

func (s *Store) ListPageURLs(ctx context.Context, crawlID int64) ([]string, error) {
	var urls []string
	if err := s.db.WithContext(ctx).Model(&PageRow{}).Where("crawl_id = ?", crawlID).Pluck("url", &urls).Error; err != nil {
		return nil, err
	}
	return urls, nil
}

func (s *Store) ListPageRecords(ctx context.Context, crawlID int64) ([]*seo.PageRecord, error) {
	var rows []PageRow
	if err := s.db.WithContext(ctx).Where("crawl_id = ?", crawlID).Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]*seo.PageRecord, 0, len(rows))
	for i := range rows {
		rec, err := rowToPage(&rows[i])
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func crawlToRow(c *seo.Crawl) (*CrawlRow, error) {
	sitemapsJSON, err := json.Marshal(c.SitemapsFound)
	if err != nil {
		return nil, err
	}
	row := &CrawlRow{
		ID:                c.ID,
		ProjectID:         c.ProjectID,
		StartURL:          c.StartURL,
		Status:            string(c.Status),
		PagesCrawled:      c.PagesCrawled,
		PagesTotal:        c.PagesTotal,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
		RobotsTxtStatus:   c.RobotsTxtStatus,
		RobotsTxtContent:  c.RobotsTxtContent,
		SitemapsFoundJSON: string(sitemapsJSON),
	}
	if !c.StartedAt.IsZero() {
		row.StartedAt = &c.StartedAt
	}
	if !c.CompletedAt.IsZero() {
		row.CompletedAt = &c.CompletedAt
	}
	return row, nil
}

func rowToCrawl(row *CrawlRow) (*seo.Crawl, error) {
	var sitemaps []seo.SitemapDescriptor
	if row.SitemapsFoundJSON != "" {
		if err := json.Unmarshal([]byte(row.SitemapsFoundJSON), &sitemaps); err != nil {
			return nil, err
		}
	}
	c := &seo.Crawl{
		ID:               row.ID,
		ProjectID:        row.ProjectID,
		StartURL:         row.StartURL,
		Status:           seo.Status(row.Status),
		PagesCrawled:     row.PagesCrawled,
		PagesTotal:       row.PagesTotal,
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
		RobotsTxtStatus:  row.RobotsTxtStatus,
		RobotsTxtContent: row.RobotsTxtContent,
		SitemapsFound:    sitemaps,
	}
	if row.StartedAt != nil {
		c.StartedAt = *row.StartedAt
	}
	if row.CompletedAt != nil {
		c.CompletedAt = *row.CompletedAt
	}
	return c, nil
}

func pageToRow(crawlID int64, p *seo.PageRecord) (*PageRow, error) {
	marshal := func(v interface{}) (string, error) {
		data, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	canonicalIssues, err := marshal(p.CanonicalIssues)
	if err != nil {
		return nil, err
	}
	h1Texts, err := marshal(p.H1Texts)
	if err != nil {
		return nil, err
	}
	noAltURLs, err := marshal(p.ImagesWithoutAltURLs)
	if err != nil {
		return nil, err
	}
	emptyAltURLs, err := marshal(p.ImagesWithEmptyAltURLs)
	if err != nil {
		return nil, err
	}
	nofollowInternal, err := marshal(p.NofollowInternalLinks)
	if err != nil {
		return nil, err
	}
	schemaTypes, err := marshal(p.SchemaTypes)
	if err != nil {
		return nil, err
	}
	hreflangEntries, err := marshal(p.HreflangEntries)
	if err != nil {
		return nil, err
	}
	hreflangIssues, err := marshal(p.HreflangIssues)
	if err != nil {
		return nil, err
	}
	placeholders, err := marshal(p.PlaceholderHits)
	if err != nil {
		return nil, err
	}
	issues, err := marshal(p.Issues)
	if err != nil {
		return nil, err
	}

	return &PageRow{
		CrawlID:                    crawlID,
		URL:                        p.URL,
		StatusCode:                 p.StatusCode,
		ResponseTime:               p.ResponseTime,
		ContentType:                p.ContentType,
		ContentLength:              p.ContentLength,
		CrawledAt:                  p.CrawledAt,
		Title:                      p.Title,
		TitleLength:                p.TitleLength,
		MetaDescription:            p.MetaDescription,
		MetaDescriptionLength:      p.MetaDescriptionLength,
		CanonicalURL:               p.CanonicalURL,
		CanonicalIssuesJSON:        canonicalIssues,
		RobotsMeta:                 p.RobotsMeta,
		IsNoindex:                  p.IsNoindex,
		IsNofollowMeta:             p.IsNofollowMeta,
		H1Count:                    p.H1Count,
		H1TextsJSON:                h1Texts,
		H2Count:                    p.H2Count,
		H3Count:                    p.H3Count,
		H4Count:                    p.H4Count,
		H5Count:                    p.H5Count,
		H6Count:                    p.H6Count,
		TotalImages:                p.TotalImages,
		ImagesWithoutAlt:           p.ImagesWithoutAlt,
		ImagesWithoutAltURLsJSON:   noAltURLs,
		ImagesWithEmptyAlt:         p.ImagesWithEmptyAlt,
		ImagesWithEmptyAltURLsJSON: emptyAltURLs,
		InternalLinks:              p.InternalLinks,
		ExternalLinks:              p.ExternalLinks,
		NofollowLinks:              p.NofollowLinks,
		NofollowInternalLinksJSON:  nofollowInternal,
		HasSchemaMarkup:            p.HasSchemaMarkup,
		SchemaTypesJSON:            schemaTypes,
		HasViewportMeta:            p.HasViewportMeta,
		WordCount:                  p.WordCount,
		HasLazyLoading:             p.HasLazyLoading,
		CodeToTextRatio:            p.CodeToTextRatio,
		HTMLSize:                   p.HTMLSize,
		TextSize:                   p.TextSize,
		OGTitle:                    p.OGTitle,
		OGDescription:              p.OGDescription,
		OGImage:                    p.OGImage,
		HasHreflang:                p.HasHreflang,
		HreflangEntriesJSON:        hreflangEntries,
		HreflangIssuesJSON:         hreflangIssues,
		HasPlaceholders:            p.HasPlaceholders,
		PlaceholderHitsJSON:        placeholders,
		RedirectTarget:             p.RedirectTarget,
		IssuesJSON:                 issues,
		Score:                      p.Score,
	}, nil
}

func rowToPage(row *PageRow) (*seo.PageRecord, error) {
	p := &seo.PageRecord{
		URL:                   row.URL,
		StatusCode:            row.StatusCode,
		ResponseTime:          row.ResponseTime,
		ContentType:           row.ContentType,
		ContentLength:         row.ContentLength,
		CrawledAt:             row.CrawledAt,
		Title:                 row.Title,
		TitleLength:           row.TitleLength,
		MetaDescription:       row.MetaDescription,
		MetaDescriptionLength: row.MetaDescriptionLength,
		CanonicalURL:          row.CanonicalURL,
		RobotsMeta:            row.RobotsMeta,
		IsNoindex:             row.IsNoindex,
		IsNofollowMeta:        row.IsNofollowMeta,
		H1Count:               row.H1Count,
		H2Count:               row.H2Count,
		H3Count:               row.H3Count,
		H4Count:               row.H4Count,
		H5Count:               row.H5Count,
		H6Count:               row.H6Count,
		TotalImages:           row.TotalImages,
		ImagesWithoutAlt:      row.ImagesWithoutAlt,
		ImagesWithEmptyAlt:    row.ImagesWithEmptyAlt,
		InternalLinks:         row.InternalLinks,
		ExternalLinks:         row.ExternalLinks,
		NofollowLinks:         row.NofollowLinks,
		HasSchemaMarkup:       row.HasSchemaMarkup,
		HasViewportMeta:       row.HasViewportMeta,
		WordCount:             row.WordCount,
		HasLazyLoading:        row.HasLazyLoading,
		CodeToTextRatio:       row.CodeToTextRatio,
		HTMLSize:              row.HTMLSize,
		TextSize:              row.TextSize,
		OGTitle:               row.OGTitle,
		OGDescription:         row.OGDescription,
		OGImage:               row.OGImage,
		HasHreflang:           row.HasHreflang,
		HasPlaceholders:       row.HasPlaceholders,
		RedirectTarget:        row.RedirectTarget,
		Score:                 row.Score,
	}

	unmarshal := func(data string, target interface{}) error {
		if data == "" {
			return nil
		}
		return json.Unmarshal([]byte(data), target)
	}
	if err := unmarshal(row.CanonicalIssuesJSON, &p.CanonicalIssues); err != nil {
		return nil, err
	}
	if err := unmarshal(row.H1TextsJSON, &p.H1Texts); err != nil {
		return nil, err
	}
	if err := unmarshal(row.ImagesWithoutAltURLsJSON, &p.ImagesWithoutAltURLs); err != nil {
		return nil, err
	}
	if err := unmarshal(row.ImagesWithEmptyAltURLsJSON, &p.ImagesWithEmptyAltURLs); err != nil {
		return nil, err
	}
	if err := unmarshal(row.NofollowInternalLinksJSON, &p.NofollowInternalLinks); err != nil {
		return nil, err
	}
	if err := unmarshal(row.SchemaTypesJSON, &p.SchemaTypes); err != nil {
		return nil, err
	}
	if err := unmarshal(row.HreflangEntriesJSON, &p.HreflangEntries); err != nil {
		return nil, err
	}
	if err := unmarshal(row.HreflangIssuesJSON, &p.HreflangIssues); err != nil {
		return nil, err
	}
	if err := unmarshal(row.PlaceholderHitsJSON, &p.PlaceholderHits); err != nil {
		return nil, err
	}
	if err := unmarshal(row.IssuesJSON, &p.Issues); err != nil {
		return nil, err
	}
	return p, nil
}
