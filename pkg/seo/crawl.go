package seo

import "time"

// Status is a Crawl's place in the state machine (spec §3, §4.5).
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// SitemapDescriptor is one discovered sitemap document.
type SitemapDescriptor struct {
	URL       string `json:"url"`
	Type      string `json:"type"`
	Status    string `json:"status"`
	URLsCount int    `json:"urls_count"`
}

// Crawl is a long-lived object keyed by integer id (spec §3).
type Crawl struct {
	ID        int64
	ProjectID int64
	StartURL  string
	Status    Status

	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	UpdatedAt   time.Time

	PagesCrawled int
	PagesTotal   int

	RobotsTxtStatus  string // found, not_found, blocked
	RobotsTxtContent string
	SitemapsFound    []SitemapDescriptor
}

// Project groups crawls under one site.
type Project struct {
	ID        int64
	Name      string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
