// Package metrics wires up the prometheus instruments the Crawl Orchestrator
// reports against: pages crawled, queue depth, issues by severity, and fetch
// latency. Grounded on 99souls-ariadne's engine/telemetry/metrics package,
// which wraps github.com/prometheus/client_golang behind counters/gauges/
// histograms keyed by namespace+subsystem+name — simplified here to a plain
// *prometheus.Registry and typed fields rather than ariadne's pluggable
// Provider/OTel abstraction, since this module's go.mod carries only
// client_golang and not an OTel bridge.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sitelens"

// Metrics holds the process-wide instruments one crawl run reports against.
// A fresh Metrics should be created per orchestrator.Registry.
type Metrics struct {
	Registry *prometheus.Registry

	PagesCrawled   prometheus.Counter
	PagesFailed    prometheus.Counter
	QueueDepth     prometheus.Gauge
	ActiveCrawls   prometheus.Gauge
	IssuesBySeverity *prometheus.CounterVec
	FetchDuration  prometheus.Histogram
}

// New builds a Metrics with a dedicated registry, so multiple test runs in
// the same process don't collide on prometheus's default global registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		PagesCrawled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "pages_crawled_total",
			Help:      "Total page records created across all crawls.",
		}),
		PagesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "pages_failed_total",
			Help:      "Total fetch attempts that errored before a page record could be produced.",
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "queue_depth",
			Help:      "Current number of URLs waiting in the crawl queue.",
		}),
		ActiveCrawls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "active_crawls",
			Help:      "Number of crawls currently registered as running.",
		}),
		IssuesBySeverity: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analyzer",
			Name:      "issues_total",
			Help:      "Total SEO issues detected, labeled by severity.",
		}, []string{"severity"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "crawl",
			Name:      "fetch_duration_seconds",
			Help:      "Per-page fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		m.PagesCrawled,
		m.PagesFailed,
		m.QueueDepth,
		m.ActiveCrawls,
		m.IssuesBySeverity,
		m.FetchDuration,
	)
	return m
}

// RecordIssues increments the per-severity issue counter for one page's
// detected issues.
func (m *Metrics) RecordIssues(counts map[string]int) {
	for severity, count := range counts {
		if count > 0 {
			m.IssuesBySeverity.WithLabelValues(severity).Add(float64(count))
		}
	}
}
