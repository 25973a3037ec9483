// Package logging wraps zap with the process-wide logger construction the
// CLI and orchestrator share, generalizing the teacher's internal/utils
// logger (InitLogger/Info/Debug/Error/Warn globals) into an explicit,
// constructed *zap.Logger passed to callers rather than a package global —
// the orchestrator's Registry and Engine are constructed with one rather
// than reaching for a package-level Logger var, since multiple crawls in
// one process may want independently-scoped loggers (e.g. "crawl_id" as a
// default field).
package logging

import (
	"go.uber.org/zap"
)

// New builds a production or development zap.Logger depending on debug,
// matching the teacher's InitLogger level selection (Info in production,
// Debug in development).
func New(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// ForCrawl returns a child logger with crawl_id bound as a default field,
// used by the crawl command when it constructs the crawl's Engine.
func ForCrawl(base *zap.Logger, crawlID int64) *zap.Logger {
	return base.With(zap.Int64("crawl_id", crawlID))
}
