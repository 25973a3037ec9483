// Package config holds the crawl configuration struct, its defaults, and
// validation, generalizing the teacher's internal/utils/config.go (a flat
// Config struct + DefaultConfig() + Validate()) from a single-site CLI crawl
// into the orchestrator's Config plus the ambient run settings (storage
// path, debug logging, project naming) the CLI surfaces as flags.
package config

import (
	"errors"
	"time"

	"github.com/sitelens/sitelens/internal/orchestrator"
)

var (
	ErrEmptyStartURL    = errors.New("config: start URL cannot be empty")
	ErrInvalidMaxPages  = errors.New("config: max pages must be at least 1")
	ErrInvalidWorkers   = errors.New("config: concurrency must be at least 1")
	ErrInvalidWallClock = errors.New("config: wall clock budget must be positive")
	ErrInvalidStorePath = errors.New("config: store path cannot be empty when store is sqlite")
)

// StoreKind selects which store.Store implementation the CLI wires up.
type StoreKind string

const (
	StoreMemory StoreKind = "memory"
	StoreSQLite StoreKind = "sqlite"
)

// Config is the full set of knobs a single crawl run is started with.
type Config struct {
	StartURL      string
	ProjectName   string
	Concurrency   int
	MaxPages      int
	RespectRobots bool
	WallClock     time.Duration

	Store     StoreKind
	StorePath string

	Debug bool
}

// Default returns a Config with the orchestrator's own defaults (spec §4.5)
// plus sensible CLI-level defaults, matching the teacher's DefaultConfig
// pattern of one function returning a fully populated struct.
func Default() *Config {
	return &Config{
		Concurrency:   orchestrator.Concurrency,
		MaxPages:      orchestrator.MaxPages,
		RespectRobots: true,
		WallClock:     orchestrator.WallClockBudget,
		Store:         StoreMemory,
		StorePath:     "",
		Debug:         false,
	}
}

// Validate checks that the configuration is usable, matching the teacher's
// Config.Validate field-by-field style.
func (c *Config) Validate() error {
	if c.StartURL == "" {
		return ErrEmptyStartURL
	}
	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}
	if c.Concurrency < 1 {
		return ErrInvalidWorkers
	}
	if c.WallClock <= 0 {
		return ErrInvalidWallClock
	}
	if c.Store == StoreSQLite && c.StorePath == "" {
		return ErrInvalidStorePath
	}
	return nil
}

// OrchestratorConfig projects the CLI-level Config down to the
// orchestrator.Config subset the Engine actually consumes.
func (c *Config) OrchestratorConfig() orchestrator.Config {
	return orchestrator.Config{
		Concurrency:   c.Concurrency,
		MaxPages:      c.MaxPages,
		RespectRobots: c.RespectRobots,
		WallClock:     c.WallClock,
	}
}
