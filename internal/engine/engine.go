// Package engine runs the full comparison pipeline over one device batch:
// scoring and ranking, outlier detection, alert generation, filtering, and
// the device cap. Every stage is a pure transform; the caller's batch is
// never mutated, and two runs with identical inputs and clock produce
// identical output.
package engine

import (
	"time"

	"github.com/fleetrank/fleetrank/internal/alerts"
	"github.com/fleetrank/fleetrank/internal/filter"
	"github.com/fleetrank/fleetrank/internal/models"
	"github.com/fleetrank/fleetrank/internal/outlier"
	"github.com/fleetrank/fleetrank/internal/scoring"
	"github.com/fleetrank/fleetrank/internal/settings"
)

// Engine processes device batches. The zero value is not usable; construct
// with New.
type Engine struct {
	now func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock, pinning time-dependent scoring and alert
// timestamps for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(opts ...Option) *Engine {
	e := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Process runs one comparison pass: rank (when enabled), detect outliers,
// rebuild alerts, apply the type filter and search term, then cap the batch
// at cfg.MaxDevices. Alert generation always runs, so the returned batch is
// always a fresh copy with annotations reflecting only this invocation.
func (e *Engine) Process(devices []models.DeviceRecord, cfg settings.Settings, searchTerm string) []models.DeviceRecord {
	now := e.now()

	out := scoring.Rank(devices, cfg, now)
	out = outlier.Detect(out, cfg)
	out = alerts.Generate(out, cfg, now)
	out = filter.Devices(out, cfg.DeviceTypeFilter, searchTerm)
	if cfg.MaxDevices > 0 && len(out) > cfg.MaxDevices {
		out = out[:cfg.MaxDevices]
	}
	return out
}
