package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetrank/fleetrank/internal/engine"
	"github.com/fleetrank/fleetrank/internal/export"
	"github.com/fleetrank/fleetrank/internal/models"
	"github.com/fleetrank/fleetrank/internal/settings"
	"github.com/fleetrank/fleetrank/internal/store"
	"github.com/fleetrank/fleetrank/internal/stream"
)

// Archiver matches archive.Archiver structurally so tests can fake it
// without importing the AWS stack.
type Archiver interface {
	ArchiveExport(ctx context.Context, payload export.Payload) (string, error)
}

// Service ties the device registry, the comparison engine, and the outbound
// collaborators (alert publisher, export archiver) together.
type Service struct {
	store     store.Store
	engine    *engine.Engine
	publisher stream.Publisher
	archiver  Archiver
	base      settings.Settings
	logger    zerolog.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithArchiver enables export archival.
func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

// WithClock pins the wall clock for tests; the engine shares it.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
		s.engine = engine.New(engine.WithClock(now))
	}
}

// New builds a service. base is the settings baseline (a loaded profile or
// settings.Defaults()); per-request patches merge over the stock defaults,
// not over base, so API callers always reason from the documented defaults.
func New(st store.Store, pub stream.Publisher, base settings.Settings, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     st,
		engine:    engine.New(),
		publisher: pub,
		base:      base,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpsertDeviceRequest is a raw snapshot from a data-loading collaborator.
// Online may be omitted, in which case it is derived from LastSeenAt and the
// configured offline threshold.
type UpsertDeviceRequest struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Type       string             `json:"type"`
	Online     *bool              `json:"online"`
	LastSeenAt int64              `json:"lastSeenAt"`
	Metrics    map[string]float64 `json:"metrics"`
}

func (s *Service) UpsertDevice(ctx context.Context, req UpsertDeviceRequest) (models.DeviceRecord, error) {
	if req.ID == "" || req.Name == "" {
		return models.DeviceRecord{}, fmt.Errorf("id and name required")
	}
	devType := req.Type
	if devType == "" {
		devType = "Device"
	}
	lastSeen := req.LastSeenAt
	if lastSeen == 0 {
		lastSeen = s.now().UnixMilli()
	}
	online := false
	if req.Online != nil {
		online = *req.Online
	} else {
		window := time.Duration(s.base.Alerting.OfflineThresholdMinutes) * time.Minute
		probe := models.DeviceRecord{LastSeenAt: lastSeen}
		online = probe.SeenWithin(s.now(), window)
	}
	return s.store.UpsertDevice(ctx, store.DeviceInput{
		ID:         req.ID,
		Name:       req.Name,
		Type:       devType,
		Online:     online,
		LastSeenAt: lastSeen,
		Metrics:    req.Metrics,
	})
}

func (s *Service) GetDevice(ctx context.Context, id string) (models.DeviceRecord, error) {
	return s.store.GetDevice(ctx, id)
}

func (s *Service) ListDevices(ctx context.Context, f store.ListDevicesFilter) ([]models.DeviceRecord, error) {
	return s.store.ListDevices(ctx, f)
}

func (s *Service) DeleteDevice(ctx context.Context, id string) error {
	return s.store.DeleteDevice(ctx, id)
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// ComparisonRequest describes one comparison pass. Devices defaults to the
// full registry; Settings (when present) merges over the documented defaults.
type ComparisonRequest struct {
	Devices    []models.DeviceRecord `json:"devices"`
	Settings   *settings.Patch       `json:"settings"`
	SearchTerm string                `json:"searchTerm"`
}

func (s *Service) resolveSettings(req ComparisonRequest) (settings.Settings, error) {
	if req.Settings == nil {
		return s.base, nil
	}
	cfg := settings.WithDefaults(*req.Settings)
	if err := cfg.Validate(); err != nil {
		return settings.Settings{}, err
	}
	return cfg, nil
}

func (s *Service) resolveDevices(ctx context.Context, req ComparisonRequest) ([]models.DeviceRecord, error) {
	if req.Devices != nil {
		return req.Devices, nil
	}
	devices, err := s.store.ListDevices(ctx, store.ListDevicesFilter{Limit: 500})
	if err != nil {
		return nil, fmt.Errorf("load devices: %w", err)
	}
	return devices, nil
}

// RunComparison executes a full pass and publishes any generated alerts.
// Publish failures are logged, never surfaced: a broken broker must not take
// the comparison API down with it.
func (s *Service) RunComparison(ctx context.Context, req ComparisonRequest) ([]models.DeviceRecord, error) {
	cfg, err := s.resolveSettings(req)
	if err != nil {
		return nil, err
	}
	devices, err := s.resolveDevices(ctx, req)
	if err != nil {
		return nil, err
	}
	result := s.engine.Process(devices, cfg, req.SearchTerm)
	for _, d := range result {
		if len(d.Alerts) == 0 {
			continue
		}
		if err := s.publisher.PublishAlerts(ctx, d.ID, d.Alerts); err != nil {
			s.logger.Warn().Err(err).Str("device", d.ID).Msg("alert publish failed")
		}
	}
	return result, nil
}

// ExportComparison runs a pass and serializes the result. The pass itself
// does not re-publish alerts; exports are read-only. When an archiver is
// configured the payload is also uploaded and its object key returned.
type ExportResult struct {
	Payload    export.Payload
	ArchiveKey string
}

func (s *Service) ExportComparison(ctx context.Context, req ComparisonRequest, format models.ExportFormat) (ExportResult, error) {
	cfg, err := s.resolveSettings(req)
	if err != nil {
		return ExportResult{}, err
	}
	if !cfg.EnableExport {
		return ExportResult{}, fmt.Errorf("export disabled by settings")
	}
	devices, err := s.resolveDevices(ctx, req)
	if err != nil {
		return ExportResult{}, err
	}
	result := s.engine.Process(devices, cfg, req.SearchTerm)
	payload, err := export.Devices(result, format)
	if err != nil {
		return ExportResult{}, err
	}
	res := ExportResult{Payload: payload}
	if s.archiver != nil {
		key, err := s.archiver.ArchiveExport(ctx, payload)
		if err != nil {
			s.logger.Warn().Err(err).Msg("export archive failed")
		} else {
			res.ArchiveKey = key
			s.logger.Info().Str("key", key).Msg("export archived")
		}
	}
	return res, nil
}
