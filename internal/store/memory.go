package store

import (
	"context"
	"sort"
	"sync"

	"github.com/fleetrank/fleetrank/internal/models"
)

type MemoryStore struct {
	mu      sync.RWMutex
	devices map[string]models.DeviceRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{devices: map[string]models.DeviceRecord{}}
}

func copyMetrics(in map[string]float64) map[string]float64 {
	if in == nil {
		return map[string]float64{}
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (m *MemoryStore) UpsertDevice(ctx context.Context, in DeviceInput) (models.DeviceRecord, error) {
	if err := validateInput(in); err != nil {
		return models.DeviceRecord{}, err
	}
	rec := models.DeviceRecord{
		ID:         in.ID,
		Name:       in.Name,
		Type:       in.Type,
		Online:     in.Online,
		LastSeenAt: in.LastSeenAt,
		Metrics:    copyMetrics(in.Metrics),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices[rec.ID] = rec
	return rec.Clone(), nil
}

func (m *MemoryStore) GetDevice(ctx context.Context, id string) (models.DeviceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.devices[id]
	if !ok {
		return models.DeviceRecord{}, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *MemoryStore) ListDevices(ctx context.Context, f ListDevicesFilter) ([]models.DeviceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var devices []models.DeviceRecord
	for _, rec := range m.devices {
		if f.Type != "" && rec.Type != f.Type {
			continue
		}
		devices = append(devices, rec.Clone())
	}
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Name == devices[j].Name {
			return devices[i].ID < devices[j].ID
		}
		return devices[i].Name < devices[j].Name
	})
	start := f.Offset
	if start < 0 {
		start = 0
	}
	if start > len(devices) {
		start = len(devices)
	}
	end := start + normalizeLimit(f.Limit)
	if end > len(devices) {
		end = len(devices)
	}
	return devices[start:end], nil
}

func (m *MemoryStore) DeleteDevice(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.devices[id]; !ok {
		return ErrNotFound
	}
	delete(m.devices, id)
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }
