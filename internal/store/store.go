package store

import (
	"context"
	"errors"

	"github.com/fleetrank/fleetrank/internal/models"
)

var ErrNotFound = errors.New("not found")

// Store is the device registry: the raw snapshots comparison passes consume.
// Only snapshot fields are persisted; computed annotations (score, rank,
// alerts, outlier flags) are never written back.
type Store interface {
	UpsertDevice(ctx context.Context, in DeviceInput) (models.DeviceRecord, error)
	GetDevice(ctx context.Context, id string) (models.DeviceRecord, error)
	ListDevices(ctx context.Context, f ListDevicesFilter) ([]models.DeviceRecord, error)
	DeleteDevice(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// DeviceInput is a raw snapshot as supplied by a data-loading collaborator.
type DeviceInput struct {
	ID         string
	Name       string
	Type       string
	Online     bool
	LastSeenAt int64
	Metrics    map[string]float64
}

// ListDevicesFilter narrows and pages a listing. Devices come back ordered by
// name so batch order is deterministic.
type ListDevicesFilter struct {
	Type   string
	Limit  int
	Offset int
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 500 {
		return 500
	}
	return limit
}
