package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fleetrank/fleetrank/internal/export"
	"github.com/fleetrank/fleetrank/internal/models"
	"github.com/fleetrank/fleetrank/internal/settings"
	"github.com/fleetrank/fleetrank/internal/store"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakePublisher struct {
	published map[string][]models.AlertRecord
	err       error
}

func (f *fakePublisher) PublishAlerts(ctx context.Context, deviceID string, alerts []models.AlertRecord) error {
	if f.err != nil {
		return f.err
	}
	if f.published == nil {
		f.published = map[string][]models.AlertRecord{}
	}
	f.published[deviceID] = alerts
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeArchiver struct {
	payloads []export.Payload
	key      string
	err      error
}

func (f *fakeArchiver) ArchiveExport(ctx context.Context, payload export.Payload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.payloads = append(f.payloads, payload)
	return f.key, nil
}

func newTestService(t *testing.T, opts ...Option) (*Service, *store.MemoryStore, *fakePublisher) {
	t.Helper()
	st := store.NewMemoryStore()
	pub := &fakePublisher{}
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	svc := New(st, pub, settings.Defaults(), zerolog.Nop(), opts...)
	return svc, st, pub
}

func seedDevice(t *testing.T, st *store.MemoryStore, in store.DeviceInput) {
	t.Helper()
	if _, err := st.UpsertDevice(context.Background(), in); err != nil {
		t.Fatalf("seed %s: %v", in.ID, err)
	}
}

func TestUpsertDeviceDefaults(t *testing.T) {
	svc, _, _ := newTestService(t)
	rec, err := svc.UpsertDevice(context.Background(), UpsertDeviceRequest{
		ID:   "dev-1",
		Name: "Sensor 1",
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if rec.Type != "Device" {
		t.Fatalf("type = %q, want default Device", rec.Type)
	}
	if rec.LastSeenAt != now.UnixMilli() {
		t.Fatalf("lastSeenAt = %d, want pinned now", rec.LastSeenAt)
	}
	// Seen just now, so derived online.
	if !rec.Online {
		t.Fatalf("derived online = false, want true")
	}
}

func TestUpsertDeviceDerivesOffline(t *testing.T) {
	svc, _, _ := newTestService(t)
	rec, err := svc.UpsertDevice(context.Background(), UpsertDeviceRequest{
		ID:         "dev-1",
		Name:       "Sensor 1",
		LastSeenAt: now.Add(-10 * time.Minute).UnixMilli(),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	// 10 minutes of silence exceeds the 5 minute default threshold.
	if rec.Online {
		t.Fatalf("derived online = true, want false")
	}
}

func TestUpsertDeviceExplicitOnlineWins(t *testing.T) {
	svc, _, _ := newTestService(t)
	online := true
	rec, err := svc.UpsertDevice(context.Background(), UpsertDeviceRequest{
		ID:         "dev-1",
		Name:       "Sensor 1",
		Online:     &online,
		LastSeenAt: now.Add(-2 * time.Hour).UnixMilli(),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if !rec.Online {
		t.Fatalf("explicit online flag ignored")
	}
}

func TestUpsertDeviceRequiresIDAndName(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.UpsertDevice(context.Background(), UpsertDeviceRequest{Name: "x"}); err == nil {
		t.Fatalf("missing id accepted")
	}
	if _, err := svc.UpsertDevice(context.Background(), UpsertDeviceRequest{ID: "x"}); err == nil {
		t.Fatalf("missing name accepted")
	}
}

func TestRunComparisonInlineDevices(t *testing.T) {
	svc, _, pub := newTestService(t)
	result, err := svc.RunComparison(context.Background(), ComparisonRequest{
		Devices: []models.DeviceRecord{
			{ID: "dev-1", Name: "Sensor 1", Type: "Sensor", Online: true,
				LastSeenAt: now.UnixMilli(), Metrics: map[string]float64{"battery": 90}},
			{ID: "dev-2", Name: "Sensor 2", Type: "Sensor", Online: false,
				LastSeenAt: now.Add(-time.Hour).UnixMilli(), Metrics: map[string]float64{"battery": 5}},
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("got %d devices, want 2", len(result))
	}
	if result[0].ID != "dev-1" || result[0].Rank != 1 {
		t.Fatalf("ranking wrong: %+v", result[0])
	}
	// Only the ailing device generated alerts, and only those got published.
	if len(pub.published) != 1 {
		t.Fatalf("published for %d devices, want 1", len(pub.published))
	}
	if alerts := pub.published["dev-2"]; len(alerts) != 2 {
		t.Fatalf("dev-2 published alerts = %+v, want offline + battery", alerts)
	}
}

func TestRunComparisonLoadsFromStore(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedDevice(t, st, store.DeviceInput{
		ID: "dev-1", Name: "Sensor 1", Type: "Sensor", Online: true,
		LastSeenAt: now.UnixMilli(), Metrics: map[string]float64{"battery": 90},
	})
	result, err := svc.RunComparison(context.Background(), ComparisonRequest{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result) != 1 || result[0].ID != "dev-1" {
		t.Fatalf("result = %+v", result)
	}
}

func TestRunComparisonAppliesSettingsPatch(t *testing.T) {
	svc, _, _ := newTestService(t)
	enabled := false
	result, err := svc.RunComparison(context.Background(), ComparisonRequest{
		Devices: []models.DeviceRecord{
			{ID: "dev-1", Name: "Sensor 1", Online: true, Metrics: map[string]float64{"battery": 90}},
		},
		Settings: &settings.Patch{EnableRanking: &enabled},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result[0].Rank != 0 {
		t.Fatalf("rank = %d, want 0 with ranking disabled", result[0].Rank)
	}
}

func TestRunComparisonRejectsInvalidPatch(t *testing.T) {
	svc, _, _ := newTestService(t)
	bad := -1
	_, err := svc.RunComparison(context.Background(), ComparisonRequest{
		Devices:  []models.DeviceRecord{},
		Settings: &settings.Patch{MaxDevices: &bad},
	})
	if err == nil {
		t.Fatalf("invalid patch accepted")
	}
}

func TestRunComparisonSurvivesPublishFailure(t *testing.T) {
	svc, _, pub := newTestService(t)
	pub.err = errors.New("broker down")
	result, err := svc.RunComparison(context.Background(), ComparisonRequest{
		Devices: []models.DeviceRecord{
			{ID: "dev-1", Name: "Sensor 1", Online: false,
				LastSeenAt: now.Add(-time.Hour).UnixMilli(), Metrics: map[string]float64{"battery": 5}},
		},
	})
	if err != nil {
		t.Fatalf("publish failure surfaced: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("result lost on publish failure")
	}
}

func TestExportComparison(t *testing.T) {
	arch := &fakeArchiver{key: "exports/2026/03/01/abc.csv"}
	svc, _, pub := newTestService(t, WithArchiver(arch))
	res, err := svc.ExportComparison(context.Background(), ComparisonRequest{
		Devices: []models.DeviceRecord{
			{ID: "dev-1", Name: "Sensor 1", Online: false,
				LastSeenAt: now.Add(-time.Hour).UnixMilli(), Metrics: map[string]float64{"battery": 5}},
		},
	}, models.ExportCSV)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if res.Payload.Extension != "csv" || len(res.Payload.Data) == 0 {
		t.Fatalf("payload = %+v", res.Payload)
	}
	if res.ArchiveKey != arch.key {
		t.Fatalf("archive key = %q, want %q", res.ArchiveKey, arch.key)
	}
	if len(arch.payloads) != 1 {
		t.Fatalf("archiver called %d times, want 1", len(arch.payloads))
	}
	// Exports are read-only: no alerts republished.
	if len(pub.published) != 0 {
		t.Fatalf("export published alerts: %+v", pub.published)
	}
}

func TestExportComparisonArchiveFailureIsNonFatal(t *testing.T) {
	arch := &fakeArchiver{err: errors.New("bucket gone")}
	svc, _, _ := newTestService(t, WithArchiver(arch))
	res, err := svc.ExportComparison(context.Background(), ComparisonRequest{
		Devices: []models.DeviceRecord{},
	}, models.ExportJSON)
	if err != nil {
		t.Fatalf("archive failure surfaced: %v", err)
	}
	if res.ArchiveKey != "" {
		t.Fatalf("archive key set despite failure")
	}
	if len(res.Payload.Data) == 0 {
		t.Fatalf("payload missing")
	}
}

func TestExportComparisonDisabledBySettings(t *testing.T) {
	svc, _, _ := newTestService(t)
	off := false
	_, err := svc.ExportComparison(context.Background(), ComparisonRequest{
		Devices:  []models.DeviceRecord{},
		Settings: &settings.Patch{EnableExport: &off},
	}, models.ExportCSV)
	if err == nil {
		t.Fatalf("export ran with enableExport=false")
	}
}
