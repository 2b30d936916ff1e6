package alerts

import (
	"testing"
	"time"

	"github.com/fleetrank/fleetrank/internal/models"
	"github.com/fleetrank/fleetrank/internal/settings"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func batteryConfig() settings.Settings {
	cfg := settings.Defaults()
	cfg.Metrics = []models.MetricDefinition{
		{
			Key:        "battery",
			Label:      "Battery",
			Weight:     1,
			Enabled:    true,
			Thresholds: models.Thresholds{Warning: 20, Error: 10},
		},
	}
	return cfg
}

func TestGenerateOfflineAlert(t *testing.T) {
	cfg := batteryConfig()
	devices := []models.DeviceRecord{{
		ID:         "dev-1",
		Online:     false,
		LastSeenAt: now.Add(-10 * time.Minute).UnixMilli(),
		Metrics:    map[string]float64{"battery": 80},
	}}
	out := Generate(devices, cfg, now)
	got := out[0].Alerts
	if len(got) != 1 {
		t.Fatalf("got %d alerts, want exactly 1: %+v", len(got), got)
	}
	a := got[0]
	if a.Level != models.AlertLevelError {
		t.Fatalf("offline alert level = %s, want error", a.Level)
	}
	if a.Message != "Device disconnected" {
		t.Fatalf("offline alert message = %q", a.Message)
	}
	if a.MetricKey != "" {
		t.Fatalf("offline alert carries metric key %q, want none", a.MetricKey)
	}
	if a.Timestamp != now.UnixMilli() {
		t.Fatalf("alert timestamp = %d, want %d", a.Timestamp, now.UnixMilli())
	}
}

func TestGenerateThresholdErrorBeatsWarning(t *testing.T) {
	cfg := batteryConfig()
	devices := []models.DeviceRecord{{
		ID:      "dev-1",
		Online:  true,
		Metrics: map[string]float64{"battery": 5},
	}}
	out := Generate(devices, cfg, now)
	got := out[0].Alerts
	if len(got) != 1 {
		t.Fatalf("got %d alerts, want exactly 1: %+v", len(got), got)
	}
	if got[0].Level != models.AlertLevelError {
		t.Fatalf("alert level = %s, want error (not a second warning)", got[0].Level)
	}
	if got[0].MetricKey != "battery" {
		t.Fatalf("alert metric key = %q, want battery", got[0].MetricKey)
	}
	if got[0].Message != "Battery below critical threshold (5.00 < 10)" {
		t.Fatalf("alert message = %q", got[0].Message)
	}
}

func TestGenerateThresholdWarning(t *testing.T) {
	cfg := batteryConfig()
	devices := []models.DeviceRecord{{
		ID:      "dev-1",
		Online:  true,
		Metrics: map[string]float64{"battery": 15},
	}}
	out := Generate(devices, cfg, now)
	got := out[0].Alerts
	if len(got) != 1 {
		t.Fatalf("got %d alerts, want exactly 1: %+v", len(got), got)
	}
	if got[0].Level != models.AlertLevelWarning {
		t.Fatalf("alert level = %s, want warning", got[0].Level)
	}
	if got[0].Message != "Battery below warning threshold (15.00 < 20)" {
		t.Fatalf("alert message = %q", got[0].Message)
	}
}

func TestGenerateOutlierNotice(t *testing.T) {
	cfg := batteryConfig()
	devices := []models.DeviceRecord{{
		ID:        "dev-1",
		Online:    true,
		Metrics:   map[string]float64{"battery": 80},
		IsOutlier: true,
	}}
	out := Generate(devices, cfg, now)
	got := out[0].Alerts
	if len(got) != 1 {
		t.Fatalf("got %d alerts, want exactly 1: %+v", len(got), got)
	}
	if got[0].Level != models.AlertLevelInfo || got[0].Message != "Outlier value detected" {
		t.Fatalf("outlier alert = %+v", got[0])
	}
}

func TestGenerateFixedOrder(t *testing.T) {
	cfg := batteryConfig()
	devices := []models.DeviceRecord{{
		ID:        "dev-1",
		Online:    false,
		Metrics:   map[string]float64{"battery": 5},
		IsOutlier: true,
	}}
	out := Generate(devices, cfg, now)
	got := out[0].Alerts
	if len(got) != 3 {
		t.Fatalf("got %d alerts, want 3: %+v", len(got), got)
	}
	if got[0].Message != "Device disconnected" {
		t.Fatalf("alert 0 = %q, want offline first", got[0].Message)
	}
	if got[1].MetricKey != "battery" || got[1].Level != models.AlertLevelError {
		t.Fatalf("alert 1 = %+v, want battery threshold error", got[1])
	}
	if got[2].Level != models.AlertLevelInfo {
		t.Fatalf("alert 2 = %+v, want outlier notice last", got[2])
	}
}

func TestGenerateReplacesStaleAlerts(t *testing.T) {
	cfg := batteryConfig()
	devices := []models.DeviceRecord{{
		ID:      "dev-1",
		Online:  true,
		Metrics: map[string]float64{"battery": 80},
		Alerts: []models.AlertRecord{
			{Level: models.AlertLevelError, Message: "Device disconnected", Timestamp: 1},
		},
	}}
	out := Generate(devices, cfg, now)
	if len(out[0].Alerts) != 0 {
		t.Fatalf("stale alerts survived: %+v", out[0].Alerts)
	}
	// Input is untouched.
	if len(devices[0].Alerts) != 1 {
		t.Fatalf("input batch mutated")
	}
}

func TestGenerateRespectsToggles(t *testing.T) {
	cfg := batteryConfig()
	cfg.Alerting.EnableOffline = false
	cfg.Alerting.EnableThreshold = false
	devices := []models.DeviceRecord{{
		ID:      "dev-1",
		Online:  false,
		Metrics: map[string]float64{"battery": 5},
	}}
	out := Generate(devices, cfg, now)
	if len(out[0].Alerts) != 0 {
		t.Fatalf("alerts generated with all toggles off: %+v", out[0].Alerts)
	}
}

func TestGenerateSkipsMetricsWithoutData(t *testing.T) {
	cfg := batteryConfig()
	devices := []models.DeviceRecord{{
		ID:      "dev-1",
		Online:  true,
		Metrics: map[string]float64{},
	}}
	out := Generate(devices, cfg, now)
	if len(out[0].Alerts) != 0 {
		t.Fatalf("alerts generated for missing metric data: %+v", out[0].Alerts)
	}
}
