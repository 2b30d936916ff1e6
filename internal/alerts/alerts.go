// Package alerts derives per-device alert lists from online state, metric
// threshold breaches, and previously computed outlier flags.
package alerts

import (
	"fmt"
	"time"

	"github.com/fleetrank/fleetrank/internal/models"
	"github.com/fleetrank/fleetrank/internal/settings"
)

// Generate rebuilds every device's alert list from scratch in a fixed order:
// offline first, then one threshold alert per breached enabled metric (error
// beats warning), then a single outlier notice. It assumes outlier flags were
// already computed and never runs detection itself. Returns a new batch.
func Generate(devices []models.DeviceRecord, cfg settings.Settings, now time.Time) []models.DeviceRecord {
	out := models.CloneDevices(devices)
	ts := now.UnixMilli()
	for i := range out {
		out[i].Alerts = buildAlerts(&out[i], cfg, ts)
	}
	return out
}

func buildAlerts(device *models.DeviceRecord, cfg settings.Settings, ts int64) []models.AlertRecord {
	var list []models.AlertRecord

	if cfg.Alerting.EnableOffline && !device.Online {
		list = append(list, models.AlertRecord{
			Level:     models.AlertLevelError,
			Message:   "Device disconnected",
			Timestamp: ts,
		})
	}

	if cfg.Alerting.EnableThreshold {
		for _, m := range cfg.Metrics {
			if !m.Enabled {
				continue
			}
			value, ok := device.MetricValue(m.Key)
			if !ok {
				continue
			}
			switch {
			case value <= m.Thresholds.Error:
				list = append(list, models.AlertRecord{
					Level:     models.AlertLevelError,
					Message:   fmt.Sprintf("%s below critical threshold (%.2f < %g)", m.Label, value, m.Thresholds.Error),
					Timestamp: ts,
					MetricKey: m.Key,
				})
			case value <= m.Thresholds.Warning:
				list = append(list, models.AlertRecord{
					Level:     models.AlertLevelWarning,
					Message:   fmt.Sprintf("%s below warning threshold (%.2f < %g)", m.Label, value, m.Thresholds.Warning),
					Timestamp: ts,
					MetricKey: m.Key,
				})
			}
		}
	}

	if device.IsOutlier {
		list = append(list, models.AlertRecord{
			Level:     models.AlertLevelInfo,
			Message:   "Outlier value detected",
			Timestamp: ts,
		})
	}

	return list
}
