// Package outlier flags devices whose metric values sit unusually far from
// the rest of the batch, using per-metric population statistics.
package outlier

import (
	"math"

	"github.com/fleetrank/fleetrank/internal/models"
	"github.com/fleetrank/fleetrank/internal/settings"
)

// A metric needs at least this many defined values before its statistics mean
// anything.
const minSamples = 3

// Detect resets every device's outlier flag, then flags devices whose
// absolute z-score exceeds cfg.Outlier.Threshold on any enabled metric.
// Metrics with fewer than three defined values, or with zero spread, flag
// nothing. Returns a new batch; the input is not modified. When detection is
// disabled the input is returned unchanged.
func Detect(devices []models.DeviceRecord, cfg settings.Settings) []models.DeviceRecord {
	if !cfg.Outlier.Enabled {
		return devices
	}
	out := models.CloneDevices(devices)
	for i := range out {
		out[i].IsOutlier = false
	}
	for _, m := range cfg.Metrics {
		if !m.Enabled {
			continue
		}
		detectForMetric(out, m.Key, cfg.Outlier.Threshold)
	}
	return out
}

func detectForMetric(devices []models.DeviceRecord, key string, threshold float64) {
	values := make([]float64, 0, len(devices))
	for i := range devices {
		if v, ok := devices[i].MetricValue(key); ok {
			values = append(values, v)
		}
	}
	if len(values) < minSamples {
		return
	}
	mean, stddev := populationStats(values)
	if stddev == 0 {
		return
	}
	for i := range devices {
		v, ok := devices[i].MetricValue(key)
		if !ok {
			continue
		}
		z := math.Abs(v-mean) / stddev
		if z > threshold {
			devices[i].IsOutlier = true
		}
	}
}

// populationStats returns the mean and population standard deviation
// (variance divided by N, not N-1).
func populationStats(values []float64) (mean, stddev float64) {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / n
	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= n
	return mean, math.Sqrt(variance)
}
