// Package scoring computes one scalar score per device under the selected
// ranking strategy and assigns dense ranks over a scored batch.
package scoring

import (
	"sort"
	"time"

	"github.com/fleetrank/fleetrank/internal/formula"
	"github.com/fleetrank/fleetrank/internal/models"
	"github.com/fleetrank/fleetrank/internal/normalize"
	"github.com/fleetrank/fleetrank/internal/settings"
)

// offline penalties differ on purpose: the custom fallback is softer on
// offline devices than the performance strategy.
const (
	performanceOfflinePenalty = 0.5
	blendedOfflinePenalty     = 0.8
	maxOfflineWindow          = 24 * time.Hour
)

// Score computes a device's score under cfg.Ranking.Criteria. now anchors the
// time-dependent uptime decay so identical inputs score identically.
func Score(device models.DeviceRecord, cfg settings.Settings, now time.Time) float64 {
	switch cfg.Ranking.Criteria {
	case models.RankingPerformance:
		return performanceScore(device, cfg)
	case models.RankingUptime:
		return uptimeScore(device, now)
	case models.RankingCustom:
		return customScore(device, cfg)
	default:
		return 0
	}
}

// performanceScore is the weighted average of linearly normalized values over
// enabled metrics the device actually reports. Metrics without data are left
// out of numerator and denominator both. Offline devices keep half the score.
func performanceScore(device models.DeviceRecord, cfg settings.Settings) float64 {
	var total, weight float64
	for _, m := range cfg.Metrics {
		if !m.Enabled {
			continue
		}
		value, ok := device.MetricValue(m.Key)
		if !ok {
			continue
		}
		total += normalize.Linear(value, m.Thresholds) * m.Weight
		weight += m.Weight
	}
	if !device.Online {
		total *= performanceOfflinePenalty
	}
	if weight <= 0 {
		return 0
	}
	return total / weight
}

// uptimeScore gives online devices a full score and decays offline devices
// linearly to zero over 24 hours of silence.
func uptimeScore(device models.DeviceRecord, now time.Time) float64 {
	if device.Online {
		return 100
	}
	sinceLastSeen := now.Sub(time.UnixMilli(device.LastSeenAt))
	ratio := 1 - float64(sinceLastSeen)/float64(maxOfflineWindow)
	if ratio < 0 {
		ratio = 0
	}
	return ratio * 100
}

// customScore evaluates the configured formula against the device's metric
// values. Results at or below 1 are read as a [0,1] fraction and scaled to
// 100; the final value is clamped to [0,100]. If the formula is empty or
// fails to evaluate, the eased blend takes over, and if that has no
// contributing weight either, the performance score does.
func customScore(device models.DeviceRecord, cfg settings.Settings) float64 {
	if cfg.Ranking.Formula != "" {
		keys := make([]string, 0, len(cfg.Metrics))
		for _, m := range cfg.Metrics {
			keys = append(keys, m.Key)
		}
		if v, ok := formula.Evaluate(cfg.Ranking.Formula, keys, device.Metrics); ok {
			if v <= 1 {
				v *= 100
			}
			return clamp(v, 0, 100)
		}
	}
	return blendedScore(device, cfg)
}

// blendedScore is the custom fallback: weighted average of eased normalized
// values with a lighter offline penalty than the performance strategy.
func blendedScore(device models.DeviceRecord, cfg settings.Settings) float64 {
	var total, weight float64
	for _, m := range cfg.Metrics {
		if !m.Enabled {
			continue
		}
		value, ok := device.MetricValue(m.Key)
		if !ok {
			continue
		}
		total += normalize.Eased(value, m.Thresholds) * m.Weight
		weight += m.Weight
	}
	if weight <= 0 {
		return performanceScore(device, cfg)
	}
	score := total / weight
	if !device.Online {
		score *= blendedOfflinePenalty
	}
	return score
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Rank scores every device and orders the batch by descending score,
// assigning dense 1-based ranks. Ties keep their input order: the sort is
// stable by contract, not by accident. When ranking is disabled or the batch
// is empty the input is returned untouched, scores and ranks included.
func Rank(devices []models.DeviceRecord, cfg settings.Settings, now time.Time) []models.DeviceRecord {
	if !cfg.Ranking.Enabled || len(devices) == 0 {
		return devices
	}
	ranked := models.CloneDevices(devices)
	for i := range ranked {
		ranked[i].Score = Score(ranked[i], cfg, now)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}
