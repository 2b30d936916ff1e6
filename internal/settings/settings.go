package settings

import (
	"fmt"

	"github.com/fleetrank/fleetrank/internal/models"
)

// Ranking groups the ranking options.
type Ranking struct {
	Enabled  bool                   `json:"enabled" yaml:"enabled"`
	Criteria models.RankingCriteria `json:"criteria" yaml:"criteria"`
	Formula  string                 `json:"customFormula" yaml:"custom_formula"`
}

// Outlier groups the outlier detection options. Threshold is in standard
// deviation units.
type Outlier struct {
	Enabled   bool    `json:"enabled" yaml:"enabled"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// Alerting groups the alert generation options. OfflineThresholdMinutes is
// how long a device may stay silent before it counts as offline.
type Alerting struct {
	EnableOffline           bool `json:"enableOffline" yaml:"enable_offline"`
	OfflineThresholdMinutes int  `json:"offlineThresholdMinutes" yaml:"offline_threshold_minutes"`
	EnableThreshold         bool `json:"enableThreshold" yaml:"enable_threshold"`
}

// Settings is the fully populated option set consumed by a comparison pass.
// Construct via Defaults or WithDefaults; the engine assumes every field is
// populated.
type Settings struct {
	Layout           models.ComparisonLayout   `json:"layout" yaml:"layout"`
	MaxDevices       int                       `json:"maxDevices" yaml:"max_devices"`
	AutoRefresh      bool                      `json:"autoRefresh" yaml:"auto_refresh"`
	RefreshInterval  int                       `json:"refreshInterval" yaml:"refresh_interval"`
	Metrics          []models.MetricDefinition `json:"metrics" yaml:"metrics"`
	Ranking          Ranking                   `json:"ranking" yaml:"ranking"`
	Outlier          Outlier                   `json:"outlier" yaml:"outlier"`
	Alerting         Alerting                  `json:"alerting" yaml:"alerting"`
	DeviceTypeFilter []string                  `json:"deviceTypeFilter" yaml:"device_type_filter"`
	EnableExport     bool                      `json:"enableExport" yaml:"enable_export"`
}

// Defaults returns the documented default settings: grid layout, 12 devices,
// 30s refresh, the stock temperature/humidity/battery metric set, ranking on
// with the performance strategy, outlier detection on at 2.0 sigma, offline
// alerts on with a 5 minute threshold, threshold alerts on, export on.
func Defaults() Settings {
	return Settings{
		Layout:          models.LayoutGrid,
		MaxDevices:      12,
		AutoRefresh:     true,
		RefreshInterval: 30,
		Metrics: []models.MetricDefinition{
			{
				Key:        "temperature",
				Label:      "Temperature",
				Unit:       "°C",
				Weight:     1,
				Enabled:    true,
				Thresholds: models.Thresholds{Warning: 30, Error: 40},
			},
			{
				Key:        "humidity",
				Label:      "Humidity",
				Unit:       "%",
				Weight:     1,
				Enabled:    true,
				Thresholds: models.Thresholds{Warning: 80, Error: 90},
			},
			{
				Key:        "battery",
				Label:      "Battery",
				Unit:       "%",
				Weight:     2,
				Enabled:    true,
				Thresholds: models.Thresholds{Warning: 20, Error: 10},
			},
		},
		Ranking: Ranking{
			Enabled:  true,
			Criteria: models.RankingPerformance,
		},
		Outlier: Outlier{
			Enabled:   true,
			Threshold: 2.0,
		},
		Alerting: Alerting{
			EnableOffline:           true,
			OfflineThresholdMinutes: 5,
			EnableThreshold:         true,
		},
		DeviceTypeFilter: nil,
		EnableExport:     true,
	}
}

// Patch carries partial settings supplied by a caller. Nil fields mean "use
// the default"; this replaces the implicit spread-merge of loosely typed
// option maps with an explicit, independently testable merge.
type Patch struct {
	Layout           *models.ComparisonLayout   `json:"layout" yaml:"layout"`
	MaxDevices       *int                       `json:"maxDevices" yaml:"max_devices"`
	AutoRefresh      *bool                      `json:"autoRefresh" yaml:"auto_refresh"`
	RefreshInterval  *int                       `json:"refreshInterval" yaml:"refresh_interval"`
	Metrics          []models.MetricDefinition  `json:"metrics" yaml:"metrics"`
	EnableRanking    *bool                      `json:"enableRanking" yaml:"enable_ranking"`
	RankingCriteria  *models.RankingCriteria    `json:"rankingCriteria" yaml:"ranking_criteria"`
	CustomFormula    *string                    `json:"customRankingFormula" yaml:"custom_ranking_formula"`
	EnableOutliers   *bool                      `json:"enableOutlierDetection" yaml:"enable_outlier_detection"`
	OutlierThreshold *float64                   `json:"outlierThreshold" yaml:"outlier_threshold"`
	EnableOffline    *bool                      `json:"enableOfflineAlerts" yaml:"enable_offline_alerts"`
	OfflineThreshold *int                       `json:"offlineThreshold" yaml:"offline_threshold"`
	EnableThreshold  *bool                      `json:"enableThresholdAlerts" yaml:"enable_threshold_alerts"`
	DeviceTypeFilter []string                   `json:"deviceTypeFilter" yaml:"device_type_filter"`
	EnableExport     *bool                      `json:"enableExport" yaml:"enable_export"`
}

// WithDefaults merges a patch over Defaults. Unset fields keep the default;
// set fields replace it wholesale (metric lists and type filters are not
// merged element-wise).
func WithDefaults(p Patch) Settings {
	s := Defaults()
	if p.Layout != nil {
		s.Layout = *p.Layout
	}
	if p.MaxDevices != nil {
		s.MaxDevices = *p.MaxDevices
	}
	if p.AutoRefresh != nil {
		s.AutoRefresh = *p.AutoRefresh
	}
	if p.RefreshInterval != nil {
		s.RefreshInterval = *p.RefreshInterval
	}
	if p.Metrics != nil {
		s.Metrics = p.Metrics
	}
	if p.EnableRanking != nil {
		s.Ranking.Enabled = *p.EnableRanking
	}
	if p.RankingCriteria != nil {
		s.Ranking.Criteria = *p.RankingCriteria
	}
	if p.CustomFormula != nil {
		s.Ranking.Formula = *p.CustomFormula
	}
	if p.EnableOutliers != nil {
		s.Outlier.Enabled = *p.EnableOutliers
	}
	if p.OutlierThreshold != nil {
		s.Outlier.Threshold = *p.OutlierThreshold
	}
	if p.EnableOffline != nil {
		s.Alerting.EnableOffline = *p.EnableOffline
	}
	if p.OfflineThreshold != nil {
		s.Alerting.OfflineThresholdMinutes = *p.OfflineThreshold
	}
	if p.EnableThreshold != nil {
		s.Alerting.EnableThreshold = *p.EnableThreshold
	}
	if p.DeviceTypeFilter != nil {
		s.DeviceTypeFilter = p.DeviceTypeFilter
	}
	if p.EnableExport != nil {
		s.EnableExport = *p.EnableExport
	}
	return s
}

// Validate rejects settings the engine cannot act on sensibly. It does not
// try to second-guess threshold orientation: whether error sits above or
// below warning depends on the metric.
func (s Settings) Validate() error {
	if !s.Layout.Valid() {
		return fmt.Errorf("settings: unknown layout %q", s.Layout)
	}
	if s.MaxDevices <= 0 {
		return fmt.Errorf("settings: maxDevices must be positive, got %d", s.MaxDevices)
	}
	if !s.Ranking.Criteria.Valid() {
		return fmt.Errorf("settings: unknown ranking criteria %q", s.Ranking.Criteria)
	}
	if s.Outlier.Enabled && s.Outlier.Threshold <= 0 {
		return fmt.Errorf("settings: outlier threshold must be positive, got %g", s.Outlier.Threshold)
	}
	if s.Alerting.EnableOffline && s.Alerting.OfflineThresholdMinutes <= 0 {
		return fmt.Errorf("settings: offline threshold must be positive, got %d", s.Alerting.OfflineThresholdMinutes)
	}
	seen := make(map[string]struct{}, len(s.Metrics))
	for i, m := range s.Metrics {
		if m.Key == "" {
			return fmt.Errorf("settings: metric %d has empty key", i)
		}
		if _, dup := seen[m.Key]; dup {
			return fmt.Errorf("settings: duplicate metric key %q", m.Key)
		}
		seen[m.Key] = struct{}{}
		if m.Weight < 0 {
			return fmt.Errorf("settings: metric %q has negative weight", m.Key)
		}
	}
	return nil
}

// EnabledMetrics returns the enabled subset of the configured metrics in
// configuration order.
func (s Settings) EnabledMetrics() []models.MetricDefinition {
	out := make([]models.MetricDefinition, 0, len(s.Metrics))
	for _, m := range s.Metrics {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}
