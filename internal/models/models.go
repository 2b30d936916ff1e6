package models

import "time"

// AlertLevel classifies the severity of a generated alert.
type AlertLevel string

const (
	AlertLevelInfo    AlertLevel = "info"
	AlertLevelWarning AlertLevel = "warning"
	AlertLevelError   AlertLevel = "error"
)

func (l AlertLevel) Valid() bool {
	switch l {
	case AlertLevelInfo, AlertLevelWarning, AlertLevelError:
		return true
	}
	return false
}

// RankingCriteria selects the scoring strategy used when ranking devices.
type RankingCriteria string

const (
	RankingPerformance RankingCriteria = "performance"
	RankingUptime      RankingCriteria = "uptime"
	RankingCustom      RankingCriteria = "custom"
)

func (c RankingCriteria) Valid() bool {
	switch c {
	case RankingPerformance, RankingUptime, RankingCustom:
		return true
	}
	return false
}

// ComparisonLayout is the presentation layout requested by the caller. The
// engine carries it through settings but never interprets it.
type ComparisonLayout string

const (
	LayoutGrid  ComparisonLayout = "grid"
	LayoutList  ComparisonLayout = "list"
	LayoutTable ComparisonLayout = "table"
)

func (l ComparisonLayout) Valid() bool {
	switch l {
	case LayoutGrid, LayoutList, LayoutTable:
		return true
	}
	return false
}

// ExportFormat selects the serialization used by the exporter.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportJSON ExportFormat = "json"
)

func (f ExportFormat) Valid() bool {
	switch f {
	case ExportCSV, ExportJSON:
		return true
	}
	return false
}

// Thresholds holds the warning and error boundaries for a metric. Error is
// the more severe boundary; whether it sits above or below warning depends on
// the metric's semantics and is not enforced here.
type Thresholds struct {
	Warning float64 `json:"warning" yaml:"warning"`
	Error   float64 `json:"error" yaml:"error"`
}

// MetricDefinition describes one comparable metric. Disabled metrics are
// excluded from scoring, outlier detection and alerting but may still be
// present in raw device data.
type MetricDefinition struct {
	Key        string     `json:"key" yaml:"key"`
	Label      string     `json:"label" yaml:"label"`
	Unit       string     `json:"unit" yaml:"unit"`
	Weight     float64    `json:"weight" yaml:"weight"`
	Thresholds Thresholds `json:"thresholds" yaml:"thresholds"`
	Enabled    bool       `json:"enabled" yaml:"enabled"`
}

// AlertRecord is a single alert derived for a device. MetricKey is set only
// for threshold-breach alerts; offline and outlier alerts carry none.
type AlertRecord struct {
	Level     AlertLevel `json:"level"`
	Message   string     `json:"message"`
	Timestamp int64      `json:"timestamp"`
	MetricKey string     `json:"metricKey,omitempty"`
}

// DeviceRecord is one device snapshot plus the annotations computed by a
// comparison pass. Metrics keys absent from the map mean "no data", which is
// distinct from a stored zero. Score, Rank, Alerts and IsOutlier are rebuilt
// in full on every pass and never accumulate across passes.
type DeviceRecord struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Type       string             `json:"type"`
	Online     bool               `json:"online"`
	LastSeenAt int64              `json:"lastSeenAt"`
	Metrics    map[string]float64 `json:"metrics"`
	Score      float64            `json:"score"`
	Rank       int                `json:"rank"`
	Alerts     []AlertRecord      `json:"alerts"`
	IsOutlier  bool               `json:"isOutlier"`
}

// MetricValue returns the device's value for a metric key and whether it is
// defined at all.
func (d *DeviceRecord) MetricValue(key string) (float64, bool) {
	v, ok := d.Metrics[key]
	return v, ok
}

// SeenWithin reports whether the device checked in within the given window of
// now.
func (d *DeviceRecord) SeenWithin(now time.Time, window time.Duration) bool {
	if d.LastSeenAt <= 0 {
		return false
	}
	last := time.UnixMilli(d.LastSeenAt)
	return now.Sub(last) < window
}

// Clone returns a deep copy of the record. Comparison passes annotate copies
// so callers' inputs are never mutated.
func (d DeviceRecord) Clone() DeviceRecord {
	out := d
	if d.Metrics != nil {
		out.Metrics = make(map[string]float64, len(d.Metrics))
		for k, v := range d.Metrics {
			out.Metrics[k] = v
		}
	}
	if d.Alerts != nil {
		out.Alerts = append([]AlertRecord(nil), d.Alerts...)
	}
	return out
}

// CloneDevices deep-copies a batch preserving order.
func CloneDevices(devices []DeviceRecord) []DeviceRecord {
	out := make([]DeviceRecord, len(devices))
	for i, d := range devices {
		out[i] = d.Clone()
	}
	return out
}
