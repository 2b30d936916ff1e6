// Package export serializes device batches to downloadable CSV or JSON
// payloads.
package export

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/fleetrank/fleetrank/internal/models"
)

const (
	MIMECSV  = "text/csv;charset=utf-8;"
	MIMEJSON = "application/json;charset=utf-8;"
)

// Payload is a serialized device batch ready for download or archival.
type Payload struct {
	Data      []byte
	MIME      string
	Extension string
}

// Devices serializes the batch in the requested format. An empty or unknown
// format falls back to CSV.
func Devices(devices []models.DeviceRecord, format models.ExportFormat) (Payload, error) {
	switch format {
	case models.ExportJSON:
		return toJSON(devices)
	default:
		return toCSV(devices), nil
	}
}

// metricColumns collects the union of metric keys across the batch. Sorted
// order keeps the header and every data row aligned and the output stable.
func metricColumns(devices []models.DeviceRecord) []string {
	set := make(map[string]struct{})
	for _, d := range devices {
		for k := range d.Metrics {
			set[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toCSV(devices []models.DeviceRecord) Payload {
	metricKeys := metricColumns(devices)

	headers := append([]string{"Name", "Type", "Status", "Score", "Rank", "AlertCount"}, metricKeys...)
	lines := make([]string, 0, len(devices)+1)
	lines = append(lines, strings.Join(headers, ","))

	for _, d := range devices {
		row := []string{
			fmt.Sprintf("%q", d.Name),
			fmt.Sprintf("%q", d.Type),
			statusString(d.Online),
			strconv.FormatFloat(d.Score, 'f', 2, 64),
			strconv.Itoa(d.Rank),
			strconv.Itoa(len(d.Alerts)),
		}
		for _, key := range metricKeys {
			if v, ok := d.Metrics[key]; ok {
				row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
			} else {
				row = append(row, "N/A")
			}
		}
		lines = append(lines, strings.Join(row, ","))
	}

	return Payload{
		Data:      []byte(strings.Join(lines, "\n")),
		MIME:      MIMECSV,
		Extension: "csv",
	}
}

type jsonAlert struct {
	Level     models.AlertLevel `json:"level"`
	Message   string            `json:"message"`
	Timestamp int64             `json:"timestamp"`
}

type jsonDevice struct {
	Name    string             `json:"name"`
	Type    string             `json:"type"`
	Status  string             `json:"status"`
	Score   float64            `json:"score"`
	Rank    int                `json:"rank"`
	Metrics map[string]float64 `json:"metrics"`
	Alerts  []jsonAlert        `json:"alerts"`
}

func toJSON(devices []models.DeviceRecord) (Payload, error) {
	out := make([]jsonDevice, 0, len(devices))
	for _, d := range devices {
		alerts := make([]jsonAlert, 0, len(d.Alerts))
		for _, a := range d.Alerts {
			alerts = append(alerts, jsonAlert{Level: a.Level, Message: a.Message, Timestamp: a.Timestamp})
		}
		out = append(out, jsonDevice{
			Name:    d.Name,
			Type:    d.Type,
			Status:  statusString(d.Online),
			Score:   d.Score,
			Rank:    d.Rank,
			Metrics: d.Metrics,
			Alerts:  alerts,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return Payload{}, fmt.Errorf("marshal export: %w", err)
	}
	return Payload{Data: data, MIME: MIMEJSON, Extension: "json"}, nil
}

func statusString(online bool) string {
	if online {
		return "Online"
	}
	return "Offline"
}
