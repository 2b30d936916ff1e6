// Package filter narrows device batches by type membership and free-text
// search.
package filter

import (
	"strings"

	"github.com/fleetrank/fleetrank/internal/models"
)

// Devices keeps devices whose type is in allowedTypes (empty list means no
// type restriction) and which match searchTerm as a case-insensitive
// substring of name, id, or type (blank term means no search restriction).
// The two filters compose with AND; with both empty the input comes back as
// is, in its original order.
func Devices(devices []models.DeviceRecord, allowedTypes []string, searchTerm string) []models.DeviceRecord {
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	if len(allowedTypes) == 0 && term == "" {
		return devices
	}

	typeSet := make(map[string]struct{}, len(allowedTypes))
	for _, t := range allowedTypes {
		typeSet[t] = struct{}{}
	}

	out := make([]models.DeviceRecord, 0, len(devices))
	for _, d := range devices {
		if len(typeSet) > 0 {
			if _, ok := typeSet[d.Type]; !ok {
				continue
			}
		}
		if term != "" && !matches(d, term) {
			continue
		}
		out = append(out, d)
	}
	return out
}

func matches(d models.DeviceRecord, term string) bool {
	return strings.Contains(strings.ToLower(d.Name), term) ||
		strings.Contains(strings.ToLower(d.ID), term) ||
		strings.Contains(strings.ToLower(d.Type), term)
}
