// Package normalize maps raw metric values onto a 0-100 score band using the
// metric's warning and error thresholds. Two interchangeable curves are
// provided: Linear for the performance strategy and Eased for the blended
// custom fallback.
package normalize

import (
	"math"

	"github.com/fleetrank/fleetrank/internal/models"
)

// minGap guards the interpolation against degenerate threshold pairs where
// warning and error (nearly) coincide.
const minGap = 1e-9

func gap(t models.Thresholds) float64 {
	g := t.Warning - t.Error
	if g < minGap {
		g = minGap
	}
	return g
}

// Linear maps value onto [0,100]: at or below the error threshold scores 0,
// between the thresholds interpolates linearly into [0,50), above the warning
// threshold scores 100.
func Linear(value float64, t models.Thresholds) float64 {
	switch {
	case value <= t.Error:
		return 0
	case value <= t.Warning:
		position := value - t.Error
		return position / gap(t) * 50
	default:
		return 100
	}
}

// Eased maps value onto a smooth curve: below the error threshold the score
// decays exponentially with the deficit and never rises above 0, between the
// thresholds an ease-in-ease-out quadratic covers [0,50], and above the
// warning threshold a tanh curve saturates from 50 toward 100 without ever
// reaching it.
func Eased(value float64, t models.Thresholds) float64 {
	g := gap(t)
	switch {
	case value <= t.Error:
		deficit := (t.Error - value) / g
		return 50 * (math.Exp(-deficit) - 1)
	case value <= t.Warning:
		u := (value - t.Error) / g
		return 50 * u * u * (3 - 2*u)
	default:
		excess := (value - t.Warning) / g
		return 50 + 50*math.Tanh(excess)
	}
}
