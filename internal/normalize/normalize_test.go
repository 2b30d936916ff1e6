package normalize

import (
	"math"
	"testing"

	"github.com/fleetrank/fleetrank/internal/models"
)

var band = models.Thresholds{Warning: 30, Error: 10}

func TestLinearAtOrBelowError(t *testing.T) {
	for _, v := range []float64{-100, 0, 9.99, 10} {
		if got := Linear(v, band); got != 0 {
			t.Fatalf("Linear(%g) = %g, want 0", v, got)
		}
	}
}

func TestLinearAboveWarning(t *testing.T) {
	for _, v := range []float64{30.01, 50, 1e9} {
		if got := Linear(v, band); got != 100 {
			t.Fatalf("Linear(%g) = %g, want 100", v, got)
		}
	}
}

func TestLinearInterpolatesBetweenThresholds(t *testing.T) {
	// Midpoint of (10, 30] sits exactly halfway into the 0-50 band.
	if got := Linear(20, band); math.Abs(got-25) > 1e-9 {
		t.Fatalf("Linear(20) = %g, want 25", got)
	}
	if got := Linear(30, band); math.Abs(got-50) > 1e-9 {
		t.Fatalf("Linear(30) = %g, want 50", got)
	}
}

func TestLinearMonotoneWithinBand(t *testing.T) {
	prev := 0.0
	for v := 10.0; v <= 30.0; v += 0.25 {
		got := Linear(v, band)
		if got < prev {
			t.Fatalf("Linear not monotone at %g: %g < %g", v, got, prev)
		}
		if got < 0 || got > 50 {
			t.Fatalf("Linear(%g) = %g outside [0,50]", v, got)
		}
		prev = got
	}
}

func TestLinearDegenerateThresholds(t *testing.T) {
	// Warning == error must not divide by zero.
	flat := models.Thresholds{Warning: 10, Error: 10}
	if got := Linear(10, flat); got != 0 {
		t.Fatalf("Linear at collapsed thresholds = %g, want 0", got)
	}
	if got := Linear(11, flat); got != 100 {
		t.Fatalf("Linear above collapsed thresholds = %g, want 100", got)
	}
}

func TestEasedBelowErrorNeverPositive(t *testing.T) {
	for _, v := range []float64{-50, 0, 5, 10} {
		got := Eased(v, band)
		if got > 0 {
			t.Fatalf("Eased(%g) = %g, want <= 0", v, got)
		}
		if got < -50 {
			t.Fatalf("Eased(%g) = %g, below the -50 floor", v, got)
		}
	}
	// Continuous at the error threshold.
	if got := Eased(10, band); math.Abs(got) > 1e-9 {
		t.Fatalf("Eased at error threshold = %g, want 0", got)
	}
}

func TestEasedBetweenThresholds(t *testing.T) {
	// Smoothstep hits the band edges exactly and its midpoint.
	if got := Eased(10, band); math.Abs(got-0) > 1e-9 {
		t.Fatalf("Eased(10) = %g, want 0", got)
	}
	if got := Eased(30, band); math.Abs(got-50) > 1e-9 {
		t.Fatalf("Eased(30) = %g, want 50", got)
	}
	if got := Eased(20, band); math.Abs(got-25) > 1e-9 {
		t.Fatalf("Eased(20) = %g, want 25", got)
	}
}

func TestEasedAboveWarningSaturates(t *testing.T) {
	if got := Eased(30, band); math.Abs(got-50) > 1e-9 {
		t.Fatalf("Eased at warning threshold = %g, want 50", got)
	}
	prev := 50.0
	for v := 30.0; v < 500; v += 5 {
		got := Eased(v, band)
		if got < prev-1e-12 {
			t.Fatalf("Eased not monotone at %g", v)
		}
		if got < 0 || got > 100 {
			t.Fatalf("Eased(%g) = %g outside [0,100]", v, got)
		}
		prev = got
	}
	if got := Eased(1e6, band); got < 99.9 {
		t.Fatalf("Eased far above warning = %g, want near 100", got)
	}
}
