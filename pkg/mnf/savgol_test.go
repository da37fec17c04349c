package mnf

import (
	"math"
	"testing"
)

// TestNewSavitzkyGolayValidation checks the window/degree preconditions.
func TestNewSavitzkyGolayValidation(t *testing.T) {
	cases := []struct {
		window, degree int
	}{
		{4, 2},  // even window
		{1, 0},  // window too short
		{5, 5},  // degree not below window
		{5, -1}, // negative degree
	}
	for _, c := range cases {
		if _, err := NewSavitzkyGolay(c.window, c.degree); err == nil {
			t.Errorf("NewSavitzkyGolay(%d, %d) should fail", c.window, c.degree)
		}
	}
	if _, err := NewSavitzkyGolay(15, 2); err != nil {
		t.Errorf("NewSavitzkyGolay(15, 2) failed: %v", err)
	}
}

// TestSmoothPreservesPolynomial verifies that a polynomial of the filter
// degree passes through unchanged, including at the series edges.
func TestSmoothPreservesPolynomial(t *testing.T) {
	sg, err := NewSavitzkyGolay(15, 2)
	if err != nil {
		t.Fatalf("NewSavitzkyGolay failed: %v", err)
	}

	series := make([]float64, 60)
	for i := range series {
		x := float64(i)
		series[i] = 2 + 0.5*x - 0.03*x*x
	}
	out := sg.Smooth(series)
	for i := range series {
		if diff := math.Abs(out[i] - series[i]); diff > 1e-8 {
			t.Fatalf("quadratic changed at %d: |%v - %v| = %v", i, out[i], series[i], diff)
		}
	}
}

// TestSmoothReducesNoise checks that smoothing a noisy sinusoid lowers the
// high-frequency energy, measured as the variance of first differences.
func TestSmoothReducesNoise(t *testing.T) {
	sg, err := NewSavitzkyGolay(15, 2)
	if err != nil {
		t.Fatalf("NewSavitzkyGolay failed: %v", err)
	}

	series := make([]float64, 200)
	for i := range series {
		noise := 0.5
		if i%2 == 0 {
			noise = -0.5
		}
		series[i] = math.Sin(float64(i)/20) + noise
	}
	out := sg.Smooth(series)

	if got, want := diffVariance(out), diffVariance(series); got >= want {
		t.Errorf("smoothed first-difference variance %v not below original %v", got, want)
	}
}

// TestSmoothShortSeries verifies that a series shorter than the window is
// returned unchanged.
func TestSmoothShortSeries(t *testing.T) {
	sg, err := NewSavitzkyGolay(15, 2)
	if err != nil {
		t.Fatalf("NewSavitzkyGolay failed: %v", err)
	}
	series := []float64{1, 4, 9, 16}
	out := sg.Smooth(series)
	for i := range series {
		if out[i] != series[i] {
			t.Errorf("short series changed at %d: %v, want %v", i, out[i], series[i])
		}
	}
}

// TestSmoothBand checks row independence and the size validation.
func TestSmoothBand(t *testing.T) {
	sg, err := NewSavitzkyGolay(5, 1)
	if err != nil {
		t.Fatalf("NewSavitzkyGolay failed: %v", err)
	}

	rows, cols := 3, 20
	band := make([]float64, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			// Each row is a different line, invariant under a degree-1 fit.
			band[r*cols+c] = float64(r+1) * float64(c)
		}
	}
	out, err := sg.SmoothBand(band, rows, cols)
	if err != nil {
		t.Fatalf("SmoothBand failed: %v", err)
	}
	for i := range band {
		if diff := math.Abs(out[i] - band[i]); diff > 1e-9 {
			t.Fatalf("linear rows changed at %d: |%v - %v| = %v", i, out[i], band[i], diff)
		}
	}

	if _, err := sg.SmoothBand(band, rows, cols+1); err == nil {
		t.Errorf("expected an error for a band size mismatch")
	}
}

func diffVariance(s []float64) float64 {
	n := len(s) - 1
	diffs := make([]float64, n)
	mean := 0.0
	for i := 0; i < n; i++ {
		diffs[i] = s[i+1] - s[i]
		mean += diffs[i]
	}
	mean /= float64(n)
	v := 0.0
	for _, d := range diffs {
		v += (d - mean) * (d - mean)
	}
	return v / float64(n-1)
}
