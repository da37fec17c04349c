package mnf

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SavitzkyGolay smooths a series by fitting a low-degree polynomial to a
// sliding window by least squares and evaluating it at the window center.
// Edge samples are handled by evaluating the polynomial fitted to the first
// or last full window at their positions, so a polynomial input of the
// filter's degree is reproduced exactly.
type SavitzkyGolay struct {
	window int
	degree int
	// smooth is the window x window projection onto the fitted polynomial:
	// A (A'A)^-1 A' for the Vandermonde matrix A of the window positions.
	smooth *mat.Dense
}

// NewSavitzkyGolay builds a filter with the given window length and
// polynomial degree. The window must be odd and larger than the degree.
func NewSavitzkyGolay(window, degree int) (*SavitzkyGolay, error) {
	if window < 3 || window%2 == 0 {
		return nil, fmt.Errorf("window length must be odd and at least 3, got %d", window)
	}
	if degree < 0 || degree >= window {
		return nil, fmt.Errorf("polynomial degree %d out of range [0, %d)", degree, window)
	}

	a := mat.NewDense(window, degree+1, nil)
	half := window / 2
	for i := 0; i < window; i++ {
		x := float64(i - half)
		v := 1.0
		for j := 0; j <= degree; j++ {
			a.Set(i, j, v)
			v *= x
		}
	}
	var ata mat.Dense
	ata.Mul(a.T(), a)
	var inv mat.Dense
	if err := inv.Inverse(&ata); err != nil {
		return nil, fmt.Errorf("ill-conditioned smoothing window: %w", err)
	}
	var h mat.Dense
	h.Product(a, &inv, a.T())

	return &SavitzkyGolay{window: window, degree: degree, smooth: &h}, nil
}

// Smooth returns the smoothed series. A series shorter than the window is
// returned unchanged.
func (f *SavitzkyGolay) Smooth(series []float64) []float64 {
	n := len(series)
	out := make([]float64, n)
	if n < f.window {
		copy(out, series)
		return out
	}
	half := f.window / 2
	for i := half; i < n-half; i++ {
		out[i] = f.apply(half, series[i-half:i+half+1])
	}
	for i := 0; i < half; i++ {
		out[i] = f.apply(i, series[:f.window])
		out[n-1-i] = f.apply(f.window-1-i, series[n-f.window:])
	}
	return out
}

// SmoothBand smooths a single band, laid out rows major, independently
// along each image row.
func (f *SavitzkyGolay) SmoothBand(band []float64, rows, cols int) ([]float64, error) {
	if len(band) != rows*cols {
		return nil, fmt.Errorf("band has %d samples, want %d (%dx%d image)", len(band), rows*cols, rows, cols)
	}
	out := make([]float64, len(band))
	for r := 0; r < rows; r++ {
		copy(out[r*cols:(r+1)*cols], f.Smooth(band[r*cols:(r+1)*cols]))
	}
	return out, nil
}

func (f *SavitzkyGolay) apply(row int, window []float64) float64 {
	s := 0.0
	for j, v := range window {
		s += f.smooth.At(row, j) * v
	}
	return s
}
