// Package mnf implements the Minimum Noise Fraction transform for
// hyperspectral pixel matrices, together with the preprocessing and
// smoothing steps the batch tool composes around it.
//
// The transform is the noise-whitened PCA variant: the noise covariance is
// estimated from neighbouring-pixel differences, the data is whitened with
// its symmetric inverse square root, and a plain PCA of the whitened data
// yields components ordered by descending signal-to-noise ratio.
package mnf

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// eigFloor keeps the noise whitening finite when the noise covariance is
// rank deficient: eigenvalues below this fraction of the largest one are
// clamped before inversion.
const eigFloor = 1e-12

// Transform holds a fitted MNF rotation. The zero value is usable; call
// Fit before any of the projection methods.
type Transform struct {
	mean    []float64
	forward *mat.Dense // B x B, centered pixels -> MNF space
	inverse *mat.Dense // B x B, MNF space -> centered pixels
	snr     []float64  // eigenvalues of the whitened covariance, descending
	bands   int
}

// Fit estimates the MNF rotation from an N x B pixel matrix whose rows are
// laid out rows-major over a rows x cols image grid. The grid layout is
// needed for the neighbour-difference noise estimate.
func (t *Transform) Fit(x *mat.Dense, rows, cols int) error {
	n, bands := x.Dims()
	if n != rows*cols {
		return fmt.Errorf("pixel matrix has %d rows, want %d (%dx%d image)", n, rows*cols, rows, cols)
	}
	if bands < 1 {
		return fmt.Errorf("pixel matrix has no bands")
	}
	if n < 2 {
		return fmt.Errorf("need at least two pixels to fit, got %d", n)
	}

	mean := make([]float64, bands)
	for j := 0; j < bands; j++ {
		mean[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}
	xc := centered(x, mean)

	diff, err := noiseDifferences(x, rows, cols)
	if err != nil {
		return err
	}
	cn := mat.NewSymDense(bands, nil)
	stat.CovarianceMatrix(cn, diff, nil)
	// Var(a-b) doubles the per-pixel noise variance for uncorrelated noise.
	for i := 0; i < bands; i++ {
		for j := i; j < bands; j++ {
			cn.SetSym(i, j, 0.5*cn.At(i, j))
		}
	}

	var noiseEig mat.EigenSym
	if !noiseEig.Factorize(cn, true) {
		return fmt.Errorf("noise covariance eigendecomposition failed")
	}
	nvals := noiseEig.Values(nil)
	var nvecs mat.Dense
	noiseEig.VectorsTo(&nvecs)

	largest := nvals[bands-1] // Values are in ascending order.
	if largest <= 0 {
		return fmt.Errorf("noise covariance is not positive: the image has no detectable noise")
	}
	floor := eigFloor * largest
	dInv := make([]float64, bands)
	dSqrt := make([]float64, bands)
	for i, v := range nvals {
		if v < floor {
			v = floor
		}
		s := math.Sqrt(v)
		dSqrt[i] = s
		dInv[i] = 1 / s
	}
	var whiten, unwhiten mat.Dense
	whiten.Product(&nvecs, mat.NewDiagDense(bands, dInv), nvecs.T())
	unwhiten.Product(&nvecs, mat.NewDiagDense(bands, dSqrt), nvecs.T())

	var z mat.Dense
	z.Mul(xc, &whiten)
	cz := mat.NewSymDense(bands, nil)
	stat.CovarianceMatrix(cz, &z, nil)

	var signalEig mat.EigenSym
	if !signalEig.Factorize(cz, true) {
		return fmt.Errorf("whitened covariance eigendecomposition failed")
	}
	svals := signalEig.Values(nil)
	var svecs mat.Dense
	signalEig.VectorsTo(&svecs)

	// Reorder the ascending eigenpairs into descending SNR order.
	vdesc := mat.NewDense(bands, bands, nil)
	snr := make([]float64, bands)
	for j := 0; j < bands; j++ {
		src := bands - 1 - j
		snr[j] = svals[src]
		for i := 0; i < bands; i++ {
			vdesc.Set(i, j, svecs.At(i, src))
		}
	}

	var forward, inverse mat.Dense
	forward.Mul(&whiten, vdesc)
	inverse.Mul(vdesc.T(), &unwhiten)

	t.mean = mean
	t.forward = &forward
	t.inverse = &inverse
	t.snr = snr
	t.bands = bands
	return nil
}

// Project maps a pixel matrix into MNF space, returning all fitted
// components in descending signal-to-noise order.
func (t *Transform) Project(x *mat.Dense) (*mat.Dense, error) {
	if t.forward == nil {
		return nil, fmt.Errorf("transform has not been fitted")
	}
	_, bands := x.Dims()
	if bands != t.bands {
		return nil, fmt.Errorf("pixel matrix has %d bands, transform was fitted on %d", bands, t.bands)
	}
	var y mat.Dense
	y.Mul(centered(x, t.mean), t.forward)
	return &y, nil
}

// Components projects x and keeps the first k components. The result is
// identical to slicing the leading k columns of Project.
func (t *Transform) Components(x *mat.Dense, k int) (*mat.Dense, error) {
	if k < 1 || k > t.bands {
		return nil, fmt.Errorf("component count %d out of range [1, %d]", k, t.bands)
	}
	y, err := t.Project(x)
	if err != nil {
		return nil, err
	}
	n, _ := y.Dims()
	return mat.DenseCopyOf(y.Slice(0, n, 0, k)), nil
}

// InverseTransform maps MNF-space components back to the original spectral
// space, restoring the per-band means.
func (t *Transform) InverseTransform(y *mat.Dense) (*mat.Dense, error) {
	if t.inverse == nil {
		return nil, fmt.Errorf("transform has not been fitted")
	}
	n, bands := y.Dims()
	if bands != t.bands {
		return nil, fmt.Errorf("component matrix has %d bands, transform was fitted on %d", bands, t.bands)
	}
	var x mat.Dense
	x.Mul(y, t.inverse)
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		for j := range row {
			row[j] += t.mean[j]
		}
	}
	return &x, nil
}

// SNR returns the eigenvalues of the whitened covariance in descending
// order, one per component.
func (t *Transform) SNR() []float64 {
	out := make([]float64, len(t.snr))
	copy(out, t.snr)
	return out
}

// CumulativeVariance computes a principal component decomposition with as
// many components as bands and returns the cumulative explained-variance
// ratios in descending component order. The result has one entry per band,
// is monotonically non-decreasing and ends at 1 up to floating error.
func CumulativeVariance(x mat.Matrix) ([]float64, error) {
	n, bands := x.Dims()
	if n < 2 {
		return nil, fmt.Errorf("need at least two pixels, got %d", n)
	}
	cov := mat.NewSymDense(bands, nil)
	stat.CovarianceMatrix(cov, x, nil)

	var eig mat.EigenSym
	if !eig.Factorize(cov, false) {
		return nil, fmt.Errorf("covariance eigendecomposition failed")
	}
	vals := eig.Values(nil)
	total := 0.0
	for i, v := range vals {
		if v < 0 { // numerical noise below zero
			vals[i] = 0
			v = 0
		}
		total += v
	}
	if total == 0 {
		return nil, fmt.Errorf("image has zero variance")
	}
	cum := make([]float64, bands)
	acc := 0.0
	for j := 0; j < bands; j++ {
		acc += vals[bands-1-j]
		cum[j] = acc / total
	}
	return cum, nil
}

// noiseDifferences estimates per-pixel noise as the difference between
// horizontally adjacent pixel spectra (the shift-difference method).
// Single-column images fall back to vertical neighbours.
func noiseDifferences(x *mat.Dense, rows, cols int) (*mat.Dense, error) {
	_, bands := x.Dims()
	switch {
	case cols >= 2:
		d := mat.NewDense(rows*(cols-1), bands, nil)
		i := 0
		for r := 0; r < rows; r++ {
			for c := 0; c < cols-1; c++ {
				p := r*cols + c
				for b := 0; b < bands; b++ {
					d.Set(i, b, x.At(p, b)-x.At(p+1, b))
				}
				i++
			}
		}
		return d, nil
	case rows >= 2:
		d := mat.NewDense((rows-1)*cols, bands, nil)
		i := 0
		for r := 0; r < rows-1; r++ {
			for c := 0; c < cols; c++ {
				p := r*cols + c
				for b := 0; b < bands; b++ {
					d.Set(i, b, x.At(p, b)-x.At(p+cols, b))
				}
				i++
			}
		}
		return d, nil
	default:
		return nil, fmt.Errorf("image is too small to estimate noise")
	}
}

// centered returns a copy of x with the given per-band means subtracted.
func centered(x *mat.Dense, mean []float64) *mat.Dense {
	n, bands := x.Dims()
	out := mat.NewDense(n, bands, nil)
	for i := 0; i < n; i++ {
		src := x.RawRowView(i)
		dst := out.RawRowView(i)
		for j := 0; j < bands; j++ {
			dst[j] = src[j] - mean[j]
		}
	}
	return out
}
