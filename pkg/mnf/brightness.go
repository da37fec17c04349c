package mnf

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// BrightnessNormalize scales every pixel spectrum to unit Euclidean length
// in place, removing illumination and albedo differences before spectral
// analysis (Feilhauer et al. 2010). Zero-norm pixels, typically no-data
// fill, are left unchanged so the normalization never produces non-finite
// values.
func BrightnessNormalize(x *mat.Dense) {
	n, _ := x.Dims()
	for i := 0; i < n; i++ {
		row := x.RawRowView(i)
		norm := floats.Norm(row, 2)
		if norm == 0 {
			continue
		}
		floats.Scale(1/norm, row)
	}
}
