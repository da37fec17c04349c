package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Georeference carries the metadata needed to write a derived product with
// the same spatial reference as its source raster.
type Georeference struct {
	// GeoTransform is the 6-parameter affine transform mapping pixel
	// (column, row) to georeferenced coordinates, in GDAL order.
	GeoTransform [6]float64

	// Projection is the coordinate reference system as WKT. Empty when the
	// source carries no projection.
	Projection string

	// DataType is the GDAL name of the source band data type (e.g.
	// "Float32"). Outputs are written with the same type.
	DataType string

	// NoData is the declared no-data value of the source, or nil when the
	// source declares none.
	NoData *float64
}

// Raster is a raster image held fully in memory, in band-major order:
// band b occupies Data[b*Rows*Cols : (b+1)*Rows*Cols], rows major within
// each band. This matches the (bands, rows, cols) layout emitted by the
// raster I/O layer.
type Raster struct {
	// Data holds all band samples in band-major order.
	Data []float64

	// Bands, Rows, Cols are the cube dimensions.
	Bands int
	Rows  int
	Cols  int

	// Geo is the georeferencing metadata of the source file.
	Geo Georeference
}

// NewRaster allocates a zeroed raster cube with the given dimensions.
func NewRaster(bands, rows, cols int, geo Georeference) *Raster {
	return &Raster{
		Data:  make([]float64, bands*rows*cols),
		Bands: bands,
		Rows:  rows,
		Cols:  cols,
		Geo:   geo,
	}
}

// Band returns the samples of band b as a view into the cube.
func (r *Raster) Band(b int) []float64 {
	n := r.Rows * r.Cols
	return r.Data[b*n : (b+1)*n]
}

// PixelMatrix reshapes the band-first cube into the band-last layout the
// numerical transforms expect: an N x B matrix with one row per pixel (row
// major over the image grid) and one column per band.
func (r *Raster) PixelMatrix() *mat.Dense {
	n := r.Rows * r.Cols
	out := mat.NewDense(n, r.Bands, nil)
	for b := 0; b < r.Bands; b++ {
		band := r.Band(b)
		for p := 0; p < n; p++ {
			out.Set(p, b, band[p])
		}
	}
	return out
}

// FromPixelMatrix is the inverse of PixelMatrix: it reshapes an N x B pixel
// matrix back into a band-first cube with the given image dimensions. The
// georeference is inherited from the source raster; only the band count
// changes.
func FromPixelMatrix(m mat.Matrix, rows, cols int, geo Georeference) (*Raster, error) {
	n, bands := m.Dims()
	if n != rows*cols {
		return nil, fmt.Errorf("pixel matrix has %d rows, want %d (%dx%d image)", n, rows*cols, rows, cols)
	}
	out := NewRaster(bands, rows, cols, geo)
	for b := 0; b < bands; b++ {
		band := out.Band(b)
		for p := 0; p < n; p++ {
			band[p] = m.At(p, b)
		}
	}
	return out, nil
}
