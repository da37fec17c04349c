// Package clip masks a raster to a vector polygon boundary. The raster is
// cropped to the envelope of the geometries and every pixel outside the
// polygon interior is replaced with the raster's no-data value.
package clip

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/godal"

	"rastermnf/internal/models"
	"rastermnf/pkg/raster"
)

// Clip crops rasterPath to the geometries of vectorPath and writes the
// result beside the input as <stem>_mask<ext>. The two files are assumed to
// share a coordinate reference system; no reprojection is performed. The
// output path is returned.
func Clip(rasterPath, vectorPath string) (string, error) {
	geoms, closeGeoms, err := readGeometries(vectorPath)
	if err != nil {
		return "", err
	}
	defer closeGeoms()

	ds, err := godal.Open(rasterPath)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", rasterPath, err)
	}
	defer ds.Close()

	gt, err := ds.GeoTransform()
	if err != nil {
		return "", fmt.Errorf("%s has no geotransform: %w", rasterPath, err)
	}
	bounds, err := unionBounds(geoms)
	if err != nil {
		return "", err
	}

	st := ds.Structure()
	win, err := pixelWindow(gt, bounds, st.SizeX, st.SizeY)
	if err != nil {
		return "", err
	}
	cropped := shiftTransform(gt, win)

	mask, err := rasterizeMask(ds, geoms, cropped, win.w, win.h)
	if err != nil {
		return "", err
	}

	bands := ds.Bands()
	nodata := 0.0
	if nd, ok := bands[0].NoData(); ok {
		nodata = nd
	}

	out := models.NewRaster(st.NBands, win.h, win.w, models.Georeference{
		GeoTransform: cropped,
		DataType:     raster.DataTypeName(bands[0].Structure().DataType),
		NoData:       &nodata,
	})
	if sr := ds.SpatialRef(); sr != nil {
		if wkt, err := sr.WKT(); err == nil {
			out.Geo.Projection = wkt
		}
	}
	for b, band := range bands {
		buf := out.Band(b)
		if err := band.Read(win.col, win.row, buf, win.w, win.h); err != nil {
			return "", fmt.Errorf("reading band %d of %s: %w", b+1, rasterPath, err)
		}
		applyMask(buf, mask, nodata)
	}

	outPath := outputPath(rasterPath)
	if err := raster.Write(outPath, out); err != nil {
		return "", err
	}
	return outPath, nil
}

// readGeometries collects the geometries of every layer in the vector
// dataset. The returned closer releases the features and the dataset and
// must be called once the geometries are no longer needed.
func readGeometries(path string) ([]*godal.Geometry, func(), error) {
	ds, err := godal.Open(path, godal.VectorOnly())
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}

	var feats []*godal.Feature
	var geoms []*godal.Geometry
	for _, layer := range ds.Layers() {
		layer.ResetReading()
		for {
			f := layer.NextFeature()
			if f == nil {
				break
			}
			g := f.Geometry()
			if g == nil {
				f.Close()
				continue
			}
			feats = append(feats, f)
			geoms = append(geoms, g)
		}
	}
	closeAll := func() {
		for _, f := range feats {
			f.Close()
		}
		ds.Close()
	}
	if len(geoms) == 0 {
		closeAll()
		return nil, nil, fmt.Errorf("%s contains no geometries", path)
	}
	return geoms, closeAll, nil
}

// unionBounds returns the envelope of all geometries as
// [minx, miny, maxx, maxy].
func unionBounds(geoms []*godal.Geometry) ([4]float64, error) {
	var u [4]float64
	for i, g := range geoms {
		b, err := g.Bounds()
		if err != nil {
			return u, fmt.Errorf("computing geometry envelope: %w", err)
		}
		if i == 0 {
			u = b
			continue
		}
		u[0] = math.Min(u[0], b[0])
		u[1] = math.Min(u[1], b[1])
		u[2] = math.Max(u[2], b[2])
		u[3] = math.Max(u[3], b[3])
	}
	return u, nil
}

// window is a pixel-space rectangle: origin column/row plus size.
type window struct {
	col, row, w, h int
}

// invertTransform computes the inverse of a 6-parameter affine
// geotransform, mapping georeferenced coordinates back to pixel space.
func invertTransform(gt [6]float64) ([6]float64, error) {
	det := gt[1]*gt[5] - gt[2]*gt[4]
	if det == 0 {
		return [6]float64{}, fmt.Errorf("geotransform is not invertible")
	}
	var inv [6]float64
	inv[1] = gt[5] / det
	inv[2] = -gt[2] / det
	inv[4] = -gt[4] / det
	inv[5] = gt[1] / det
	inv[0] = -(inv[1]*gt[0] + inv[2]*gt[3])
	inv[3] = -(inv[4]*gt[0] + inv[5]*gt[3])
	return inv, nil
}

// applyTransform maps a (column, row) style coordinate pair through a
// geotransform.
func applyTransform(gt [6]float64, x, y float64) (float64, float64) {
	return gt[0] + gt[1]*x + gt[2]*y, gt[3] + gt[4]*x + gt[5]*y
}

// pixelWindow maps a georeferenced envelope onto the raster grid and clamps
// it to the raster extent. All four envelope corners are transformed, so
// rotated geotransforms are handled.
func pixelWindow(gt [6]float64, bounds [4]float64, xsize, ysize int) (window, error) {
	inv, err := invertTransform(gt)
	if err != nil {
		return window{}, err
	}
	corners := [4][2]float64{
		{bounds[0], bounds[1]},
		{bounds[0], bounds[3]},
		{bounds[2], bounds[1]},
		{bounds[2], bounds[3]},
	}
	minC, minR := math.Inf(1), math.Inf(1)
	maxC, maxR := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		col, row := applyTransform(inv, c[0], c[1])
		minC = math.Min(minC, col)
		maxC = math.Max(maxC, col)
		minR = math.Min(minR, row)
		maxR = math.Max(maxR, row)
	}

	win := window{
		col: int(minC + 0.5),
		row: int(minR + 0.5),
		w:   int(maxC - minC + 0.5),
		h:   int(maxR - minR + 0.5),
	}
	if win.w < 1 {
		win.w = 1
	}
	if win.h < 1 {
		win.h = 1
	}
	if win.col < 0 {
		win.col = 0
	}
	if win.row < 0 {
		win.row = 0
	}
	if win.col >= xsize || win.row >= ysize {
		return window{}, fmt.Errorf("geometries do not intersect the raster extent")
	}
	if win.col+win.w > xsize {
		win.w = xsize - win.col
	}
	if win.row+win.h > ysize {
		win.h = ysize - win.row
	}
	return win, nil
}

// shiftTransform moves the geotransform origin to the window origin.
func shiftTransform(gt [6]float64, win window) [6]float64 {
	out := gt
	out[0] = gt[0] + float64(win.col)*gt[1] + float64(win.row)*gt[2]
	out[3] = gt[3] + float64(win.col)*gt[4] + float64(win.row)*gt[5]
	return out
}

// rasterizeMask burns the geometries into an in-memory byte mask covering
// the cropped window: 255 inside the geometries, 0 outside.
func rasterizeMask(src *godal.Dataset, geoms []*godal.Geometry, gt [6]float64, w, h int) ([]uint8, error) {
	mem, err := godal.Create(godal.Memory, "", 1, godal.Byte, w, h)
	if err != nil {
		return nil, fmt.Errorf("creating mask dataset: %w", err)
	}
	defer mem.Close()
	if err := mem.SetGeoTransform(gt); err != nil {
		return nil, fmt.Errorf("setting mask geotransform: %w", err)
	}
	if sr := src.SpatialRef(); sr != nil {
		if err := mem.SetSpatialRef(sr); err != nil {
			return nil, fmt.Errorf("setting mask projection: %w", err)
		}
	}
	for _, g := range geoms {
		if err := mem.RasterizeGeometry(g, godal.Values(255)); err != nil {
			return nil, fmt.Errorf("rasterizing geometry: %w", err)
		}
	}
	mask := make([]uint8, w*h)
	if err := mem.Bands()[0].Read(0, 0, mask, w, h); err != nil {
		return nil, fmt.Errorf("reading mask: %w", err)
	}
	return mask, nil
}

// applyMask writes nodata over every sample whose mask byte is unset.
func applyMask(data []float64, mask []uint8, nodata float64) {
	for i := range data {
		if mask[i] == 0 {
			data[i] = nodata
		}
	}
}

// outputPath derives the clipped output name: ortho.tif -> ortho_mask.tif.
func outputPath(rasterPath string) string {
	ext := filepath.Ext(rasterPath)
	return strings.TrimSuffix(rasterPath, ext) + "_mask" + ext
}
