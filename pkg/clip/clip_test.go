package clip

import (
	"math"
	"testing"
)

// TestInvertTransformRoundTrip checks the affine inversion on a rotated
// geotransform by mapping pixel coordinates out and back.
func TestInvertTransformRoundTrip(t *testing.T) {
	gt := [6]float64{100, 2, 1, 200, 1, -2}
	inv, err := invertTransform(gt)
	if err != nil {
		t.Fatalf("invertTransform failed: %v", err)
	}
	for _, p := range [][2]float64{{0, 0}, {3, 7}, {10.5, 2.25}} {
		x, y := applyTransform(gt, p[0], p[1])
		col, row := applyTransform(inv, x, y)
		if math.Abs(col-p[0]) > 1e-9 || math.Abs(row-p[1]) > 1e-9 {
			t.Errorf("round trip of (%v, %v) gave (%v, %v)", p[0], p[1], col, row)
		}
	}
}

// TestInvertTransformDegenerate ensures a singular geotransform is
// rejected.
func TestInvertTransformDegenerate(t *testing.T) {
	if _, err := invertTransform([6]float64{0, 0, 0, 0, 0, 0}); err == nil {
		t.Errorf("expected an error for a singular geotransform")
	}
}

// TestPixelWindowTopLeftQuadrant reproduces the reference case: a 10x10
// north-up raster with unit pixels and a polygon envelope over the top-left
// 5x5 pixels must map to a 5x5 window at the origin.
func TestPixelWindowTopLeftQuadrant(t *testing.T) {
	gt := [6]float64{0, 1, 0, 10, 0, -1}
	win, err := pixelWindow(gt, [4]float64{0, 5, 5, 10}, 10, 10)
	if err != nil {
		t.Fatalf("pixelWindow failed: %v", err)
	}
	want := window{col: 0, row: 0, w: 5, h: 5}
	if win != want {
		t.Errorf("window = %+v, want %+v", win, want)
	}
}

// TestPixelWindowInterior checks an envelope away from the raster origin.
func TestPixelWindowInterior(t *testing.T) {
	gt := [6]float64{0, 1, 0, 10, 0, -1}
	win, err := pixelWindow(gt, [4]float64{3, 2, 8, 6}, 10, 10)
	if err != nil {
		t.Fatalf("pixelWindow failed: %v", err)
	}
	want := window{col: 3, row: 4, w: 5, h: 4}
	if win != want {
		t.Errorf("window = %+v, want %+v", win, want)
	}
}

// TestPixelWindowClamped checks that an envelope extending past the raster
// is clamped to the raster extent.
func TestPixelWindowClamped(t *testing.T) {
	gt := [6]float64{0, 1, 0, 10, 0, -1}
	win, err := pixelWindow(gt, [4]float64{-5, -5, 7, 15}, 10, 10)
	if err != nil {
		t.Fatalf("pixelWindow failed: %v", err)
	}
	want := window{col: 0, row: 0, w: 7, h: 10}
	if win != want {
		t.Errorf("window = %+v, want %+v", win, want)
	}
}

// TestPixelWindowOutside ensures a disjoint envelope is an error.
func TestPixelWindowOutside(t *testing.T) {
	gt := [6]float64{0, 1, 0, 10, 0, -1}
	if _, err := pixelWindow(gt, [4]float64{20, 20, 25, 25}, 10, 10); err == nil {
		t.Errorf("expected an error for an envelope outside the raster")
	}
}

// TestShiftTransform verifies the cropped origin computation.
func TestShiftTransform(t *testing.T) {
	gt := [6]float64{500, 2, 0, 800, 0, -2}
	out := shiftTransform(gt, window{col: 3, row: 4, w: 5, h: 5})
	if out[0] != 506 || out[3] != 792 {
		t.Errorf("shifted origin = (%v, %v), want (506, 792)", out[0], out[3])
	}
	if out[1] != gt[1] || out[5] != gt[5] {
		t.Errorf("pixel size changed: (%v, %v)", out[1], out[5])
	}
}

// TestApplyMask verifies that unmasked samples become no-data and masked
// samples are untouched.
func TestApplyMask(t *testing.T) {
	data := []float64{1, 2, 3, 4}
	applyMask(data, []uint8{255, 0, 255, 0}, -9999)
	want := []float64{1, -9999, 3, -9999}
	for i := range data {
		if data[i] != want[i] {
			t.Errorf("data[%d] = %v, want %v", i, data[i], want[i])
		}
	}
}

// TestOutputPath checks the _mask naming.
func TestOutputPath(t *testing.T) {
	if got := outputPath("/data/ortho.tif"); got != "/data/ortho_mask.tif" {
		t.Errorf("outputPath = %q, want \"/data/ortho_mask.tif\"", got)
	}
	if got := outputPath("plot.img"); got != "plot_mask.img" {
		t.Errorf("outputPath = %q, want \"plot_mask.img\"", got)
	}
}
