// Package pipeline runs the MNF batch: it discovers the input rasters in a
// working directory and processes them one at a time, fully loading,
// transforming and writing each file before moving on to the next. There is
// no shared state between files and no retry; a file that fails is logged
// and, under the default policy, skipped.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"

	"rastermnf/internal/models"
	"rastermnf/pkg/config"
	"rastermnf/pkg/mnf"
	"rastermnf/pkg/raster"
)

// Method 2 denoising policy. The window and degree reproduce the original
// field-calibrated settings and are deliberately not configurable; the
// smoothed component and the band offset applied after the inverse
// transform are likewise fixed. Whether skipping the first inverse band is
// intentional upstream is unresolved, so the behavior is kept as-is.
const (
	denoiseWindow    = 15
	denoiseDegree    = 2
	denoiseComponent = 1
	inverseBandSkip  = 1
)

// Runner executes one batch over a working directory.
type Runner struct {
	cfg     *config.Config
	workDir string
}

// NewRunner creates a runner for the given configuration and working
// directory. Inputs are discovered in workDir and outputs are written to
// the configured subdirectory of it.
func NewRunner(cfg *config.Config, workDir string) *Runner {
	return &Runner{cfg: cfg, workDir: workDir}
}

// Run discovers the input files and processes them according to the
// configured mode. An empty match set is reported but is not an error. In
// continue-on-error mode a non-nil error is still returned when any file
// was skipped, so the process exits non-zero.
func (r *Runner) Run() error {
	files, err := r.Discover()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Printf("No *.%s files found in %s\n", r.cfg.Format, r.workDir)
		return nil
	}
	switch r.cfg.Mode {
	case config.ModeVariance:
		return r.reportVariance(files)
	default:
		return r.transform(files)
	}
}

// Discover lists the files in the working directory matching the configured
// extension, in filesystem listing order.
func (r *Runner) Discover() ([]string, error) {
	pattern := filepath.Join(r.workDir, "*."+r.cfg.Format)
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", pattern, err)
	}
	return files, nil
}

func (r *Runner) transform(files []string) error {
	outDir := filepath.Join(r.workDir, r.cfg.Batch.OutputDir)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	failed := 0
	for _, path := range files {
		if err := r.processFile(path, outDir); err != nil {
			if !r.cfg.Batch.ContinueOnError {
				return fmt.Errorf("processing %s: %w", filepath.Base(path), err)
			}
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", filepath.Base(path), err)
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func (r *Runner) processFile(path, outDir string) error {
	img, err := raster.Load(path)
	if err != nil {
		return err
	}
	if r.cfg.Components > img.Bands {
		return fmt.Errorf("requested %d components but raster has only %d bands", r.cfg.Components, img.Bands)
	}
	name := filepath.Base(path)
	fmt.Printf("Creating MNF components of %s\n", name)

	x := img.PixelMatrix()
	if r.cfg.BrightnessNormalize {
		mnf.BrightnessNormalize(x)
	}

	var comps *mat.Dense
	switch r.cfg.Method {
	case config.MethodStandard:
		comps, err = standardComponents(x, img.Rows, img.Cols, r.cfg.Components)
	case config.MethodDenoise:
		comps, err = denoisedComponents(x, img.Rows, img.Cols, r.cfg.Components)
	default:
		err = fmt.Errorf("unsupported method %d", r.cfg.Method)
	}
	if err != nil {
		return err
	}

	out, err := models.FromPixelMatrix(comps, img.Rows, img.Cols, img.Geo)
	if err != nil {
		return err
	}
	outPath := filepath.Join(outDir, OutputName(name, r.cfg.Batch.Suffix))
	if err := raster.Write(outPath, out); err != nil {
		return err
	}
	if r.cfg.Batch.BandStats {
		printBandStats(out)
	}
	return nil
}

// standardComponents applies the plain MNF transform and keeps the leading
// k components in their natural descending signal-to-noise order.
func standardComponents(x *mat.Dense, rows, cols, k int) (*mat.Dense, error) {
	var t mnf.Transform
	if err := t.Fit(x, rows, cols); err != nil {
		return nil, err
	}
	return t.Components(x, k)
}

// denoisedComponents projects into MNF space, smooths component 1 with the
// fixed Savitzky-Golay policy, undoes the rotation and returns the inverse
// bands [1, k+1).
func denoisedComponents(x *mat.Dense, rows, cols, k int) (*mat.Dense, error) {
	n, bands := x.Dims()
	if k+inverseBandSkip > bands {
		return nil, fmt.Errorf("method 2 needs %d bands for %d components but raster has %d", k+inverseBandSkip, k, bands)
	}
	var t mnf.Transform
	if err := t.Fit(x, rows, cols); err != nil {
		return nil, err
	}
	y, err := t.Project(x)
	if err != nil {
		return nil, err
	}
	sg, err := mnf.NewSavitzkyGolay(denoiseWindow, denoiseDegree)
	if err != nil {
		return nil, err
	}
	smoothed, err := sg.SmoothBand(mat.Col(nil, denoiseComponent, y), rows, cols)
	if err != nil {
		return nil, err
	}
	y.SetCol(denoiseComponent, smoothed)

	inv, err := t.InverseTransform(y)
	if err != nil {
		return nil, err
	}
	return mat.DenseCopyOf(inv.Slice(0, n, inverseBandSkip, inverseBandSkip+k)), nil
}

func (r *Runner) reportVariance(files []string) error {
	failed := 0
	for _, path := range files {
		cum, err := r.fileVariances(path)
		if err != nil {
			if !r.cfg.Batch.ContinueOnError {
				return fmt.Errorf("processing %s: %w", filepath.Base(path), err)
			}
			fmt.Fprintf(os.Stderr, "Skipping %s: %v\n", filepath.Base(path), err)
			failed++
			continue
		}
		fmt.Printf("Accumulated explained variances of %s are:\n", filepath.Base(path))
		fmt.Println(FormatRatios(cum))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(files))
	}
	return nil
}

func (r *Runner) fileVariances(path string) ([]float64, error) {
	img, err := raster.Load(path)
	if err != nil {
		return nil, err
	}
	x := img.PixelMatrix()
	if r.cfg.BrightnessNormalize {
		mnf.BrightnessNormalize(x)
	}
	return mnf.CumulativeVariance(x)
}

// OutputName derives the output file name from an input name, inserting the
// suffix before the extension: scene.tif becomes scene_MNF.tif.
func OutputName(name, suffix string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + suffix + ext
}

// FormatRatios renders variance ratios the way the report prints them:
// bracketed, four decimals, space separated.
func FormatRatios(ratios []float64) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range ratios {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.4f", v)
	}
	b.WriteByte(']')
	return b.String()
}

func printBandStats(r *models.Raster) {
	for b := 0; b < r.Bands; b++ {
		band := r.Band(b)
		min, errMin := stats.Min(band)
		mean, errMean := stats.Mean(band)
		max, errMax := stats.Max(band)
		if errMin != nil || errMean != nil || errMax != nil {
			continue
		}
		fmt.Printf("  band %d: min=%.4f mean=%.4f max=%.4f\n", b+1, min, mean, max)
	}
}
