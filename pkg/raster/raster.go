// Package raster reads and writes georeferenced rasters through GDAL. It
// loads every band of a file into the in-memory band-major cube the
// transforms operate on, and writes derived cubes back out as GeoTIFF with
// the source georeferencing preserved.
package raster

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/airbusgeo/godal"

	"rastermnf/internal/models"
)

var registerOnce sync.Once

// RegisterDrivers initializes the GDAL driver registry. It is safe to call
// more than once; registration happens only on the first call.
func RegisterDrivers() {
	registerOnce.Do(godal.RegisterAll)
}

// Load reads a raster file fully into memory, capturing the georeferencing
// metadata needed to write derived products. The file handle is closed
// before Load returns, on the error path as well.
func Load(path string) (*models.Raster, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer ds.Close()

	st := ds.Structure()
	if st.NBands < 1 {
		return nil, fmt.Errorf("%s has no raster bands", path)
	}

	geo := models.Georeference{}
	if gt, err := ds.GeoTransform(); err == nil {
		geo.GeoTransform = gt
	}
	if sr := ds.SpatialRef(); sr != nil {
		if wkt, err := sr.WKT(); err == nil {
			geo.Projection = wkt
		}
	}

	bands := ds.Bands()
	geo.DataType = DataTypeName(bands[0].Structure().DataType)
	if nd, ok := bands[0].NoData(); ok {
		geo.NoData = &nd
	}

	out := models.NewRaster(st.NBands, st.SizeY, st.SizeX, geo)
	for b, band := range bands {
		if err := band.Read(0, 0, out.Band(b), st.SizeX, st.SizeY); err != nil {
			return nil, fmt.Errorf("reading band %d of %s: %w", b+1, path, err)
		}
	}
	return out, nil
}

// Write persists a raster cube as GeoTIFF at path, creating the parent
// directory when missing. Samples are converted by GDAL to the raster's
// declared data type. A partially written file is removed on failure.
func Write(path string, r *models.Raster) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	dtype, err := DataTypeFromName(r.Geo.DataType)
	if err != nil {
		return err
	}
	ds, err := godal.Create(godal.GTiff, path, r.Bands, dtype, r.Cols, r.Rows)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := writeBands(ds, r); err != nil {
		ds.Close()
		os.Remove(path)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := ds.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}

func writeBands(ds *godal.Dataset, r *models.Raster) error {
	if err := ds.SetGeoTransform(r.Geo.GeoTransform); err != nil {
		return fmt.Errorf("setting geotransform: %w", err)
	}
	if r.Geo.Projection != "" {
		sr, err := godal.NewSpatialRefFromWKT(r.Geo.Projection)
		if err != nil {
			return fmt.Errorf("parsing projection: %w", err)
		}
		defer sr.Close()
		if err := ds.SetSpatialRef(sr); err != nil {
			return fmt.Errorf("setting projection: %w", err)
		}
	}
	for b, band := range ds.Bands() {
		if r.Geo.NoData != nil {
			if err := band.SetNoData(*r.Geo.NoData); err != nil {
				return fmt.Errorf("setting no-data on band %d: %w", b+1, err)
			}
		}
		if err := band.Write(0, 0, r.Band(b), r.Cols, r.Rows); err != nil {
			return fmt.Errorf("writing band %d: %w", b+1, err)
		}
	}
	return nil
}

// DataTypeName returns the GDAL name of a band data type.
func DataTypeName(dt godal.DataType) string {
	switch dt {
	case godal.Byte:
		return "Byte"
	case godal.UInt16:
		return "UInt16"
	case godal.Int16:
		return "Int16"
	case godal.UInt32:
		return "UInt32"
	case godal.Int32:
		return "Int32"
	case godal.Float32:
		return "Float32"
	case godal.Float64:
		return "Float64"
	default:
		return "Float64"
	}
}

// DataTypeFromName maps a GDAL data type name back to the godal constant.
// An empty name selects Float64, the natural type for derived products.
func DataTypeFromName(name string) (godal.DataType, error) {
	switch name {
	case "Byte":
		return godal.Byte, nil
	case "UInt16":
		return godal.UInt16, nil
	case "Int16":
		return godal.Int16, nil
	case "UInt32":
		return godal.UInt32, nil
	case "Int32":
		return godal.Int32, nil
	case "Float32":
		return godal.Float32, nil
	case "Float64", "":
		return godal.Float64, nil
	default:
		return godal.Unknown, fmt.Errorf("unsupported raster data type %q", name)
	}
}
