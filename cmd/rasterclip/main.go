// Command rasterclip clips a raster to the polygons of a vector boundary
// file, cropping to the geometry envelope and writing no-data outside the
// polygon interior. The output is written beside the input raster as
// <stem>_mask<ext>.
//
// Usage:
//
//	rasterclip -r orthomosaic.tif -s boundary.shp
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"rastermnf/pkg/clip"
	"rastermnf/pkg/raster"
)

func main() {
	var rasterPath, shapePath string
	flag.StringVar(&rasterPath, "r", "", "input raster (required)")
	flag.StringVar(&rasterPath, "raster", "", "input raster (required)")
	flag.StringVar(&shapePath, "s", "", "input vector boundary, shapefile or GeoJSON (required)")
	flag.StringVar(&shapePath, "shape", "", "input vector boundary, shapefile or GeoJSON (required)")
	flag.Parse()

	if rasterPath == "" || shapePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	raster.RegisterDrivers()

	fmt.Println("Clipping raster...")
	outPath, err := clip.Clip(rasterPath, shapePath)
	if err != nil {
		log.Fatalf("Clipping failed: %v", err)
	}
	fmt.Printf("Done! Output written to %s\n", outPath)
}
