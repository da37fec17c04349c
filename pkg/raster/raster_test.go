package raster

import (
	"testing"

	"github.com/airbusgeo/godal"
)

// TestDataTypeRoundTrip checks that every supported GDAL data type maps to
// a name and back.
func TestDataTypeRoundTrip(t *testing.T) {
	types := []godal.DataType{
		godal.Byte,
		godal.UInt16,
		godal.Int16,
		godal.UInt32,
		godal.Int32,
		godal.Float32,
		godal.Float64,
	}
	for _, dt := range types {
		name := DataTypeName(dt)
		back, err := DataTypeFromName(name)
		if err != nil {
			t.Errorf("DataTypeFromName(%q) failed: %v", name, err)
			continue
		}
		if back != dt {
			t.Errorf("round trip of %q gave a different type", name)
		}
	}
}

// TestDataTypeDefaults checks the fallbacks: an empty name means Float64
// for derived products, an unknown name is an error.
func TestDataTypeDefaults(t *testing.T) {
	dt, err := DataTypeFromName("")
	if err != nil || dt != godal.Float64 {
		t.Errorf("DataTypeFromName(\"\") = (%v, %v), want (Float64, nil)", dt, err)
	}
	if _, err := DataTypeFromName("CInt16"); err == nil {
		t.Errorf("expected an error for an unsupported type name")
	}
}
