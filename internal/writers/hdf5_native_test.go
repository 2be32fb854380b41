//go:build cgo

package writers

import (
	"path/filepath"
	"reflect"
	"testing"

	"gonum.org/v1/hdf5"

	"github.com/nsls2-sst/ucal-export/pkg/api"
)

func readFloats(t *testing.T, dset *hdf5.Dataset) ([]float64, []uint) {
	t.Helper()
	dims, _, err := dset.Space().SimpleExtentDims()
	if err != nil {
		t.Fatalf("Unable to read dimensions: %v", err)
	}
	n := uint(1)
	for _, d := range dims {
		n *= d
	}
	values := make([]float64, n)
	if err := dset.Read(&values); err != nil {
		t.Fatalf("Unable to read dataset: %v", err)
	}
	return values, dims
}

func TestNativeHDF5File(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "scan_1042.hdf5")
	f, err := CreateHDF5File(filename)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", filename, err)
	}
	counts, _ := api.NewMatrix(2, 3, []float64{1, 2, 3, 4, 5, 6})
	writes := []struct {
		path string
		a    *api.Array
	}{
		{"energy", api.NewFloats([]float64{700.5, 701.25, 702})},
		{"tes_scan_point_start", api.NewInts([]int64{1, 2, 250})},
		{"rixs/counts", counts},
	}
	if err := f.CreateGroup("rixs"); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	for _, w := range writes {
		if err := f.WriteDataset(w.path, w.a); err != nil {
			t.Fatalf("WriteDataset %s failed: %v", w.path, err)
		}
	}
	if err := f.WriteDataset("ragged", &api.Array{DType: api.Float64, Shape: []int{3}, Values: []float64{1}}); err == nil {
		t.Fatalf("Expected an error for values that do not fill the shape")
	}
	attributes := map[string]any{
		"Mono.d_spacing":    2.5,
		"Scan.transient_id": int64(1042),
		"Scan.uid":          "5d8b1d2f-1f0a-4c53-9a53-0f8e5f3a2b11",
	}
	for name, value := range attributes {
		if err := f.SetAttribute(name, value); err != nil {
			t.Fatalf("SetAttribute %s failed: %v", name, err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	in, err := hdf5.OpenFile(filename, hdf5.F_ACC_RDONLY)
	if err != nil {
		t.Fatalf("Failed to reopen %s: %v", filename, err)
	}
	defer in.Close()

	t.Run("float dataset", func(t *testing.T) {
		dset, err := in.OpenDataset("energy")
		if err != nil {
			t.Fatalf("Missing energy: %v", err)
		}
		defer dset.Close()
		values, dims := readFloats(t, dset)
		if !reflect.DeepEqual(values, []float64{700.5, 701.25, 702}) || !reflect.DeepEqual(dims, []uint{3}) {
			t.Fatalf("Unexpected energy %v with dims %v", values, dims)
		}
	})

	t.Run("integer dataset keeps its type", func(t *testing.T) {
		dset, err := in.OpenDataset("tes_scan_point_start")
		if err != nil {
			t.Fatalf("Missing tes_scan_point_start: %v", err)
		}
		defer dset.Close()
		values := make([]int64, 3)
		if err := dset.Read(&values); err != nil {
			t.Fatalf("Unable to read integers: %v", err)
		}
		if !reflect.DeepEqual(values, []int64{1, 2, 250}) {
			t.Fatalf("Unexpected integers %v", values)
		}
	})

	t.Run("group dataset", func(t *testing.T) {
		g, err := in.OpenGroup("rixs")
		if err != nil {
			t.Fatalf("Missing rixs group: %v", err)
		}
		defer g.Close()
		dset, err := g.OpenDataset("counts")
		if err != nil {
			t.Fatalf("Missing rixs/counts: %v", err)
		}
		defer dset.Close()
		values, dims := readFloats(t, dset)
		if !reflect.DeepEqual(values, counts.Values) || !reflect.DeepEqual(dims, []uint{2, 3}) {
			t.Fatalf("Unexpected counts %v with dims %v", values, dims)
		}
	})

	t.Run("root attributes", func(t *testing.T) {
		root, err := in.OpenGroup("/")
		if err != nil {
			t.Fatalf("Unable to open the root group: %v", err)
		}
		defer root.Close()

		spacing, err := root.OpenAttribute("Mono.d_spacing")
		if err != nil {
			t.Fatalf("Missing Mono.d_spacing: %v", err)
		}
		defer spacing.Close()
		var d float64
		if err := spacing.Read(&d, hdf5.T_NATIVE_DOUBLE); err != nil || d != 2.5 {
			t.Fatalf("Unexpected d spacing %v, %v", d, err)
		}

		scanID, err := root.OpenAttribute("Scan.transient_id")
		if err != nil {
			t.Fatalf("Missing Scan.transient_id: %v", err)
		}
		defer scanID.Close()
		var id int64
		if err := scanID.Read(&id, hdf5.T_NATIVE_INT64); err != nil || id != 1042 {
			t.Fatalf("Unexpected scan id %v, %v", id, err)
		}

		uid, err := root.OpenAttribute("Scan.uid")
		if err != nil {
			t.Fatalf("Missing the string attribute Scan.uid: %v", err)
		}
		uid.Close()
	})
}
