package normalize

import (
	"reflect"
	"testing"

	"github.com/nsls2-sst/ucal-export/internal/header"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

func channelSet(t *testing.T, names ...string) *api.ChannelSet {
	t.Helper()
	c := api.NewChannelSet()
	for i, name := range names {
		if err := c.Append(name, api.NewFloats([]float64{float64(i), float64(i) + 0.5})); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	return c
}

func TestNormalize(t *testing.T) {
	channels := channelSet(t, "en_energy_setpoint", "en_energy", "nexafs_i0up", "tes_mca_counts", "ucal_sc", "seconds")
	rois := api.ROITable{{Name: "tes_mca_counts", Low: 200, High: 2000}}
	hdr := header.New()
	hdr.Scan.Motors = "en_energy"

	if err := Normalize(channels, rois, hdr); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}

	want := []string{"energy", "energy_readback", "i0", "tfy", "pfy", "measurement_time"}
	if got := channels.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}

	t.Run("the inserted pfy is zero", func(t *testing.T) {
		pfy, _ := channels.Get("pfy")
		for _, v := range pfy.Values {
			if v != 0 {
				t.Fatalf("Expected zeros, got %v", pfy.Values)
			}
		}
	})

	t.Run("the header follows the renames", func(t *testing.T) {
		flat := hdr.Flatten()
		if v, _ := flat.Get("rois.tfy"); v != "200.00 2000.00" {
			t.Fatalf("Unexpected tfy ROI %v", v)
		}
		if v, ok := flat.Get("rois.pfy"); !ok || v != "" {
			t.Fatalf("Unexpected pfy ROI %v", v)
		}
		if hdr.Scan.Motors != "energy" {
			t.Fatalf("Unexpected scan axis %s", hdr.Scan.Motors)
		}
		for _, name := range []string{"i0", "tfy", "pfy", "energy_readback"} {
			if _, ok := flat.Get("Detector." + name); !ok {
				t.Fatalf("Missing description of %s", name)
			}
		}
		if _, ok := flat.Get("Detector.energy"); ok {
			t.Fatalf("energy has no description")
		}
	})

	t.Run("normalizing twice changes nothing", func(t *testing.T) {
		before := hdr.Flatten().Keys()
		if err := Normalize(channels, rois, hdr); err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if got := channels.Names(); !reflect.DeepEqual(got, want) {
			t.Fatalf("Expected %v, got %v", want, got)
		}
		if after := hdr.Flatten().Keys(); !reflect.DeepEqual(before, after) {
			t.Fatalf("Header changed from %v to %v", before, after)
		}
	})
}

func TestReadbackWithoutSetpoint(t *testing.T) {
	channels := channelSet(t, "nexafs_sc", "en_energy")
	hdr := header.New()
	hdr.Scan.Motors = "en_energy"
	if err := Normalize(channels, nil, hdr); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	want := []string{"energy", "tey"}
	if got := channels.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
}

func TestScanAxisFirst(t *testing.T) {
	channels := channelSet(t, "nexafs_i1", "manip_x", "time")
	hdr := header.New()
	hdr.Scan.Motors = "manip_x"
	if err := Normalize(channels, nil, hdr); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if got := channels.Names(); got[0] != "manip_x" || got[1] != "itrans" {
		t.Fatalf("Unexpected order %v", got)
	}
}

func TestScanAxisMissingFallsBackToTime(t *testing.T) {
	channels := channelSet(t, "nexafs_i0up", "nexafs_sc", "time", "seconds")
	hdr := header.New()
	hdr.Scan.Motors = "manip_x"
	if err := Normalize(channels, nil, hdr); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	want := []string{"time", "i0", "tey", "measurement_time"}
	if got := channels.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	if err := Normalize(channels, nil, hdr); err != nil {
		t.Fatalf("Second Normalize failed: %v", err)
	}
	if got := channels.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Second pass changed the order: %v", got)
	}
}

func TestCanonicalNameCollision(t *testing.T) {
	channels := channelSet(t, "i0", "nexafs_i0up")
	hdr := header.New()
	if err := Normalize(channels, nil, hdr); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	want := []string{"i0", "nexafs_i0up"}
	if got := channels.Names(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	if _, ok := hdr.Flatten().Get("Detector.i0"); ok {
		t.Fatalf("A skipped rename must not be described")
	}
}

func TestSpectrumROI(t *testing.T) {
	channels := channelSet(t, "tes_mca_spectrum")
	rois := api.ROITable{{Name: "tes_mca_spectrum", Low: 0, High: 1000}}
	hdr := header.New()
	if err := Normalize(channels, rois, hdr); err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if !channels.Has("rixs") {
		t.Fatalf("Expected a rixs channel, got %v", channels.Names())
	}
	if v, _ := hdr.Flatten().Get("rois.rixs"); v != "0.00 1000.00" {
		t.Fatalf("Unexpected rixs ROI %v", v)
	}
}
