package extract

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/nsls2-sst/ucal-export/internal/abstractions"
	"github.com/nsls2-sst/ucal-export/internal/analysis"
	"github.com/nsls2-sst/ucal-export/internal/logging"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

type resolverFunc func(ctx context.Context, run *api.Run, saveDirectory string) (abstractions.DerivedChannels, error)

func (f resolverFunc) Resolve(ctx context.Context, run *api.Run, saveDirectory string) (abstractions.DerivedChannels, error) {
	return f(ctx, run, saveDirectory)
}

func saveDirectory(_ *api.Run) (string, error) {
	return "/proposals/2025-1/pass-1/ucal_processing", nil
}

func floats(values ...float64) *api.Array {
	return api.NewFloats(values)
}

func testRun() *api.Run {
	matrix, _ := api.NewMatrix(2, 3, []float64{1, 2, 3, 4, 5, 6})
	primary := api.NewStream(
		[]string{"time", "nexafs_sc", "en_energy", "tes_mca_spectrum", "broken", "tes_scan_point_start"},
		map[string]*api.Array{
			"time":                 floats(1, 2),
			"nexafs_sc":            floats(0.1, 0.2),
			"en_energy":            floats(700, 701),
			"tes_mca_spectrum":     matrix,
			"broken":               {DType: api.Float64, Shape: []int{3}, Values: []float64{1}},
			"tes_scan_point_start": floats(0, 1),
		},
	)
	primary.Descriptors = []api.Descriptor{{Configuration: map[string]any{
		"nexafs_sc": map[string]any{"data": map[string]any{"ucal_sc_exposure_time": 0.5}},
	}}}
	return &api.Run{Start: api.Document{"uid": "u", "scan_id": 1.0}, Primary: primary}
}

func TestExtract(t *testing.T) {
	logger := logging.FallbackLogger()
	ctx := context.Background()
	unprocessed := analysis.NewResolver(nil, api.ROITable{{Name: "tes_mca_counts", Low: 200, High: 2000}}, logger)

	t.Run("orders native channels and synthesizes seconds", func(t *testing.T) {
		channels, rois, err := New(unprocessed, saveDirectory, logger).Extract(ctx, testRun(), Options{OmitArrayKeys: true})
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		want := []string{"en_energy", "nexafs_sc", "tes_scan_point_start", "time", "seconds"}
		if got := channels.Names(); !reflect.DeepEqual(got, want) {
			t.Fatalf("Expected %v, got %v", want, got)
		}
		seconds, _ := channels.Get("seconds")
		if seconds.Len() != 2 || seconds.Values[0] != 0.5 {
			t.Fatalf("Unexpected seconds %+v", seconds)
		}
		if len(rois) != 1 || rois[0].Name != "tes_mca_counts" {
			t.Fatalf("Expected the default ROIs, got %v", rois)
		}
	})

	t.Run("omitted channels are dropped", func(t *testing.T) {
		channels, _, err := New(unprocessed, saveDirectory, logger).Extract(ctx, testRun(), Options{Omit: []string{"tes_scan_point_start"}, OmitArrayKeys: true})
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if channels.Has("tes_scan_point_start") {
			t.Fatalf("Omitted channel present in %v", channels.Names())
		}
	})

	t.Run("array keys are kept on request", func(t *testing.T) {
		channels, _, err := New(unprocessed, saveDirectory, logger).Extract(ctx, testRun(), Options{})
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if !channels.Has("tes_mca_spectrum") {
			t.Fatalf("Expected the spectrum in %v", channels.Names())
		}
	})

	t.Run("derived channels are merged", func(t *testing.T) {
		record := &api.ProcessedRun{
			ROIs: api.ROITable{{Name: "tes_mca_counts", Low: 200, High: 2000}, {Name: "tes_mca_pfy", Low: 600, High: 800}},
			Channels: map[string]*api.Array{
				"tes_mca_counts": api.NewInts([]int64{5, 6}),
				"tes_mca_pfy":    api.NewGridArray(floats(1), floats(2), floats(3)),
			},
		}
		resolver := resolverFunc(func(context.Context, *api.Run, string) (abstractions.DerivedChannels, error) {
			return analysis.NewCached(record), nil
		})
		channels, _, err := New(resolver, saveDirectory, logger).Extract(ctx, testRun(), Options{OmitArrayKeys: true})
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if !channels.Has("tes_mca_counts") {
			t.Fatalf("Expected the derived counts in %v", channels.Names())
		}
		if channels.Has("tes_mca_pfy") {
			t.Fatalf("A gridded derived channel must be dropped, got %v", channels.Names())
		}
	})

	t.Run("resolver failures are returned", func(t *testing.T) {
		resolver := resolverFunc(func(context.Context, *api.Run, string) (abstractions.DerivedChannels, error) {
			return nil, errors.New("store unavailable")
		})
		if _, _, err := New(resolver, saveDirectory, logger).Extract(ctx, testRun(), Options{}); err == nil {
			t.Fatalf("Expected an error")
		}
	})

	t.Run("a run without primary stream yields seconds only", func(t *testing.T) {
		channels, _, err := New(unprocessed, saveDirectory, logger).Extract(ctx, &api.Run{Start: api.Document{}}, Options{})
		if err != nil {
			t.Fatalf("Extract failed: %v", err)
		}
		if got := channels.Names(); !reflect.DeepEqual(got, []string{"seconds"}) {
			t.Fatalf("Unexpected channels %v", got)
		}
	})
}

func TestOrder(t *testing.T) {
	got := Order([]string{"seconds", "b", "nexafs_i0up", "a", "en_energy_setpoint", "time"}, []string{"a"})
	want := []string{"en_energy_setpoint", "nexafs_i0up", "b", "time", "seconds"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
}

func TestExposure(t *testing.T) {
	if got := Exposure(&api.Stream{}); got != 0 {
		t.Fatalf("Expected 0 without configuration, got %v", got)
	}
	stream := &api.Stream{Descriptors: []api.Descriptor{{Configuration: map[string]any{
		"nexafs_i0up": map[string]any{"data": map[string]any{"nexafs_i0up_exposure_time": []any{1.5}}},
	}}}}
	if got := Exposure(stream); got != 1.5 {
		t.Fatalf("Expected 1.5, got %v", got)
	}
}
