package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/nsls2-sst/ucal-export/internal/logging"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
	"github.com/nsls2-sst/ucal-export/pkg/tiledclient"
)

const (
	runUID     = "5d8b1d2f-1f0a-4c53-9a53-0f8e5f3a2b11"
	invalidUID = "0b6c2f7e-1111-4222-8333-944455556666"
	bareUID    = "9a0e6d4c-2222-4333-8444-a55566667777"
)

// tiledFake serves one complete run, one run with an invalid start document
// and one run without streams.
func tiledFake(t *testing.T) *httptest.Server {
	t.Helper()
	writeJSON := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(v); err != nil {
			t.Errorf("encode failed: %v", err)
		}
	}
	metadata := func(m map[string]any) map[string]any {
		return map[string]any{"data": map[string]any{"attributes": map[string]any{"metadata": m}}}
	}
	listing := func(nodes ...map[string]any) map[string]any {
		data := make([]any, len(nodes))
		for i, n := range nodes {
			data[i] = n
		}
		return map[string]any{"data": data, "links": map[string]any{"next": nil}}
	}
	node := func(id, family, kind string) map[string]any {
		return map[string]any{"id": id, "attributes": map[string]any{
			"structure_family": family,
			"structure":        map[string]any{"data_type": map[string]any{"kind": kind}},
		}}
	}
	start := func(uid string) map[string]any {
		return map[string]any{"uid": uid, "time": 1700000000.0, "scan_id": 1042, "motors": []any{"en_energy"}}
	}
	run := "/ucal/raw/" + runUID

	routes := map[string]any{
		"/api/v1/metadata" + run: metadata(map[string]any{"start": start(runUID)}),
		"/api/v1/search" + run:   listing(node("primary", "container", ""), node("baseline", "container", ""), node("monitor", "container", "")),
		"/api/v1/metadata" + run + "/primary": metadata(map[string]any{"descriptors": []any{
			map[string]any{"configuration": map[string]any{"nexafs_sc": map[string]any{"data": map[string]any{"ucal_sc_exposure_time": 0.5}}}},
		}}),
		"/api/v1/search" + run + "/primary/data": listing(
			node("en_energy", "array", "f"),
			node("tes_scan_point_start", "array", "i"),
			node("broken", "array", "f"),
			node("config_table", "table", ""),
		),
		"/api/v1/array/full" + run + "/primary/data/en_energy":            []any{700.0, 701.0},
		"/api/v1/array/full" + run + "/primary/data/tes_scan_point_start": []any{0, 1},
		"/api/v1/metadata" + run + "/baseline":                            metadata(map[string]any{}),
		"/api/v1/search" + run + "/baseline/data":                          listing(node("manip_x", "array", "f")),
		"/api/v1/array/full" + run + "/baseline/data/manip_x":              []any{1.25, 1.5},

		"/api/v1/metadata/ucal/raw/" + invalidUID: metadata(map[string]any{"start": map[string]any{"uid": invalidUID}}),

		"/api/v1/metadata/ucal/raw/" + bareUID: metadata(map[string]any{"start": start(bareUID)}),
		"/api/v1/search/ucal/raw/" + bareUID:   listing(),
	}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]any{"detail": "No such entry"})
			return
		}
		writeJSON(w, body)
	}))
}

func TestGetRun(t *testing.T) {
	server := tiledFake(t)
	defer server.Close()
	tiled, err := NewTiled(tiledclient.NewClient(server.URL), "ucal", logging.FallbackLogger())
	if err != nil {
		t.Fatalf("NewTiled failed: %v", err)
	}
	ctx := context.Background()

	t.Run("loads the start document and streams", func(t *testing.T) {
		run, err := tiled.GetRun(ctx, " "+strings.ToUpper(runUID)+" ")
		if err != nil {
			t.Fatalf("GetRun failed: %v", err)
		}
		if run.UID() != runUID || !run.HasPrimary() || run.Baseline == nil {
			t.Fatalf("Unexpected run %+v", run)
		}
		if want := []string{"en_energy", "tes_scan_point_start", "broken"}; !reflect.DeepEqual(run.Primary.Keys, want) {
			t.Fatalf("Expected keys %v, got %v", want, run.Primary.Keys)
		}
		if _, ok := run.Primary.Data["broken"]; ok {
			t.Fatalf("An unreadable array must be left out")
		}
		if !run.Primary.Data["tes_scan_point_start"].IsInteger() {
			t.Fatalf("Integer kinds must be kept")
		}
		if len(run.Primary.Descriptors) != 1 || run.Primary.Descriptors[0].Configuration["nexafs_sc"] == nil {
			t.Fatalf("Unexpected descriptors %+v", run.Primary.Descriptors)
		}
		if got := run.Baseline.Data["manip_x"].Values; !reflect.DeepEqual(got, []float64{1.25, 1.5}) {
			t.Fatalf("Unexpected baseline %v", got)
		}
	})

	t.Run("runs without streams have no primary", func(t *testing.T) {
		run, err := tiled.GetRun(ctx, bareUID)
		if err != nil {
			t.Fatalf("GetRun failed: %v", err)
		}
		if run.HasPrimary() {
			t.Fatalf("Expected no primary stream")
		}
	})

	tests := []struct {
		name string
		uid  string
		want *messages.MessageCode
	}{
		{"malformed uid", "not-a-uid", messages.InvalidRunID},
		{"unknown uid", "11111111-2222-4333-8444-555566667777", messages.RunNotFound},
		{"invalid start document", invalidUID, messages.StartDocumentInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tiled.GetRun(ctx, tt.uid)
			if !serviceerrors.IsMessage(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestStartSchema(t *testing.T) {
	schema, err := NewStartSchema()
	if err != nil {
		t.Fatalf("NewStartSchema failed: %v", err)
	}
	if err := schema.Validate(map[string]any{"uid": "u", "time": 1.0, "scan_id": []any{1.0, 2.0}}); err != nil {
		t.Fatalf("Expected a valid document, got %v", err)
	}
	if err := schema.Validate(nil); err == nil {
		t.Fatalf("Expected an error for a missing document")
	}
	err = schema.Validate(map[string]any{"uid": "", "time": "noon", "scan_id": 1.0})
	if err == nil || !strings.Contains(err.Error(), ";") {
		t.Fatalf("Expected every violation, got %v", err)
	}
}
