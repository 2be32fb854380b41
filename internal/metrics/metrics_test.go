package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nsls2-sst/ucal-export/internal/logging"
)

func TestObserveExport(t *testing.T) {
	m := New()
	m.ObserveExport("XDI", true, nil)
	m.ObserveExport("XDI", true, nil)
	m.ObserveExport("HDF5", false, nil)
	m.ObserveExport("Athena", false, errors.New("disk full"))

	tests := []struct {
		format  string
		outcome string
		want    float64
	}{
		{"XDI", OutcomeWritten, 2},
		{"HDF5", OutcomeSkipped, 1},
		{"Athena", OutcomeFailed, 1},
		{"HDF5", OutcomeWritten, 0},
	}
	for _, tt := range tests {
		t.Run(tt.format+"/"+tt.outcome, func(t *testing.T) {
			got := testutil.ToFloat64(m.exports.WithLabelValues(tt.format, tt.outcome))
			if got != tt.want {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestObserveRun(t *testing.T) {
	m := New()
	m.ObserveRun(time.Now().Add(-time.Second), nil)
	if count := testutil.CollectAndCount(m.duration); count != 1 {
		t.Fatalf("Expected one histogram series, got %d", count)
	}
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.InFlight().Inc()
	m.ObserveRequest("POST", "/api/v1/runs/{uid}/export", 200, time.Now())
	m.ObserveRequest("POST", "/api/v1/runs/{uid}/export", 200, time.Now())
	m.ObserveRequest("POST", "/api/v1/runs/{uid}/export", 404, time.Now())

	if got := testutil.ToFloat64(m.requests.WithLabelValues("POST", "/api/v1/runs/{uid}/export", "200")); got != 2 {
		t.Fatalf("Expected 2 requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.InFlight()); got != 1 {
		t.Fatalf("Expected 1 in flight, got %v", got)
	}
	if count := testutil.CollectAndCount(m.requestDuration); count != 2 {
		t.Fatalf("Expected two latency series, got %d", count)
	}
}

func TestFlush(t *testing.T) {
	logger := logging.FallbackLogger()

	t.Run("writes the textfile", func(t *testing.T) {
		m := New()
		m.ObserveProcessing(true, nil)
		path := filepath.Join(t.TempDir(), "ucal_export.prom")
		m.Flush(path, logger)
		content, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("Failed to read the textfile: %v", err)
		}
		if !strings.Contains(string(content), `ucal_export_processed_runs_total{outcome="written"} 1`) {
			t.Fatalf("Unexpected textfile content:\n%s", content)
		}
	})

	t.Run("ignores an empty path", func(t *testing.T) {
		New().Flush("", logger)
	})

	t.Run("tolerates a nil registry", func(t *testing.T) {
		var m *Metrics
		m.Flush(filepath.Join(t.TempDir(), "x.prom"), logger)
	})
}
