package export

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nsls2-sst/ucal-export/internal/logging"
	"github.com/nsls2-sst/ucal-export/internal/metrics"
	"github.com/nsls2-sst/ucal-export/internal/paths"
)

type uploaderFake struct {
	paths []string
	err   error
}

func (u *uploaderFake) Upload(_ context.Context, path string) error {
	u.paths = append(u.paths, path)
	return u.err
}

func TestFileWritten(t *testing.T) {
	logger := logging.FallbackLogger()

	t.Run("without a mirror", func(t *testing.T) {
		NewService(nil, paths.NewProposals(t.TempDir()), nil, logger).FileWritten("XDI", "/tmp/a.xdi")
	})

	t.Run("mirrors every written file", func(t *testing.T) {
		uploader := &uploaderFake{}
		service := NewService(nil, paths.NewProposals(t.TempDir()), nil, logger).WithMirror(uploader)
		service.FileWritten("XDI", "/tmp/a.xdi")
		service.FileWritten("HDF5", "/tmp/a.hdf5")
		if len(uploader.paths) != 2 || uploader.paths[1] != "/tmp/a.hdf5" {
			t.Fatalf("Unexpected uploads %v", uploader.paths)
		}
	})

	t.Run("upload failures are counted", func(t *testing.T) {
		m := metrics.New()
		service := NewService(nil, paths.NewProposals(t.TempDir()), nil, logger).
			WithMirror(&uploaderFake{err: errors.New("denied")}).
			WithMetrics(m)
		service.FileWritten("XDI", "/tmp/a.xdi")
		if count := testutil.CollectAndCount(m.Registry(), "ucal_export_mirror_uploads_total"); count != 1 {
			t.Fatalf("Expected one upload series, got %d", count)
		}
	})
}
