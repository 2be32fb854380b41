// Package writers serializes runs to the beamline's export file formats.
package writers

import (
	"context"
	"log/slog"

	"github.com/nsls2-sst/ucal-export/internal/extract"
	"github.com/nsls2-sst/ucal-export/internal/header"
	"github.com/nsls2-sst/ucal-export/internal/lookup"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/normalize"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// Exporter writes one file format for a run into folder. It returns false
// with a nil error when the run was skipped.
type Exporter interface {
	Format() string
	Export(ctx context.Context, folder string, run *api.Run) (bool, error)
}

// ChannelExtractor is the part of extract.Extractor the writers use.
type ChannelExtractor interface {
	Extract(ctx context.Context, run *api.Run, opts extract.Options) (*api.ChannelSet, api.ROITable, error)
}

// WrittenFunc is called with the path of every file an exporter wrote.
type WrittenFunc func(format, path string)

// canonicalOmit are bookkeeping channels of the TES scan that never become
// columns of the canonical formats.
var canonicalOmit = []string{"tes_scan_point_start", "tes_scan_point_end"}

// Canonical builds the run header and the normalized channel set shared by
// the XDI, HDF5 and tiled exports.
func Canonical(ctx context.Context, extractor ChannelExtractor, run *api.Run, updates *header.Metadata, omitArrayKeys bool) (*header.Header, *api.ChannelSet, error) {
	hdr := header.BuildXDI(run, updates)
	channels, rois, err := extractor.Extract(ctx, run, extract.Options{Omit: canonicalOmit, OmitArrayKeys: omitArrayKeys})
	if err != nil {
		return nil, nil, err
	}
	if err := normalize.Normalize(channels, rois, hdr); err != nil {
		return nil, nil, err
	}
	return hdr, channels, nil
}

// skipWithoutPrimary logs and reports true when the run has nothing to export.
func skipWithoutPrimary(logger *slog.Logger, format string, run *api.Run) bool {
	if run.HasPrimary() {
		return false
	}
	logger.Info(messages.GetErrorMessage(messages.NoPrimaryStream, "Format", format, "ScanId", lookup.String(run.ScanID())))
	return true
}

func notify(fn WrittenFunc, format, path string) {
	if fn != nil {
		fn(format, path)
	}
}
