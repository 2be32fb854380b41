package writers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nsls2-sst/ucal-export/internal/header"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/serviceerrors"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

const (
	FormatHDF5 = "HDF5"
	rixsGroup  = "rixs"
)

// HDF5File is the subset of an HDF5 file the exporter writes to.
type HDF5File interface {
	CreateGroup(name string) error
	// WriteDataset writes a at path, which may name a dataset inside a group.
	WriteDataset(path string, a *api.Array) error
	// SetAttribute attaches a file-level attribute.
	SetAttribute(name string, value any) error
	Close() error
}

// HDF5Opener creates or truncates an HDF5 file.
type HDF5Opener func(filename string) (HDF5File, error)

type HDF5Exporter struct {
	extractor     ChannelExtractor
	open          HDF5Opener
	logger        *slog.Logger
	HeaderUpdates *header.Metadata
	OnWritten     WrittenFunc
}

// NewHDF5Exporter writes through open, or the native HDF5 library when open
// is nil.
func NewHDF5Exporter(extractor ChannelExtractor, open HDF5Opener, logger *slog.Logger) *HDF5Exporter {
	if open == nil {
		open = CreateHDF5File
	}
	return &HDF5Exporter{extractor: extractor, open: open, logger: logger.With("format", FormatHDF5)}
}

func (h *HDF5Exporter) Format() string {
	return FormatHDF5
}

func (h *HDF5Exporter) Export(ctx context.Context, folder string, run *api.Run) (bool, error) {
	if skipWithoutPrimary(h.logger, FormatHDF5, run) {
		return false, nil
	}
	hdr, channels, err := Canonical(ctx, h.extractor, run, h.HeaderUpdates, false)
	if err != nil {
		return false, err
	}
	filename := MakeFilename(folder, hdr, "hdf5")
	h.logger.Info("Exporting HDF5", "path", filename, "scan_id", run.ScanID())

	if err := h.write(filename, hdr.Flatten(), channels); err != nil {
		return false, serviceerrors.NewServiceError(messages.WriteFailed, "Format", FormatHDF5, "Path", filename, "Error", err.Error()).WithCause(err)
	}
	notify(h.OnWritten, FormatHDF5, filename)
	return true, nil
}

func (h *HDF5Exporter) write(filename string, metadata *header.Metadata, channels *api.ChannelSet) (err error) {
	f, err := h.open(filename)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	names := channels.Names()
	for i, a := range channels.Arrays() {
		if names[i] == rixsGroup && a.Grid != nil {
			if err := writeRIXS(f, a.Grid); err != nil {
				return err
			}
			continue
		}
		if err := f.WriteDataset(names[i], a); err != nil {
			return fmt.Errorf("dataset %s: %w", names[i], err)
		}
	}
	var attrErr error
	metadata.Each(func(key string, value any) {
		if attrErr == nil {
			if err := f.SetAttribute(key, value); err != nil {
				attrErr = fmt.Errorf("attribute %s: %w", key, err)
			}
		}
	})
	return attrErr
}

// writeRIXS stores the spectrum as a group with the mono positions (first
// row of the mono grid), the emission energies (first column of the
// emission grid) and the counts matrix.
func writeRIXS(f HDF5File, g *api.Grid) error {
	motorValues, err := row(g.MonoGrid, 0)
	if err != nil {
		return fmt.Errorf("rixs mono grid: %w", err)
	}
	emission, err := column(g.EmissionGrid, 0)
	if err != nil {
		return fmt.Errorf("rixs emission grid: %w", err)
	}
	if err := f.CreateGroup(rixsGroup); err != nil {
		return err
	}
	for _, ds := range []struct {
		name string
		a    *api.Array
	}{
		{"motor_values", motorValues},
		{"emission_energies", emission},
		{"counts", g.Counts},
	} {
		if err := f.WriteDataset(rixsGroup+"/"+ds.name, ds.a); err != nil {
			return fmt.Errorf("dataset %s/%s: %w", rixsGroup, ds.name, err)
		}
	}
	return nil
}
