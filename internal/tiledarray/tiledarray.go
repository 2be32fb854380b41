// Package tiledarray converts a run's canonical channels into labeled arrays
// for publishing to a tiled catalog.
package tiledarray

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nsls2-sst/ucal-export/internal/header"
	"github.com/nsls2-sst/ucal-export/internal/lookup"
	"github.com/nsls2-sst/ucal-export/internal/messages"
	"github.com/nsls2-sst/ucal-export/internal/writers"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

const (
	DimTime     = "time"
	DimEmission = "emission"
	rixs        = "rixs"
)

// Variable is an array labeled with one dimension name per axis.
type Variable struct {
	Name  string
	Dims  []string
	Array *api.Array
}

// Dataset holds data variables that share the time axis, their coordinates
// and the nested run metadata.
type Dataset struct {
	Variables []Variable
	Coords    map[string]Variable
	Metadata  map[string]any
}

// Var returns the data variable called name.
func (d *Dataset) Var(name string) (Variable, bool) {
	for _, v := range d.Variables {
		if v.Name == name {
			return v, true
		}
	}
	return Variable{}, false
}

type Adapter struct {
	extractor     writers.ChannelExtractor
	logger        *slog.Logger
	HeaderUpdates *header.Metadata
}

func NewAdapter(extractor writers.ChannelExtractor, logger *slog.Logger) *Adapter {
	return &Adapter{extractor: extractor, logger: logger.With("format", "tiled")}
}

// Export returns nil and false when the run has no primary stream.
func (a *Adapter) Export(ctx context.Context, run *api.Run) (*Dataset, bool, error) {
	if !run.HasPrimary() {
		a.logger.Info(messages.GetErrorMessage(messages.NoPrimaryStream, "Format", "Tiled", "ScanId", lookup.String(run.ScanID())))
		return nil, false, nil
	}
	hdr, channels, err := writers.Canonical(ctx, a.extractor, run, a.HeaderUpdates, false)
	if err != nil {
		return nil, false, err
	}
	ds, err := Convert(channels, hdr.Flatten())
	if err != nil {
		return nil, false, err
	}
	if session, ok := run.Start["data_session"]; ok && session != nil {
		ds.Metadata["data_session"] = session
	}
	return ds, true, nil
}

// Convert labels every channel along time. A gridded rixs channel becomes a
// (time, emission) variable with an emission coordinate. A time channel is
// taken out of the variables and used as their time coordinate.
func Convert(channels *api.ChannelSet, metadata *header.Metadata) (*Dataset, error) {
	ds := &Dataset{Coords: map[string]Variable{}, Metadata: metadata.Nested()}
	names := channels.Names()
	for i, arr := range channels.Arrays() {
		v, coord, err := variable(names[i], arr)
		if err != nil {
			return nil, err
		}
		if coord != nil {
			ds.Coords[coord.Name] = *coord
		}
		if v.Name == DimTime {
			ds.Coords[DimTime] = v
			continue
		}
		ds.Variables = append(ds.Variables, v)
	}
	return ds, nil
}

func variable(name string, arr *api.Array) (Variable, *Variable, error) {
	if name == rixs && arr.Grid != nil {
		counts, err := writers.Transpose(arr.Grid.Counts)
		if err != nil {
			return Variable{}, nil, err
		}
		emission, err := writers.EmissionAxis(arr.Grid)
		if err != nil {
			return Variable{}, nil, err
		}
		return Variable{Name: name, Dims: []string{DimTime, DimEmission}, Array: counts},
			&Variable{Name: DimEmission, Dims: []string{DimEmission}, Array: emission}, nil
	}
	if name == rixs && arr.Ndim() == 2 {
		return Variable{Name: name, Dims: []string{DimTime, DimEmission}, Array: arr}, nil, nil
	}
	dims := []string{DimTime}
	for i := 1; i < arr.Ndim(); i++ {
		dims = append(dims, fmt.Sprintf("dim_%d", i))
	}
	return Variable{Name: name, Dims: dims, Array: arr}, nil, nil
}
