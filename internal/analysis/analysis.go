// Package analysis exposes the derived detector channels computed by the
// external analysis step. A run is either Cached, when the processing store
// has its results, or Unprocessed, when only ROI definitions are known.
package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/nsls2-sst/ucal-export/internal/abstractions"
	"github.com/nsls2-sst/ucal-export/internal/lookup"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// ArrayChannels are the derived channels holding a full spectrum per event.
var ArrayChannels = []string{"tes_mca_spectrum"}

// Resolver chooses the implementation by asking the processing store.
type Resolver struct {
	store       abstractions.Storage
	defaultROIs api.ROITable
	logger      *slog.Logger
}

func NewResolver(store abstractions.Storage, defaultROIs api.ROITable, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, defaultROIs: defaultROIs, logger: logger}
}

func (r *Resolver) Resolve(ctx context.Context, run *api.Run, saveDirectory string) (abstractions.DerivedChannels, error) {
	if r.store != nil {
		processed, err := r.store.IsProcessed(ctx, run.UID(), saveDirectory)
		if err != nil {
			return nil, fmt.Errorf("check processing state of %s: %w", run.UID(), err)
		}
		if processed {
			record, err := r.store.GetProcessedRun(ctx, run.UID())
			if err != nil {
				return nil, fmt.Errorf("load processed run %s: %w", run.UID(), err)
			}
			return NewCached(record), nil
		}
	}
	r.logger.Info("No TES data is processed", "scan_id", run.ScanID(), "save_directory", saveDirectory)
	return NewUnprocessed(r.defaultROIs), nil
}

// Cached serves derived channels recorded by the processing flow.
type Cached struct {
	record *api.ProcessedRun
}

func NewCached(record *api.ProcessedRun) *Cached {
	return &Cached{record: record}
}

func (c *Cached) Name() string {
	return "cached"
}

func (c *Cached) ROIs(_ context.Context, _ *api.Run) (api.ROITable, error) {
	return c.record.ROIs, nil
}

func (c *Cached) Channels(_ context.Context, _ *api.Run, omitArrayKeys bool) (map[string]*api.Array, error) {
	out := make(map[string]*api.Array, len(c.record.Channels))
	for name, a := range c.record.Channels {
		if omitArrayKeys && isArrayChannel(name) {
			continue
		}
		out[name] = a
	}
	return out, nil
}

// Unprocessed knows only the ROI definitions: those recorded in the start
// document under "tes_rois", else the configured defaults.
type Unprocessed struct {
	defaults api.ROITable
}

func NewUnprocessed(defaults api.ROITable) *Unprocessed {
	return &Unprocessed{defaults: defaults}
}

func (u *Unprocessed) Name() string {
	return "unprocessed"
}

func (u *Unprocessed) ROIs(_ context.Context, run *api.Run) (api.ROITable, error) {
	recorded := lookup.Map(map[string]any(run.Start), "tes_rois")
	if len(recorded) == 0 {
		return u.defaults, nil
	}
	return ROIsFromMapping(recorded), nil
}

func (u *Unprocessed) Channels(_ context.Context, _ *api.Run, _ bool) (map[string]*api.Array, error) {
	return map[string]*api.Array{}, nil
}

// ROIsFromMapping reads {name: [low, high]} sorted by name. Malformed
// entries are skipped.
func ROIsFromMapping(m map[string]any) api.ROITable {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	table := api.ROITable{}
	for _, name := range names {
		bounds, ok := m[name].([]any)
		if !ok || len(bounds) != 2 {
			continue
		}
		table = append(table, api.ROI{
			Name: name,
			Low:  lookup.Float(bounds[0], 0),
			High: lookup.Float(bounds[1], 0),
		})
	}
	return table
}

// ROIsFromConfig converts configured {name: [low, high]} windows.
func ROIsFromConfig(m map[string][]float64) api.ROITable {
	generic := make(map[string]any, len(m))
	for k, v := range m {
		bounds := make([]any, len(v))
		for i, x := range v {
			bounds[i] = x
		}
		generic[k] = bounds
	}
	return ROIsFromMapping(generic)
}

func isArrayChannel(name string) bool {
	for _, n := range ArrayChannels {
		if n == name {
			return true
		}
	}
	return false
}
