// Package extract turns a run record into an ordered channel set, merging
// natively recorded channels with the derived channels of the analysis step.
package extract

import (
	"context"
	"log/slog"

	"github.com/nsls2-sst/ucal-export/internal/abstractions"
	"github.com/nsls2-sst/ucal-export/internal/lookup"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

var (
	// FirstKeys lead the column order when present.
	FirstKeys = []string{
		"en_energy_setpoint",
		"en_energy",
		"nexafs_i0up",
		"nexafs_i1",
		"nexafs_ref",
		"nexafs_sc",
		"nexafs_pey",
	}
	// LastKeys close the column order when present.
	LastKeys = []string{
		"time",
		"seconds",
	}
	// ArrayKeys hold a full spectrum per event.
	ArrayKeys = []string{"tes_mca_spectrum", "spectrum"}

	// exposurePaths are the configuration keys exposure times were recorded
	// under across detector configurations.
	exposurePaths = []lookup.Path{
		lookup.Nested("nexafs_i0up", "data", "nexafs_i0up_exposure_time"),
		lookup.Nested("nexafs_i1", "data", "nexafs_i0up_exposure_time"),
		lookup.Nested("nexafs_sc", "data", "ucal_sc_exposure_time"),
	}
)

const spectrumChannel = "tes_mca_spectrum"

// Options controls which channels are extracted.
type Options struct {
	// Omit names channels that are always dropped.
	Omit []string
	// OmitArrayKeys keeps only channels with one value per event.
	OmitArrayKeys bool
}

// SaveDirectoryFunc locates the analysis results of a run.
type SaveDirectoryFunc func(run *api.Run) (string, error)

type Extractor struct {
	resolver      abstractions.DerivedChannelResolver
	saveDirectory SaveDirectoryFunc
	logger        *slog.Logger
}

func New(resolver abstractions.DerivedChannelResolver, saveDirectory SaveDirectoryFunc, logger *slog.Logger) *Extractor {
	return &Extractor{resolver: resolver, saveDirectory: saveDirectory, logger: logger}
}

// Extract returns the run's channels in export order together with the ROI
// table of its derived channels. Channels that cannot be read are dropped;
// only failures to locate or query the analysis results are returned.
func (e *Extractor) Extract(ctx context.Context, run *api.Run, opts Options) (*api.ChannelSet, api.ROITable, error) {
	primary := run.Primary
	if primary == nil {
		primary = &api.Stream{}
	}
	exposure := Exposure(primary)

	usekeys := make([]string, 0, len(primary.Keys))
	for _, key := range primary.Keys {
		if opts.OmitArrayKeys && contains(ArrayKeys, key) {
			continue
		}
		usekeys = append(usekeys, key)
	}

	saveDirectory, err := e.saveDirectory(run)
	if err != nil {
		return nil, nil, err
	}
	derived, err := e.resolver.Resolve(ctx, run, saveDirectory)
	if err != nil {
		return nil, nil, err
	}
	rois, err := derived.ROIs(ctx, run)
	if err != nil {
		return nil, nil, err
	}
	derivedData, err := derived.Channels(ctx, run, opts.OmitArrayKeys)
	if err != nil {
		return nil, nil, err
	}
	e.logger.Info("Resolved derived channels", "source", derived.Name(), "channels", len(derivedData), "rois", len(rois))

	for _, name := range rois.Names() {
		if _, ok := derivedData[name]; ok && !contains(usekeys, name) {
			usekeys = append(usekeys, name)
		}
	}

	selected := map[string]*api.Array{}
	discovered := make([]string, 0, len(usekeys))
	var last *api.Array
	for _, key := range usekeys {
		var a *api.Array
		var ok bool
		if d, isDerived := derivedData[key]; isDerived {
			a, ok = selectDerived(key, d, opts.OmitArrayKeys)
		} else {
			a, ok = selectNative(primary.Data[key], opts.OmitArrayKeys)
		}
		if !ok {
			e.logger.Debug("Dropping channel", "channel", key)
			continue
		}
		selected[key] = a
		discovered = append(discovered, key)
		last = a
	}

	if _, ok := selected["seconds"]; !ok {
		selected["seconds"] = api.Full(last.Len(), exposure)
		discovered = append(discovered, "seconds")
	}

	channels := api.NewChannelSet()
	for _, name := range Order(discovered, opts.Omit) {
		if err := channels.Append(name, selected[name]); err != nil {
			return nil, nil, err
		}
	}
	return channels, rois, nil
}

// Exposure is the per-event exposure time from the primary stream
// configuration, 0 when it was never recorded.
func Exposure(primary *api.Stream) float64 {
	v := lookup.GetWithFallbacks(primary.Configuration(), nil, exposurePaths...)
	return lookup.FirstFloat(v, 0)
}

// Order sorts discovered names into FirstKeys, the rest in discovery order,
// then LastKeys, dropping omitted names.
func Order(discovered []string, omit []string) []string {
	columns := make([]string, 0, len(discovered))
	for _, k := range FirstKeys {
		if contains(discovered, k) && !contains(omit, k) {
			columns = append(columns, k)
		}
	}
	for _, k := range discovered {
		if !contains(columns, k) && !contains(omit, k) && !contains(LastKeys, k) {
			columns = append(columns, k)
		}
	}
	for _, k := range LastKeys {
		if contains(discovered, k) && !contains(omit, k) {
			columns = append(columns, k)
		}
	}
	return columns
}

// selectDerived keeps the spectrum only with array keys, and other derived
// channels when they are 1-D or array keys are kept. Grid-valued data is
// only meaningful for the spectrum.
func selectDerived(key string, a *api.Array, omitArrayKeys bool) (*api.Array, bool) {
	if a == nil {
		return nil, false
	}
	if key == spectrumChannel {
		return a, !omitArrayKeys
	}
	if a.Grid != nil || a.Validate() != nil {
		return nil, false
	}
	return a, a.Ndim() == 1 || !omitArrayKeys
}

func selectNative(a *api.Array, omitArrayKeys bool) (*api.Array, bool) {
	if a == nil || a.Grid != nil || a.Validate() != nil {
		return nil, false
	}
	return a, a.Ndim() == 1 || !omitArrayKeys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
