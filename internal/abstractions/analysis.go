package abstractions

import (
	"context"

	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// DerivedChannels gives access to the derived detector channels of one run.
// Concrete implementations decide whether the analysis step has already
// cached its results; the extractor never looks at the cache convention.
type DerivedChannels interface {
	// Name identifies the implementation in the logs.
	Name() string
	// ROIs returns the integration windows of the derived channels.
	ROIs(ctx context.Context, run *api.Run) (api.ROITable, error)
	// Channels returns the derived channels, empty when nothing was processed.
	Channels(ctx context.Context, run *api.Run, omitArrayKeys bool) (map[string]*api.Array, error)
}

// DerivedChannelResolver picks the DerivedChannels implementation for a run
// given the analysis save directory.
type DerivedChannelResolver interface {
	Resolve(ctx context.Context, run *api.Run, saveDirectory string) (DerivedChannels, error)
}

// Processor is the external analysis step that computes derived channels.
type Processor interface {
	Name() string
	HandleRun(ctx context.Context, run *api.Run, saveDirectory string, reprocess bool) (*ProcessingResult, error)
}

// ProcessingResult is what the analysis step reports for a run.
type ProcessingResult struct {
	ROIs            api.ROITable          `cbor:"rois"`
	Channels        map[string]*api.Array `cbor:"channels"`
	CalibrationInfo any                   `cbor:"data_calibration_info,omitempty"`
	ProcessingInfo  any                   `cbor:"data_processing_info,omitempty"`
}
