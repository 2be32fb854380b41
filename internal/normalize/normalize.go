// Package normalize rewrites extracted channels into the canonical column
// names and metadata of the beamline's file formats.
package normalize

import (
	"fmt"

	"github.com/nsls2-sst/ucal-export/internal/header"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// Normalize applies Rules to the channel set and header in place.
func Normalize(channels *api.ChannelSet, rois api.ROITable, hdr *header.Header) error {
	return Apply(Rules, &State{Channels: channels, ROIs: rois, Header: hdr})
}

// Apply runs rules in order, stopping at the first error.
func Apply(rules []Rule, s *State) error {
	for _, r := range rules {
		if r.Applies != nil && !r.Applies(s) {
			continue
		}
		if err := r.Apply(s); err != nil {
			return fmt.Errorf("normalize rule %q: %w", r.Name, err)
		}
	}
	return nil
}
