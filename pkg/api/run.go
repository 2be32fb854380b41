package api

// ------------------------------------------------------------------------------------------------
// General naming conventions:
// ------------------------------------------------------------------------------------------------
// - Run... - an immutable record fetched from the catalog for one experiment execution.
// - ...Set / ...Table - ordered collections built per export and discarded afterwards.
// - Processed... - records written by the processing flow and read back by the exporter.
// ------------------------------------------------------------------------------------------------

// Document is a JSON shaped mapping, i.e. the run start document.
type Document map[string]any

// Run is one recorded experiment execution. Primary and Baseline are nil when
// the run has no such stream.
type Run struct {
	Start    Document `json:"start"`
	Primary  *Stream  `json:"primary,omitempty"`
	Baseline *Stream  `json:"baseline,omitempty"`
}

// Stream is a named event stream of a run. Keys preserves the recorded channel order.
type Stream struct {
	Keys        []string          `json:"keys"`
	Data        map[string]*Array `json:"data"`
	Descriptors []Descriptor      `json:"descriptors,omitempty"`
}

// Descriptor holds the static per-scan configuration of a stream,
// keyed device -> {"data": {field: value}}.
type Descriptor struct {
	Configuration map[string]any `json:"configuration"`
}

// HasPrimary reports whether the run recorded a primary stream.
func (r *Run) HasPrimary() bool {
	return r != nil && r.Primary != nil
}

// UID returns the run uid from the start document.
func (r *Run) UID() string {
	if r == nil {
		return ""
	}
	if uid, ok := r.Start["uid"].(string); ok {
		return uid
	}
	return ""
}

// ScanID returns the transient scan id, or nil if it was not recorded.
func (r *Run) ScanID() any {
	if r == nil {
		return nil
	}
	return r.Start["scan_id"]
}

// NewStream builds a stream from ordered keys; keys without data are dropped.
func NewStream(keys []string, data map[string]*Array) *Stream {
	s := &Stream{Data: map[string]*Array{}}
	for _, k := range keys {
		if a, ok := data[k]; ok {
			s.Keys = append(s.Keys, k)
			s.Data[k] = a
		}
	}
	return s
}

// Configuration returns the configuration of the first descriptor.
func (s *Stream) Configuration() map[string]any {
	if s == nil || len(s.Descriptors) == 0 || s.Descriptors[0].Configuration == nil {
		return map[string]any{}
	}
	return s.Descriptors[0].Configuration
}

// Config flattens the first descriptor's configuration to device -> field -> value.
func (s *Stream) Config() map[string]any {
	out := map[string]any{}
	for device, raw := range s.Configuration() {
		dev, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if data, ok := dev["data"].(map[string]any); ok {
			out[device] = data
		}
	}
	return out
}

// Mapping exposes the stream data as a generic mapping for key lookups.
func (s *Stream) Mapping() map[string]any {
	out := map[string]any{}
	if s == nil {
		return out
	}
	for k, v := range s.Data {
		out[k] = v
	}
	return out
}
