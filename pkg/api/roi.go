package api

import "time"

// ROI is an integration window over a raw detector signal.
type ROI struct {
	Name string  `json:"name" cbor:"name"`
	Low  float64 `json:"low" cbor:"low"`
	High float64 `json:"high" cbor:"high"`
}

// ROITable maps derived channel names to their windows, in definition order.
type ROITable []ROI

func (t ROITable) Get(name string) (ROI, bool) {
	for _, r := range t {
		if r.Name == name {
			return r, true
		}
	}
	return ROI{}, false
}

func (t ROITable) Names() []string {
	names := make([]string, 0, len(t))
	for _, r := range t {
		names = append(names, r.Name)
	}
	return names
}

// ProcessedRun is the cached output of the analysis step for one run.
type ProcessedRun struct {
	UID           string            `json:"uid" cbor:"uid"`
	ScanID        int64             `json:"scan_id" cbor:"scan_id"`
	SaveDirectory string            `json:"save_directory" cbor:"save_directory"`
	ROIs          ROITable          `json:"rois" cbor:"rois"`
	Channels      map[string]*Array `json:"channels" cbor:"channels"`
	UpdatedAt     time.Time         `json:"updated_at" cbor:"-"`
}
