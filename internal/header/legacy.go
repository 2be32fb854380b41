package header

import (
	"github.com/nsls2-sst/ucal-export/internal/lookup"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// optionalScanKeys are copied into the legacy scan info when recorded.
var optionalScanKeys = []string{"time", "data_session", "cycle", "start_datetime", "repeat"}

// Legacy is the header of the Athena export. It predates the canonical
// column names and is built from the raw run, never from normalized data.
type Legacy struct {
	ScanInfo *Metadata
	Motors   *Metadata
	Columns  []string
}

// BuildLegacy reads scan info and motor positions from the run.
func BuildLegacy(run *api.Run) *Legacy {
	start := map[string]any(run.Start)
	scaninfo := NewMetadata()
	scaninfo.Set("scan", ScanID(start["scan_id"]))
	scaninfo.Set("date", ISOFormat(lookup.Float(start["time"], 0)))
	scaninfo.Set("sample", lookup.StringDefault(start, "sample_name", ""))
	scaninfo.Set("loadid", lookup.StringDefault(start, "sample_id", ""))
	scaninfo.Set("command", lookup.GetWithFallbacks(start, nil, lookup.Keys("command", "plan_name")...))
	scaninfo.Set("motor", scanMotor(start))
	for _, k := range optionalScanKeys {
		if v, ok := start[k]; ok {
			scaninfo.Set(k, v)
		}
	}
	if refArgs := lookup.Map(start, "ref_args"); len(refArgs) > 0 {
		scaninfo.Set("ref_edge", lookup.GetWithFallbacks(refArgs, "", lookup.Nested("i0up_multimesh_sample_sample_name", "value")))
		scaninfo.Set("ref_id", lookup.GetWithFallbacks(refArgs, "", lookup.Nested("i0up_multimesh_sample_sample_id", "value")))
	}
	scaninfo.Set("uid", lookup.StringDefault(start, "uid", ""))

	baseline := run.Baseline.Mapping()
	motors := NewMetadata()
	motors.Set("exslit", baselineFloat(baseline, "eslit", "Exit Slit of Mono Vertical Gap"))
	motors.Set("manipx", baselineFloat(baseline, "manip_x", "Manipulator_x"))
	motors.Set("manipy", baselineFloat(baseline, "manip_y", "Manipulator_y"))
	motors.Set("manipz", baselineFloat(baseline, "manip_z", "Manipulator_z"))
	motors.Set("manipr", baselineFloat(baseline, "manip_r", "Manipulator_r"))
	motors.Set("samplex", baselineFloat(baseline, "manip_sx", "Manipulator_sx"))
	motors.Set("sampley", baselineFloat(baseline, "manip_sy", "Manipulator_sy"))
	motors.Set("samplez", baselineFloat(baseline, "manip_sz", "Manipulator_sz"))
	motors.Set("sampler", baselineFloat(baseline, "manip_sr", "Manipulator_sr"))
	motors.Set("tesz", baselineFloat(baseline, "tesz"))

	return &Legacy{ScanInfo: scaninfo, Motors: motors}
}
