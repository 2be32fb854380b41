package header

import (
	"fmt"
	"time"

	"github.com/nsls2-sst/ucal-export/internal/lookup"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

const (
	facilityName     = "NSLS-II"
	facilityXraySrc  = "EPU60 Undulator"
	beamlineName     = "7-ID-1"
	beamlineChamber  = "NEXAFS"
	defaultRingCurrt = 400.0
)

// BuildXDI assembles the run-level header shared by the XDI, HDF5 and tiled
// exports. updates are applied last and win over values read from the run.
func BuildXDI(run *api.Run, updates *Metadata) *Header {
	start := map[string]any(run.Start)
	baseline := run.Baseline.Mapping()
	proposal := lookup.Map(start, "proposal")

	h := New()
	h.Facility = Facility{
		Name:       facilityName,
		XraySource: facilityXraySrc,
		Current:    fmt.Sprintf("%.2f mA", lookup.FirstFloat(lookup.GetWithFallbacks(baseline, nil, lookup.Key("NSLS-II Ring Current")), defaultRingCurrt)),
		Cycle:      lookup.StringDefault(start, "cycle", ""),
		GUP:        lookup.StringDefault(proposal, "proposal_id", ""),
		SAF:        lookup.StringDefault(proposal, "saf", ""),
	}
	h.Beamline = Beamline{Name: beamlineName, Chamber: beamlineChamber}

	stripe := lookup.GetWithFallbacks(run.Baseline.Config(), nil, lookup.Nested("en", "en_monoen_gratingx_setpoint"))
	h.Mono = Mono{Stripe: FormatValue(lookup.First(stripe, ""))}

	h.Sample = Sample{
		Name: lookup.StringDefault(start, "sample_name", ""),
		ID:   lookup.StringDefault(start, "sample_id", ""),
	}
	h.Experiment = Experiment{
		PrincipalInvestigator: lookup.StringDefault(proposal, "pi_name", ""),
		Start:                 lookup.StringDefault(start, "start_datetime", ""),
	}
	h.Scan = Scan{
		TransientID: ScanID(start["scan_id"]),
		UID:         lookup.StringDefault(start, "uid", ""),
		Command:     lookup.StringDefault(start, "plan_name", ""),
		StartTime:   ISOFormat(lookup.Float(start["time"], 0)),
		Type:        lookup.StringDefault(start, "scantype", "unknown"),
		Motors:      scanMotor(start),
	}
	h.Element = resolveElement(
		lookup.StringDefault(start, "element", ""),
		lookup.StringDefault(start, "edge", ""),
	)
	h.Motors = Motors{
		Exslit: baselineFloat(baseline, "eslit", "Exit Slit of Mono Vertical Gap"),
		Manipx: baselineFloat(baseline, "manip_x", "Manipulator_x"),
		Manipy: baselineFloat(baseline, "manip_y", "Manipulator_y"),
		Manipz: baselineFloat(baseline, "manip_z", "Manipulator_z"),
		Manipr: baselineFloat(baseline, "manip_r", "Manipulator_r"),
		Tesz:   baselineFloat(baseline, "tesz"),
	}
	h.Update(updates)
	return h
}

func baselineFloat(baseline map[string]any, names ...string) float64 {
	return lookup.FirstFloat(lookup.GetWithFallbacks(baseline, nil, lookup.Keys(names...)...), 0)
}

// scanMotor is the first declared motor, "time" for count-style plans.
func scanMotor(start map[string]any) string {
	v, ok := start["motors"]
	if !ok {
		return "time"
	}
	return lookup.String(lookup.First(v, "time"))
}

// ScanID returns integral scan ids as int64 so they print without a
// fractional part; other values are returned unchanged.
func ScanID(v any) any {
	switch t := v.(type) {
	case float64:
		if t == float64(int64(t)) {
			return int64(t)
		}
	case int:
		return int64(t)
	}
	return v
}

// ISOFormat renders a unix timestamp in local time, with microseconds only
// when they are non-zero.
func ISOFormat(ts float64) string {
	sec := int64(ts)
	usec := int64((ts-float64(sec))*1e6 + 0.5)
	if usec >= 1000000 {
		sec++
		usec -= 1000000
	}
	t := time.Unix(sec, usec*1000).Local()
	if usec == 0 {
		return t.Format("2006-01-02T15:04:05")
	}
	return t.Format("2006-01-02T15:04:05.000000")
}
