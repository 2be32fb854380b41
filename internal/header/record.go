package header

import (
	"github.com/spf13/cast"
)

type Facility struct {
	Name       string
	XraySource string
	Current    string
	Cycle      string
	GUP        string
	SAF        string
}

type Beamline struct {
	Name    string
	Chamber string
}

type Mono struct {
	Stripe string
}

type Sample struct {
	Name string
	ID   string
}

type Experiment struct {
	PrincipalInvestigator string
	Start                 string
}

type Scan struct {
	TransientID any
	UID         string
	Command     string
	StartTime   string
	Type        string
	// Motors is the scan axis; columns are reordered so it comes first.
	Motors string
}

type Element struct {
	Symbol string
	Edge   string
}

type Motors struct {
	Exslit float64
	Manipx float64
	Manipy float64
	Manipz float64
	Manipr float64
	Tesz   float64
}

// Header is the run-level metadata of an export, one record per namespace.
// It is flattened to dotted keys only when written.
type Header struct {
	Facility   Facility
	Beamline   Beamline
	Mono       Mono
	Sample     Sample
	Experiment Experiment
	Scan       Scan
	Element    Element
	Motors     Motors

	// Extra holds caller supplied keys that have no typed field.
	Extra *Metadata
	// ROIs holds "rois.<name>" entries in the order they were recorded.
	ROIs *Metadata
	// Detectors holds "Detector.<name>" descriptions in rename order.
	Detectors *Metadata
}

func New() *Header {
	return &Header{
		Extra:     NewMetadata(),
		ROIs:      NewMetadata(),
		Detectors: NewMetadata(),
	}
}

// ScanAxis is the column that must come first, "time" when unset.
func (h *Header) ScanAxis() string {
	if h.Scan.Motors == "" {
		return "time"
	}
	return h.Scan.Motors
}

// SetROI records a region of interest under "rois.<name>".
func (h *Header) SetROI(name string, value string) {
	h.ROIs.Set(name, value)
}

// RenameROI moves the entry from old to new. A missing entry becomes an
// empty string.
func (h *Header) RenameROI(old, new string) {
	v, ok := h.ROIs.Pop(old)
	if !ok {
		v = ""
	}
	h.ROIs.Set(new, v)
}

// Describe records a detector description under "Detector.<name>".
func (h *Header) Describe(name, description string) {
	h.Detectors.Set(name, description)
}

// Set assigns a dotted key. Known keys land in their typed field; anything
// else is kept in Extra.
func (h *Header) Set(key string, value any) {
	s := func() string { return FormatValue(value) }
	f := func() float64 { return cast.ToFloat64(value) }
	switch key {
	case "Facility.name":
		h.Facility.Name = s()
	case "Facility.xray_source":
		h.Facility.XraySource = s()
	case "Facility.current":
		h.Facility.Current = s()
	case "Facility.cycle":
		h.Facility.Cycle = s()
	case "Facility.GUP":
		h.Facility.GUP = s()
	case "Facility.SAF":
		h.Facility.SAF = s()
	case "Beamline.name":
		h.Beamline.Name = s()
	case "Beamline.chamber":
		h.Beamline.Chamber = s()
	case "Mono.stripe":
		h.Mono.Stripe = s()
	case "Sample.name":
		h.Sample.Name = s()
	case "Sample.id":
		h.Sample.ID = s()
	case "Experiment.principal_investigator":
		h.Experiment.PrincipalInvestigator = s()
	case "Experiment.start":
		h.Experiment.Start = s()
	case "Scan.transient_id":
		h.Scan.TransientID = value
	case "Scan.uid":
		h.Scan.UID = s()
	case "Scan.command":
		h.Scan.Command = s()
	case "Scan.start_time":
		h.Scan.StartTime = s()
	case "Scan.type":
		h.Scan.Type = s()
	case "Scan.motors":
		h.Scan.Motors = s()
	case "Element.symbol":
		h.Element.Symbol = s()
	case "Element.edge":
		h.Element.Edge = s()
	case "Motors.exslit":
		h.Motors.Exslit = f()
	case "Motors.manipx":
		h.Motors.Manipx = f()
	case "Motors.manipy":
		h.Motors.Manipy = f()
	case "Motors.manipz":
		h.Motors.Manipz = f()
	case "Motors.manipr":
		h.Motors.Manipr = f()
	case "Motors.tesz":
		h.Motors.Tesz = f()
	default:
		h.Extra.Set(key, value)
	}
}

// Update applies Set for each key of updates in the given order.
func (h *Header) Update(updates *Metadata) {
	if updates == nil {
		return
	}
	updates.Each(h.Set)
}

// Flatten renders the header as ordered dotted keys: the typed namespaces,
// then extra keys, then ROIs, then detector descriptions.
func (h *Header) Flatten() *Metadata {
	m := NewMetadata()
	m.Set("Facility.name", h.Facility.Name)
	m.Set("Facility.xray_source", h.Facility.XraySource)
	m.Set("Facility.current", h.Facility.Current)
	m.Set("Facility.cycle", h.Facility.Cycle)
	m.Set("Facility.GUP", h.Facility.GUP)
	m.Set("Facility.SAF", h.Facility.SAF)

	m.Set("Beamline.name", h.Beamline.Name)
	m.Set("Beamline.chamber", h.Beamline.Chamber)

	m.Set("Mono.stripe", h.Mono.Stripe)

	m.Set("Sample.name", h.Sample.Name)
	m.Set("Sample.id", h.Sample.ID)

	m.Set("Experiment.principal_investigator", h.Experiment.PrincipalInvestigator)
	m.Set("Experiment.start", h.Experiment.Start)

	m.Set("Scan.transient_id", h.Scan.TransientID)
	m.Set("Scan.uid", h.Scan.UID)
	m.Set("Scan.command", h.Scan.Command)
	m.Set("Scan.start_time", h.Scan.StartTime)
	m.Set("Scan.type", h.Scan.Type)
	m.Set("Scan.motors", h.Scan.Motors)

	m.Set("Element.symbol", h.Element.Symbol)
	m.Set("Element.edge", h.Element.Edge)

	m.Set("Motors.exslit", h.Motors.Exslit)
	m.Set("Motors.manipx", h.Motors.Manipx)
	m.Set("Motors.manipy", h.Motors.Manipy)
	m.Set("Motors.manipz", h.Motors.Manipz)
	m.Set("Motors.manipr", h.Motors.Manipr)
	m.Set("Motors.tesz", h.Motors.Tesz)

	h.Extra.Each(m.Set)
	h.ROIs.Each(func(name string, value any) {
		m.Set("rois."+name, value)
	})
	h.Detectors.Each(func(name string, value any) {
		m.Set("Detector."+name, value)
	})
	return m
}
