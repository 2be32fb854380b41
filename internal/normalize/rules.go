package normalize

import (
	"fmt"

	"github.com/nsls2-sst/ucal-export/internal/header"
	"github.com/nsls2-sst/ucal-export/pkg/api"
)

// Raw channel names produced by the acquisition and analysis code.
const (
	ChannelTFY         = "tes_mca_counts"
	ChannelPFY         = "tes_mca_pfy"
	ChannelSpectrum    = "tes_mca_spectrum"
	ChannelSetpoint    = "en_energy_setpoint"
	ChannelReadback    = "en_energy"
	ChannelLegacyTotal = "ucal_sc"
	ChannelTime        = "time"
)

// DetectorRename maps a raw channel to its canonical name. Description is
// recorded as "Detector.<Canonical>" unless it is empty.
type DetectorRename struct {
	Search      string
	Canonical   string
	Description string
}

// Detectors is the rename table for the beamline's detector channels, in the
// order the renames are applied.
var Detectors = []DetectorRename{
	{"nexafs_i0up", "i0", "Beam intensity normalization via drain current from NEXAFS upstream Au mesh"},
	{"nexafs_i1", "itrans", "Transmission intensity via downstream diode"},
	{"nexafs_sc", "tey", "Total electron yield via drain current from NEXAFS sample bar"},
	{"nexafs_pey", "pey", "Partial electron yield via NEXAFS Channeltron"},
	{"nexafs_ref", "iref", "Energy reference via drain current from upstream multimesh reference samples"},
	{ChannelTFY, "tfy", "Total fluorescence yield via counts from TES detector"},
	{ChannelPFY, "pfy", "Partial fluorescence yield via counts from TES detector"},
	{ChannelSpectrum, "rixs", "RIXS spectrum via TES detector"},
	{"m4cd", "i0_m4cd", "Drain current from M4 mirror, sometimes useful as a secondary i0"},
	{ChannelSetpoint, "energy", ""},
	{"seconds", "measurement_time", ""},
}

// State is what the rules read and rewrite.
type State struct {
	Channels *api.ChannelSet
	ROIs     api.ROITable
	Header   *header.Header
}

// Rule is one rewrite step. Applies decides whether Apply runs.
type Rule struct {
	Name    string
	Applies func(s *State) bool
	Apply   func(s *State) error
}

// Rules is applied in order; later rules depend on names produced or left
// untouched by earlier ones.
var Rules = []Rule{
	{
		Name:    "insert zero pfy",
		Applies: func(s *State) bool { return s.Channels.Has(ChannelTFY) && !s.Channels.Has(ChannelPFY) },
		Apply: func(s *State) error {
			i := s.Channels.Index(ChannelTFY)
			tfy, _ := s.Channels.Get(ChannelTFY)
			return s.Channels.Insert(i+1, ChannelPFY, api.ZerosLike(tfy))
		},
	},
	{
		Name:    "record rois",
		Applies: always,
		Apply: func(s *State) error {
			for _, name := range s.Channels.Names() {
				if roi, ok := s.ROIs.Get(name); ok {
					s.Header.SetROI(name, fmt.Sprintf("%.2f %.2f", roi.Low, roi.High))
				}
			}
			return nil
		},
	},
	{
		Name:    "rename fluorescence rois",
		Applies: func(s *State) bool { return s.Channels.Has(ChannelTFY) },
		Apply: func(s *State) error {
			s.Header.RenameROI(ChannelTFY, "tfy")
			s.Header.RenameROI(ChannelPFY, "pfy")
			return nil
		},
	},
	{
		Name:    "rename spectrum roi",
		Applies: func(s *State) bool { return s.Channels.Has(ChannelSpectrum) },
		Apply: func(s *State) error {
			s.Header.RenameROI(ChannelSpectrum, "rixs")
			return nil
		},
	},
	{
		Name:    "rename detectors",
		Applies: always,
		Apply: func(s *State) error {
			for _, d := range Detectors {
				if err := renameDetector(s, d); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		Name:    "rewrite legacy scan axis",
		Applies: func(s *State) bool { return s.Header.Scan.Motors == ChannelReadback },
		Apply: func(s *State) error {
			s.Header.Scan.Motors = "energy"
			return nil
		},
	},
	{
		Name:    "resolve energy readback",
		Applies: func(s *State) bool { return s.Channels.Has(ChannelReadback) },
		Apply: func(s *State) error {
			if s.Channels.Has("energy") {
				return renameDetector(s, DetectorRename{ChannelReadback, "energy_readback", "Monochromator energy encoder readback"})
			}
			return renameDetector(s, DetectorRename{ChannelReadback, "energy", ""})
		},
	},
	{
		Name:    "exclude legacy total yield",
		Applies: func(s *State) bool { return s.Channels.Has(ChannelLegacyTotal) },
		Apply: func(s *State) error {
			s.Channels.Remove(ChannelLegacyTotal)
			return nil
		},
	},
	{
		Name:    "scan axis first",
		Applies: always,
		Apply: func(s *State) error {
			axis := s.Header.ScanAxis()
			if !s.Channels.Has(axis) {
				axis = ChannelTime
			}
			s.Channels.MoveTo(axis, 0)
			return nil
		},
	},
}

func always(*State) bool { return true }

// renameDetector leaves the raw name in place when the canonical name is
// already taken, so a column is never silently duplicated.
func renameDetector(s *State, d DetectorRename) error {
	if d.Search != d.Canonical && s.Channels.Has(d.Canonical) {
		return nil
	}
	renamed, err := s.Channels.Rename(d.Search, d.Canonical)
	if err != nil || !renamed {
		return err
	}
	if d.Description != "" {
		s.Header.Describe(d.Canonical, d.Description)
	}
	return nil
}
