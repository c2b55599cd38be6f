package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// ProfileVersion identifies the detector profile schema.
const ProfileVersion = "1.3.3"

// DetectorProfile is the frozen record of the effective detector
// settings of one run, written beside the detection outputs so a run
// can be reproduced or audited later.
type DetectorProfile struct {
	Version string    `json:"version"`
	SavedAt time.Time `json:"saved_at"`

	AssignedThickness int  `json:"assigned_thickness"`
	MinSegmentLength  int  `json:"min_segment_length"`
	SeedShift         int  `json:"seed_shift"`
	SeedWidth         int  `json:"seed_width"`
	HalfSize          bool `json:"half_size"`

	PadSize         int   `json:"pad_size"`
	TileBudgetBytes int64 `json:"tile_budget_bytes"`

	LackTolerance  int     `json:"lack_tolerance"`
	MinDensity     int     `json:"min_density"`
	MaxShiftLength float64 `json:"max_shift_length"`
	TailMinSize    int     `json:"tail_min_size"`
	InitialExtent  int     `json:"initial_extent"`
	Connected      bool    `json:"connected"`
}

// Profile snapshots the effective values of the configuration.
func (c *TuningConfig) Profile() DetectorProfile {
	return DetectorProfile{
		Version:           ProfileVersion,
		SavedAt:           time.Now().UTC(),
		AssignedThickness: c.GetAssignedThickness(),
		MinSegmentLength:  c.GetMinSegmentLength(),
		SeedShift:         c.GetSeedShift(),
		SeedWidth:         c.GetSeedWidth(),
		HalfSize:          c.GetHalfSize(),
		PadSize:           c.GetPadSize(),
		TileBudgetBytes:   c.GetTileBudgetBytes(),
		LackTolerance:     c.GetLackTolerance(),
		MinDensity:        c.GetMinDensity(),
		MaxShiftLength:    c.GetMaxShiftLength(),
		TailMinSize:       c.GetTailMinSize(),
		InitialExtent:     c.GetInitialExtent(),
		Connected:         c.GetConnected(),
	}
}

// Params renders the profile as a compact JSON string for run records.
func (p DetectorProfile) Params() string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(data)
}

// Save writes the profile as indented JSON.
func (p DetectorProfile) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode detector profile: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write detector profile: %w", err)
	}
	return nil
}

// LoadDetectorProfile reads a profile written by Save. A version
// mismatch is reported as an error so stale profiles are not applied
// to a newer detector.
func LoadDetectorProfile(path string) (*DetectorProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read detector profile: %w", err)
	}
	var p DetectorProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse detector profile: %w", err)
	}
	if p.Version != ProfileVersion {
		return nil, fmt.Errorf("detector profile version %q, want %q",
			p.Version, ProfileVersion)
	}
	return &p, nil
}
