// Package config holds the process configuration of the road
// extraction pipeline: a JSON tuning file with pointer fields so
// partial configs merge over defaults, and the detector profile
// snapshot persisted beside each detection run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
const DefaultConfigPath = "config/tuning.defaults.json"

// Tuning defaults. Seed stroke geometry is expressed in detection
// raster pixels, tracker tolerances in scans or meters.
const (
	defaultAssignedThickness = 7
	defaultMinSegmentLength  = 80
	defaultSeedShift         = 24
	defaultSeedWidth         = 40
	DefaultPadSize           = 3
	defaultLackTolerance     = 5
	defaultMinDensity        = 60
	defaultMaxShiftLength    = 0.5
	defaultInitialExtent     = 6

	minAssignedThickness = 3
	minSeedShift         = 10
	minSeedWidth         = 10
)

// TuningConfig represents the root configuration for the detection
// pipeline. Fields left nil in the JSON file fall back to the
// defaults served by the Get* accessors, so partial configs are safe.
type TuningConfig struct {
	// Segment and seed params
	AssignedThickness *int  `json:"assigned_thickness,omitempty"`
	MinSegmentLength  *int  `json:"min_segment_length,omitempty"`
	SeedShift         *int  `json:"seed_shift,omitempty"`
	SeedWidth         *int  `json:"seed_width,omitempty"`
	HalfSize          *bool `json:"half_size,omitempty"`

	// Streaming params
	PadSize         *int   `json:"pad_size,omitempty"`
	TileBudgetBytes *int64 `json:"tile_budget_bytes,omitempty"`

	// Tracker params
	LackTolerance  *int     `json:"lack_tolerance,omitempty"`
	MinDensity     *int     `json:"min_density,omitempty"`
	MaxShiftLength *float64 `json:"max_shift_length,omitempty"`
	TailMinSize    *int     `json:"tail_min_size,omitempty"`
	InitialExtent  *int     `json:"initial_extent,omitempty"`
	Connected      *bool    `json:"connected,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is
// under the max file size. Fields omitted from the JSON file retain
// their default values, so partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.PadSize != nil {
		if *c.PadSize < 0 {
			return fmt.Errorf("pad_size must be non-negative, got %d", *c.PadSize)
		}
		if *c.PadSize != 0 && *c.PadSize%2 == 0 {
			return fmt.Errorf("pad_size must be odd, got %d", *c.PadSize)
		}
	}
	if c.TileBudgetBytes != nil && *c.TileBudgetBytes < 0 {
		return fmt.Errorf("tile_budget_bytes must be non-negative, got %d", *c.TileBudgetBytes)
	}
	if c.MinDensity != nil {
		if *c.MinDensity < 0 || *c.MinDensity > 100 {
			return fmt.Errorf("min_density must be between 0 and 100, got %d", *c.MinDensity)
		}
	}
	if c.MaxShiftLength != nil && *c.MaxShiftLength <= 0 {
		return fmt.Errorf("max_shift_length must be positive, got %f", *c.MaxShiftLength)
	}
	if c.TailMinSize != nil && *c.TailMinSize < 0 {
		return fmt.Errorf("tail_min_size must be non-negative, got %d", *c.TailMinSize)
	}
	if c.MinSegmentLength != nil && *c.MinSegmentLength < 0 {
		return fmt.Errorf("min_segment_length must be non-negative, got %d", *c.MinSegmentLength)
	}
	return nil
}

// GetAssignedThickness returns the blurred-segment assigned thickness
// or the default, floored at the minimal usable thickness.
func (c *TuningConfig) GetAssignedThickness() int {
	if c.AssignedThickness == nil {
		return defaultAssignedThickness
	}
	if *c.AssignedThickness < minAssignedThickness {
		return minAssignedThickness
	}
	return *c.AssignedThickness
}

// GetMinSegmentLength returns the minimal seeded segment length in
// pixels or the default.
func (c *TuningConfig) GetMinSegmentLength() int {
	if c.MinSegmentLength == nil {
		return defaultMinSegmentLength
	}
	return *c.MinSegmentLength
}

// GetSeedShift returns the seed stroke spacing in pixels or the
// default, floored.
func (c *TuningConfig) GetSeedShift() int {
	if c.SeedShift == nil {
		return defaultSeedShift
	}
	if *c.SeedShift < minSeedShift {
		return minSeedShift
	}
	return *c.SeedShift
}

// GetSeedWidth returns the seed stroke length in pixels or the
// default, floored.
func (c *TuningConfig) GetSeedWidth() int {
	if c.SeedWidth == nil {
		return defaultSeedWidth
	}
	if *c.SeedWidth < minSeedWidth {
		return minSeedWidth
	}
	return *c.SeedWidth
}

// GetHalfSize returns the half-size seeding mode or the default.
func (c *TuningConfig) GetHalfSize() bool {
	if c.HalfSize == nil {
		return false
	}
	return *c.HalfSize
}

// GetPadSize returns the pad side in tile columns or the default.
// Zero disables pad streaming and processes the whole raster at once.
func (c *TuningConfig) GetPadSize() int {
	if c.PadSize == nil {
		return DefaultPadSize
	}
	return *c.PadSize
}

// GetTileBudgetBytes returns the resident point-tile byte budget or
// the default. Zero keeps every loaded tile resident.
func (c *TuningConfig) GetTileBudgetBytes() int64 {
	if c.TileBudgetBytes == nil {
		return 0
	}
	return *c.TileBudgetBytes
}

// GetLackTolerance returns the number of successive failed scans
// ending a side walk, or the default.
func (c *TuningConfig) GetLackTolerance() int {
	if c.LackTolerance == nil {
		return defaultLackTolerance
	}
	return *c.LackTolerance
}

// GetMinDensity returns the minimal percentage of accepted scans
// within a track spread, or the default.
func (c *TuningConfig) GetMinDensity() int {
	if c.MinDensity == nil {
		return defaultMinDensity
	}
	return *c.MinDensity
}

// GetMaxShiftLength returns the largest accepted relative lateral
// wobble of chained plateau centers, or the default.
func (c *TuningConfig) GetMaxShiftLength() float64 {
	if c.MaxShiftLength == nil {
		return defaultMaxShiftLength
	}
	return *c.MaxShiftLength
}

// GetTailMinSize returns the minimal accepted tail run kept when
// pruning track ends, or the default. Zero disables tail pruning.
func (c *TuningConfig) GetTailMinSize() int {
	if c.TailMinSize == nil {
		return 0
	}
	return *c.TailMinSize
}

// GetInitialExtent returns the scan extent of the preliminary
// realignment run, or the default.
func (c *TuningConfig) GetInitialExtent() int {
	if c.InitialExtent == nil {
		return defaultInitialExtent
	}
	return *c.InitialExtent
}

// GetConnected returns whether only connected plateau chains are
// painted to the detection map, or the default.
func (c *TuningConfig) GetConnected() bool {
	if c.Connected == nil {
		return false
	}
	return *c.Connected
}
