// Package pipeline chains the detection steps over a tile set:
// terrain shading, gradient extraction, blurred-segment detection,
// seed generation and carriage-track extraction, with every
// intermediate artefact persisted under one results directory.
package pipeline

import (
	"path/filepath"

	"github.com/banshee-data/roadtrace/internal/terrain"
	"github.com/banshee-data/roadtrace/internal/tiles"
)

// Fixed artefact base names inside the results directory.
const (
	slopeName   = "slope"
	rorpoName   = "rorpo"
	sobelName   = "sobel"
	fbsdName    = "fbsd"
	seedsName   = "seeds"
	roadsName   = "roads"
	lineName    = "line"
	successName = "success"
	hillName    = "hill"
	autodetName = "autodet"
	runsDBName  = "runs.db"
)

// Tile set bookkeeping files.
const (
	LastSetFile   = "last_set"
	LastTilesFile = "last_tiles"
)

// Paths locates the working directories of a detection run.
type Paths struct {
	// Results holds every intermediate and final artefact.
	Results string
	// TileSets holds named tile lists plus the last_set and
	// last_tiles records.
	TileSets string
	// NVM holds the per-tile normal maps.
	NVM string
	// Til holds the point tiles, one subdirectory per access level.
	Til string
	// DTM holds the source .asc height grids.
	DTM string
	// XYZ holds the source point clouds.
	XYZ string
}

// DefaultPaths returns the conventional directory layout rooted in
// the working directory.
func DefaultPaths() Paths {
	return Paths{
		Results:  "results",
		TileSets: "tilesets",
		NVM:      "nvm",
		Til:      "til",
		DTM:      "asc",
		XYZ:      "xyz",
	}
}

func (p Paths) result(name string) string {
	return filepath.Join(p.Results, name)
}

// SlopeMap is the slope-shading raster file.
func (p Paths) SlopeMap() string { return p.result(slopeName + ".map") }

// SlopeImage is the slope-shading PNG dump.
func (p Paths) SlopeImage() string { return p.result(slopeName + ".png") }

// HillImage is the hill-shading PNG.
func (p Paths) HillImage() string { return p.result(hillName + ".png") }

// RorpoMap is the filtered shading raster file.
func (p Paths) RorpoMap() string { return p.result(rorpoName + ".map") }

// SobelMap is the gradient vector map file.
func (p Paths) SobelMap() string { return p.result(sobelName + ".map") }

// SobelImage is the gradient magnitude PNG dump.
func (p Paths) SobelImage() string { return p.result(sobelName + ".png") }

// FbsdSegments is the detected blurred-segments file.
func (p Paths) FbsdSegments() string { return p.result(fbsdName + ".fbsd") }

// FbsdImage is the segments PNG dump.
func (p Paths) FbsdImage() string { return p.result(fbsdName + ".png") }

// SeedsFile is the generated seed strokes file.
func (p Paths) SeedsFile() string { return p.result(seedsName + ".seeds") }

// SeedsImage is the seeds PNG dump.
func (p Paths) SeedsImage() string { return p.result(seedsName + ".png") }

// RoadsImage is the detection map PNG.
func (p Paths) RoadsImage() string { return p.result(roadsName + ".png") }

// RoadsShape is the road bounds shapefile.
func (p Paths) RoadsShape() string { return p.result(roadsName + ".shp") }

// LineShape is the road centerlines shapefile.
func (p Paths) LineShape() string { return p.result(lineName + ".shp") }

// SuccessSeeds is the text file of seeds that produced roads.
func (p Paths) SuccessSeeds() string { return p.result(successName + ".txt") }

// DetectorProfile is the frozen detector settings of the last run.
func (p Paths) DetectorProfile() string { return p.result(autodetName + ".json") }

// RunsDB is the run store database.
func (p Paths) RunsDB() string { return p.result(runsDBName) }

// LastSet records the name of the last used tile set.
func (p Paths) LastSet() string { return filepath.Join(p.TileSets, LastSetFile) }

// LastTiles records the tile names of the last run.
func (p Paths) LastTiles() string { return filepath.Join(p.TileSets, LastTilesFile) }

// SetFile is the tile list of a named set.
func (p Paths) SetFile(name string) string {
	return filepath.Join(p.TileSets, name+".txt")
}

// NVMFile is the normal map of one tile.
func (p Paths) NVMFile(name string) string {
	return filepath.Join(p.NVM, name+terrain.NVMSuffix)
}

// TilFile is the point tile of one tile at the given access level.
func (p Paths) TilFile(a tiles.Access, name string) string {
	return filepath.Join(p.Til, a.Dir(), a.Prefix()+name+tiles.TilSuffix)
}

// DTMFile is the source height grid of one tile.
func (p Paths) DTMFile(name string) string {
	return filepath.Join(p.DTM, name+".asc")
}

// XYZFile is the source point cloud of one tile.
func (p Paths) XYZFile(name string) string {
	return filepath.Join(p.XYZ, name+".xyz")
}
