// Package roadmap keeps the detection map of extracted roads: a raster
// labelling each pixel with a road identifier, enforcing at most one
// road per pixel through an overlap veto on insertion.
package roadmap

import (
	"github.com/banshee-data/roadtrace/internal/geom"
)

// DefaultOverlapTolerance is the number of already-assigned pixels a
// new road may cross before it is vetoed.
const DefaultOverlapTolerance = 10

// Map labels raster pixels with road identifiers. Id zero is the
// background; road ids increase strictly in insertion order.
type Map struct {
	// OverlapTolerance bounds the accepted pixel overlap with earlier
	// roads on Add.
	OverlapTolerance int

	width, height int
	ids           []uint16
	numRoads      int
}

// New returns an empty map of the given raster size.
func New(width, height int) *Map {
	return &Map{
		OverlapTolerance: DefaultOverlapTolerance,
		width:            width,
		height:           height,
		ids:              make([]uint16, width*height),
	}
}

// Width returns the raster width in pixels.
func (m *Map) Width() int { return m.width }

// Height returns the raster height in pixels.
func (m *Map) Height() int { return m.height }

// NumRoads returns the number of roads stamped so far.
func (m *Map) NumRoads() int { return m.numRoads }

// ID returns the road id at the pixel, or zero off the raster.
func (m *Map) ID(x, y int) uint16 {
	if x < 0 || y < 0 || x >= m.width || y >= m.height {
		return 0
	}
	return m.ids[y*m.width+x]
}

// Occupied reports whether the pixel already belongs to a road.
func (m *Map) Occupied(p geom.Point2i) bool { return m.ID(p.X, p.Y) != 0 }

// Add stamps the scans of a new road under a fresh id and reports
// whether the road was kept. A road crossing more than
// OverlapTolerance already-assigned pixels is rejected and the map is
// left untouched.
func (m *Map) Add(scans [][]geom.Point2i) bool {
	seen := make(map[int]struct{})
	overlaps := 0
	for _, scan := range scans {
		for _, p := range scan {
			if p.X < 0 || p.Y < 0 || p.X >= m.width || p.Y >= m.height {
				continue
			}
			k := p.Y*m.width + p.X
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			if m.ids[k] != 0 {
				overlaps++
				if overlaps > m.OverlapTolerance {
					return false
				}
			}
		}
	}
	if len(seen) == 0 {
		return false
	}
	m.numRoads++
	id := uint16(m.numRoads)
	for k := range seen {
		m.ids[k] = id
	}
	return true
}
