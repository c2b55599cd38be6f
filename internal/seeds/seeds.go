// Package seeds turns detected straight segments into short cross
// strokes bucketed by point tile. Strokes are expressed in point-set
// pixel coordinates, x east and y north from the south-west grid
// corner, so the tracker can bind them directly to ground tiles.
package seeds

import (
	"math"

	"github.com/banshee-data/roadtrace/internal/fbsd"
	"github.com/banshee-data/roadtrace/internal/geom"
)

const (
	// DefaultShift is the stroke spacing along a segment, in pixels.
	DefaultShift = 24
	// DefaultWidth is the stroke length, in pixels.
	DefaultWidth = 40
	// DefaultMinLength is the minimal segment length worth seeding.
	DefaultMinLength = 80
)

// Stroke is an oriented seed stroke between two pixels.
type Stroke struct {
	P1, P2 geom.Point2i
}

// Layout locates the detection raster on the point-tile grid. A raster
// covering the whole grid has zero tile offsets and PadHeight equal to
// the grid pixel height; a pad detection carries the tile offsets of
// its south-west corner and its own pixel height.
type Layout struct {
	TileCols, TileRows    int
	TileWidth, TileHeight int
	KX, KY                int
	PadHeight             int
}

// Set holds seed strokes bucketed on the point-tile grid, with the
// generation counters.
type Set struct {
	TileCols, TileRows int
	buckets            [][]Stroke

	// Count is the number of kept strokes.
	Count int
	// ShortSegments counts segments under the minimal length.
	ShortSegments int
	// Outside counts strokes dropped off the raster or on a missing
	// tile.
	Outside int
}

// NewSet returns an empty stroke set on a tileCols x tileRows grid.
func NewSet(tileCols, tileRows int) *Set {
	return &Set{
		TileCols: tileCols,
		TileRows: tileRows,
		buckets:  make([][]Stroke, tileCols*tileRows),
	}
}

// Bucket returns the strokes assigned to tile (tx, ty).
func (s *Set) Bucket(tx, ty int) []Stroke {
	return s.buckets[ty*s.TileCols+tx]
}

// Add appends a stroke to the bucket of tile (tx, ty).
func (s *Set) Add(tx, ty int, st Stroke) {
	s.buckets[ty*s.TileCols+tx] = append(s.buckets[ty*s.TileCols+tx], st)
	s.Count++
}

// Ordered returns all strokes in boustrophedon tile order: tile rows
// south to north, every other row swept east to west.
func (s *Set) Ordered() []Stroke {
	out := make([]Stroke, 0, s.Count)
	for j := 0; j < s.TileRows; j++ {
		for i := 0; i < s.TileCols; i++ {
			k := i
			if j%2 != 0 {
				k = s.TileCols - 1 - i
			}
			out = append(out, s.buckets[j*s.TileCols+k]...)
		}
	}
	return out
}

// HalfSized rebuckets the strokes on a doubled grid of half-size
// tiles, doubling coordinates and stretching each stroke one pixel
// towards its greater end. It returns the new set and the count of
// strokes falling off the doubled grid.
func (s *Set) HalfSized(tileWidth, tileHeight int) (*Set, int) {
	tw := tileWidth / 2
	th := tileHeight / 2
	out := NewSet(2*s.TileCols, 2*s.TileRows)
	outliers := 0
	for _, b := range s.buckets {
		for _, st := range b {
			kx := ((st.P1.X + st.P2.X) / 2) / tw
			ky := ((st.P1.Y + st.P2.Y) / 2) / th
			if kx < 0 || ky < 0 || kx >= out.TileCols || ky >= out.TileRows {
				outliers++
				continue
			}
			p1 := geom.Point2i{X: 2 * st.P1.X, Y: 2 * st.P1.Y}
			p2 := geom.Point2i{X: 2 * st.P2.X, Y: 2 * st.P2.Y}
			if p2.X < p1.X {
				p1.X++
			} else {
				p2.X++
			}
			if p2.Y < p1.Y {
				p1.Y++
			} else {
				p2.Y++
			}
			out.Add(kx, ky, Stroke{P1: p1, P2: p2})
		}
	}
	return out, outliers
}

// Generator emits cross strokes along detected segments.
type Generator struct {
	// Shift is the stroke spacing along a segment, in pixels.
	Shift int
	// Width is the stroke length, in pixels.
	Width int
	// MinLength is the minimal Euclidean segment length, in pixels.
	MinLength int
}

// NewGenerator returns a generator with the default spacing.
func NewGenerator() *Generator {
	return &Generator{
		Shift:     DefaultShift,
		Width:     DefaultWidth,
		MinLength: DefaultMinLength,
	}
}

// Generate walks each long-enough segment with the generator spacing
// and adds one perpendicular stroke per step to dst, bucketed on the
// tile holding the stroke midpoint. Strokes leaving the grid, and
// strokes whose tile the loaded predicate rejects, only feed the
// Outside counter. A nil predicate accepts every tile.
func (g *Generator) Generate(dst *Set, segs []fbsd.DSS, lay Layout,
	loaded func(tx, ty int) bool) {
	sw2 := float64(g.Width / 2)
	minL2 := g.MinLength * g.MinLength
	skx := lay.KX * lay.TileWidth
	sky := lay.KY*lay.TileHeight + lay.PadHeight - 1
	rw := lay.TileCols * lay.TileWidth
	rh := lay.TileRows * lay.TileHeight

	for _, d := range segs {
		if d.Length2() < minL2 {
			dst.ShortSegments++
			continue
		}
		x1r, y1r, x2r, y2r := d.NaiveLine()
		x1, y1 := x1r.Float(), y1r.Float()
		x2, y2 := x2r.Float(), y2r.Float()
		ln := math.Hypot(x2-x1, y2-y1)
		dx := (x2 - x1) / ln
		dy := (y2 - y1) / ln
		for pos := 0.0; pos <= ln; pos += float64(g.Shift) {
			p1 := geom.Point2i{
				X: skx + int(x1+pos*dx-sw2*dy+0.5),
				Y: sky - int(y1+pos*dy+sw2*dx+0.5),
			}
			p2 := geom.Point2i{
				X: skx + int(x1+pos*dx+sw2*dy+0.5),
				Y: sky - int(y1+pos*dy-sw2*dx+0.5),
			}
			if p1.X < 0 || p1.X >= rw || p1.Y < 0 || p1.Y >= rh ||
				p2.X < 0 || p2.X >= rw || p2.Y < 0 || p2.Y >= rh {
				dst.Outside++
				continue
			}
			tx := ((p1.X + p2.X) / 2) / lay.TileWidth
			if tx < 0 {
				tx = 0
			} else if tx >= lay.TileCols {
				tx = lay.TileCols - 1
			}
			ty := ((p1.Y + p2.Y) / 2) / lay.TileHeight
			if ty < 0 {
				ty = 0
			} else if ty >= lay.TileRows {
				ty = lay.TileRows - 1
			}
			if loaded != nil && !loaded(tx, ty) {
				dst.Outside++
				continue
			}
			dst.Add(tx, ty, Stroke{P1: p1, P2: p2})
		}
	}
}
