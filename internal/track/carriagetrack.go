package track

import (
	"math"

	"github.com/banshee-data/roadtrace/internal/geom"
)

// CarriageTrack chains the plateaux grown from one seed stroke. Scan
// index 0 is the central scan on the stroke; negative indices walk the
// right side, positive the left.
type CarriageTrack struct {
	SeedStart, SeedEnd geom.Point2i
	CellSize           float64
	Status             Result

	central *Plateau
	right   []*Plateau
	left    []*Plateau

	p1f    geom.Point2f
	dir    geom.Vec2f // unit stroke direction
	l12    float64
	lshift geom.Vec2f // world displacement per scan step
}

// NewCarriageTrack prepares an empty track on the given seed stroke,
// expressed in raster pixels of the given cell size.
func NewCarriageTrack(p1, p2 geom.Point2i, cellSize float64) *CarriageTrack {
	ct := &CarriageTrack{SeedStart: p1, SeedEnd: p2, CellSize: cellSize}
	ct.p1f = geom.Point2f{
		X: cellSize * (float64(p1.X) + 0.5),
		Y: cellSize * (float64(p1.Y) + 0.5),
	}
	p12 := geom.Vec2f{
		X: cellSize * float64(p2.X-p1.X),
		Y: cellSize * float64(p2.Y-p1.Y),
	}
	ct.l12 = p12.Norm()
	if ct.l12 > 0 {
		ct.dir = geom.Vec2f{X: p12.X / ct.l12, Y: p12.Y / ct.l12}
	}
	a := p2.X - p1.X
	b := p2.Y - p1.Y
	if a < 0 {
		a, b = -a, -b
	}
	ct.lshift = lateralShift(a, b, cellSize)
	return ct
}

// lateralShift returns the world displacement between two successive
// scans of a strip directed along the pixel vector (a, b).
func lateralShift(a, b int, cellSize float64) geom.Vec2f {
	x := float64(a)
	y := float64(b)
	n2 := x*x + y*y
	if n2 == 0 {
		return geom.Vec2f{}
	}
	fact := cellSize / n2
	if x > 0 {
		if y > 0 {
			if x > y {
				return geom.Vec2f{X: -x * y * fact, Y: x * x * fact}
			}
			return geom.Vec2f{X: -y * y * fact, Y: x * y * fact}
		}
		if x > -y {
			return geom.Vec2f{X: -x * y * fact, Y: x * x * fact}
		}
		return geom.Vec2f{X: y * y * fact, Y: -x * y * fact}
	}
	if y > 0 {
		if -x > y {
			return geom.Vec2f{X: x * y * fact, Y: -x * x * fact}
		}
		return geom.Vec2f{X: -y * y * fact, Y: x * y * fact}
	}
	if x < y {
		return geom.Vec2f{X: x * y * fact, Y: -x * x * fact}
	}
	return geom.Vec2f{X: y * y * fact, Y: -x * y * fact}
}

// ScanStep returns the along-road distance between successive scans.
func (ct *CarriageTrack) ScanStep() float64 { return ct.lshift.Norm() }

// Start installs the central plateau.
func (ct *CarriageTrack) Start(pl *Plateau) { ct.central = pl }

// Add appends the next plateau on one side.
func (ct *CarriageTrack) Add(onRight bool, pl *Plateau) {
	if onRight {
		ct.right = append(ct.right, pl)
	} else {
		ct.left = append(ct.left, pl)
	}
}

// Plateau returns the plateau at the given scan index, or nil.
func (ct *CarriageTrack) Plateau(num int) *Plateau {
	switch {
	case num == 0:
		return ct.central
	case num < 0:
		if -num <= len(ct.right) {
			return ct.right[-num-1]
		}
	default:
		if num <= len(ct.left) {
			return ct.left[num-1]
		}
	}
	return nil
}

// Accept marks the plateau at the given scan index as accepted.
func (ct *CarriageTrack) Accept(num int) {
	if pl := ct.Plateau(num); pl != nil {
		pl.Accepted = true
	}
}

// Clear drops all plateaux of one side.
func (ct *CarriageTrack) Clear(onRight bool) {
	if onRight {
		ct.right = nil
	} else {
		ct.left = nil
	}
}

// RightScanCount returns the number of scans walked on the right side.
func (ct *CarriageTrack) RightScanCount() int { return len(ct.right) }

// LeftScanCount returns the number of scans walked on the left side.
func (ct *CarriageTrack) LeftScanCount() int { return len(ct.left) }

// IsValid reports an accepted central plateau.
func (ct *CarriageTrack) IsValid() bool {
	return ct.central != nil && ct.central.Accepted
}

// Prune truncates each side after its last accepted run of at least
// minSize plateaux and reports whether nothing survives outside the
// central scan.
func (ct *CarriageTrack) Prune(minSize int) bool {
	ct.right = pruneSide(ct.right, minSize)
	ct.left = pruneSide(ct.left, minSize)
	return len(ct.right) == 0 && len(ct.left) == 0
}

func pruneSide(side []*Plateau, minSize int) []*Plateau {
	run, cut := 0, 0
	for i, pl := range side {
		if pl.Accepted {
			run++
			if run >= minSize {
				cut = i + 1
			}
		} else {
			run = 0
		}
	}
	return side[:cut]
}

// lastAccepted returns the outermost accepted scan index on one side,
// or zero.
func lastAccepted(side []*Plateau) int {
	last := 0
	for i, pl := range side {
		if pl.Accepted {
			last = i + 1
		}
	}
	return last
}

// Spread returns the scan count between the outermost accepted
// plateaux, central scan included.
func (ct *CarriageTrack) Spread() int {
	return lastAccepted(ct.right) + lastAccepted(ct.left) + 1
}

// Holes counts the non-accepted scans strictly inside the spread.
func (ct *CarriageTrack) Holes() int {
	holes := 0
	for _, side := range [][]*Plateau{ct.right, ct.left} {
		n := lastAccepted(side)
		for i := 0; i < n; i++ {
			if !side[i].Accepted {
				holes++
			}
		}
	}
	if ct.central != nil && !ct.central.Accepted {
		holes++
	}
	return holes
}

// RelativeShiftLength returns the total lateral wobble of the accepted
// centers, normalised by the along-road length of the spread.
func (ct *CarriageTrack) RelativeShiftLength() float64 {
	step := ct.ScanStep()
	spread := ct.Spread()
	if step == 0 || spread <= 1 {
		return 0
	}
	sum := 0.0
	for _, side := range [][]*Plateau{ct.right, ct.left} {
		prev := ct.central
		for _, pl := range side {
			if !pl.Accepted {
				continue
			}
			if prev != nil {
				sum += math.Abs(pl.EstimatedCenter() - prev.EstimatedCenter())
			}
			prev = pl
		}
	}
	return sum / (float64(spread) * step)
}

// CenterPoint returns the world position of the plateau center at the
// given scan index.
func (ct *CarriageTrack) CenterPoint(num int) geom.Point2f {
	pl := ct.Plateau(num)
	if pl == nil {
		return geom.Point2f{}
	}
	return ct.scanPoint(num, pl.EstimatedCenter())
}

func (ct *CarriageTrack) scanPoint(num int, s float64) geom.Point2f {
	return geom.Point2f{
		X: ct.p1f.X + ct.dir.X*s + float64(num)*ct.lshift.X,
		Y: ct.p1f.Y + ct.dir.Y*s + float64(num)*ct.lshift.Y,
	}
}

// CenterLine returns the accepted plateau centers ordered from the
// right end of the track to the left end.
func (ct *CarriageTrack) CenterLine() []geom.Point2f {
	var out []geom.Point2f
	for num := -len(ct.right); num <= len(ct.left); num++ {
		if pl := ct.Plateau(num); pl != nil && pl.Accepted {
			out = append(out, ct.scanPoint(num, pl.EstimatedCenter()))
		}
	}
	return out
}

// Points returns the raster pixels covered by each accepted scan,
// scaled by iratio from track pixels to map pixels and clipped to the
// (width, height) raster. Empty scans are dropped.
func (ct *CarriageTrack) Points(width, height int, iratio float64) [][]geom.Point2i {
	return ct.points(false, width, height, iratio)
}

// ConnectedPoints is like Points but stops each side walk at the first
// accepted plateau losing extent overlap with its predecessor.
func (ct *CarriageTrack) ConnectedPoints(width, height int, iratio float64) [][]geom.Point2i {
	return ct.points(true, width, height, iratio)
}

func (ct *CarriageTrack) points(connected bool, width, height int,
	iratio float64) [][]geom.Point2i {
	var out [][]geom.Point2i
	if ct.central == nil || !ct.central.Accepted {
		return out
	}
	if px := ct.scanPixels(0, ct.central, width, height, iratio); len(px) > 0 {
		out = append(out, px)
	}
	for _, side := range [2]int{-1, 1} {
		n := len(ct.right)
		if side > 0 {
			n = len(ct.left)
		}
		prev := ct.central
		for i := 1; i <= n; i++ {
			pl := ct.Plateau(side * i)
			if pl == nil || !pl.Accepted {
				continue
			}
			if connected && !pl.IsConnectedTo(prev) {
				break
			}
			if px := ct.scanPixels(side*i, pl, width, height, iratio); len(px) > 0 {
				out = append(out, px)
			}
			prev = pl
		}
	}
	return out
}

func (ct *CarriageTrack) scanPixels(num int, pl *Plateau, width, height int,
	iratio float64) []geom.Point2i {
	sc := iratio / ct.CellSize
	pa := ct.scanPoint(num, pl.InternalStart)
	pb := ct.scanPoint(num, pl.InternalEnd)
	line := geom.LinePoints(
		geom.Point2i{X: int(pa.X * sc), Y: int(pa.Y * sc)},
		geom.Point2i{X: int(pb.X * sc), Y: int(pb.Y * sc)})
	out := line[:0]
	for _, p := range line {
		if p.X >= 0 && p.Y >= 0 && p.X < width && p.Y < height {
			out = append(out, p)
		}
	}
	return out
}

// BoundsLoop returns the accepted plateau start bound followed by the
// end bound walked back, forming a closed outline of the track.
func (ct *CarriageTrack) BoundsLoop() []geom.Point2f {
	var starts, ends []geom.Point2f
	for num := -len(ct.right); num <= len(ct.left); num++ {
		if pl := ct.Plateau(num); pl != nil && pl.Accepted {
			starts = append(starts, ct.scanPoint(num, pl.InternalStart))
			ends = append(ends, ct.scanPoint(num, pl.InternalEnd))
		}
	}
	for i := len(ends) - 1; i >= 0; i-- {
		starts = append(starts, ends[i])
	}
	return starts
}
