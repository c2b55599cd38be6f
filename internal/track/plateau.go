package track

import (
	"math"
	"sort"

	"github.com/banshee-data/roadtrace/internal/geom"
)

// Status is the outcome of one plateau extraction on a scan.
type Status int

const (
	// StatusImpassable marks a scan whose points all lie far above the
	// reference height, blocking further tracking in connected mode.
	StatusImpassable Status = iota
	// StatusNoOptimalHeight means no height window held enough samples.
	StatusNoOptimalHeight
	// StatusOutOfPosition means the plateau drifted off the reference
	// window.
	StatusOutOfPosition
	// StatusTooWide means the ground run exceeds the maximal length.
	StatusTooWide
	// StatusTooThin means the ground run is under the minimal length.
	StatusTooThin
	// StatusOK accepts the plateau.
	StatusOK
)

func (s Status) String() string {
	switch s {
	case StatusImpassable:
		return "impassable"
	case StatusNoOptimalHeight:
		return "no optimal height"
	case StatusOutOfPosition:
		return "out of position"
	case StatusTooWide:
		return "too wide"
	case StatusTooThin:
		return "too thin"
	case StatusOK:
		return "ok"
	}
	return "unknown"
}

// PlateauModel carries the cross-section acceptance tunables shared by
// all plateaux of a detection run.
type PlateauModel struct {
	// MinLength and MaxLength bound the accepted plateau width, in
	// meters.
	MinLength float64
	MaxLength float64
	// ThicknessTolerance is the height spread of the ground subset.
	ThicknessTolerance float64
	// SlopeTolerance is the accepted height drift per scan.
	SlopeTolerance float64
	// SideShiftTolerance is the minimal overlap with the reference
	// window, as a fraction of the reference width.
	SideShiftTolerance float64
	// BSMaxTilt scales the bound-jump threshold, in hundredths of the
	// thickness tolerance.
	BSMaxTilt int
	// MinPointsPerBin is the population needed by a height window.
	MinPointsPerBin int
	// MaxGap is the largest position gap inside one ground run.
	MaxGap float64
	// BoundDistance is how far beyond a plateau end a bounding jump is
	// searched.
	BoundDistance float64
	// StartLength is the nominal plateau width used to rank central
	// detection candidates.
	StartLength float64
	// TailMinSize is the minimal accepted run kept at a track tail.
	// Zero disables tail pruning.
	TailMinSize int
	// DeviationPrediction and SlopePrediction add the register trends
	// to the reference window between scans.
	DeviationPrediction bool
	SlopePrediction     bool
}

// Nominal plateau tunables for forest-road extraction.
const (
	DefaultMinLength          = 2.0
	DefaultMaxLength          = 6.0
	DefaultThicknessTolerance = 0.25
	DefaultSlopeTolerance     = 0.10
	DefaultSideShiftTolerance = 0.5
	DefaultBSMaxTilt          = 10
	DefaultMinPointsPerBin    = 3
	DefaultMaxGap             = 0.5
	DefaultBoundDistance      = 1.0
	DefaultStartLength        = 3.0
)

// NewPlateauModel returns a model with the nominal tunables.
func NewPlateauModel() *PlateauModel {
	return &PlateauModel{
		MinLength:           DefaultMinLength,
		MaxLength:           DefaultMaxLength,
		ThicknessTolerance:  DefaultThicknessTolerance,
		SlopeTolerance:      DefaultSlopeTolerance,
		SideShiftTolerance:  DefaultSideShiftTolerance,
		BSMaxTilt:           DefaultBSMaxTilt,
		MinPointsPerBin:     DefaultMinPointsPerBin,
		MaxGap:              DefaultMaxGap,
		BoundDistance:       DefaultBoundDistance,
		StartLength:         DefaultStartLength,
		DeviationPrediction: true,
		SlopePrediction:     true,
	}
}

// BoundJump returns the height jump that marks a plateau end as
// bounded.
func (m *PlateauModel) BoundJump() float64 {
	return m.ThicknessTolerance * float64(m.BSMaxTilt) / 100
}

// Plateau is the road-surface candidate extracted from one scan. The
// positions are cross-track meters from the seed's first stroke pixel;
// indices address the scan's sorted point sequence.
type Plateau struct {
	Status    Status
	ScanShift int

	MinHeight                  float64
	InternalStart, InternalEnd float64
	StartIndex, EndIndex       int
	BoundedStart, BoundedEnd   bool
	Accepted                   bool

	// Deviation and Slope carry the register predictions attached by
	// the tracker after extraction.
	Deviation float64
	Slope     float64

	model      *PlateauModel
	found      bool
	consistent bool
	nbPoints   int
}

// NewPlateau returns an empty plateau bound to the model for the scan
// at the given shift.
func NewPlateau(m *PlateauModel, scanShift int) *Plateau {
	return &Plateau{model: m, ScanShift: scanShift, MinHeight: math.NaN()}
}

// SortByPosition orders scan samples by quantized position, then
// height.
func SortByPosition(pts []geom.Point2f) {
	sort.Slice(pts, func(i, j int) bool {
		return pts[j].FurtherThan(pts[i])
	})
}

// Width returns the plateau extent, or zero when no run was found.
func (pl *Plateau) Width() float64 {
	if !pl.found {
		return 0
	}
	return pl.InternalEnd - pl.InternalStart
}

// EstimatedCenter returns the middle of the plateau extent.
func (pl *Plateau) EstimatedCenter() float64 {
	return (pl.InternalStart + pl.InternalEnd) / 2
}

// Bounded reports a bounding jump on both ends.
func (pl *Plateau) Bounded() bool { return pl.BoundedStart && pl.BoundedEnd }

// Reliable reports a bounded plateau with an in-range width.
func (pl *Plateau) Reliable() bool {
	w := pl.Width()
	return pl.Bounded() && w >= pl.model.MinLength && w <= pl.model.MaxLength
}

// Possible reports that a ground run was located, whatever its status.
func (pl *Plateau) Possible() bool { return pl.found }

// ConsistentHeight reports a minimal height within the slope tolerance
// of the reference.
func (pl *Plateau) ConsistentHeight() bool { return pl.consistent }

// HasEnoughPoints reports a scan populated enough to count a failure
// against the lack tolerance.
func (pl *Plateau) HasEnoughPoints() bool {
	return pl.nbPoints >= pl.model.MinPointsPerBin
}

// Impassable reports a scan blocked by a large upward step.
func (pl *Plateau) Impassable() bool { return pl.Status == StatusImpassable }

// Contains reports whether pos falls inside the plateau extent.
func (pl *Plateau) Contains(pos float64) bool {
	return pl.found && pos >= pl.InternalStart && pos <= pl.InternalEnd
}

// ThinnerThan compares plateau widths.
func (pl *Plateau) ThinnerThan(o *Plateau) bool { return pl.Width() < o.Width() }

// IsConnectedTo reports overlapping extents with another plateau.
func (pl *Plateau) IsConnectedTo(o *Plateau) bool {
	if o == nil || !pl.found || !o.found {
		return false
	}
	return pl.InternalStart <= o.InternalEnd && o.InternalStart <= pl.InternalEnd
}

// Detect extracts a plateau from a seed scan without any reference
// window. On density failure MinHeight falls back to the lowest sample
// height so the caller can retry at a fixed height.
func (pl *Plateau) Detect(pts []geom.Point2f) bool {
	m := pl.model
	pl.nbPoints = len(pts)
	pl.consistent = true
	if len(pts) == 0 {
		pl.Status = StatusNoOptimalHeight
		return false
	}
	mh, ok := lowestWindow(pts, 2*m.ThicknessTolerance, m.MinPointsPerBin,
		math.Inf(-1), math.Inf(1))
	if !ok {
		pl.MinHeight = lowestHeight(pts)
		pl.Status = StatusNoOptimalHeight
		return false
	}
	pl.MinHeight = mh
	if !pl.selectRun(pts, mh, mh+m.ThicknessTolerance, 0, 0, false) {
		pl.Status = StatusNoOptimalHeight
		return false
	}
	pl.evalBounds(pts)
	pl.Status = pl.widthStatus()
	return pl.Status == StatusOK
}

// DetectAround restricts Detect to the samples within the model's
// maximal length of center, for lateral seed-scan probing.
func (pl *Plateau) DetectAround(pts []geom.Point2f, center float64) bool {
	lo := sort.Search(len(pts), func(i int) bool {
		return pts[i].X >= center-pl.model.MaxLength
	})
	hi := sort.Search(len(pts), func(i int) bool {
		return pts[i].X > center+pl.model.MaxLength
	})
	ok := pl.Detect(pts[lo:hi])
	pl.StartIndex += lo
	pl.EndIndex += lo
	return ok
}

// DetectAtHeight retries a seed scan with the ground height held fixed
// and a doubled height band.
func (pl *Plateau) DetectAtHeight(pts []geom.Point2f, minHeight float64) bool {
	m := pl.model
	pl.nbPoints = len(pts)
	pl.consistent = true
	pl.MinHeight = minHeight
	if !pl.selectRun(pts, minHeight, minHeight+2*m.ThicknessTolerance, 0, 0, false) {
		pl.Status = StatusNoOptimalHeight
		return false
	}
	pl.evalBounds(pts)
	pl.Status = pl.widthStatus()
	return pl.Status == StatusOK
}

// Track extracts a plateau against the reference window (refs, refe,
// refh), laterally displaced by shift. confdist widens the height band
// for scans far from the last accepted plateau.
func (pl *Plateau) Track(pts []geom.Point2f, refs, refe, refh, shift float64,
	confdist int) bool {
	m := pl.model
	refs += shift
	refe += shift
	pl.nbPoints = len(pts)
	if len(pts) == 0 {
		pl.Status = StatusNoOptimalHeight
		return false
	}
	low := lowestHeight(pts)
	if low > refh+4*m.ThicknessTolerance {
		pl.MinHeight = low
		pl.Status = StatusImpassable
		return false
	}
	band := m.SlopeTolerance*float64(confdist) + m.ThicknessTolerance
	mh, ok := lowestWindow(pts, 2*m.ThicknessTolerance, m.MinPointsPerBin,
		refh-band, refh+band)
	if !ok {
		pl.MinHeight = low
		pl.Status = StatusNoOptimalHeight
		return false
	}
	pl.MinHeight = mh
	pl.consistent = math.Abs(mh-refh) <= m.SlopeTolerance*float64(confdist)
	if !pl.selectRun(pts, mh, mh+m.ThicknessTolerance, refs, refe, true) {
		pl.Status = StatusNoOptimalHeight
		return false
	}
	pl.evalBounds(pts)
	st := pl.widthStatus()
	if st == StatusOK {
		ov := overlap(pl.InternalStart, pl.InternalEnd, refs, refe)
		if ov < m.SideShiftTolerance*(refe-refs) {
			st = StatusOutOfPosition
		}
	}
	pl.Status = st
	return st == StatusOK
}

func (pl *Plateau) widthStatus() Status {
	w := pl.Width()
	switch {
	case w < pl.model.MinLength:
		return StatusTooThin
	case w > pl.model.MaxLength:
		return StatusTooWide
	}
	return StatusOK
}

// trim shrinks the plateau to the maximal length by moving its
// unstable end, then reassesses the width status.
func (pl *Plateau) trim(side int) {
	if !pl.found || side == 0 {
		return
	}
	if side < 0 {
		pl.InternalStart = pl.InternalEnd - pl.model.MaxLength
	} else {
		pl.InternalEnd = pl.InternalStart + pl.model.MaxLength
	}
	if pl.Status == StatusTooWide {
		pl.Status = pl.widthStatus()
	}
}

type groundRun struct {
	s0, s1 float64
	i0, i1 int
	n      int
}

// selectRun filters the ground subset and keeps the best contiguous
// run: largest overlap with the reference window when byOverlap is
// set, longest extent otherwise.
func (pl *Plateau) selectRun(pts []geom.Point2f, minH, maxH, refs, refe float64,
	byOverlap bool) bool {
	m := pl.model
	var runs []groundRun
	active := false
	var cur groundRun
	for k, p := range pts {
		if p.Y < minH || p.Y > maxH {
			continue
		}
		if !active || p.X-cur.s1 > m.MaxGap {
			if active {
				runs = append(runs, cur)
			}
			cur = groundRun{s0: p.X, s1: p.X, i0: k, i1: k, n: 1}
			active = true
			continue
		}
		cur.s1 = p.X
		cur.i1 = k
		cur.n++
	}
	if active {
		runs = append(runs, cur)
	}
	if len(runs) == 0 {
		return false
	}
	best := runs[0]
	for _, r := range runs[1:] {
		if byOverlap {
			if overlap(r.s0, r.s1, refs, refe) > overlap(best.s0, best.s1, refs, refe) {
				best = r
			}
			continue
		}
		if r.s1-r.s0 > best.s1-best.s0 ||
			(r.s1-r.s0 == best.s1-best.s0 && r.n > best.n) {
			best = r
		}
	}
	pl.InternalStart = best.s0
	pl.InternalEnd = best.s1
	pl.StartIndex = best.i0
	pl.EndIndex = best.i1
	pl.found = true
	return true
}

// evalBounds looks for a bounding height jump just beyond each plateau
// end.
func (pl *Plateau) evalBounds(pts []geom.Point2f) {
	m := pl.model
	jump := pl.MinHeight + m.ThicknessTolerance + m.BoundJump()
	for k := pl.StartIndex - 1; k >= 0; k-- {
		if pl.InternalStart-pts[k].X > m.BoundDistance {
			break
		}
		if pts[k].Y >= jump {
			pl.BoundedStart = true
			break
		}
	}
	for k := pl.EndIndex + 1; k < len(pts); k++ {
		if pts[k].X-pl.InternalEnd > m.BoundDistance {
			break
		}
		if pts[k].Y >= jump {
			pl.BoundedEnd = true
			break
		}
	}
}

// lowestWindow returns the base of the lowest height window of the
// given width holding at least minPts samples, restricted to bases in
// [lo, hi].
func lowestWindow(pts []geom.Point2f, width float64, minPts int,
	lo, hi float64) (float64, bool) {
	hs := make([]float64, len(pts))
	for k, p := range pts {
		hs[k] = p.Y
	}
	sort.Float64s(hs)
	j := 0
	for i, h := range hs {
		if h < lo {
			continue
		}
		if h > hi {
			break
		}
		if j < i {
			j = i
		}
		for j < len(hs) && hs[j] <= h+width {
			j++
		}
		if j-i >= minPts {
			return h, true
		}
	}
	return 0, false
}

func lowestHeight(pts []geom.Point2f) float64 {
	low := pts[0].Y
	for _, p := range pts[1:] {
		if p.Y < low {
			low = p.Y
		}
	}
	return low
}

func overlap(s0, s1, r0, r1 float64) float64 {
	lo := math.Max(s0, r0)
	hi := math.Min(s1, r1)
	if hi < lo {
		return 0
	}
	return hi - lo
}
