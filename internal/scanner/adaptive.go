package scanner

import (
	"github.com/banshee-data/roadtrace/internal/geom"
)

// xform is a signed axis permutation between raster coordinates and
// the canonical scan frame. Negations apply before the swap.
type xform struct {
	swap bool
	negX bool
	negY bool
}

// apply maps a raster point into the canonical frame.
func (t xform) apply(p geom.Point2i) geom.Point2i {
	x, y := p.X, p.Y
	if t.negX {
		x = -x
	}
	if t.negY {
		y = -y
	}
	if t.swap {
		x, y = y, x
	}
	return geom.Point2i{X: x, Y: y}
}

// invert maps canonical coordinates back to a raster point.
func (t xform) invert(x, y int) geom.Point2i {
	if t.swap {
		x, y = y, x
	}
	if t.negX {
		x = -x
	}
	if t.negY {
		y = -y
	}
	return geom.Point2i{X: x, Y: y}
}

// coeffs maps support line coefficients into the canonical frame, so
// that a*x + b*y is invariant under the point mapping.
func (t xform) coeffs(a, b int) (int, int) {
	if t.negX {
		a = -a
	}
	if t.negY {
		b = -b
	}
	if t.swap {
		a, b = b, a
	}
	return a, b
}

// mirrored reports whether the permutation flips orientation, in which
// case canonical left and right trade places in raster space.
func (t xform) mirrored() bool {
	return (t.swap != t.negX) != t.negY
}

// adaptiveScanner is the canonical strip walker. In its frame the
// strip direction (dla, dlb) satisfies dla >= -dlb >= 0 and every scan
// steps x down, occasionally y up, from the dlc1 bound to the dlc2
// bound. Left and right cursors hold the start of the next scan on
// each side.
type adaptiveScanner struct {
	xmin, ymin int
	xmax, ymax int
	steps      []bool
	xf         xform
	mirror     bool

	dla, dlb   int
	dlc1, dlc2 int

	templA, templB int
	templNu        int

	lcx, lcy, lst int
	rcx, rcy, rst int
}

var _ Scanner = (*adaptiveScanner)(nil)

// newStripScanner builds a scanner on the strip between the bounds c1
// and c2, anchored on the canonical-frame point (cx, cy) which must
// lie on or below the upper bound.
func newStripScanner(xmin, ymin, xmax, ymax, a, b, c1, c2 int,
	steps []bool, xf xform, cx, cy int) *adaptiveScanner {
	if c2 > c1 {
		c1, c2 = c2, c1
	}
	s := &adaptiveScanner{
		xmin: xmin, ymin: ymin, xmax: xmax, ymax: ymax,
		steps: steps, xf: xf, mirror: xf.mirrored(),
		dla: a, dlb: b, dlc1: c1, dlc2: c2,
		templA: a, templB: b, templNu: c1 - c2,
		lcx: cx, lcy: cy,
	}
	st := len(steps)
	for {
		st--
		if st < 0 {
			st = len(steps) - 1
		}
		if steps[st] {
			s.lcy--
		}
		s.lcx++
		if s.dla*s.lcx+s.dlb*s.lcy >= c1 {
			break
		}
	}
	s.lst, s.rst = st, st
	s.rcx, s.rcy = s.lcx, s.lcy
	return s
}

// newHalfStripScanner builds a scanner whose central scan starts on
// the canonical-frame point (sx, sy) and crosses down to the bound c.
func newHalfStripScanner(xmin, ymin, xmax, ymax, a, b, c int,
	steps []bool, xf xform, sx, sy int) *adaptiveScanner {
	s := &adaptiveScanner{
		xmin: xmin, ymin: ymin, xmax: xmax, ymax: ymax,
		steps: steps, xf: xf, mirror: xf.mirrored(),
		dla: a, dlb: b, dlc2: c, dlc1: a*sx + b*sy,
		templA: a, templB: b,
		lcx: sx, lcy: sy, rcx: sx, rcy: sy,
	}
	s.templNu = s.dlc1 - s.dlc2
	return s
}

// newCenteredScanner builds a scanner whose central scan holds the
// given count of pixels centred on the canonical-frame point (cx, cy).
func newCenteredScanner(xmin, ymin, xmax, ymax, a, b int,
	steps []bool, xf xform, cx, cy, length int) *adaptiveScanner {
	s := &adaptiveScanner{
		xmin: xmin, ymin: ymin, xmax: xmax, ymax: ymax,
		steps: steps, xf: xf, mirror: xf.mirrored(),
		dla: a, dlb: b,
		templA: a, templB: b,
		lcx: cx, lcy: cy,
	}
	w2 := (length + 1) / 2

	st := len(steps)
	for i := 0; i < w2; i++ {
		st--
		if st < 0 {
			st = len(steps) - 1
		}
		if steps[st] {
			s.lcy--
		}
		s.lcx++
	}
	s.dlc1 = s.dla*s.lcx + s.dlb*s.lcy
	s.lst, s.rst = st, st

	st = 0
	for i := 0; i < w2; i++ {
		if steps[st] {
			cy++
		}
		cx--
		st++
		if st >= len(steps) {
			st = 0
		}
	}
	s.dlc2 = s.dla*cx + s.dlb*cy
	s.templNu = s.dlc1 - s.dlc2

	s.rcx, s.rcy = s.lcx, s.lcy
	return s
}

// First appends the pixels of the central scan to out.
func (s *adaptiveScanner) First(out []geom.Point2i) []geom.Point2i {
	return s.scan(s.lcx, s.lcy, s.lst, out)
}

// NextOnLeft appends the pixels of the next scan on the left to out.
// An unchanged slice means the strip has left the raster on that side.
func (s *adaptiveScanner) NextOnLeft(out []geom.Point2i) []geom.Point2i {
	if s.mirror {
		return s.stepRight(1, out)
	}
	return s.stepLeft(1, out)
}

// NextOnRight appends the pixels of the next scan on the right to out.
func (s *adaptiveScanner) NextOnRight(out []geom.Point2i) []geom.Point2i {
	if s.mirror {
		return s.stepLeft(1, out)
	}
	return s.stepRight(1, out)
}

// SkipLeft advances the left cursor by skip scans and appends the
// pixels of the scan it lands on to out.
func (s *adaptiveScanner) SkipLeft(skip int, out []geom.Point2i) []geom.Point2i {
	if s.mirror {
		return s.stepRight(skip, out)
	}
	return s.stepLeft(skip, out)
}

// SkipRight advances the right cursor by skip scans and appends the
// pixels of the scan it lands on to out.
func (s *adaptiveScanner) SkipRight(skip int, out []geom.Point2i) []geom.Point2i {
	if s.mirror {
		return s.stepLeft(skip, out)
	}
	return s.stepRight(skip, out)
}

// SkipLeftFast moves the left cursor so that the next left scan lands
// skip scans away. No pixels are produced and no re-anchoring occurs.
func (s *adaptiveScanner) SkipLeftFast(skip int) {
	if s.mirror {
		s.rcy += skip - 1
	} else {
		s.lcy -= skip - 1
	}
}

// SkipRightFast moves the right cursor so that the next right scan
// lands skip scans away.
func (s *adaptiveScanner) SkipRightFast(skip int) {
	if s.mirror {
		s.lcy -= skip - 1
	} else {
		s.rcy += skip - 1
	}
}

// BindTo rebinds the scanner to the direction (a, b) in raster
// coordinates and re-centres its strip on the offset c. The strip
// thickness is rescaled from the construction template by whichever of
// the l1 and linf norm ratios gives the tighter integer value.
func (s *adaptiveScanner) BindTo(a, b, c int) {
	a, b = s.xf.coeffs(a, b)
	if a < 0 {
		a, b, c = -a, -b, -c
	}
	s.dla = a
	s.dlb = b

	oldB := s.templB
	if oldB < 0 {
		oldB = -oldB
	}
	oldN1 := s.templA + oldB
	oldNinf := s.templA
	if oldB > oldNinf {
		oldNinf = oldB
	}
	newB := b
	if newB < 0 {
		newB = -newB
	}
	newN1 := a + newB
	newNinf := a
	if newB > newNinf {
		newNinf = newB
	}
	var nu int
	if newN1*oldNinf < oldN1*newNinf {
		nu = (s.templNu * newN1) / oldN1
	} else {
		nu = (s.templNu * newNinf) / oldNinf
	}
	s.dlc1 = c + nu/2
	s.dlc2 = c - nu/2
}

// Copy returns an independent scanner sharing the immutable step
// pattern.
func (s *adaptiveScanner) Copy() Scanner {
	c := *s
	return &c
}

// stepLeft lowers the left cursor by shift scans, re-anchors it on the
// upper bound whenever the bound moved across a pattern step, and
// emits the resulting scan.
func (s *adaptiveScanner) stepLeft(shift int, out []geom.Point2i) []geom.Point2i {
	s.lcy -= shift
	for s.lcx > s.xmin && s.lcy < s.ymax && s.dla*s.lcx+s.dlb*s.lcy > s.dlc1 {
		if s.steps[s.lst] {
			s.lcy++
		}
		s.lcx--
		s.lst++
		if s.lst >= len(s.steps) {
			s.lst = 0
		}
	}
	for s.lcx < s.xmax-1 && s.lcy >= s.ymin && s.dla*s.lcx+s.dlb*s.lcy < s.dlc1 {
		s.lst--
		if s.lst < 0 {
			s.lst = len(s.steps) - 1
		}
		if s.steps[s.lst] {
			s.lcy--
		}
		s.lcx++
	}
	return s.scan(s.lcx, s.lcy, s.lst, out)
}

// stepRight raises the right cursor by shift scans and emits the
// resulting scan.
func (s *adaptiveScanner) stepRight(shift int, out []geom.Point2i) []geom.Point2i {
	s.rcy += shift
	for s.rcx > s.xmin && s.rcy < s.ymax && s.dla*s.rcx+s.dlb*s.rcy > s.dlc1 {
		if s.steps[s.rst] {
			s.rcy++
		}
		s.rcx--
		s.rst++
		if s.rst >= len(s.steps) {
			s.rst = 0
		}
	}
	for s.rcx < s.xmax-1 && s.rcy >= s.ymin && s.dla*s.rcx+s.dlb*s.rcy < s.dlc1 {
		s.rst--
		if s.rst < 0 {
			s.rst = len(s.steps) - 1
		}
		if s.steps[s.rst] {
			s.rcy--
		}
		s.rcx++
	}
	return s.scan(s.rcx, s.rcy, s.rst, out)
}

// scan walks one scan line from the given cursor, skipping pixels
// outside the raster, and appends the in-strip pixels to out.
func (s *adaptiveScanner) scan(x, y, st int, out []geom.Point2i) []geom.Point2i {
	for (y < s.ymin || x >= s.xmax) && s.dla*x+s.dlb*y >= s.dlc2 {
		if s.steps[st] {
			y++
		}
		x--
		st++
		if st >= len(s.steps) {
			st = 0
		}
	}
	for s.dla*x+s.dlb*y >= s.dlc2 && y < s.ymax && x >= s.xmin {
		out = append(out, s.xf.invert(x, y))
		if s.steps[st] {
			y++
		}
		x--
		st++
		if st >= len(s.steps) {
			st = 0
		}
	}
	return out
}
