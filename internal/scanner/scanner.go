package scanner

import (
	"github.com/banshee-data/roadtrace/internal/geom"
)

// Scanner delivers the successive scan lines of a digital straight
// strip. Scan methods append pixels to the slice they are given and
// return it, so callers choose between clearing the slice for a fresh
// scan and accumulating several scans in one buffer. A call that
// appends nothing means the strip has left the raster on that side.
type Scanner interface {
	// First emits the central scan.
	First(out []geom.Point2i) []geom.Point2i
	// NextOnLeft advances the left cursor one scan and emits it.
	NextOnLeft(out []geom.Point2i) []geom.Point2i
	// NextOnRight advances the right cursor one scan and emits it.
	NextOnRight(out []geom.Point2i) []geom.Point2i
	// SkipLeft advances the left cursor by skip scans and emits the
	// scan it lands on.
	SkipLeft(skip int, out []geom.Point2i) []geom.Point2i
	// SkipRight advances the right cursor by skip scans and emits the
	// scan it lands on.
	SkipRight(skip int, out []geom.Point2i) []geom.Point2i
	// SkipLeftFast moves the left cursor without emitting pixels; the
	// next left scan lands skip scans away.
	SkipLeftFast(skip int)
	// SkipRightFast moves the right cursor without emitting pixels.
	SkipRightFast(skip int)
	// BindTo rebinds the scanner to direction (a, b) and perpendicular
	// offset c for the scans that follow.
	BindTo(a, b, c int)
	// Copy returns an independent scanner in the same state.
	Copy() Scanner
}

// Provider builds directional scanners clipped to a raster.
//
// The zero value is unusable until SetSize fixes the raster extent.
type Provider struct {
	width, height int
	lastReversed  bool
}

// NewProvider returns a provider for a width x height raster.
func NewProvider(width, height int) *Provider {
	return &Provider{width: width, height: height}
}

// SetSize fixes the raster extent the scanners are clipped to.
func (p *Provider) SetSize(width, height int) {
	p.width = width
	p.height = height
}

// IsLastScanReversed reports whether the scans of the last delivered
// scanner run from the second input point towards the first.
func (p *Provider) IsLastScanReversed() bool { return p.lastReversed }

// GetScanner returns a scanner on the strip bounded by the two support
// lines orthogonal to p1p2 through p1 and p2. The central scan joins
// the two points; scans always run from the greater of the two points
// in (x, y) lexicographic order towards the smaller.
func (p *Provider) GetScanner(p1, p2 geom.Point2i) Scanner {
	if p2.X < p1.X || (p2.X == p1.X && p2.Y < p1.Y) {
		p1, p2 = p2, p1
		p.lastReversed = false
	} else {
		p.lastReversed = true
	}
	a := p2.X - p1.X
	b := p2.Y - p1.Y
	t := octant(a, b)
	ca, cb := t.coeffs(a, b)
	c1 := a*p1.X + b*p1.Y
	c2 := a*p2.X + b*p2.Y
	cp := t.apply(p1)
	xmin, ymin, xmax, ymax := p.bounds(t)
	return newStripScanner(xmin, ymin, xmax, ymax, ca, cb, c1, c2,
		geom.StepPattern(a, b), t, cp.X, cp.Y)
}

// GetScannerAround returns a scanner whose central scan is centred on
// the given pixel, directed along dir, with the given pixel length.
func (p *Provider) GetScannerAround(center geom.Point2i, dir geom.Vec2i, length int) Scanner {
	if dir.X < 0 || (dir.X == 0 && dir.Y < 0) {
		dir = geom.Vec2i{X: -dir.X, Y: -dir.Y}
		p.lastReversed = false
	} else {
		p.lastReversed = true
	}
	t := octant(dir.X, dir.Y)
	ca, cb := t.coeffs(dir.X, dir.Y)
	cp := t.apply(center)
	xmin, ymin, xmax, ymax := p.bounds(t)
	return newCenteredScanner(xmin, ymin, xmax, ymax, ca, cb,
		geom.StepPattern(dir.X, dir.Y), t, cp.X, cp.Y, length)
}

// GetScannerFrom returns a scanner on the half strip whose central
// scan starts on the given pixel, directed along dir, and crosses down
// to the support line dir.X*x + dir.Y*y = c. The direction is used as
// given; no reordering applies.
func (p *Provider) GetScannerFrom(start geom.Point2i, dir geom.Vec2i, c int) Scanner {
	t := octant(dir.X, dir.Y)
	ca, cb := t.coeffs(dir.X, dir.Y)
	sp := t.apply(start)
	xmin, ymin, xmax, ymax := p.bounds(t)
	return newHalfStripScanner(xmin, ymin, xmax, ymax, ca, cb, c,
		geom.StepPattern(dir.X, dir.Y), t, sp.X, sp.Y)
}

// octant returns the signed axis permutation carrying the direction
// (a, b) onto the canonical scan octant, where the major component is
// a positive x and the minor one a non-positive y.
func octant(a, b int) xform {
	aa, ab := a, b
	if aa < 0 {
		aa = -aa
	}
	if ab < 0 {
		ab = -ab
	}
	var t xform
	if ab > aa {
		t.swap = true
		t.negX = a > 0
		t.negY = b < 0
	} else {
		t.negX = a < 0
		t.negY = b > 0
	}
	return t
}

// bounds returns the raster rectangle in the canonical frame of t,
// half open on the upper sides.
func (p *Provider) bounds(t xform) (xmin, ymin, xmax, ymax int) {
	xmin, xmax = 0, p.width
	ymin, ymax = 0, p.height
	if t.negX {
		xmin, xmax = 1-xmax, 1-xmin
	}
	if t.negY {
		ymin, ymax = 1-ymax, 1-ymin
	}
	if t.swap {
		xmin, ymin = ymin, xmin
		xmax, ymax = ymax, xmax
	}
	return xmin, ymin, xmax, ymax
}
