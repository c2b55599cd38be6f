package fbsd

import (
	"github.com/banshee-data/roadtrace/internal/geom"
)

// BlurredSegment accumulates pixels while the Euclidean width of their
// convex hull stays under a maximal width.
type BlurredSegment struct {
	maxWidth float64
	pts      []geom.Point2i
	hull     []geom.Point2i
	width    float64
	edge     geom.Vec2i
}

// NewBlurredSegment returns an empty segment with the given width bound.
func NewBlurredSegment(maxWidth float64) *BlurredSegment {
	return &BlurredSegment{maxWidth: maxWidth, edge: geom.Vec2i{X: 1}}
}

// AddPoint extends the segment with p and reports whether the extension
// keeps the hull width under the bound. A rejected point leaves the
// segment unchanged.
func (b *BlurredSegment) AddPoint(p geom.Point2i) bool {
	cand := make([]geom.Point2i, 0, len(b.hull)+1)
	cand = append(cand, b.hull...)
	cand = append(cand, p)
	hull := convexHull(cand)
	w, edge := hullWidth(hull)
	if w > b.maxWidth {
		return false
	}
	b.pts = append(b.pts, p)
	b.hull = hull
	b.width = w
	b.edge = edge
	return true
}

// Size returns the count of accepted pixels.
func (b *BlurredSegment) Size() int { return len(b.pts) }

// Points returns the accepted pixels in insertion order.
func (b *BlurredSegment) Points() []geom.Point2i { return b.pts }

// Width returns the Euclidean width of the current hull.
func (b *BlurredSegment) Width() float64 { return b.width }

// Direction returns the hull edge carrying the minimal width, reduced
// to its primitive vector.
func (b *BlurredSegment) Direction() geom.Vec2i {
	v := b.edge
	g := v.GCD()
	return geom.Vec2i{X: v.X / g, Y: v.Y / g}
}

// ToDSS reduces the segment to the digital straight segment enclosing
// its pixels along the minimal-width direction.
func (b *BlurredSegment) ToDSS() DSS {
	v := b.Direction()
	a, bb := v.Y, -v.X
	if a < 0 || (a == 0 && bb < 0) {
		a, bb = -a, -bb
	}
	d := DSS{A: a, B: bb}
	for k, p := range b.pts {
		mu := a*p.X + bb*p.Y
		ext := bb*p.X - a*p.Y
		if k == 0 {
			d.Mu, d.Nu = mu, mu
			d.Min, d.Max = ext, ext
			continue
		}
		if mu < d.Mu {
			d.Mu = mu
		}
		if mu > d.Nu {
			d.Nu = mu
		}
		if ext < d.Min {
			d.Min = ext
		}
		if ext > d.Max {
			d.Max = ext
		}
	}
	d.Nu = d.Nu - d.Mu + 1
	return d
}
