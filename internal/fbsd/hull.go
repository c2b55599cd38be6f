package fbsd

import (
	"math"
	"sort"

	"github.com/banshee-data/roadtrace/internal/geom"
)

// convexHull returns the strict convex hull of the points in
// counter-clockwise order, collinear points removed.
func convexHull(pts []geom.Point2i) []geom.Point2i {
	out := append([]geom.Point2i(nil), pts...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	uniq := out[:0]
	for _, p := range out {
		if len(uniq) == 0 || !uniq[len(uniq)-1].Equal(p) {
			uniq = append(uniq, p)
		}
	}
	if len(uniq) < 3 {
		return append([]geom.Point2i(nil), uniq...)
	}
	cross := func(o, a, b geom.Point2i) int {
		return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
	}
	hull := make([]geom.Point2i, 0, 2*len(uniq))
	for _, p := range uniq {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(uniq) - 2; i >= 0; i-- {
		p := uniq[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// hullWidth returns the minimal width of the convex hull and the hull
// edge achieving it. Hulls of fewer than three points have zero width
// and the edge joins their extreme points.
func hullWidth(hull []geom.Point2i) (float64, geom.Vec2i) {
	switch len(hull) {
	case 0, 1:
		return 0, geom.Vec2i{X: 1}
	case 2:
		return 0, hull[0].VectorTo(hull[1])
	}
	best := math.MaxFloat64
	var bestEdge geom.Vec2i
	n := len(hull)
	for i := 0; i < n; i++ {
		p := hull[i]
		e := p.VectorTo(hull[(i+1)%n])
		l := math.Hypot(float64(e.X), float64(e.Y))
		far := 0.0
		for _, r := range hull {
			c := float64((r.X-p.X)*e.Y - (r.Y-p.Y)*e.X)
			if c < 0 {
				c = -c
			}
			if c/l > far {
				far = c / l
			}
		}
		if far < best {
			best, bestEdge = far, e
		}
	}
	return best, bestEdge
}
