package fbsd

import (
	"github.com/banshee-data/roadtrace/internal/geom"
)

// DSS is a digital straight segment: the pixels (x, y) with
// Mu <= A*x + B*y < Mu+Nu, bounded along the segment by
// Min <= B*x - A*y <= Max. The normal (A, B) is kept with A > 0, or
// A == 0 and B > 0.
type DSS struct {
	A, B     int
	Mu, Nu   int
	Min, Max int
}

// Length2 returns the squared Euclidean length of the segment.
func (d DSS) Length2() int {
	e := d.Max - d.Min
	return e * e / (d.A*d.A + d.B*d.B)
}

// NaiveLine returns the two endpoints of the central naive line of the
// strip as exact rationals. The line is A*x + B*y = (2Mu+Nu-1)/2 and
// the endpoints sit at the Min and Max bounds.
func (d DSS) NaiveLine() (x1, y1, x2, y2 geom.Rational) {
	den := 2 * (d.A*d.A + d.B*d.B)
	c := 2*d.Mu + d.Nu - 1
	x1 = geom.NewRational(d.A*c+2*d.B*d.Min, den)
	y1 = geom.NewRational(d.B*c-2*d.A*d.Min, den)
	x2 = geom.NewRational(d.A*c+2*d.B*d.Max, den)
	y2 = geom.NewRational(d.B*c-2*d.A*d.Max, den)
	return x1, y1, x2, y2
}
