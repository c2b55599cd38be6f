// Package geom provides the small value types shared by the road
// extraction pipeline: integer and float points and vectors in two and
// three dimensions, exact rationals for digital line endpoints, and
// naive digital line drawing.
//
// Float point ordering used for scan sorting is quantised to millimetres
// (floor of value x 1000) so that orderings are stable against
// ULP-level noise in position computations.
package geom
