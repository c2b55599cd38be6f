// Package scanner walks digital straight strips over a raster.
//
// A directional scanner delivers successive parallel scan lines of a
// strip bounded by two support lines a*x + b*y = c1 and a*x + b*y = c2.
// The central scan crosses the strip between the two bounds; further
// scans are obtained one perpendicular step at a time on either side.
// Adaptive scanners can be rebound to a drifting direction while they
// advance, which keeps the strip centred on a moving reference.
//
// A single canonical stepping core serves every direction. The
// Provider brings arbitrary directions into the canonical octant with
// a signed axis permutation and maps emitted pixels back, so all
// scanners share one set of cursor and re-anchoring rules.
package scanner
