// Package tiles stores ground-classified LiDAR returns as a grid of
// point tiles. Each tile covers one DTM tile footprint and bins its
// points into a square cell grid; a TileSet assembles tiles into a
// larger area and keeps resident point payloads under a byte budget
// with least-recently-used eviction.
//
// Coordinates inside tiles are integer millimetres in the projected
// (Lambert-style) frame, so cell membership is exact.
package tiles
