// Package track grows carriage tracks from seed strokes. A detector
// walks directional scans away from the seed on both sides, finds a
// road-surface plateau in each scan's elevation profile and chains the
// accepted plateaux into a CarriageTrack. Short trend registers predict
// lateral deviation and slope between scans, and global pruning drops
// hectic or sparse chains.
package track
