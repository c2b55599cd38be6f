// Package fbsd detects blurred segments in gradient maps. A blurred
// segment is a point set whose convex hull stays under an assigned
// Euclidean thickness; the detector grows one from a strong gradient
// pixel by scanning a digital straight strip in both directions and
// collecting the best gradient response of each scan. Detected
// segments are reduced to digital straight segments for storage and
// for seed generation downstream.
package fbsd
