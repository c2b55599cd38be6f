// Package terrain assembles digital terrain model tiles into a map of
// ground normal vectors and renders it with hill or slope shading.
//
// Normal maps are built either from ASC height grids (AddDTMFile then
// CreateMapFromDTM) or from binary NVM normal-vector tiles
// (AddNormalMapFile then AssembleMap). Over large tile sets the map is
// streamed pad by pad (NextPad) instead of being held resident as a
// whole.
//
// The in-memory raster is row-major with row 0 at the north edge; NVM
// payloads store rows south edge first.
package terrain
