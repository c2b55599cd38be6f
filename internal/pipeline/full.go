package pipeline

import (
	"github.com/banshee-data/roadtrace/internal/fbsd"
	"github.com/banshee-data/roadtrace/internal/gradient"
	"github.com/banshee-data/roadtrace/internal/seeds"
	"github.com/banshee-data/roadtrace/internal/terrain"
	"github.com/banshee-data/roadtrace/internal/tiles"
)

// Full runs the whole chain in memory, shading pad by pad when a pad
// size is configured, and finishes with the track detection. The seed
// set is saved so later partial runs can start from it.
func (r *Runner) Full() error {
	if err := r.ensureResults(); err != nil {
		return err
	}
	id := r.beginRun("all")
	ts, err := r.loadPointTiles()
	if err != nil {
		return err
	}
	pad := r.Cfg.GetPadSize()
	tm, err := r.loadTerrain(ts, pad)
	if err != nil {
		return err
	}

	cs := tm.CellSize()
	w := ts.Cols() * tm.TileWidth()
	h := ts.Rows() * tm.TileHeight()
	var set *seeds.Set
	if pad > 0 {
		set = r.sawSeeds(tm, ts)
	} else {
		set = r.wholeSeeds(tm, ts)
	}
	r.logf("seeds: %d strokes (%d short segments, %d outside)",
		set.Count, set.ShortSegments, set.Outside)
	if err := seeds.Save(r.Paths.SeedsFile(), set, w, h, cs); err != nil {
		return err
	}

	roads, unused, err := r.asd(set, w, h, cs, ts, id)
	if err != nil {
		return err
	}
	r.finishRun(id, set.Count, roads, unused)
	return nil
}

// wholeSeeds shades the assembled raster in one piece and seeds the
// segments detected on it.
func (r *Runner) wholeSeeds(tm *terrain.Map, ts *tiles.TileSet) *seeds.Set {
	w, h := tm.Width(), tm.Height()
	pix := shadeRaster(tm, terrain.ShadeExpSlope)
	segs := r.detectSegments(w, h, tm.CellSize(), pix)
	r.logf("fbsd: %d segments detected", len(segs))

	set := seeds.NewSet(ts.Cols(), ts.Rows())
	lay := seeds.Layout{
		TileCols:   ts.Cols(),
		TileRows:   ts.Rows(),
		TileWidth:  tm.TileWidth(),
		TileHeight: tm.TileHeight(),
		PadHeight:  h,
	}
	r.generator().Generate(set, segs, lay, func(tx, ty int) bool {
		return ts.Tile(tx, ty) != nil
	})
	return set
}

// sawSeeds streams the terrain pad by pad, detecting segments and
// seeding them inside each pad. Pads overlap by two tiles, so border
// strokes can repeat; the detection loop drops repeats through the
// occupancy check.
func (r *Runner) sawSeeds(tm *terrain.Map, ts *tiles.TileSet) *seeds.Set {
	tw, th := tm.TileWidth(), tm.TileHeight()
	pw := tm.PadWidth() * tw
	ph := tm.PadHeight() * th
	shade := make([]byte, pw*ph)

	set := seeds.NewSet(ts.Cols(), ts.Rows())
	gen := r.generator()
	loaded := func(tx, ty int) bool { return ts.Tile(tx, ty) != nil }
	for k := tm.NextPad(shade); k >= 0; k = tm.NextPad(shade) {
		segs := r.detectSegments(pw, ph, tm.CellSize(), shade)
		lay := seeds.Layout{
			TileCols:   ts.Cols(),
			TileRows:   ts.Rows(),
			TileWidth:  tw,
			TileHeight: th,
			KX:         k % ts.Cols(),
			KY:         k / ts.Cols(),
			PadHeight:  ph,
		}
		gen.Generate(set, segs, lay, loaded)
		r.logf("pad %d,%d: %d segments, %d strokes so far",
			k%ts.Cols(), k/ts.Cols(), len(segs), set.Count)
	}
	return set
}

// detectSegments runs the Sobel and blurred-segment stages on one grey
// raster.
func (r *Runner) detectSegments(w, h int, cellSize float32,
	pix []byte) []fbsd.DSS {
	g := gradient.NewSobelMap(w, h, cellSize, pix)
	det := fbsd.NewDetector(g)
	det.SetAssignedThickness(r.assignedThickness())
	det.DetectAll()
	return det.Segments()
}
