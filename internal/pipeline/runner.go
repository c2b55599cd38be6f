package pipeline

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/banshee-data/roadtrace/internal/config"
	"github.com/banshee-data/roadtrace/internal/export"
	"github.com/banshee-data/roadtrace/internal/fbsd"
	"github.com/banshee-data/roadtrace/internal/geom"
	"github.com/banshee-data/roadtrace/internal/gradient"
	"github.com/banshee-data/roadtrace/internal/monitoring"
	"github.com/banshee-data/roadtrace/internal/roadmap"
	"github.com/banshee-data/roadtrace/internal/seeds"
	"github.com/banshee-data/roadtrace/internal/store"
	"github.com/banshee-data/roadtrace/internal/terrain"
	"github.com/banshee-data/roadtrace/internal/tiles"
	"github.com/banshee-data/roadtrace/internal/track"
)

// Runner drives the detection steps over one tile set. Each public
// method is one pipeline step reading its input artefact from the
// results directory and writing its own; Full chains them in memory.
type Runner struct {
	Cfg   *config.TuningConfig
	Paths Paths

	// Tiles are the resolved tile names of the run.
	Tiles []string

	// Verbose gates progress logging.
	Verbose bool
	// SaveImages dumps a PNG beside each step output.
	SaveImages bool
	// ColorRoads paints one colour per road in the roads PNG.
	ColorRoads bool
	// DTMBackground lays the slope shading under segment, seed and
	// road images.
	DTMBackground bool
	// Invert swaps road and background polarity in monochrome mode.
	Invert bool
	// Export writes road shapefiles after detection.
	Export bool
	// ExportBounds exports track bounds instead of centerlines.
	ExportBounds bool

	// Store records runs when set.
	Store *store.Store
}

func (r *Runner) logf(format string, v ...interface{}) {
	if r.Verbose {
		monitoring.Logf(format, v...)
	}
}

func (r *Runner) ensureResults() error {
	return os.MkdirAll(r.Paths.Results, 0o755)
}

// beginRun opens a run record; a nil store or a store failure only
// logs, recording never blocks detection.
func (r *Runner) beginRun(step string) string {
	if r.Store == nil {
		return ""
	}
	id, err := r.Store.BeginRun(step, strings.Join(r.Tiles, " "),
		r.Cfg.Profile().Params())
	if err != nil {
		monitoring.Logf("run store: %v", err)
		return ""
	}
	return id
}

func (r *Runner) finishRun(id string, seedCount, roadCount, unused int) {
	if id == "" {
		return
	}
	if err := r.Store.FinishRun(id, seedCount, roadCount, unused); err != nil {
		monitoring.Logf("run store: %v", err)
	}
}

// loadPointTiles opens the point tiles of the run at full density.
func (r *Runner) loadPointTiles() (*tiles.TileSet, error) {
	ts := tiles.NewTileSet(r.Cfg.GetTileBudgetBytes())
	for _, name := range r.Tiles {
		if err := ts.AddTile(r.Paths.TilFile(tiles.AccessTop, name)); err != nil {
			return nil, fmt.Errorf("load point tiles: %w", err)
		}
	}
	if err := ts.Create(); err != nil {
		return nil, fmt.Errorf("assemble point tiles: %w", err)
	}
	return ts, nil
}

// loadTerrain assembles the normal maps of the run on the point tile
// grid. A non-zero pad registers the tiles for pad streaming instead
// of loading the whole raster.
func (r *Runner) loadTerrain(ts *tiles.TileSet, pad int) (*terrain.Map, error) {
	tm := terrain.NewMap()
	if pad > 0 {
		tm.SetPadSize(pad)
	}
	for _, name := range r.Tiles {
		if !tm.AddNormalMapFile(r.Paths.NVMFile(name)) {
			return nil, fmt.Errorf("load terrain: cannot read %s",
				r.Paths.NVMFile(name))
		}
	}
	if err := tm.AssembleMap(ts.Cols(), ts.Rows(), ts.XRef(), ts.YRef(),
		pad > 0); err != nil {
		return nil, fmt.Errorf("assemble terrain: %w", err)
	}
	if pad > 0 {
		tm.AdjustPadSize()
	}
	return tm, nil
}

// shadeRaster renders the terrain into a row-0-north grey raster.
func shadeRaster(tm *terrain.Map, sh terrain.Shading) []byte {
	w, h := tm.Width(), tm.Height()
	pix := make([]byte, w*h)
	for j := 0; j < h; j++ {
		row := (h - 1 - j) * w
		for i := 0; i < w; i++ {
			pix[row+i] = byte(tm.GetShaded(i, j, sh))
		}
	}
	return pix
}

// Shade renders the slope shading of the whole tile set and saves it
// as the first intermediate raster.
func (r *Runner) Shade() error {
	if err := r.ensureResults(); err != nil {
		return err
	}
	id := r.beginRun("shade")
	ts, err := r.loadPointTiles()
	if err != nil {
		return err
	}
	tm, err := r.loadTerrain(ts, 0)
	if err != nil {
		return err
	}
	w, h := tm.Width(), tm.Height()
	pix := shadeRaster(tm, terrain.ShadeExpSlope)
	if err := SaveByteMap(r.Paths.SlopeMap(), w, h, tm.CellSize(), pix); err != nil {
		return err
	}
	if r.SaveImages {
		if err := WriteGreyPNG(r.Paths.SlopeImage(), w, h, pix); err != nil {
			return err
		}
	}
	r.logf("shade: %dx%d raster saved", w, h)
	r.finishRun(id, 0, 0, 0)
	return nil
}

// Hill renders the hill shading of the tile set as a PNG only.
func (r *Runner) Hill() error {
	if err := r.ensureResults(); err != nil {
		return err
	}
	ts, err := r.loadPointTiles()
	if err != nil {
		return err
	}
	tm, err := r.loadTerrain(ts, 0)
	if err != nil {
		return err
	}
	pix := shadeRaster(tm, terrain.ShadeHill)
	return WriteGreyPNG(r.Paths.HillImage(), tm.Width(), tm.Height(), pix)
}

// Rorpo transfers the shading raster unchanged. The thin-feature
// filter of the original processing chain is not carried, but the
// step is kept so chains addressing its output file still work.
func (r *Runner) Rorpo() error {
	id := r.beginRun("rorpo")
	w, h, cs, pix, err := LoadByteMap(r.Paths.SlopeMap())
	if err != nil {
		return err
	}
	if err := SaveByteMap(r.Paths.RorpoMap(), w, h, cs, pix); err != nil {
		return err
	}
	r.logf("rorpo: transferred shading map")
	r.finishRun(id, 0, 0, 0)
	return nil
}

// Sobel derives the gradient vector map of the latest shading raster,
// preferring the filtered one when present.
func (r *Runner) Sobel() error {
	id := r.beginRun("sobel")
	src := r.Paths.RorpoMap()
	if _, err := os.Stat(src); err != nil {
		src = r.Paths.SlopeMap()
	}
	w, h, cs, pix, err := LoadByteMap(src)
	if err != nil {
		return err
	}
	g := gradient.NewSobelMap(w, h, cs, pix)
	if err := g.Save(r.Paths.SobelMap()); err != nil {
		return err
	}
	if r.SaveImages {
		if err := WriteSobelPNG(r.Paths.SobelImage(), g); err != nil {
			return err
		}
	}
	r.logf("sobel: %dx%d gradient map saved", w, h)
	r.finishRun(id, 0, 0, 0)
	return nil
}

// assignedThickness returns the effective blurred-segment thickness,
// halved in half-size mode.
func (r *Runner) assignedThickness() int {
	t := r.Cfg.GetAssignedThickness()
	if r.Cfg.GetHalfSize() {
		t /= 2
	}
	return t
}

// generator returns the seed generator of the run, halved in
// half-size mode.
func (r *Runner) generator() *seeds.Generator {
	g := seeds.NewGenerator()
	g.Shift = r.Cfg.GetSeedShift()
	g.Width = r.Cfg.GetSeedWidth()
	g.MinLength = r.Cfg.GetMinSegmentLength()
	if r.Cfg.GetHalfSize() {
		g.Shift /= 2
		g.Width /= 2
		g.MinLength /= 2
	}
	return g
}

// Fbsd detects blurred segments on the saved gradient map.
func (r *Runner) Fbsd() error {
	id := r.beginRun("fbsd")
	g, err := gradient.Load(r.Paths.SobelMap())
	if err != nil {
		return err
	}
	det := fbsd.NewDetector(g)
	det.SetAssignedThickness(r.assignedThickness())
	det.DetectAll()
	segs := det.Segments()
	if err := fbsd.SaveSegments(r.Paths.FbsdSegments(),
		g.Width(), g.Height(), g.CellSize(), segs); err != nil {
		return err
	}
	if r.SaveImages {
		bg, err := r.background(g.Width(), g.Height())
		if err != nil {
			return err
		}
		if err := WriteSegmentsPNG(r.Paths.FbsdImage(),
			g.Width(), g.Height(), segs, bg); err != nil {
			return err
		}
	}
	r.logf("fbsd: %d segments detected", len(segs))
	r.finishRun(id, 0, 0, 0)
	return nil
}

// background loads the slope raster for image backgrounds when the
// DTM backdrop is requested and matches the target size.
func (r *Runner) background(width, height int) ([]byte, error) {
	if !r.DTMBackground {
		return nil, nil
	}
	w, h, _, pix, err := LoadByteMap(r.Paths.SlopeMap())
	if err != nil {
		return nil, err
	}
	if w != width || h != height {
		return nil, fmt.Errorf("background raster %dx%d, want %dx%d",
			w, h, width, height)
	}
	return pix, nil
}

// Seeds generates seed strokes from the saved segments and buckets
// them on the point tile grid.
func (r *Runner) Seeds() error {
	id := r.beginRun("seeds")
	w, h, cs, segs, err := fbsd.LoadSegments(r.Paths.FbsdSegments())
	if err != nil {
		return err
	}
	ts, err := r.loadPointTiles()
	if err != nil {
		return err
	}
	set := seeds.NewSet(ts.Cols(), ts.Rows())
	lay := seeds.Layout{
		TileCols:   ts.Cols(),
		TileRows:   ts.Rows(),
		TileWidth:  w / ts.Cols(),
		TileHeight: h / ts.Rows(),
		PadHeight:  h,
	}
	r.generator().Generate(set, segs, lay, func(tx, ty int) bool {
		return ts.Tile(tx, ty) != nil
	})
	if err := seeds.Save(r.Paths.SeedsFile(), set, w, h, cs); err != nil {
		return err
	}
	if r.SaveImages {
		bg, err := r.background(w, h)
		if err != nil {
			return err
		}
		if err := WriteSeedsPNG(r.Paths.SeedsImage(), w, h, set, bg); err != nil {
			return err
		}
	}
	r.logf("seeds: %d strokes (%d short segments, %d outside)",
		set.Count, set.ShortSegments, set.Outside)
	r.finishRun(id, set.Count, 0, 0)
	return nil
}

// Asd runs the carriage-track detection on the saved seeds.
func (r *Runner) Asd() error {
	id := r.beginRun("asd")
	set, w, h, cs, err := seeds.Load(r.Paths.SeedsFile())
	if err != nil {
		return err
	}
	ts, err := r.loadPointTiles()
	if err != nil {
		return err
	}
	roads, unused, err := r.asd(set, w, h, cs, ts, id)
	if err != nil {
		return err
	}
	r.finishRun(id, set.Count, roads, unused)
	return nil
}

// detection is the per-run state of the track extraction loop.
type detection struct {
	runID  string
	det    *track.Detector
	dmap   *roadmap.Map
	tracks []*track.CarriageTrack
	// success holds the endpoint pairs of the accepted seeds.
	success []geom.Point2i
	unused  int
}

// asd grows tracks from every seed, paints them to the detection map
// and writes the result artefacts. It returns the road and
// unused-seed counts.
func (r *Runner) asd(set *seeds.Set, w, h int, cs float32,
	ts *tiles.TileSet, runID string) (int, int, error) {
	if err := r.ensureResults(); err != nil {
		return 0, 0, err
	}
	subdiv := int(math.Round(float64(cs) * 1000 / float64(ts.CellSize())))
	det := track.NewDetector(track.NewPlateauModel(), ts, subdiv)
	det.LackTolerance = r.Cfg.GetLackTolerance()
	det.MinDensity = r.Cfg.GetMinDensity()
	det.MaxShiftLength = r.Cfg.GetMaxShiftLength()
	det.Connected = r.Cfg.GetConnected()
	det.InitialExtent = r.Cfg.GetInitialExtent()

	d := &detection{runID: runID, det: det, dmap: roadmap.New(w, h)}
	if r.Cfg.GetTileBudgetBytes() > 0 {
		// Budgeted sets walk tiles in load order so each bucket finds
		// its tile resident.
		for k := ts.NextTile(); k >= 0; k = ts.NextTile() {
			for _, st := range set.Bucket(k%ts.Cols(), k/ts.Cols()) {
				r.processSeed(d, st, w, h)
			}
		}
	} else {
		for _, st := range set.Ordered() {
			r.processSeed(d, st, w, h)
		}
	}
	r.logf("asd: %d roads, %d unused seeds", len(d.tracks), d.unused)

	if err := export.WriteSuccessSeeds(r.Paths.SuccessSeeds(), d.success,
		float64(cs), ts.XRef(), ts.YRef()); err != nil {
		return 0, 0, err
	}
	if err := r.Cfg.Profile().Save(r.Paths.DetectorProfile()); err != nil {
		return 0, 0, err
	}
	if err := r.writeRoadOutputs(d, w, h, ts); err != nil {
		return 0, 0, err
	}
	r.recordRoads(d)
	if r.Store != nil && d.runID != "" {
		err := r.Store.RecordSuccessSeeds(d.runID, d.success,
			float64(cs), ts.XRef(), ts.YRef())
		if err != nil {
			monitoring.Logf("run store: %v", err)
		}
	}
	return len(d.tracks), d.unused, nil
}

// processSeed grows one track unless the seed center is already
// covered, then claims its pixels on the detection map.
func (r *Runner) processSeed(d *detection, st seeds.Stroke, w, h int) {
	center := geom.Point2i{
		X: (st.P1.X + st.P2.X) / 2,
		Y: (st.P1.Y + st.P2.Y) / 2,
	}
	if d.dmap.Occupied(center) {
		d.unused++
		return
	}
	ct := d.det.Detect(st.P1, st.P2)
	if ct == nil || ct.Status != track.ResultOK {
		return
	}
	if tail := r.Cfg.GetTailMinSize(); tail > 0 && ct.Prune(tail) {
		return
	}
	var pts [][]geom.Point2i
	if r.Cfg.GetConnected() {
		pts = ct.ConnectedPoints(w, h, 1.0)
	} else {
		pts = ct.Points(w, h, 1.0)
	}
	if len(pts) == 0 || !d.dmap.Add(pts) {
		d.unused++
		return
	}
	d.tracks = append(d.tracks, ct)
	d.success = append(d.success, st.P1, st.P2)
}

// writeRoadOutputs renders the detection map and the optional
// shapefile export.
func (r *Runner) writeRoadOutputs(d *detection, w, h int,
	ts *tiles.TileSet) error {
	bg, err := r.background(w, h)
	if err != nil {
		return err
	}
	if bg != nil {
		// The render indexes background rows from the south.
		flipRows(bg, w, h)
	}
	opts := roadmap.RenderOptions{
		Background: bg,
		Color:      r.ColorRoads,
		Invert:     r.Invert,
	}
	if err := d.dmap.WritePNG(r.Paths.RoadsImage(), opts); err != nil {
		return err
	}
	if !r.Export {
		return nil
	}
	xref := float64(ts.XRef()) / 1000
	yref := float64(ts.YRef()) / 1000
	if r.ExportBounds {
		return export.WriteBounds(r.Paths.RoadsShape(), d.tracks, xref, yref)
	}
	return export.WriteCenters(r.Paths.LineShape(), d.tracks, xref, yref)
}

// recordRoads stores the per-road statistics of the run.
func (r *Runner) recordRoads(d *detection) {
	if r.Store == nil {
		return
	}
	for i, ct := range d.tracks {
		widths := 0.0
		scans := 0
		for num := -ct.RightScanCount(); num <= ct.LeftScanCount(); num++ {
			pl := ct.Plateau(num)
			if pl == nil || !pl.Accepted {
				continue
			}
			widths += pl.Width()
			scans++
		}
		road := store.Road{
			RunID:     d.runID,
			Num:       i + 1,
			Length:    float64(ct.Spread()) * ct.ScanStep(),
			ScanCount: scans,
			Holes:     ct.Holes(),
		}
		if scans > 0 {
			road.MeanWidth = widths / float64(scans)
		}
		if err := r.Store.RecordRoad(road); err != nil {
			monitoring.Logf("run store: %v", err)
		}
	}
}

func flipRows(pix []byte, w, h int) {
	for j := 0; j < h/2; j++ {
		top := pix[j*w : (j+1)*w]
		bot := pix[(h-1-j)*w : (h-j)*w]
		for i := range top {
			top[i], bot[i] = bot[i], top[i]
		}
	}
}
