package track

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/roadtrace/internal/geom"
	"github.com/banshee-data/roadtrace/internal/scanner"
	"github.com/banshee-data/roadtrace/internal/tiles"
)

// Result is the outcome of one track detection.
type Result int

const (
	ResultNone Result = 0
	ResultOK   Result = 1

	ResultTooNarrowInput       Result = -1
	ResultNoAvailableScan      Result = -2
	ResultNoCentralPlateau     Result = -3
	ResultNoConsistentSequence Result = -4
	ResultNoBounds             Result = -5
	ResultTooHecticPlateaux    Result = -6
	ResultTooSparsePlateaux    Result = -7
	ResultDisconnect           Result = -8
)

func (r Result) String() string {
	switch r {
	case ResultNone:
		return "none"
	case ResultOK:
		return "ok"
	case ResultTooNarrowInput:
		return "too narrow input"
	case ResultNoAvailableScan:
		return "no available scan"
	case ResultNoCentralPlateau:
		return "no central plateau"
	case ResultNoConsistentSequence:
		return "no consistent sequence"
	case ResultNoBounds:
		return "no bounds"
	case ResultTooHecticPlateaux:
		return "too hectic plateaux"
	case ResultTooSparsePlateaux:
		return "too sparse plateaux"
	case ResultDisconnect:
		return "disconnect"
	}
	return "unknown"
}

// MaxTrackWidth is the largest carriage-track width, in meters. Seed
// strokes shorter than this cannot host a track cross-section.
const MaxTrackWidth = 6.0

const (
	defaultLackTolerance  = 11
	noBoundsTolerance     = 10
	defaultMinDensity     = 60
	defaultMaxShiftLength = 1.65

	nbSideTrials           = 5
	defaultFirstSearchDist = 0.6
	defaultSearchDist      = 0.5
)

// Detector grows a carriage track from one seed stroke. It walks
// directional scans away from the stroke on both sides, extracts a
// plateau per scan against a sliding reference window and chains the
// accepted plateaux.
type Detector struct {
	Model *PlateauModel

	// Auto probes several lateral positions of the seed scan and keeps
	// the candidate closest to the nominal start width. When off, the
	// whole seed scan is searched at once.
	Auto bool
	// InitialExtent limits a preliminary run used to realign the seed
	// stroke on the detected centerline. Zero skips the preliminary
	// run.
	InitialExtent int
	// LackTolerance is the number of successive failed scans ending a
	// side walk.
	LackTolerance int
	// MaxShiftLength is the largest accepted relative lateral wobble of
	// the chained centers.
	MaxShiftLength float64
	// MinDensity is the minimal percentage of accepted scans within the
	// track spread.
	MinDensity int
	// DensitySensitive ignores scans too sparse to judge when counting
	// failures against the lack tolerance.
	DensitySensitive bool
	// DensityPruning drops tracks under the minimal density.
	DensityPruning bool
	// Connected requires each accepted plateau to overlap its
	// predecessor.
	Connected bool
	// FirstSearchDist spaces the lateral probes of the seed scan;
	// SearchDist displaces the reference window on failed scans.
	FirstSearchDist float64
	SearchDist      float64

	ptset    *tiles.TileSet
	provider *scanner.Provider
	subdiv   int
	csize    float64

	posReg, htReg trendRegister
	stabReg       stabilityRegister

	status Result
}

// NewDetector returns a detector reading points from ts. Seed strokes
// are expressed in pixels subdiv times coarser than the point grid.
func NewDetector(m *PlateauModel, ts *tiles.TileSet, subdiv int) *Detector {
	if subdiv < 1 {
		subdiv = 1
	}
	return &Detector{
		Model:           m,
		Auto:            true,
		LackTolerance:   defaultLackTolerance,
		MaxShiftLength:  defaultMaxShiftLength,
		MinDensity:      defaultMinDensity,
		DensityPruning:  true,
		FirstSearchDist: defaultFirstSearchDist,
		SearchDist:      defaultSearchDist,
		ptset:           ts,
		provider:        scanner.NewProvider(ts.Cols()*ts.TileCols(), ts.Rows()*ts.TileRows()),
		subdiv:          subdiv,
		csize:           float64(ts.CellSize()) * float64(subdiv) / 1000,
	}
}

// Status returns the outcome of the last detection.
func (d *Detector) Status() Result { return d.status }

// CellSize returns the seed pixel size in meters.
func (d *Detector) CellSize() float64 { return d.csize }

// Detect grows a carriage track from the seed stroke (p1, p2), given
// in seed pixels. The returned track carries the detection status.
func (d *Detector) Detect(p1, p2 geom.Point2i) *CarriageTrack {
	d.status = ResultNone
	dx := float64(p2.X - p1.X)
	dy := float64(p2.Y - p1.Y)
	if d.csize*math.Hypot(dx, dy) < MaxTrackWidth {
		ct := NewCarriageTrack(p1, p2, d.csize)
		ct.Status = ResultTooNarrowInput
		d.status = ct.Status
		return ct
	}
	if d.InitialExtent > 0 {
		pre := d.detectTrack(p1, p2, d.InitialExtent)
		if pre.Status == ResultOK {
			if np1, np2, ok := d.alignInput(pre); ok {
				p1, p2 = np1, np2
			}
		}
	}
	ct := d.detectTrack(p1, p2, 0)
	if ct.Status == ResultOK {
		if ct.RelativeShiftLength() > d.MaxShiftLength {
			ct.Status = ResultTooHecticPlateaux
		} else if d.DensityPruning &&
			ct.Holes()*100 > ct.Spread()*(100-d.MinDensity) {
			ct.Status = ResultTooSparsePlateaux
		}
	}
	d.status = ct.Status
	return ct
}

// trackState carries the reference window shared between the two side
// walks of one detection.
type trackState struct {
	refs, refe, refh float64
	unbounded        bool
	noBounds         bool
	disconnected     bool
}

func (d *Detector) detectTrack(p1, p2 geom.Point2i, exlimit int) *CarriageTrack {
	ct := NewCarriageTrack(p1, p2, d.csize)
	a := p2.X - p1.X
	b := p2.Y - p1.Y
	if a < 0 {
		a, b = -a, -b
	}

	ds, ds2, pix := d.seedScanner(p1, p2)
	if ds == nil {
		ct.Status = ResultNoAvailableScan
		return ct
	}
	reversed := d.provider.IsLastScanReversed()

	pts := d.collectProject(ct, pix)
	cpl := d.centralPlateau(ct, pts)
	if cpl == nil {
		ct.Status = ResultNoCentralPlateau
		return ct
	}
	ct.Start(cpl)
	ct.Accept(0)

	st := &trackState{
		refs:      cpl.InternalStart,
		refe:      cpl.InternalEnd,
		refh:      cpl.MinHeight,
		unbounded: !cpl.Bounded(),
	}
	d.resetRegisters(cpl)
	d.trackSide(ct, ds, true, reversed, p1, a, b, st, exlimit)
	firstUnbounded := st.unbounded

	d.resetRegisters(cpl)
	d.trackSide(ct, ds2, false, reversed, p1, a, b, st, exlimit)

	// Second chance for the right walk when the central plateau started
	// unbounded and the left walk recovered the bounds.
	if firstUnbounded && !st.unbounded {
		ct.Clear(true)
		d.resetRegisters(cpl)
		d.trackSide(ct, ds, true, reversed, p1, a, b, st, exlimit)
	}

	switch {
	case st.disconnected:
		ct.Status = ResultDisconnect
	case st.noBounds && st.unbounded:
		ct.Status = ResultNoBounds
	case d.Model.TailMinSize > 0 && ct.Prune(d.Model.TailMinSize):
		ct.Status = ResultNoConsistentSequence
	default:
		ct.Status = ResultOK
	}
	return ct
}

// seedScanner builds the strip scanner on the seed stroke and
// accumulates the sub-scans of the central seed pixel row into one
// buffer. The two returned scanners stand past the central row, one
// for each side walk.
func (d *Detector) seedScanner(p1, p2 geom.Point2i) (scanner.Scanner, scanner.Scanner, []geom.Point2i) {
	sub := d.subdiv
	ds := d.provider.GetScanner(
		geom.Point2i{X: p1.X*sub + sub/2, Y: p1.Y*sub + sub/2},
		geom.Point2i{X: p2.X*sub + sub/2, Y: p2.Y*sub + sub/2})
	pix := ds.First(nil)
	if len(pix) == 0 {
		return nil, nil, nil
	}
	for i := 0; i < sub/2; i++ {
		pix = ds.NextOnRight(pix)
	}
	for i := sub/2 + 1; i < sub; i++ {
		pix = ds.NextOnLeft(pix)
	}
	return ds, ds.Copy(), pix
}

// collectProject gathers the cloud points of the scan pixels and
// projects them on the stroke axis: position in cross-track meters
// from the stroke start, height in meters.
func (d *Detector) collectProject(ct *CarriageTrack, pix []geom.Point2i) []geom.Point2f {
	var raw []geom.Point3i
	for _, px := range pix {
		d.ptset.CollectPoints(&raw, px.X, px.Y)
	}
	xref := float64(d.ptset.XRef())
	yref := float64(d.ptset.YRef())
	out := make([]geom.Point2f, 0, len(raw))
	for _, p := range raw {
		x := (float64(p.X) - xref) / 1000
		y := (float64(p.Y) - yref) / 1000
		s := (x-ct.p1f.X)*ct.dir.X + (y-ct.p1f.Y)*ct.dir.Y
		out = append(out, geom.Point2f{X: s, Y: float64(p.Z) / 1000})
	}
	SortByPosition(out)
	return out
}

// centralPlateau extracts the seed plateau. In automatic mode several
// lateral positions around the stroke middle are probed and the
// candidate nearest the nominal start width wins; otherwise the whole
// scan is searched, with a fixed-height retry on density failure.
func (d *Detector) centralPlateau(ct *CarriageTrack, pts []geom.Point2f) *Plateau {
	m := d.Model
	if d.Auto {
		var best *Plateau
		mid := ct.l12 / 2
		for k := -nbSideTrials; k <= nbSideTrials; k++ {
			pl := NewPlateau(m, 0)
			if !pl.DetectAround(pts, mid+float64(k)*d.FirstSearchDist) {
				continue
			}
			if best == nil ||
				math.Abs(pl.Width()-m.StartLength) < math.Abs(best.Width()-m.StartLength) {
				best = pl
			}
		}
		return best
	}
	pl := NewPlateau(m, 0)
	if pl.Detect(pts) {
		return pl
	}
	if pl.Status == StatusNoOptimalHeight && !math.IsNaN(pl.MinHeight) {
		rpl := NewPlateau(m, 0)
		if rpl.DetectAtHeight(pts, pl.MinHeight) {
			return rpl
		}
	}
	return nil
}

func (d *Detector) resetRegisters(cpl *Plateau) {
	d.posReg.reset(cpl.Reliable(), cpl.EstimatedCenter())
	d.htReg.reset(cpl.ConsistentHeight(), cpl.MinHeight)
}

// trackSide walks scans away from the seed on one side, re-centering
// the strip on the reference window before each scan, until the strip
// leaves the raster or too many scans fail in a row.
func (d *Detector) trackSide(ct *CarriageTrack, ds scanner.Scanner,
	onRight, reversed bool, p1 geom.Point2i, a, b int,
	st *trackState, exlimit int) {
	m := d.Model
	dirStep := 1
	if onRight {
		dirStep = -1
	}
	stepRight := onRight != reversed
	refs, refe, refh := st.refs, st.refe, st.refh
	confdist := 1
	fail := 0
	d.stabReg.reset()
	pix := make([]geom.Point2i, 0, 64)

	for num := dirStep; ; num += dirStep {
		abs := num
		if abs < 0 {
			abs = -abs
		}
		if exlimit > 0 && abs > exlimit {
			break
		}

		pcenter := (refs + refe) / 2
		posx := float64(p1.X) + 0.5 + ct.dir.X*pcenter/d.csize
		posy := float64(p1.Y) + 0.5 + ct.dir.Y*pcenter/d.csize
		shift := int(math.Round(float64(a)*posx + float64(b)*posy))
		ds.BindTo(a, b, shift*d.subdiv+d.subdiv/2)

		pix = pix[:0]
		out := false
		for i := 0; i < d.subdiv; i++ {
			n := len(pix)
			if stepRight {
				pix = ds.NextOnRight(pix)
			} else {
				pix = ds.NextOnLeft(pix)
			}
			if len(pix) == n {
				out = true
				break
			}
		}
		if out || len(pix) == 0 {
			break
		}

		pts := d.collectProject(ct, pix)
		pl := NewPlateau(m, shift)
		if !pl.Track(pts, refs, refe, refh, 0, confdist) {
			for _, sh := range [2]float64{d.SearchDist, -d.SearchDist} {
				rpl := NewPlateau(m, shift)
				if rpl.Track(pts, refs, refe, refh, sh, confdist) {
					pl = rpl
					break
				}
			}
		}
		if side := d.stabReg.update(pl.InternalStart, pl.InternalEnd,
			pl.BoundedStart, pl.BoundedEnd, pl.Width(), m.MaxLength); side != 0 &&
			pl.Status == StatusTooWide {
			pl.trim(side)
		}
		ct.Add(onRight, pl)

		if pl.Status == StatusOK {
			fail = 0
		} else if !d.DensitySensitive || pl.HasEnoughPoints() {
			fail++
			if fail >= d.LackTolerance {
				break
			}
		}
		if st.unbounded && abs >= noBoundsTolerance {
			st.noBounds = true
			break
		}

		pl.Deviation = d.posReg.update(pl.Possible(), pl.EstimatedCenter())
		pl.Slope = d.htReg.update(pl.ConsistentHeight(), pl.MinHeight)
		if pl.Possible() {
			refs = pl.InternalStart
			refe = pl.InternalEnd
		}
		if m.DeviationPrediction || !pl.Possible() {
			refs += pl.Deviation
			refe += pl.Deviation
		}
		if pl.ConsistentHeight() {
			refh = pl.MinHeight
		}
		if m.SlopePrediction || !pl.ConsistentHeight() {
			refh += pl.Slope
		}

		if pl.Status == StatusOK && pl.Reliable() {
			ct.Accept(num)
			if st.unbounded {
				st.unbounded = false
				st.refs = pl.InternalStart
				st.refe = pl.InternalEnd
			}
			if confdist > 1 {
				d.acceptBetween(ct, num, dirStep, confdist, pl)
			}
			if d.Connected && num != dirStep &&
				!pl.IsConnectedTo(ct.Plateau(num-dirStep)) {
				st.disconnected = true
				break
			}
			confdist = 1
		} else {
			confdist++
		}
	}
}

// acceptBetween accepts the plateaux between two accepted scans when
// their extent covers the interpolated centerline.
func (d *Detector) acceptBetween(ct *CarriageTrack, num, dirStep, confdist int,
	pl *Plateau) {
	lpl := ct.Plateau(num - dirStep*confdist)
	if lpl == nil || !lpl.Possible() {
		return
	}
	c0 := lpl.EstimatedCenter()
	dc := (pl.EstimatedCenter() - c0) / float64(confdist)
	for i := 1; i < confdist; i++ {
		k := num - dirStep*(confdist-i)
		if ipl := ct.Plateau(k); ipl != nil && ipl.Contains(c0+dc*float64(i)) {
			ct.Accept(k)
		}
	}
}

// alignInput replaces the seed stroke with a stroke orthogonal to the
// regression line of the reliable plateau centers found by a
// preliminary run.
func (d *Detector) alignInput(ct *CarriageTrack) (geom.Point2i, geom.Point2i, bool) {
	var pts []geom.Point2f
	for num := -ct.RightScanCount(); num <= ct.LeftScanCount(); num++ {
		if pl := ct.Plateau(num); pl != nil && pl.Reliable() {
			pts = append(pts, ct.scanPoint(num, pl.EstimatedCenter()))
		}
	}
	if len(pts) < 2 {
		return geom.Point2i{}, geom.Point2i{}, false
	}
	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i] = p.X
		ys[i] = p.Y
	}
	mx := stat.Mean(xs, nil)
	my := stat.Mean(ys, nil)
	vx := stat.Variance(xs, nil)
	vy := stat.Variance(ys, nil)
	cov := stat.Covariance(xs, ys, nil)
	var ux, uy float64
	if vx >= vy {
		ux, uy = vx, cov
	} else {
		ux, uy = cov, vy
	}
	nrm := math.Hypot(ux, uy)
	if nrm == 0 {
		return geom.Point2i{}, geom.Point2i{}, false
	}
	ox, oy := -uy/nrm, ux/nrm
	np1 := geom.Point2i{
		X: int(math.Round((mx-ox*MaxTrackWidth)/d.csize - 0.5)),
		Y: int(math.Round((my-oy*MaxTrackWidth)/d.csize - 0.5)),
	}
	np2 := geom.Point2i{
		X: int(math.Round((mx+ox*MaxTrackWidth)/d.csize - 0.5)),
		Y: int(math.Round((my+oy*MaxTrackWidth)/d.csize - 0.5)),
	}
	if np1 == np2 {
		return geom.Point2i{}, geom.Point2i{}, false
	}
	return np1, np2, true
}
