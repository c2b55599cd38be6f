package fbsd

import (
	"math"

	"github.com/banshee-data/roadtrace/internal/geom"
	"github.com/banshee-data/roadtrace/internal/gradient"
	"github.com/banshee-data/roadtrace/internal/scanner"
)

const (
	defaultAssignedThickness = 7
	defaultGradientThreshold = 384

	// fragmentMinSize is the minimal pixel count of a kept segment.
	fragmentMinSize = 9
	// lackTolerance is the count of successive scans without an
	// acceptable pixel that ends a tracking side.
	lackTolerance = 5
	// refitInterval is the count of accepted pixels between two
	// rebindings of the scan strip on the current segment direction.
	refitInterval = 24

	candidateStride = 4
)

// Detector grows blurred segments from the strong pixels of a gradient
// map and keeps their digital straight segment reductions.
type Detector struct {
	gmap      *gradient.Map
	prov      *scanner.Provider
	width     int
	height    int
	assigned  int
	minSqNorm int
	maxCount  int
	minLength bool
	mask      []bool
	segs      []DSS
}

// NewDetector returns a detector on the given gradient map with the
// default thickness and gradient threshold.
func NewDetector(m *gradient.Map) *Detector {
	d := &Detector{
		gmap:   m,
		prov:   scanner.NewProvider(m.Width(), m.Height()),
		width:  m.Width(),
		height: m.Height(),
	}
	d.SetAssignedThickness(defaultAssignedThickness)
	d.SetGradientThreshold(defaultGradientThreshold)
	return d
}

// SetAssignedThickness fixes the maximal Euclidean width of the grown
// segments, in pixels.
func (d *Detector) SetAssignedThickness(t int) {
	if t < 1 {
		t = 1
	}
	d.assigned = t
}

// SetGradientThreshold fixes the minimal gradient magnitude of the
// pixels a segment may hold.
func (d *Detector) SetGradientThreshold(t int) { d.minSqNorm = t * t }

// SetMaxDetections bounds the count of kept segments. Zero lifts the
// bound.
func (d *Detector) SetMaxDetections(n int) { d.maxCount = n }

// ResetMaxDetections lifts the detection count bound.
func (d *Detector) ResetMaxDetections() { d.maxCount = 0 }

// SetFinalLengthFilter toggles the final length test that discards
// segments shorter than log2 of the pixel count of the map.
func (d *Detector) SetFinalLengthFilter(on bool) { d.minLength = on }

// Segments returns the segments kept by the last DetectAll call.
func (d *Detector) Segments() []DSS { return d.segs }

// DetectAll sweeps the map for candidate pixels and tracks a blurred
// segment from each. Candidates are unmasked local gradient maxima on
// every fourth row, then every fourth column; the pixels of each kept
// segment and their neighbours are masked against reuse.
func (d *Detector) DetectAll() {
	d.mask = make([]bool, d.width*d.height)
	d.segs = d.segs[:0]
	for j := 0; j < d.height; j += candidateStride {
		for i := 1; i < d.width-1; i++ {
			if d.full() {
				return
			}
			s := d.gmap.SqNorm(i, j)
			if s >= d.minSqNorm && !d.mask[j*d.width+i] &&
				s >= d.gmap.SqNorm(i-1, j) && s > d.gmap.SqNorm(i+1, j) {
				d.track(geom.Point2i{X: i, Y: j})
			}
		}
	}
	for i := 0; i < d.width; i += candidateStride {
		for j := 1; j < d.height-1; j++ {
			if d.full() {
				return
			}
			s := d.gmap.SqNorm(i, j)
			if s >= d.minSqNorm && !d.mask[j*d.width+i] &&
				s >= d.gmap.SqNorm(i, j-1) && s > d.gmap.SqNorm(i, j+1) {
				d.track(geom.Point2i{X: i, Y: j})
			}
		}
	}
}

func (d *Detector) full() bool {
	return d.maxCount > 0 && len(d.segs) >= d.maxCount
}

// track grows a blurred segment across the candidate pixel. The scan
// strip runs along the candidate gradient, so successive scans walk
// the contour on both sides of the candidate.
func (d *Detector) track(p geom.Point2i) {
	g0 := geom.Vec2i{X: d.gmap.GX(p.X, p.Y), Y: d.gmap.GY(p.X, p.Y)}
	gc := g0.GCD()
	dir := geom.Vec2i{X: g0.X / gc, Y: g0.Y / gc}
	sc := d.prov.GetScannerAround(p, dir, 4*d.assigned+1)
	bs := NewBlurredSegment(float64(d.assigned))

	buf := sc.First(nil)
	start, ok := d.bestPixel(buf, g0)
	if !ok || !bs.AddPoint(start) {
		return
	}
	accepted := 1

	walk := func(next func([]geom.Point2i) []geom.Point2i) {
		miss := 0
		for miss < lackTolerance {
			buf = next(buf[:0])
			if len(buf) == 0 {
				return
			}
			q, ok := d.bestPixel(buf, g0)
			if ok && bs.AddPoint(q) {
				miss = 0
				accepted++
				if accepted%refitInterval == 0 {
					v := bs.Direction()
					sc.BindTo(-v.Y, v.X, -v.Y*q.X+v.X*q.Y)
				}
			} else {
				miss++
			}
		}
	}
	walk(sc.NextOnLeft)
	walk(sc.NextOnRight)

	if bs.Size() < fragmentMinSize {
		return
	}
	dss := bs.ToDSS()
	if d.minLength {
		min := math.Log2(float64(d.width) * float64(d.height))
		if float64(dss.Length2()) < min*min {
			return
		}
	}
	d.segs = append(d.segs, dss)
	for _, q := range bs.Points() {
		for dj := -1; dj <= 1; dj++ {
			for di := -1; di <= 1; di++ {
				if d.gmap.In(q.X+di, q.Y+dj) {
					d.mask[(q.Y+dj)*d.width+q.X+di] = true
				}
			}
		}
	}
}

// bestPixel returns the unmasked pixel of the scan with the strongest
// gradient above the threshold whose gradient agrees with the seed one.
func (d *Detector) bestPixel(scan []geom.Point2i, g0 geom.Vec2i) (geom.Point2i, bool) {
	bestN := 0
	var best geom.Point2i
	found := false
	for _, q := range scan {
		if d.mask[q.Y*d.width+q.X] {
			continue
		}
		n := d.gmap.SqNorm(q.X, q.Y)
		if n < d.minSqNorm || n <= bestN {
			continue
		}
		if d.gmap.GX(q.X, q.Y)*g0.X+d.gmap.GY(q.X, q.Y)*g0.Y <= 0 {
			continue
		}
		best, bestN, found = q, n, true
	}
	return best, found
}
