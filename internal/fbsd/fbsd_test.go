package fbsd

import (
	"math"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/roadtrace/internal/geom"
	"github.com/banshee-data/roadtrace/internal/gradient"
)

func TestNaiveLineDiagonal(t *testing.T) {
	d := DSS{A: 1, B: 1, Mu: 10, Nu: 3, Min: -5, Max: 5}
	x1, y1, x2, y2 := d.NaiveLine()
	got := []float64{x1.Float(), y1.Float(), x2.Float(), y2.Float()}
	want := []float64{3, 8, 8, 3}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("naive line endpoints differ (-want +got):\n%s", diff)
	}
}

func TestNaiveLineVerticalStrip(t *testing.T) {
	d := DSS{A: 1, B: 0, Mu: 31, Nu: 2, Min: -61, Max: -2}
	x1, y1, x2, y2 := d.NaiveLine()
	if x1.Float() != 31.5 || x2.Float() != 31.5 {
		t.Errorf("central line abscissa (%v, %v), want 31.5", x1.Float(), x2.Float())
	}
	if y1.Float() != 61 || y2.Float() != 2 {
		t.Errorf("endpoints ordinates (%v, %v), want (61, 2)", y1.Float(), y2.Float())
	}
}

func TestLength2(t *testing.T) {
	cases := []struct {
		d    DSS
		want int
	}{
		{DSS{A: 1, B: 0, Mu: 0, Nu: 1, Min: 0, Max: 59}, 3481},
		{DSS{A: 1, B: 1, Mu: 0, Nu: 2, Min: -4, Max: 4}, 32},
		{DSS{A: 0, B: 1, Mu: 5, Nu: 1, Min: 3, Max: 3}, 0},
	}
	for _, c := range cases {
		if got := c.d.Length2(); got != c.want {
			t.Errorf("Length2(%+v) = %d, want %d", c.d, got, c.want)
		}
	}
}

func TestHullWidthRectangle(t *testing.T) {
	hull := convexHull([]geom.Point2i{
		{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 5, Y: 1}, {X: 0, Y: 1},
		{X: 2, Y: 0}, {X: 3, Y: 1},
	})
	if len(hull) != 4 {
		t.Fatalf("hull size = %d, want 4", len(hull))
	}
	w, edge := hullWidth(hull)
	if w != 1 {
		t.Errorf("hull width = %v, want 1", w)
	}
	if edge.Y != 0 {
		t.Errorf("minimal width edge %v not horizontal", edge)
	}
}

func TestBlurredSegmentThickness(t *testing.T) {
	bs := NewBlurredSegment(1)
	for _, p := range []geom.Point2i{
		{X: 0, Y: 0}, {X: 5, Y: 0}, {X: 0, Y: 1}, {X: 5, Y: 1},
	} {
		if !bs.AddPoint(p) {
			t.Fatalf("point %v rejected under width bound", p)
		}
	}
	if bs.AddPoint(geom.Point2i{X: 2, Y: 3}) {
		t.Errorf("point far off the strip accepted")
	}
	if bs.Size() != 4 {
		t.Errorf("segment size = %d, want 4", bs.Size())
	}
	if bs.Width() != 1 {
		t.Errorf("segment width = %v, want 1", bs.Width())
	}
}

func TestToDSSVerticalStrip(t *testing.T) {
	bs := NewBlurredSegment(2)
	for y := 0; y < 10; y++ {
		x := 4 + y%2
		if !bs.AddPoint(geom.Point2i{X: x, Y: y}) {
			t.Fatalf("point (%d, %d) rejected", x, y)
		}
	}
	d := bs.ToDSS()
	if d.A != 1 || d.B != 0 {
		t.Fatalf("normal (%d, %d), want (1, 0)", d.A, d.B)
	}
	if d.Mu != 4 || d.Nu != 2 {
		t.Errorf("strip bounds mu %d nu %d, want 4 and 2", d.Mu, d.Nu)
	}
	if d.Min != -9 || d.Max != 0 {
		t.Errorf("extent [%d, %d], want [-9, 0]", d.Min, d.Max)
	}
}

// stepRaster builds a shade raster with a vertical 0 -> 160 step.
func stepRaster(width, height, edge int) []byte {
	shade := make([]byte, width*height)
	for j := 0; j < height; j++ {
		for i := edge; i < width; i++ {
			shade[j*width+i] = 160
		}
	}
	return shade
}

func TestDetectorFindsStepEdge(t *testing.T) {
	m := gradient.NewSobelMap(64, 64, 1, stepRaster(64, 64, 32))
	det := NewDetector(m)
	det.DetectAll()

	segs := det.Segments()
	if len(segs) != 1 {
		t.Fatalf("detected %d segments, want 1", len(segs))
	}
	s := segs[0]
	if s.B != 0 {
		t.Fatalf("segment normal (%d, %d) not horizontal", s.A, s.B)
	}
	if l := math.Sqrt(float64(s.Length2())); l < 40 {
		t.Errorf("segment length %v, want at least 40", l)
	}
	x1, y1, x2, y2 := s.NaiveLine()
	if math.Abs(x1.Float()-32) > 1.5 || math.Abs(x2.Float()-32) > 1.5 {
		t.Errorf("naive line abscissas (%v, %v) away from the edge",
			x1.Float(), x2.Float())
	}
	if math.Abs(y1.Float()-y2.Float()) < 40 {
		t.Errorf("naive line ordinates (%v, %v) span under 40",
			y1.Float(), y2.Float())
	}
}

func TestDetectorRespectsMaxDetections(t *testing.T) {
	shade := make([]byte, 64*64)
	for j := 0; j < 64; j++ {
		for i := 0; i < 64; i++ {
			if i >= 16 && i < 32 || i >= 48 {
				shade[j*64+i] = 160
			}
		}
	}
	m := gradient.NewSobelMap(64, 64, 1, shade)

	det := NewDetector(m)
	det.DetectAll()
	free := len(det.Segments())
	if free < 2 {
		t.Fatalf("detected %d segments on a multi-edge raster", free)
	}

	det.SetMaxDetections(1)
	det.DetectAll()
	if got := len(det.Segments()); got != 1 {
		t.Errorf("bounded detection kept %d segments, want 1", got)
	}
	det.ResetMaxDetections()
	det.DetectAll()
	if got := len(det.Segments()); got != free {
		t.Errorf("unbounded detection kept %d segments, want %d", got, free)
	}
}

func TestDetectorFlatRaster(t *testing.T) {
	m := gradient.NewSobelMap(32, 32, 1, make([]byte, 32*32))
	det := NewDetector(m)
	det.DetectAll()
	if got := len(det.Segments()); got != 0 {
		t.Errorf("flat raster yielded %d segments", got)
	}
}

func TestSegmentsRoundTrip(t *testing.T) {
	segs := []DSS{
		{A: 1, B: 0, Mu: 31, Nu: 2, Min: -61, Max: -2},
		{A: 2, B: -3, Mu: -14, Nu: 5, Min: 7, Max: 223},
	}
	name := filepath.Join(t.TempDir(), "edges.fbsd")
	if err := SaveSegments(name, 64, 64, 0.25, segs); err != nil {
		t.Fatalf("SaveSegments: %v", err)
	}
	w, h, cs, got, err := LoadSegments(name)
	if err != nil {
		t.Fatalf("LoadSegments: %v", err)
	}
	if w != 64 || h != 64 || cs != 0.25 {
		t.Fatalf("loaded header %dx%d cell %v", w, h, cs)
	}
	if diff := cmp.Diff(segs, got); diff != "" {
		t.Errorf("segments differ (-want +got):\n%s", diff)
	}
}
