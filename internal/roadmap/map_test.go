package roadmap

import (
	"image/color"
	"testing"

	"github.com/banshee-data/roadtrace/internal/geom"
)

// rectScans builds one scan per row of the rectangle [x0, x1] x [y0, y1].
func rectScans(x0, y0, x1, y1 int) [][]geom.Point2i {
	var scans [][]geom.Point2i
	for y := y0; y <= y1; y++ {
		var scan []geom.Point2i
		for x := x0; x <= x1; x++ {
			scan = append(scan, geom.Point2i{X: x, Y: y})
		}
		scans = append(scans, scan)
	}
	return scans
}

func TestAddAndOccupied(t *testing.T) {
	m := New(32, 32)
	if !m.Add(rectScans(4, 4, 10, 8)) {
		t.Fatal("first road rejected")
	}
	if m.NumRoads() != 1 {
		t.Fatalf("roads = %d, want 1", m.NumRoads())
	}
	if !m.Occupied(geom.Point2i{X: 5, Y: 5}) {
		t.Error("pixel inside the road not occupied")
	}
	if m.Occupied(geom.Point2i{X: 20, Y: 20}) {
		t.Error("pixel outside the road occupied")
	}
	if m.Occupied(geom.Point2i{X: -3, Y: 5}) {
		t.Error("off-raster pixel occupied")
	}
}

func TestOverlapVetoRollsBack(t *testing.T) {
	m := New(32, 32)
	if !m.Add(rectScans(4, 4, 10, 8)) {
		t.Fatal("first road rejected")
	}
	if m.Add(rectScans(4, 4, 10, 8)) {
		t.Fatal("duplicate road accepted")
	}
	if m.NumRoads() != 1 {
		t.Errorf("roads after veto = %d, want 1", m.NumRoads())
	}
	if got := m.ID(5, 5); got != 1 {
		t.Errorf("id after veto = %d, want 1", got)
	}
}

func TestIdsIncrease(t *testing.T) {
	m := New(32, 32)
	if !m.Add(rectScans(2, 2, 6, 4)) || !m.Add(rectScans(10, 10, 14, 12)) {
		t.Fatal("disjoint roads rejected")
	}
	if got := m.ID(3, 3); got != 1 {
		t.Errorf("first road id = %d, want 1", got)
	}
	if got := m.ID(11, 11); got != 2 {
		t.Errorf("second road id = %d, want 2", got)
	}
}

func TestSmallOverlapAccepted(t *testing.T) {
	m := New(32, 32)
	if !m.Add(rectScans(0, 0, 9, 0)) {
		t.Fatal("first road rejected")
	}
	// Crosses 5 occupied pixels, under the default tolerance.
	if !m.Add(rectScans(5, 0, 14, 1)) {
		t.Fatal("small overlap vetoed")
	}
	if got := m.ID(6, 0); got != 2 {
		t.Errorf("contested pixel id = %d, want newest road 2", got)
	}
}

func TestRenderPolarity(t *testing.T) {
	m := New(8, 8)
	if !m.Add(rectScans(1, 1, 2, 2)) {
		t.Fatal("road rejected")
	}
	img := m.Render(RenderOptions{})
	// Row 0 south is painted at the bottom of the image.
	if got := img.RGBAAt(1, 6); got != (color.RGBA{A: 255}) {
		t.Errorf("road pixel = %v, want black", got)
	}
	if got := img.RGBAAt(5, 5); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("ground pixel = %v, want white", got)
	}
	inv := m.Render(RenderOptions{Invert: true})
	if got := inv.RGBAAt(1, 6); got != (color.RGBA{R: 255, G: 255, B: 255, A: 255}) {
		t.Errorf("inverted road pixel = %v, want white", got)
	}
}
