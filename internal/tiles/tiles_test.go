package tiles

import (
	"path/filepath"
	"testing"

	"github.com/banshee-data/roadtrace/internal/geom"
	"github.com/google/go-cmp/cmp"
)

// buildTile makes a 4x4-cell tile at (xref, yref) with one point in the
// centre of every cell, elevations increasing cell by cell.
func buildTile(t *testing.T, dir string, name string, xref, yref int64) string {
	t.Helper()
	tl := NewTile(4, 4)
	tl.SetArea(xref, yref, 0, 500)
	var pts []geom.Point3i
	z := int32(100000)
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			pts = append(pts, geom.Point3i{
				X: int32(xref) + int32(i)*500 + 250,
				Y: int32(yref) + int32(j)*500 + 250,
				Z: z,
			})
			z += 10
		}
	}
	tl.SetPoints(pts)
	path := filepath.Join(dir, name)
	if err := tl.Save(path); err != nil {
		t.Fatalf("save %s: %v", path, err)
	}
	return path
}

func TestTileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := buildTile(t, dir, "a.til", 0, 0)

	tl, err := OpenTile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if tl.Loaded() {
		t.Errorf("payload should not be resident after OpenTile")
	}
	if tl.NumPoints != 16 {
		t.Errorf("NumPoints = %d, want 16", tl.NumPoints)
	}
	if err := tl.LoadPoints(); err != nil {
		t.Fatalf("load: %v", err)
	}
	got := tl.CellPoints(2, 1)
	want := []geom.Point3i{{X: 1250, Y: 750, Z: 100060}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("cell (2,1) points mismatch (-want +got):\n%s", diff)
	}
	if tl.Top != 100150 {
		t.Errorf("Top = %d, want 100150", tl.Top)
	}
}

func TestTileDropsOutOfFootprintPoints(t *testing.T) {
	tl := NewTile(2, 2)
	tl.SetArea(0, 0, 0, 500)
	tl.SetPoints([]geom.Point3i{
		{X: 250, Y: 250, Z: 1},
		{X: -10, Y: 250, Z: 2},
		{X: 250, Y: 1100, Z: 3},
	})
	if tl.NumPoints != 1 {
		t.Errorf("NumPoints = %d, want 1", tl.NumPoints)
	}
}

func TestTileResample(t *testing.T) {
	dir := t.TempDir()
	path := buildTile(t, dir, "fine.til", 0, 0)
	fine, err := OpenTile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	coarse := NewTile(2, 2)
	coarse.CellSize = 1000
	if err := coarse.Resample(fine); err != nil {
		t.Fatalf("resample: %v", err)
	}
	if coarse.NumPoints != 16 {
		t.Errorf("resample lost points: %d", coarse.NumPoints)
	}
	if n := len(coarse.CellPoints(0, 0)); n != 4 {
		t.Errorf("coarse cell (0,0) has %d points, want 4", n)
	}
}

func TestTileSetLayoutAndCollect(t *testing.T) {
	dir := t.TempDir()
	// A 2x1 grid of tiles, each 4x4 cells of 0.5 m.
	pa := buildTile(t, dir, "a.til", 0, 0)
	pb := buildTile(t, dir, "b.til", 2000, 0)

	s := NewTileSet(0)
	for _, p := range []string{pa, pb} {
		if err := s.AddTile(p); err != nil {
			t.Fatalf("add %s: %v", p, err)
		}
	}
	if err := s.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	if s.Cols() != 2 || s.Rows() != 1 {
		t.Fatalf("grid = %d x %d, want 2 x 1", s.Cols(), s.Rows())
	}

	// Global cell (5, 2) lives in the second tile, local cell (1, 2).
	var pts []geom.Point3i
	if !s.CollectPoints(&pts, 5, 2) {
		t.Fatalf("collect reported tile not loaded in unbounded mode")
	}
	if len(pts) != 1 || pts[0].X != 2750 || pts[0].Y != 1250 {
		t.Errorf("collected %v, want one point at (2750, 1250)", pts)
	}
}

func TestTileSetLRUBudget(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			paths = append(paths, buildTile(t, dir,
				"t"+string(rune('a'+j*3+i))+".til",
				int64(i)*2000, int64(j)*2000))
		}
	}
	one := NewTile(4, 4)
	one.SetArea(0, 0, 0, 500)
	one.SetPoints(nil)
	tileBytes := one.PayloadBytes() + 16*pointBytes

	s := NewTileSet(3 * tileBytes)
	for _, p := range paths {
		if err := s.AddTile(p); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := s.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Touch every tile; each answers correctly despite the 3-tile cap.
	for tj := 0; tj < 3; tj++ {
		for ti := 0; ti < 3; ti++ {
			var pts []geom.Point3i
			s.CollectPoints(&pts, ti*4, tj*4)
			if len(pts) != 1 {
				t.Errorf("tile (%d,%d): collected %d points, want 1", ti, tj, len(pts))
			}
			if s.ResidentBytes() > 3*tileBytes {
				t.Errorf("resident bytes %d exceed budget %d",
					s.ResidentBytes(), 3*tileBytes)
			}
		}
	}
	if s.OutCount == 0 {
		t.Errorf("expected out-of-buffer requests under LRU pressure")
	}
}

func TestNextTileVisitsEveryTileOnce(t *testing.T) {
	dir := t.TempDir()
	s := NewTileSet(1 << 20)
	for i := 0; i < 2; i++ {
		p := buildTile(t, dir, "n"+string(rune('0'+i))+".til", int64(i)*2000, 0)
		if err := s.AddTile(p); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	if err := s.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	seen := map[int]bool{}
	for k := s.NextTile(); k >= 0; k = s.NextTile() {
		if seen[k] {
			t.Fatalf("tile %d visited twice", k)
		}
		seen[k] = true
	}
	if len(seen) != 2 {
		t.Errorf("visited %d tiles, want 2", len(seen))
	}
}
