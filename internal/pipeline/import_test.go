package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/roadtrace/internal/terrain"
	"github.com/banshee-data/roadtrace/internal/tiles"
)

func TestSubdivision(t *testing.T) {
	if got := subdivision(0.5); got != 5 {
		t.Fatalf("subdivision(0.5) = %d, want 5", got)
	}
	if got := subdivision(1.0); got != 10 {
		t.Fatalf("subdivision(1.0) = %d, want 10", got)
	}
}

func TestTileCellSizeMM(t *testing.T) {
	cases := []struct {
		access tiles.Access
		want   int32
	}{
		{tiles.AccessTop, 100},
		{tiles.AccessMid, 200},
		{tiles.AccessEco, 500},
	}
	for _, c := range cases {
		if got := tileCellSizeMM(0.5, c.access); got != c.want {
			t.Errorf("tileCellSizeMM(0.5, %v) = %d, want %d",
				c.access, got, c.want)
		}
	}
}

func TestAltSources(t *testing.T) {
	if s := altSources(tiles.AccessEco); s[0] != tiles.AccessMid ||
		s[1] != tiles.AccessTop {
		t.Fatalf("eco sources = %v", s)
	}
	if s := altSources(tiles.AccessTop); s[0] != tiles.AccessMid ||
		s[1] != tiles.AccessEco {
		t.Fatalf("top sources = %v", s)
	}
}

// writeASC writes a flat 4x4 height grid in ASC format.
func writeASC(t *testing.T, path string, xllc, yllc float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("ncols 4\nnrows 4\n")
	fmt.Fprintf(&b, "xllcorner %f\nyllcorner %f\n", xllc, yllc)
	b.WriteString("cellsize 0.5\nNODATA_value -99\n")
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			fmt.Fprintf(&b, "%f ", 100.0+float64(i)*0.1)
		}
		b.WriteByte('\n')
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// writeXYZ writes a few points in metres around the given corner.
func writeXYZ(t *testing.T, path string, x0, y0 float64) {
	t.Helper()
	var b strings.Builder
	for i := 0; i < 8; i++ {
		fmt.Fprintf(&b, "%f %f %f\n",
			x0+0.2+float64(i%4)*0.4, y0+0.3+float64(i/4)*0.6, 100.5)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestImportDTMWritesNormalMaps(t *testing.T) {
	p := testPaths(t)
	writeASC(t, p.DTMFile("t1"), 600000, 5200000)
	if err := ImportDTM(p, []string{"t1"}, false); err != nil {
		t.Fatalf("ImportDTM: %v", err)
	}
	tm := terrain.NewMap()
	if err := tm.LoadNVMInfo(p.NVMFile("t1")); err != nil {
		t.Fatalf("LoadNVMInfo: %v", err)
	}
	if tm.TileWidth() != 4 || tm.TileHeight() != 4 {
		t.Fatalf("tile %dx%d, want 4x4", tm.TileWidth(), tm.TileHeight())
	}
	if tm.CellSize() != 0.5 {
		t.Fatalf("cell size %g, want 0.5", tm.CellSize())
	}
}

func TestImportLidarWritesPointTile(t *testing.T) {
	p := testPaths(t)
	writeASC(t, p.DTMFile("t1"), 600000, 5200000)
	writeXYZ(t, p.XYZFile("t1"), 600000, 5200000)
	if err := ImportLidar(p, []string{"t1"}, false, tiles.AccessTop); err != nil {
		t.Fatalf("ImportLidar: %v", err)
	}
	tile, err := tiles.OpenTile(p.TilFile(tiles.AccessTop, "t1"))
	if err != nil {
		t.Fatalf("OpenTile: %v", err)
	}
	if tile.Cols != 20 || tile.Rows != 20 {
		t.Fatalf("tile grid %dx%d, want 20x20", tile.Cols, tile.Rows)
	}
	if tile.CellSize != 100 {
		t.Fatalf("tile cell %d mm, want 100", tile.CellSize)
	}
	if tile.NumPoints != 8 {
		t.Fatalf("tile holds %d points, want 8", tile.NumPoints)
	}
}

func TestXYZLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.xyz")
	writeXYZ(t, path, 600002, 5200004)
	lay, err := xyzLayout(path, 600000, 5200000, 2, 2)
	if err != nil {
		t.Fatalf("xyzLayout: %v", err)
	}
	if lay.X != 1 || lay.Y != 2 {
		t.Fatalf("layout = %d,%d, want 1,2", lay.X, lay.Y)
	}
}

func TestXYZLayoutRejectsOutsidePoints(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.xyz")
	writeXYZ(t, path, 100, 100)
	if _, err := xyzLayout(path, 600000, 5200000, 2, 2); err == nil {
		t.Fatal("expected error for points south-west of the grid")
	}
}
