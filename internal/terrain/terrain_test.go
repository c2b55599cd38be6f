package terrain

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/banshee-data/roadtrace/internal/geom"
)

// writeASC writes a height grid in ASC format, rows north first.
// heights is indexed by (column, file row).
func writeASC(t *testing.T, dir, name string, w, h int, xllc, yllc, csize float64,
	heights func(i, j int) float64) string {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "ncols %d\nnrows %d\n", w, h)
	fmt.Fprintf(&b, "xllcorner %f\nyllcorner %f\n", xllc, yllc)
	fmt.Fprintf(&b, "cellsize %f\nNODATA_value -99999\n", csize)
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			fmt.Fprintf(&b, "%f ", heights(i, j))
		}
		b.WriteByte('\n')
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// writeNVM writes a constant-normal tile in NVM format.
func writeNVM(t *testing.T, dir, name string, w, h int, cs, xmin, ymin float32,
	n geom.Point3f) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	hd := nvmHeader{Width: int32(w), Height: int32(h), CellSize: cs, XMin: xmin, YMin: ymin}
	if err := binary.Write(f, binary.LittleEndian, hd); err != nil {
		t.Fatalf("write header: %v", err)
	}
	payload := make([]geom.Point3f, w*h)
	for k := range payload {
		payload[k] = n
	}
	if err := binary.Write(f, binary.LittleEndian, payload); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return path
}

func TestShadeFlatTerrain(t *testing.T) {
	dir := t.TempDir()
	path := writeASC(t, dir, "flat.asc", 4, 4, 0, 0, 0.5,
		func(i, j int) float64 { return 120 })
	m := NewMap()
	if err := m.AddDTMFile(path, false); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.CreateMapFromDTM(false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n := m.Normal(1, 1); n.Z != 1 || n.X != 0 || n.Y != 0 {
		t.Errorf("flat normal = %+v, want (0, 0, 1)", n)
	}
	tests := []struct {
		shading Shading
		want    int
	}{
		{ShadeSlope, 255},
		{ShadeExpSlope, 255},
		{ShadeHill, 157},
	}
	for _, tc := range tests {
		if got := m.GetShaded(2, 2, tc.shading); got != tc.want {
			t.Errorf("shade %d = %d, want %d", tc.shading, got, tc.want)
		}
	}
}

func TestShadeRamp(t *testing.T) {
	dir := t.TempDir()
	path := writeASC(t, dir, "ramp.asc", 6, 6, 0, 0, 1,
		func(i, j int) float64 { return float64(i) })
	m := NewMap()
	if err := m.AddDTMFile(path, false); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.CreateMapFromDTM(false); err != nil {
		t.Fatalf("create: %v", err)
	}
	// Central difference of a unit-per-cell ramp, amplified: the
	// normal leans hard against the slope.
	if n := m.Normal(3, 3); n.X >= 0 || n.Y != 0 {
		t.Errorf("ramp normal = %+v, want negative X, zero Y", n)
	}
	if got := m.GetShaded(3, 3, ShadeSlope); got != 2 {
		t.Errorf("slope shade = %d, want 2", got)
	}
	if got := m.GetShaded(3, 3, ShadeExpSlope); got != 2 {
		t.Errorf("exp slope shade = %d, want 2", got)
	}
}

func TestSlopinessFloor(t *testing.T) {
	m := NewMap()
	m.SetSlopinessFactor(3)
	if m.SlopinessFactor() != 3 {
		t.Errorf("slopiness = %d, want 3", m.SlopinessFactor())
	}
	m.IncSlopinessFactor(-10)
	if m.SlopinessFactor() != 1 {
		t.Errorf("slopiness = %d, want floor 1", m.SlopinessFactor())
	}
}

func TestNVMRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeASC(t, dir, "ramp.asc", 6, 6, 0, 0, 1,
		func(i, j int) float64 { return float64(i) + float64(j)/3 })
	src := NewMap()
	if err := src.AddDTMFile(path, false); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := src.CreateMapFromDTM(false); err != nil {
		t.Fatalf("create: %v", err)
	}
	nvm := filepath.Join(dir, "ramp.nvm")
	if err := src.SaveFirstNormalMap(nvm); err != nil {
		t.Fatalf("save: %v", err)
	}

	m := NewMap()
	if !m.AddNormalMapFile(nvm) {
		t.Fatalf("nvm file not found")
	}
	if err := m.AssembleMap(1, 1, 0, 0, false); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if m.Width() != 6 || m.Height() != 6 {
		t.Fatalf("map = %d x %d, want 6 x 6", m.Width(), m.Height())
	}
	for j := 0; j < 6; j++ {
		for i := 0; i < 6; i++ {
			if got, want := m.Normal(i, j), src.Normal(i, j); got != want {
				t.Fatalf("normal (%d,%d) = %+v, want %+v", i, j, got, want)
			}
		}
	}
}

func TestAssembleTwoTiles(t *testing.T) {
	dir := t.TempDir()
	na := geom.Point3f{Z: 1}
	nb := geom.Point3f{X: 1}
	pa := writeNVM(t, dir, "a.nvm", 2, 2, 1, 0, 0, na)
	pb := writeNVM(t, dir, "b.nvm", 2, 2, 1, 2, 0, nb)
	m := NewMap()
	for _, p := range []string{pa, pb} {
		if !m.AddNormalMapFile(p) {
			t.Fatalf("%s not found", p)
		}
	}
	if err := m.AssembleMap(2, 1, 0, 0, false); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	if got := m.Normal(1, 1); got != na {
		t.Errorf("west tile normal = %+v, want %+v", got, na)
	}
	if got := m.Normal(2, 1); got != nb {
		t.Errorf("east tile normal = %+v, want %+v", got, nb)
	}
}

func TestAssembleRejectsMismatchedTile(t *testing.T) {
	dir := t.TempDir()
	pa := writeNVM(t, dir, "a.nvm", 2, 2, 1, 0, 0, geom.Point3f{Z: 1})
	pb := writeNVM(t, dir, "b.nvm", 3, 2, 1, 2, 0, geom.Point3f{Z: 1})
	m := NewMap()
	m.AddNormalMapFile(pa)
	m.AddNormalMapFile(pb)
	if err := m.AssembleMap(2, 1, 0, 0, false); err == nil {
		t.Errorf("expected mismatched width error")
	}
}

func TestDTMLayoutTwoTiles(t *testing.T) {
	dir := t.TempDir()
	pa := writeASC(t, dir, "a.asc", 4, 4, 0, 0, 1,
		func(i, j int) float64 { return 10 })
	pb := writeASC(t, dir, "b.asc", 4, 4, 4, 0, 1,
		func(i, j int) float64 { return 10 })
	m := NewMap()
	for _, p := range []string{pa, pb} {
		if err := m.AddDTMFile(p, false); err != nil {
			t.Fatalf("add %s: %v", p, err)
		}
	}
	m.AddDTMName("a")
	m.AddDTMName("b")
	if m.Width() != 8 || m.Height() != 4 {
		t.Fatalf("map = %d x %d, want 8 x 4", m.Width(), m.Height())
	}
	name, xmin, _, ok := m.GetLayoutInfo(geom.Point2i{X: 1, Y: 0})
	if !ok || name != "b" || xmin != 4 {
		t.Errorf("layout (1,0) = %q at %f, want b at 4", name, xmin)
	}
	if err := m.CreateMapFromDTM(false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n := m.Normal(5, 2); n.Z != 1 {
		t.Errorf("flat normal = %+v, want (0, 0, 1)", n)
	}
}

func TestClosestFlatArea(t *testing.T) {
	dir := t.TempDir()
	// A ramp with one flat column at i = 4.
	prof := []float64{0, 1, 2, 4, 4, 4, 6, 7, 8}
	path := writeASC(t, dir, "band.asc", 9, 9, 0, 0, 1,
		func(i, j int) float64 { return prof[i] })
	m := NewMap()
	if err := m.AddDTMFile(path, false); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.CreateMapFromDTM(false); err != nil {
		t.Fatalf("create: %v", err)
	}
	got := m.ClosestFlatArea(geom.Point2i{X: 6, Y: 4}, 2, 0, 2)
	if got.X != 4 {
		t.Errorf("flat area at %+v, want X = 4", got)
	}
}

func TestSetPadSizeOddOnly(t *testing.T) {
	m := NewMap()
	m.SetPadSize(4)
	if m.PadSize() != DefaultPadSize {
		t.Errorf("even pad size accepted: %d", m.PadSize())
	}
	m.SetPadSize(5)
	if m.PadSize() != 5 || m.PadWidth() != 5 || m.PadHeight() != 5 {
		t.Errorf("pad = %d (%d x %d), want 5 x 5",
			m.PadSize(), m.PadWidth(), m.PadHeight())
	}
}

func TestNextPadTraversal(t *testing.T) {
	dir := t.TempDir()
	m := NewMap()
	for j := 0; j < 5; j++ {
		for i := 0; i < 5; i++ {
			p := writeNVM(t, dir, fmt.Sprintf("t%d%d.nvm", i, j),
				2, 2, 1, float32(i)*2, float32(j)*2, geom.Point3f{Z: 1})
			if !m.AddNormalMapFile(p) {
				t.Fatalf("%s not found", p)
			}
		}
	}
	if err := m.AssembleMap(5, 5, 0, 0, true); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	m.SetPadSize(3)
	m.AdjustPadSize()

	shade := make([]byte, m.PadWidth()*m.TileWidth()*m.PadHeight()*m.TileHeight())
	var refs []int
	for ref := m.NextPad(shade); ref >= 0; ref = m.NextPad(shade) {
		refs = append(refs, ref)
		if shade[0] != 255 {
			t.Errorf("pad %d: north-west shade = %d, want 255", ref, shade[0])
		}
		if shade[len(shade)-1] != 255 {
			t.Errorf("pad %d: south-east shade = %d, want 255", ref, shade[len(shade)-1])
		}
	}
	want := []int{0, 1, 2, 7, 6, 5, 10, 11, 12}
	if len(refs) != len(want) {
		t.Fatalf("pad refs = %v, want %v", refs, want)
	}
	for k := range want {
		if refs[k] != want[k] {
			t.Fatalf("pad refs = %v, want %v", refs, want)
		}
	}
}

func TestNextPadMissingTile(t *testing.T) {
	dir := t.TempDir()
	m := NewMap()
	for j := 0; j < 3; j++ {
		for i := 0; i < 3; i++ {
			if i == 1 && j == 1 {
				continue // leave a hole in the grid
			}
			p := writeNVM(t, dir, fmt.Sprintf("t%d%d.nvm", i, j),
				2, 2, 1, float32(i)*2, float32(j)*2, geom.Point3f{Z: 1})
			m.AddNormalMapFile(p)
		}
	}
	if err := m.AssembleMap(3, 3, 0, 0, true); err != nil {
		t.Fatalf("assemble: %v", err)
	}
	m.SetPadSize(3)
	m.AdjustPadSize()

	shade := make([]byte, 36)
	if ref := m.NextPad(shade); ref != 0 {
		t.Fatalf("first pad ref = %d, want 0", ref)
	}
	// Centre tile slot stays dark, corners are lit.
	if shade[14] != 0 || shade[20] != 0 {
		t.Errorf("hole not cleared: %d %d", shade[14], shade[20])
	}
	if shade[0] != 255 || shade[35] != 255 {
		t.Errorf("corner tiles not shaded: %d %d", shade[0], shade[35])
	}
	if ref := m.NextPad(shade); ref != -1 {
		t.Errorf("second pad ref = %d, want -1", ref)
	}
}
