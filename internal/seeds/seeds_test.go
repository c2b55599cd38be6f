package seeds

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/roadtrace/internal/fbsd"
	"github.com/banshee-data/roadtrace/internal/geom"
)

func oneTileLayout() Layout {
	return Layout{
		TileCols: 1, TileRows: 1,
		TileWidth: 128, TileHeight: 128,
		PadHeight: 128,
	}
}

func TestGenerateVerticalSegment(t *testing.T) {
	// Naive line x = 50, y from 100 down to 4, length 96.
	seg := fbsd.DSS{A: 1, B: 0, Mu: 50, Nu: 1, Min: -100, Max: -4}
	set := NewSet(1, 1)
	NewGenerator().Generate(set, []fbsd.DSS{seg}, oneTileLayout(), nil)

	want := []Stroke{
		{P1: geom.Point2i{X: 70, Y: 27}, P2: geom.Point2i{X: 30, Y: 27}},
		{P1: geom.Point2i{X: 70, Y: 51}, P2: geom.Point2i{X: 30, Y: 51}},
		{P1: geom.Point2i{X: 70, Y: 75}, P2: geom.Point2i{X: 30, Y: 75}},
		{P1: geom.Point2i{X: 70, Y: 99}, P2: geom.Point2i{X: 30, Y: 99}},
		{P1: geom.Point2i{X: 70, Y: 123}, P2: geom.Point2i{X: 30, Y: 123}},
	}
	if diff := cmp.Diff(want, set.Bucket(0, 0)); diff != "" {
		t.Errorf("strokes differ (-want +got):\n%s", diff)
	}
	if set.Count != 5 || set.ShortSegments != 0 || set.Outside != 0 {
		t.Errorf("counters (%d, %d, %d), want (5, 0, 0)",
			set.Count, set.ShortSegments, set.Outside)
	}
}

func TestGenerateRejectsShortSegment(t *testing.T) {
	seg := fbsd.DSS{A: 1, B: 0, Mu: 50, Nu: 1, Min: -60, Max: -4}
	set := NewSet(1, 1)
	NewGenerator().Generate(set, []fbsd.DSS{seg}, oneTileLayout(), nil)
	if set.Count != 0 || set.ShortSegments != 1 {
		t.Errorf("counters (%d, %d), want (0, 1)", set.Count, set.ShortSegments)
	}
}

func TestGenerateDropsStrokesOffGrid(t *testing.T) {
	// Strokes around x = 10 reach x = -9, off the west edge.
	seg := fbsd.DSS{A: 1, B: 0, Mu: 10, Nu: 1, Min: -100, Max: -4}
	set := NewSet(1, 1)
	NewGenerator().Generate(set, []fbsd.DSS{seg}, oneTileLayout(), nil)
	if set.Count != 0 || set.Outside != 5 {
		t.Errorf("counters (%d, %d), want (0, 5)", set.Count, set.Outside)
	}
}

func TestGenerateHonoursLoadedPredicate(t *testing.T) {
	seg := fbsd.DSS{A: 1, B: 0, Mu: 50, Nu: 1, Min: -100, Max: -4}
	set := NewSet(1, 1)
	none := func(tx, ty int) bool { return false }
	NewGenerator().Generate(set, []fbsd.DSS{seg}, oneTileLayout(), none)
	if set.Count != 0 || set.Outside != 5 {
		t.Errorf("counters (%d, %d), want (0, 5)", set.Count, set.Outside)
	}
}

func TestOrderedBoustrophedon(t *testing.T) {
	set := NewSet(2, 2)
	mark := func(k int) Stroke {
		return Stroke{P1: geom.Point2i{X: k, Y: 0}, P2: geom.Point2i{X: k, Y: 1}}
	}
	set.Add(0, 0, mark(1))
	set.Add(1, 0, mark(2))
	set.Add(0, 1, mark(4))
	set.Add(1, 1, mark(3))

	got := set.Ordered()
	for k, st := range got {
		if st.P1.X != k+1 {
			t.Fatalf("stroke %d has mark %d, want %d", k, st.P1.X, k+1)
		}
	}
}

func TestHalfSized(t *testing.T) {
	set := NewSet(1, 1)
	set.Add(0, 0, Stroke{P1: geom.Point2i{X: 70, Y: 27}, P2: geom.Point2i{X: 30, Y: 27}})

	half, outliers := set.HalfSized(128, 128)
	if outliers != 0 {
		t.Fatalf("outliers = %d, want 0", outliers)
	}
	if half.TileCols != 2 || half.TileRows != 2 {
		t.Fatalf("half grid %dx%d, want 2x2", half.TileCols, half.TileRows)
	}
	want := []Stroke{
		{P1: geom.Point2i{X: 141, Y: 54}, P2: geom.Point2i{X: 60, Y: 55}},
	}
	if diff := cmp.Diff(want, half.Bucket(0, 0)); diff != "" {
		t.Errorf("half strokes differ (-want +got):\n%s", diff)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	seg := fbsd.DSS{A: 1, B: 0, Mu: 50, Nu: 1, Min: -100, Max: -4}
	set := NewSet(1, 1)
	NewGenerator().Generate(set, []fbsd.DSS{seg}, oneTileLayout(), nil)

	name := filepath.Join(t.TempDir(), "pad.seeds")
	if err := Save(name, set, 128, 128, 0.5); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, w, h, cs, err := Load(name)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if w != 128 || h != 128 || cs != 0.5 {
		t.Fatalf("loaded header %dx%d cell %v", w, h, cs)
	}
	if got.Count != set.Count {
		t.Fatalf("loaded %d strokes, want %d", got.Count, set.Count)
	}
	if diff := cmp.Diff(set.Ordered(), got.Ordered()); diff != "" {
		t.Errorf("strokes differ (-want +got):\n%s", diff)
	}
}
