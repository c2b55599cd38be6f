package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func testPaths(t *testing.T) Paths {
	t.Helper()
	root := t.TempDir()
	return Paths{
		Results:  filepath.Join(root, "results"),
		TileSets: filepath.Join(root, "tilesets"),
		NVM:      filepath.Join(root, "nvm"),
		Til:      filepath.Join(root, "til"),
		DTM:      filepath.Join(root, "asc"),
		XYZ:      filepath.Join(root, "xyz"),
	}
}

func TestResolveTilesExplicitNames(t *testing.T) {
	p := testPaths(t)
	names, err := ResolveTiles(p, []string{"t1", "t2"})
	if err != nil {
		t.Fatalf("ResolveTiles: %v", err)
	}
	if len(names) != 2 || names[0] != "t1" || names[1] != "t2" {
		t.Fatalf("names = %v, want [t1 t2]", names)
	}
	last, err := readLines(p.LastTiles())
	if err != nil {
		t.Fatalf("read last tiles: %v", err)
	}
	if len(last) != 2 || last[0] != "t1" || last[1] != "t2" {
		t.Fatalf("last tiles = %v, want [t1 t2]", last)
	}
}

func TestResolveTilesRepeatsLastRun(t *testing.T) {
	p := testPaths(t)
	if _, err := ResolveTiles(p, []string{"t3"}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	names, err := ResolveTiles(p, nil)
	if err != nil {
		t.Fatalf("repeat run: %v", err)
	}
	if len(names) != 1 || names[0] != "t3" {
		t.Fatalf("names = %v, want [t3]", names)
	}
}

func TestResolveTilesNoPreviousRun(t *testing.T) {
	p := testPaths(t)
	if _, err := ResolveTiles(p, nil); err == nil {
		t.Fatal("expected error without a previous run")
	}
}

func TestResolveTilesExpandsNamedSet(t *testing.T) {
	p := testPaths(t)
	if err := os.MkdirAll(p.TileSets, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	set := "t4\nt5\n\nt6\n"
	if err := os.WriteFile(p.SetFile("forest"), []byte(set), 0o644); err != nil {
		t.Fatalf("write set: %v", err)
	}
	names, err := ResolveTiles(p, []string{"forest"})
	if err != nil {
		t.Fatalf("ResolveTiles: %v", err)
	}
	if len(names) != 3 || names[0] != "t4" || names[2] != "t6" {
		t.Fatalf("names = %v, want [t4 t5 t6]", names)
	}
	last, err := readLines(p.LastSet())
	if err != nil {
		t.Fatalf("read last set: %v", err)
	}
	if len(last) != 1 || last[0] != "forest" {
		t.Fatalf("last set = %v, want [forest]", last)
	}
}

func TestResolveTilesSingleTileName(t *testing.T) {
	p := testPaths(t)
	// No set file of that name: the argument is a plain tile name.
	names, err := ResolveTiles(p, []string{"t7"})
	if err != nil {
		t.Fatalf("ResolveTiles: %v", err)
	}
	if len(names) != 1 || names[0] != "t7" {
		t.Fatalf("names = %v, want [t7]", names)
	}
}
