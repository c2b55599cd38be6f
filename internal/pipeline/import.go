package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/banshee-data/roadtrace/internal/geom"
	"github.com/banshee-data/roadtrace/internal/terrain"
	"github.com/banshee-data/roadtrace/internal/tiles"
)

// subdivision returns the count of point cells per DTM cell side.
func subdivision(cellSize float32) int {
	return int(float64(cellSize)*1000/float64(tiles.MinCellSizeMM) + 0.5)
}

// tileCellSizeMM returns the point cell pitch in millimetres for one
// access level over a DTM grid.
func tileCellSizeMM(cellSize float32, a tiles.Access) int32 {
	sub := subdivision(cellSize)
	return int32(float64(cellSize)*1000*float64(a)/float64(sub) + 0.5)
}

// ImportDTM assembles the named ASC height grids into normal-vector
// tiles under the NVM directory, one file per input tile.
func ImportDTM(p Paths, names []string, gridRef bool) error {
	if len(names) == 0 {
		return fmt.Errorf("no DTM tile given")
	}
	tm := terrain.NewMap()
	for _, name := range names {
		if err := tm.AddDTMFile(p.DTMFile(name), gridRef); err != nil {
			return err
		}
		tm.AddDTMName(name)
	}
	if err := tm.CreateMapFromDTM(gridRef); err != nil {
		return err
	}
	if err := os.MkdirAll(p.NVM, 0o755); err != nil {
		return err
	}
	return tm.SaveLoadedNormalMaps(p.NVM)
}

// ImportXYZ bins the named point cloud files into tiles at the given
// access level. Each tile takes its footprint from the matching normal
// map, so the DTM import must come first.
func ImportXYZ(p Paths, names []string, a tiles.Access) error {
	if len(names) == 0 {
		return fmt.Errorf("no point tile given")
	}
	for _, name := range names {
		tm := terrain.NewMap()
		if err := tm.LoadNVMInfo(p.NVMFile(name)); err != nil {
			return err
		}
		if err := importTile(p, tm, name, p.XYZFile(name), a); err != nil {
			return err
		}
	}
	return nil
}

// importTile bins one point cloud into a tile on the footprint of the
// terrain map and saves it under the til directory.
func importTile(p Paths, tm *terrain.Map, name, xyzPath string,
	a tiles.Access) error {
	sub := subdivision(tm.CellSize())
	t := tiles.NewTile(tm.TileWidth()*sub/int(a), tm.TileHeight()*sub/int(a))
	t.SetArea(int64(tm.XMin()*tiles.XYZUnit+0.5),
		int64(tm.YMin()*tiles.XYZUnit+0.5), 0,
		tileCellSizeMM(tm.CellSize(), a))
	if err := t.LoadXYZ(xyzPath); err != nil {
		return err
	}
	dst := p.TilFile(a, name)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return t.Save(dst)
}

// ImportLidar runs the DTM and point cloud imports of the named tiles
// in one pass.
func ImportLidar(p Paths, names []string, gridRef bool,
	a tiles.Access) error {
	if err := ImportDTM(p, names, gridRef); err != nil {
		return err
	}
	return ImportXYZ(p, names, a)
}

// ImportAll scans the DTM and XYZ directories and imports every tile
// found, inferring each point cloud's grid position from its first
// point.
func ImportAll(p Paths, gridRef bool, a tiles.Access) error {
	dtms, err := filepath.Glob(filepath.Join(p.DTM, "*.asc"))
	if err != nil || len(dtms) == 0 {
		return fmt.Errorf("no DTM file under %s", p.DTM)
	}
	tm := terrain.NewMap()
	for _, path := range dtms {
		if err := tm.AddDTMFile(path, gridRef); err != nil {
			return err
		}
		base := filepath.Base(path)
		tm.AddDTMName(strings.TrimSuffix(base, filepath.Ext(base)))
	}
	if err := tm.CreateMapFromDTM(gridRef); err != nil {
		return err
	}
	if err := os.MkdirAll(p.NVM, 0o755); err != nil {
		return err
	}
	if err := tm.SaveLoadedNormalMaps(p.NVM); err != nil {
		return err
	}

	xyzs, err := filepath.Glob(filepath.Join(p.XYZ, "*.xyz"))
	if err != nil || len(xyzs) == 0 {
		return fmt.Errorf("no point cloud file under %s", p.XYZ)
	}
	tw := float64(tm.TileWidth()) * float64(tm.CellSize())
	th := float64(tm.TileHeight()) * float64(tm.CellSize())
	for _, path := range xyzs {
		lay, err := xyzLayout(path, tm.XMin(), tm.YMin(), tw, th)
		if err != nil {
			return err
		}
		name, xmin, ymin, ok := tm.GetLayoutInfo(lay)
		if !ok {
			return fmt.Errorf("%s: no DTM tile at grid position %d,%d",
				path, lay.X, lay.Y)
		}
		sub := subdivision(tm.CellSize())
		t := tiles.NewTile(tm.TileWidth()*sub/int(a),
			tm.TileHeight()*sub/int(a))
		t.SetArea(int64(xmin*tiles.XYZUnit+0.5),
			int64(ymin*tiles.XYZUnit+0.5), 0,
			tileCellSizeMM(tm.CellSize(), a))
		if err := t.LoadXYZ(path); err != nil {
			return err
		}
		dst := p.TilFile(a, name)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := t.Save(dst); err != nil {
			return err
		}
	}
	return nil
}

// xyzLayout reads the first point of a cloud file and locates it on the
// DTM tile grid.
func xyzLayout(path string, xmin, ymin, tw, th float64) (geom.Point2i, error) {
	f, err := os.Open(path)
	if err != nil {
		return geom.Point2i{}, err
	}
	defer f.Close()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		x, errx := strconv.ParseFloat(fields[0], 64)
		y, erry := strconv.ParseFloat(fields[1], 64)
		if errx != nil || erry != nil {
			continue
		}
		kx := int((x - xmin) / tw)
		ky := int((y - ymin) / th)
		if x < xmin || y < ymin {
			break
		}
		return geom.Point2i{X: kx, Y: ky}, nil
	}
	if err := sc.Err(); err != nil {
		return geom.Point2i{}, err
	}
	return geom.Point2i{}, fmt.Errorf("%s: no point inside the DTM grid", path)
}

// altSources lists the access levels tried when deriving a tile at
// another density, in preference order.
func altSources(a tiles.Access) [2]tiles.Access {
	switch a {
	case tiles.AccessEco:
		return [2]tiles.Access{tiles.AccessMid, tiles.AccessTop}
	case tiles.AccessMid:
		return [2]tiles.Access{tiles.AccessTop, tiles.AccessEco}
	}
	return [2]tiles.Access{tiles.AccessMid, tiles.AccessEco}
}

// CreateAltTile derives the named tile at the given access level by
// rebinning an existing tile of another density.
func CreateAltTile(p Paths, name string, a tiles.Access) error {
	for _, src := range altSources(a) {
		old, err := tiles.OpenTile(p.TilFile(src, name))
		if err != nil {
			continue
		}
		t := tiles.NewTile((old.Cols*int(src))/int(a),
			(old.Rows*int(src))/int(a))
		t.CellSize = int32(tiles.MinCellSizeMM * int(a))
		if err := t.Resample(old); err != nil {
			return err
		}
		dst := p.TilFile(a, name)
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := t.Save(dst); err != nil {
			return err
		}
		return nil
	}
	return fmt.Errorf("no source tile for %s at another density", name)
}
