package tiles

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/roadtrace/internal/geom"
)

// Access selects the density of the point grid relative to the finest
// 0.1 m cell pitch. The value divides the per-tile cell count.
type Access int

const (
	// AccessTop keeps the full 0.1 m cell pitch.
	AccessTop Access = 1
	// AccessMid halves the grid (0.2 m cells).
	AccessMid Access = 2
	// AccessEco matches the DTM pitch (0.5 m cells).
	AccessEco Access = 5
)

// MinCellSizeMM is the cell pitch of AccessTop tiles in millimetres.
const MinCellSizeMM = 100

// XYZUnit converts metres in text point files to integer millimetres.
const XYZUnit = 1000

// Prefix returns the tile file prefix used for this access level.
func (a Access) Prefix() string {
	switch a {
	case AccessTop:
		return "top_"
	case AccessMid:
		return "mid_"
	case AccessEco:
		return "eco_"
	}
	return ""
}

// Dir returns the tile subdirectory used for this access level.
func (a Access) Dir() string {
	switch a {
	case AccessTop:
		return "top/"
	case AccessMid:
		return "mid/"
	case AccessEco:
		return "eco/"
	}
	return ""
}

// TilSuffix is the on-disk extension for point tile files.
const TilSuffix = ".til"

const pointBytes = 12 // three little-endian int32 per ground return

// Tile is one rectangular grid of point cells. The header (geometry and
// counts) is always present; the point payload is resident only after
// LoadPoints.
type Tile struct {
	Cols, Rows int
	XRef, YRef int64 // lower-left corner, millimetres
	Top        int64 // highest elevation, millimetres
	CellSize   int32 // cell pitch, millimetres
	NumPoints  uint32

	// starts[k] indexes the first point of cell k in points; cell k
	// ends at starts[k+1]. len(starts) = Cols*Rows+1 when resident.
	starts []uint32
	points []geom.Point3i

	path   string
	loaded bool
}

// NewTile returns an empty tile with the given cell grid size.
func NewTile(cols, rows int) *Tile {
	return &Tile{Cols: cols, Rows: rows}
}

// SetArea fixes the tile footprint: lower-left reference corner and top
// elevation in millimetres, and the cell pitch in millimetres.
func (t *Tile) SetArea(xref, yref, top int64, cellSize int32) {
	t.XRef = xref
	t.YRef = yref
	t.Top = top
	t.CellSize = cellSize
}

// Loaded reports whether the point payload is resident.
func (t *Tile) Loaded() bool { return t.loaded }

// Path returns the backing file path, if any.
func (t *Tile) Path() string { return t.path }

// PayloadBytes returns the resident size of the point payload plus the
// cell index, used for the tile set byte budget.
func (t *Tile) PayloadBytes() int64 {
	return int64(t.NumPoints)*pointBytes + int64(t.Cols*t.Rows+1)*4
}

// CellPoints returns the points binned in cell (i, j), column-major on
// i along X. The slice aliases the tile payload and must not be kept
// across a Release.
func (t *Tile) CellPoints(i, j int) []geom.Point3i {
	if !t.loaded || i < 0 || j < 0 || i >= t.Cols || j >= t.Rows {
		return nil
	}
	k := j*t.Cols + i
	return t.points[t.starts[k]:t.starts[k+1]]
}

// tileHeader mirrors the fixed-size file header.
type tileHeader struct {
	Cols, Rows int32
	XRef, YRef int64
	Top        int64
	CellSize   int32
	NumPoints  uint32
}

// OpenTile reads the header of a tile file, leaving the payload on
// disk.
func OpenTile(path string) (*Tile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var h tileHeader
	if err := binary.Read(f, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}
	if h.Cols <= 0 || h.Rows <= 0 {
		return nil, fmt.Errorf("%s: inconsistent grid %d x %d", path, h.Cols, h.Rows)
	}
	return &Tile{
		Cols: int(h.Cols), Rows: int(h.Rows),
		XRef: h.XRef, YRef: h.YRef, Top: h.Top,
		CellSize: h.CellSize, NumPoints: h.NumPoints,
		path: path,
	}, nil
}

// LoadPoints reads the point payload into memory. It is a no-op when
// already resident.
func (t *Tile) LoadPoints() error {
	if t.loaded {
		return nil
	}
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var h tileHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("read %s header: %w", t.path, err)
	}
	starts := make([]uint32, int(h.Cols)*int(h.Rows)+1)
	if err := binary.Read(r, binary.LittleEndian, starts); err != nil {
		return fmt.Errorf("read %s cell index: %w", t.path, err)
	}
	points := make([]geom.Point3i, h.NumPoints)
	if err := binary.Read(r, binary.LittleEndian, points); err != nil {
		return fmt.Errorf("read %s points: %w", t.path, err)
	}
	t.starts = starts
	t.points = points
	t.loaded = true
	return nil
}

// Release drops the point payload, keeping the header.
func (t *Tile) Release() {
	t.starts = nil
	t.points = nil
	t.loaded = false
}

// Save writes the tile, header and payload, to path.
func (t *Tile) Save(path string) error {
	if !t.loaded {
		return fmt.Errorf("save %s: payload not resident", path)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	h := tileHeader{
		Cols: int32(t.Cols), Rows: int32(t.Rows),
		XRef: t.XRef, YRef: t.YRef, Top: t.Top,
		CellSize: t.CellSize, NumPoints: uint32(len(t.points)),
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		f.Close()
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, t.starts); err != nil {
		f.Close()
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, t.points); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	t.path = path
	return f.Close()
}

// SetPoints bins pts (projected millimetres) into the tile cells and
// makes the payload resident. Points outside the footprint are dropped.
func (t *Tile) SetPoints(pts []geom.Point3i) {
	cells := t.Cols * t.Rows
	counts := make([]uint32, cells)
	kept := pts[:0:0]
	for _, p := range pts {
		ci, cj, ok := t.cellOf(p)
		if !ok {
			continue
		}
		counts[cj*t.Cols+ci]++
		kept = append(kept, p)
	}
	starts := make([]uint32, cells+1)
	for k := 0; k < cells; k++ {
		starts[k+1] = starts[k] + counts[k]
	}
	points := make([]geom.Point3i, len(kept))
	next := make([]uint32, cells)
	copy(next, starts[:cells])
	top := t.Top
	for _, p := range kept {
		ci, cj, _ := t.cellOf(p)
		k := cj*t.Cols + ci
		points[next[k]] = p
		next[k]++
		if int64(p.Z) > top {
			top = int64(p.Z)
		}
	}
	t.Top = top
	t.starts = starts
	t.points = points
	t.NumPoints = uint32(len(points))
	t.loaded = true
}

func (t *Tile) cellOf(p geom.Point3i) (int, int, bool) {
	dx := int64(p.X) - t.XRef
	dy := int64(p.Y) - t.YRef
	if dx < 0 || dy < 0 {
		return 0, 0, false
	}
	ci := int(dx / int64(t.CellSize))
	cj := int(dy / int64(t.CellSize))
	if ci >= t.Cols || cj >= t.Rows {
		return 0, 0, false
	}
	return ci, cj, true
}

// LoadXYZ reads a whitespace-separated "x y z" text file in metres and
// bins its points into the tile. SetArea must be called first.
func (t *Tile) LoadXYZ(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	var pts []geom.Point3i
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) < 3 {
			continue
		}
		x, errx := strconv.ParseFloat(fields[0], 64)
		y, erry := strconv.ParseFloat(fields[1], 64)
		z, errz := strconv.ParseFloat(fields[2], 64)
		if errx != nil || erry != nil || errz != nil {
			continue
		}
		pts = append(pts, geom.Point3i{
			X: int32(x*XYZUnit + 0.5),
			Y: int32(y*XYZUnit + 0.5),
			Z: int32(z*XYZUnit + 0.5),
		})
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", path, err)
	}
	t.SetPoints(pts)
	return nil
}

// Resample rebins all points of src into this tile's coarser (or finer)
// cell grid. The footprint is copied from src.
func (t *Tile) Resample(src *Tile) error {
	if !src.loaded {
		if err := src.LoadPoints(); err != nil {
			return err
		}
	}
	t.SetArea(src.XRef, src.YRef, src.Top, t.CellSize)
	t.SetPoints(src.points)
	return nil
}
