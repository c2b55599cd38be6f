package tiles

import (
	"container/list"
	"fmt"

	"github.com/banshee-data/roadtrace/internal/geom"
	"github.com/banshee-data/roadtrace/internal/monitoring"
)

// TileSet assembles point tiles into a rectangular grid and bounds the
// resident point payloads by a byte budget with LRU eviction. A zero
// budget keeps every tile resident.
type TileSet struct {
	tiles []*Tile // grid order, row-major from the south-west tile
	cols  int
	rows  int

	xref, yref int64 // grid origin, millimetres
	cellSize   int32 // millimetres
	tileCols   int   // cells per tile along X
	tileRows   int   // cells per tile along Y

	budget   int64
	resident int64
	lru      *list.List            // front = most recently used
	inBuf    map[*Tile]*list.Element

	next int // cursor for NextTile

	// OutCount counts point requests that fell on a non-resident tile
	// in budgeted mode.
	OutCount int64
}

// NewTileSet returns an empty set with the given resident byte budget
// (0 = unbounded).
func NewTileSet(budget int64) *TileSet {
	return &TileSet{
		budget: budget,
		lru:    list.New(),
		inBuf:  make(map[*Tile]*list.Element),
	}
}

// AddTile opens the tile file header and registers it.
func (s *TileSet) AddTile(path string) error {
	t, err := OpenTile(path)
	if err != nil {
		return err
	}
	s.tiles = append(s.tiles, t)
	return nil
}

// Create lays out the registered tiles on a grid inferred from their
// reference corners. All tiles must share cell pitch and grid size.
func (s *TileSet) Create() error {
	if len(s.tiles) == 0 {
		return fmt.Errorf("tile set: no tiles registered")
	}
	first := s.tiles[0]
	s.cellSize = first.CellSize
	s.tileCols = first.Cols
	s.tileRows = first.Rows
	tw := int64(first.Cols) * int64(first.CellSize)
	th := int64(first.Rows) * int64(first.CellSize)

	s.xref, s.yref = first.XRef, first.YRef
	xmax, ymax := first.XRef, first.YRef
	for _, t := range s.tiles {
		if t.CellSize != s.cellSize || t.Cols != s.tileCols || t.Rows != s.tileRows {
			return fmt.Errorf("tile set: %s does not match grid pitch", t.Path())
		}
		if t.XRef < s.xref {
			s.xref = t.XRef
		}
		if t.YRef < s.yref {
			s.yref = t.YRef
		}
		if t.XRef > xmax {
			xmax = t.XRef
		}
		if t.YRef > ymax {
			ymax = t.YRef
		}
	}
	s.cols = int((xmax-s.xref)/tw) + 1
	s.rows = int((ymax-s.yref)/th) + 1

	grid := make([]*Tile, s.cols*s.rows)
	for _, t := range s.tiles {
		i := int((t.XRef - s.xref) / tw)
		j := int((t.YRef - s.yref) / th)
		if grid[j*s.cols+i] != nil {
			return fmt.Errorf("tile set: duplicate tile at (%d, %d)", i, j)
		}
		grid[j*s.cols+i] = t
	}
	s.tiles = grid

	if s.budget == 0 {
		for _, t := range s.tiles {
			if t == nil {
				continue
			}
			if err := t.LoadPoints(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cols returns the number of tile columns.
func (s *TileSet) Cols() int { return s.cols }

// Rows returns the number of tile rows.
func (s *TileSet) Rows() int { return s.rows }

// CellSize returns the cell pitch in millimetres.
func (s *TileSet) CellSize() int32 { return s.cellSize }

// TileCols returns the cells per tile along X.
func (s *TileSet) TileCols() int { return s.tileCols }

// TileRows returns the cells per tile along Y.
func (s *TileSet) TileRows() int { return s.tileRows }

// XRef returns the grid origin X in millimetres.
func (s *TileSet) XRef() int64 { return s.xref }

// YRef returns the grid origin Y in millimetres.
func (s *TileSet) YRef() int64 { return s.yref }

// ResidentBytes returns the current resident payload size.
func (s *TileSet) ResidentBytes() int64 { return s.resident }

// Tile returns the tile at grid position (i, j), or nil when absent.
func (s *TileSet) Tile(i, j int) *Tile {
	if i < 0 || j < 0 || i >= s.cols || j >= s.rows {
		return nil
	}
	return s.tiles[j*s.cols+i]
}

// CollectPoints appends the points of the global cell (cx, cy) to pts
// and reports whether the containing tile was resident. In budgeted
// mode a miss loads the tile (evicting as needed) and still reports
// false for this call, so callers can count out-of-buffer requests.
func (s *TileSet) CollectPoints(pts *[]geom.Point3i, cx, cy int) bool {
	ti := cx / s.tileCols
	tj := cy / s.tileRows
	t := s.Tile(ti, tj)
	if t == nil {
		return false
	}
	if !t.Loaded() {
		if s.budget == 0 {
			return false
		}
		s.OutCount++
		if err := s.load(t); err != nil {
			monitoring.Logf("tile load failed: %v", err)
			return false
		}
		*pts = append(*pts, t.CellPoints(cx%s.tileCols, cy%s.tileRows)...)
		return false
	}
	s.touch(t)
	*pts = append(*pts, t.CellPoints(cx%s.tileCols, cy%s.tileRows)...)
	return true
}

// NextTile loads the next tile of the grid into the buffer and returns
// its index, or -1 when all tiles have been visited. Used by the
// seed-consumption loop in budgeted mode.
func (s *TileSet) NextTile() int {
	for s.next < len(s.tiles) {
		k := s.next
		s.next++
		t := s.tiles[k]
		if t == nil {
			continue
		}
		if err := s.load(t); err != nil {
			monitoring.Logf("tile load failed: %v", err)
			continue
		}
		return k
	}
	return -1
}

func (s *TileSet) load(t *Tile) error {
	if t.Loaded() {
		s.touch(t)
		return nil
	}
	need := t.PayloadBytes()
	for s.budget > 0 && s.resident+need > s.budget && s.lru.Len() > 0 {
		back := s.lru.Back()
		victim := back.Value.(*Tile)
		s.lru.Remove(back)
		delete(s.inBuf, victim)
		s.resident -= victim.PayloadBytes()
		victim.Release()
	}
	if err := t.LoadPoints(); err != nil {
		return err
	}
	s.resident += need
	s.inBuf[t] = s.lru.PushFront(t)
	return nil
}

func (s *TileSet) touch(t *Tile) {
	if e, ok := s.inBuf[t]; ok {
		s.lru.MoveToFront(e)
	}
}
