package seeds

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

type fileHeader struct {
	Width    int32
	Height   int32
	CellSize float32
	TileCols int32
	TileRows int32
	Count    int32
}

// Save writes the strokes in boustrophedon tile order after a header
// carrying the raster extent, cell size and tile grid.
func Save(name string, s *Set, width, height int, cellSize float32) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("seeds: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	h := fileHeader{
		Width:    int32(width),
		Height:   int32(height),
		CellSize: cellSize,
		TileCols: int32(s.TileCols),
		TileRows: int32(s.TileRows),
		Count:    int32(s.Count),
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	quad := make([]int32, 4)
	for _, st := range s.Ordered() {
		quad[0] = int32(st.P1.X)
		quad[1] = int32(st.P1.Y)
		quad[2] = int32(st.P2.X)
		quad[3] = int32(st.P2.Y)
		if err := binary.Write(w, binary.LittleEndian, quad); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return w.Flush()
}

// Load reads a stroke file written by Save and rebuckets the strokes
// on its tile grid by stroke midpoint. It also returns the raster
// extent and cell size of the header.
func Load(name string) (s *Set, width, height int, cellSize float32, err error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, 0, 0, 0, fmt.Errorf("seeds: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var h fileHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, 0, 0, 0, fmt.Errorf("read %s header: %w", name, err)
	}
	if h.Width <= 0 || h.Height <= 0 || h.TileCols <= 0 || h.TileRows <= 0 {
		return nil, 0, 0, 0, fmt.Errorf("%s: inconsistent seed grid", name)
	}
	if h.Count < 0 {
		return nil, 0, 0, 0, fmt.Errorf("%s: negative stroke count", name)
	}
	tw := int(h.Width) / int(h.TileCols)
	th := int(h.Height) / int(h.TileRows)
	s = NewSet(int(h.TileCols), int(h.TileRows))
	quad := make([]int32, 4)
	for k := int32(0); k < h.Count; k++ {
		if err := binary.Read(r, binary.LittleEndian, quad); err != nil {
			return nil, 0, 0, 0, fmt.Errorf("read %s: %w", name, err)
		}
		var st Stroke
		st.P1.X, st.P1.Y = int(quad[0]), int(quad[1])
		st.P2.X, st.P2.Y = int(quad[2]), int(quad[3])
		tx := ((st.P1.X + st.P2.X) / 2) / tw
		if tx < 0 {
			tx = 0
		} else if tx >= s.TileCols {
			tx = s.TileCols - 1
		}
		ty := ((st.P1.Y + st.P2.Y) / 2) / th
		if ty < 0 {
			ty = 0
		} else if ty >= s.TileRows {
			ty = s.TileRows - 1
		}
		s.Add(tx, ty, st)
	}
	return s, int(h.Width), int(h.Height), h.CellSize, nil
}
