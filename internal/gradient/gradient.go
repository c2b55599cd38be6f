// Package gradient derives integer gradient vector maps from shade
// rasters. The map feeds the blurred segment detector with per-pixel
// Sobel 5x5 responses; rows follow the raster convention, row 0 north.
package gradient

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

// sobel5 holds the x-derivative mask, offsets west to east and north
// to south. The y mask is its transpose.
var sobel5 = [25]int{
	-5, -4, 0, 4, 5,
	-8, -10, 0, 10, 8,
	-10, -20, 0, 20, 10,
	-8, -10, 0, 10, 8,
	-5, -4, 0, 4, 5,
}

// Map is an integer gradient vector raster.
type Map struct {
	width    int
	height   int
	cellSize float32
	gx       []int32
	gy       []int32
}

// NewSobelMap computes the Sobel 5x5 gradient of a shade raster. The
// two outermost pixel rings keep a null gradient.
func NewSobelMap(width, height int, cellSize float32, shade []byte) *Map {
	m := &Map{
		width:    width,
		height:   height,
		cellSize: cellSize,
		gx:       make([]int32, width*height),
		gy:       make([]int32, width*height),
	}
	for j := 2; j < height-2; j++ {
		for i := 2; i < width-2; i++ {
			var sx, sy int
			for dj := -2; dj <= 2; dj++ {
				row := (j + dj) * width
				for di := -2; di <= 2; di++ {
					v := int(shade[row+i+di])
					sx += sobel5[(dj+2)*5+di+2] * v
					sy += sobel5[(di+2)*5+dj+2] * v
				}
			}
			m.gx[j*width+i] = int32(sx)
			m.gy[j*width+i] = int32(sy)
		}
	}
	return m
}

// Width returns the raster width in pixels.
func (m *Map) Width() int { return m.width }

// Height returns the raster height in pixels.
func (m *Map) Height() int { return m.height }

// CellSize returns the cell size carried from the shade raster.
func (m *Map) CellSize() float32 { return m.cellSize }

// GX returns the gradient x component at pixel (i, j).
func (m *Map) GX(i, j int) int { return int(m.gx[j*m.width+i]) }

// GY returns the gradient y component at pixel (i, j).
func (m *Map) GY(i, j int) int { return int(m.gy[j*m.width+i]) }

// SqNorm returns the squared gradient magnitude at pixel (i, j).
func (m *Map) SqNorm(i, j int) int {
	x := int(m.gx[j*m.width+i])
	y := int(m.gy[j*m.width+i])
	return x*x + y*y
}

// In reports whether pixel (i, j) lies inside the raster.
func (m *Map) In(i, j int) bool {
	return i >= 0 && i < m.width && j >= 0 && j < m.height
}

type mapHeader struct {
	Width    int32
	Height   int32
	CellSize float32
}

// Save writes the gradient map as interleaved (gx, gy) int32 pairs
// after the standard raster header.
func (m *Map) Save(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("gradient: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	h := mapHeader{
		Width:    int32(m.width),
		Height:   int32(m.height),
		CellSize: m.cellSize,
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	pair := make([]int32, 2)
	for k := range m.gx {
		pair[0] = m.gx[k]
		pair[1] = m.gy[k]
		if err := binary.Write(w, binary.LittleEndian, pair); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return w.Flush()
}

// Load reads a gradient map written by Save.
func Load(name string) (*Map, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("gradient: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var h mapHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("read %s header: %w", name, err)
	}
	if h.Width <= 0 || h.Height <= 0 {
		return nil, fmt.Errorf("%s: inconsistent raster size", name)
	}
	m := &Map{
		width:    int(h.Width),
		height:   int(h.Height),
		cellSize: h.CellSize,
		gx:       make([]int32, int(h.Width)*int(h.Height)),
		gy:       make([]int32, int(h.Width)*int(h.Height)),
	}
	pair := make([]int32, 2)
	for k := range m.gx {
		if err := binary.Read(r, binary.LittleEndian, pair); err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		m.gx[k] = pair[0]
		m.gy[k] = pair[1]
	}
	return m, nil
}
