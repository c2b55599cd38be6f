package terrain

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/banshee-data/roadtrace/internal/geom"
	"github.com/banshee-data/roadtrace/internal/monitoring"
)

// PadSize returns the assigned pad side in tile columns.
func (m *Map) PadSize() int { return m.padSize }

// PadWidth returns the processed pad width in tile columns.
func (m *Map) PadWidth() int { return m.padW }

// PadHeight returns the processed pad height in tile rows.
func (m *Map) PadHeight() int { return m.padH }

// SetPadSize sets the pad side. Only odd values are accepted.
func (m *Map) SetPadSize(val int) {
	if val >= 0 && val%2 == 1 {
		m.padSize = val
		m.padW = val
		m.padH = val
	}
}

// AdjustPadSize clamps the pad to the tile set extent.
func (m *Map) AdjustPadSize() {
	if m.padW > m.tsCols {
		m.padW = m.tsCols
	}
	if m.padH > m.tsRows {
		m.padH = m.tsRows
	}
}

// NextPad advances the pad over the tile grid and fills shade with the
// slope-shaded tile contents. Pads sweep the grid boustrophedon, west
// to east on even passes, keeping a two-tile overlap between
// successive positions. It returns the grid index of the pad's
// south-west tile, or -1 once the whole grid has been visited. The
// shade raster is padW*tileWidth wide and padH*tileHeight tall, row 0
// north.
func (m *Map) NextPad(shade []byte) int {
	tw, th := m.twidth, m.theight
	W := m.padW * tw

	switch {
	case m.padRef == -1:
		m.padRef = 0
		m.rowBuf = make([]geom.Point3f, tw)
		for j := 0; j < m.padH; j++ {
			for i := 0; i < m.padW; i++ {
				m.loadShade(j*m.tsCols+i, shade, m.shadeOffset(i, j))
			}
		}

	case ((m.padRef/m.tsCols)/(m.padH-2))%2 == 1:
		// Westward pass.
		if m.padRef%m.tsCols == 0 {
			if m.padRef+m.tsCols*m.padH >= m.tsCols*m.tsRows {
				m.padRef = -1
				m.rowBuf = nil
			} else {
				// Climb to the next pass on the west side.
				m.padRef += m.tsCols * (m.padH - 2)
				padEH := m.effectiveH()
				copy(shade[(m.padH-2)*th*W:m.padH*th*W], shade[:2*th*W])
				for j := 2; j < padEH; j++ {
					for i := 0; i < m.padW; i++ {
						m.loadShade(m.gridIndex(i, j), shade, m.shadeOffset(i, j))
					}
				}
				for j := padEH; j < m.padH; j++ {
					for i := 0; i < m.padW; i++ {
						m.clearShade(shade, m.shadeOffset(i, j))
					}
				}
			}
		} else {
			// One step west.
			m.padRef -= m.padW - 2
			padEH := m.effectiveH()
			for r := (m.padH - padEH) * th; r < m.padH*th; r++ {
				copy(shade[r*W+(m.padW-2)*tw:r*W+m.padW*tw], shade[r*W:r*W+2*tw])
			}
			for j := 0; j < padEH; j++ {
				for i := 0; i < m.padW-2; i++ {
					m.loadShade(m.gridIndex(i, j), shade, m.shadeOffset(i, j))
				}
			}
		}

	default:
		// Eastward pass.
		if m.padRef%m.tsCols+m.padW >= m.tsCols {
			if m.padRef+m.tsCols*m.padH >= m.tsCols*m.tsRows {
				m.padRef = -1
				m.rowBuf = nil
			} else {
				// Climb to the next pass on the east side.
				m.padRef += m.tsCols * (m.padH - 2)
				padEW := m.effectiveW()
				padEH := m.effectiveH()
				for r := 2*th - 1; r >= 0; r-- {
					dst := ((m.padH-2)*th + r) * W
					copy(shade[dst:dst+padEW*tw], shade[r*W:r*W+padEW*tw])
				}
				for j := 2; j < padEH; j++ {
					for i := 0; i < padEW; i++ {
						m.loadShade(m.gridIndex(i, j), shade, m.shadeOffset(i, j))
					}
				}
				for j := padEH; j < m.padH; j++ {
					for i := 0; i < padEW; i++ {
						m.clearShade(shade, m.shadeOffset(i, j))
					}
				}
			}
		} else {
			// One step east.
			m.padRef += m.padW - 2
			padEW := m.effectiveW()
			padEH := m.effectiveH()
			for r := (m.padH - padEH) * th; r < m.padH*th; r++ {
				copy(shade[r*W:r*W+2*tw], shade[r*W+(m.padW-2)*tw:r*W+m.padW*tw])
			}
			for j := 0; j < padEH; j++ {
				for i := 2; i < padEW; i++ {
					m.loadShade(m.gridIndex(i, j), shade, m.shadeOffset(i, j))
				}
				for i := padEW; i < m.padW; i++ {
					m.clearShade(shade, m.shadeOffset(i, j))
				}
			}
		}
	}
	return m.padRef
}

// effectiveW returns the count of pad columns inside the tile grid.
func (m *Map) effectiveW() int {
	ew := m.padW
	if m.padRef%m.tsCols+m.padW > m.tsCols {
		ew -= m.padRef%m.tsCols + m.padW - m.tsCols
	}
	return ew
}

// effectiveH returns the count of pad rows inside the tile grid.
func (m *Map) effectiveH() int {
	eh := m.padH
	if m.padRef/m.tsCols+m.padH > m.tsRows {
		eh -= m.padRef/m.tsCols + m.padH - m.tsRows
	}
	return eh
}

// gridIndex returns the tile grid index of the pad slot (i, j).
func (m *Map) gridIndex(i, j int) int {
	return (m.padRef/m.tsCols+j)*m.tsCols + m.padRef%m.tsCols + i
}

// shadeOffset returns the shade raster offset of the south-west byte
// run of pad slot (i, j). Tile rows are written northward from there,
// stepping back one raster row at a time.
func (m *Map) shadeOffset(i, j int) int {
	return ((m.padH-j)*m.theight-1)*(m.padW*m.twidth) + i*m.twidth
}

// loadShade renders one tile of the grid into the shade raster at the
// given offset, or zero-fills it when the grid slot has no tile. Load
// failures are logged and leave the slot zeroed.
func (m *Map) loadShade(k int, shade []byte, off int) {
	name := m.arrFiles[k]
	if name == "" {
		m.clearShade(shade, off)
		return
	}
	if err := m.renderTile(name, shade, off); err != nil {
		monitoring.Logf("terrain: %v", err)
		m.clearShade(shade, off)
	}
}

func (m *Map) renderTile(name string, shade []byte, off int) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var h nvmHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("read %s header: %w", name, err)
	}
	if int(h.Width) != m.twidth || int(h.Height) != m.theight {
		return fmt.Errorf("%s: inconsistent tile size", name)
	}
	if h.CellSize != m.cellSize {
		return fmt.Errorf("%s: inconsistent cell size", name)
	}
	W := m.padW * m.twidth
	for fr := 0; fr < m.theight; fr++ {
		if err := binary.Read(r, binary.LittleEndian, m.rowBuf); err != nil {
			return fmt.Errorf("read %s payload: %w", name, err)
		}
		row := shade[off-fr*W : off-fr*W+m.twidth]
		for i, n := range m.rowBuf {
			x, y := float64(n.X), float64(n.Y)
			val := 255 - int(math.Sqrt(x*x+y*y)*255)
			if val < 0 {
				val = 0
			} else if val > 255 {
				val = 255
			}
			row[i] = byte(val)
		}
	}
	return nil
}

// clearShade zero-fills one tile slot of the shade raster.
func (m *Map) clearShade(shade []byte, off int) {
	W := m.padW * m.twidth
	for fr := 0; fr < m.theight; fr++ {
		row := shade[off-fr*W : off-fr*W+m.twidth]
		for i := range row {
			row[i] = 0
		}
	}
}
