package terrain

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/roadtrace/internal/geom"
	"github.com/banshee-data/roadtrace/internal/monitoring"
)

// nvmHeader mirrors the fixed-size header of normal vector map files.
type nvmHeader struct {
	Width    int32
	Height   int32
	CellSize float32
	XMin     float32 // metres
	YMin     float32 // metres
}

// AddNormalMapFile registers a normal vector map file to assemble.
// It reports whether the file exists.
func (m *Map) AddNormalMapFile(name string) bool {
	f, err := os.Open(name)
	if err != nil {
		return false
	}
	f.Close()
	m.fullNames = append(m.fullNames, name)
	return true
}

// AssembleMap builds the normal map from the registered NVM files on a
// cols x rows tile grid anchored at (xmin, ymin) millimetres. With
// padding set, tile files are only arranged on the grid and their
// payloads are later streamed pad by pad.
func (m *Map) AssembleMap(cols, rows int, xmin, ymin int64, padding bool) error {
	if padding {
		m.tsCols = cols
		m.tsRows = rows
		m.arrFiles = make([]string, cols*rows)
	}
	m.twidth = 0
	m.theight = 0
	m.xMin = float64(xmin) * mm2m
	m.yMin = float64(ymin) * mm2m

	var wmap, hmap float64
	for _, name := range m.fullNames {
		f, err := os.Open(name)
		if err != nil {
			monitoring.Logf("terrain: %s can't be opened", name)
			continue
		}
		r := bufio.NewReader(f)
		var h nvmHeader
		if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
			f.Close()
			return fmt.Errorf("read %s header: %w", name, err)
		}
		if m.twidth != 0 {
			if int(h.Width) != m.twidth {
				f.Close()
				return fmt.Errorf("%s: distinct width", name)
			}
			if int(h.Height) != m.theight {
				f.Close()
				return fmt.Errorf("%s: distinct height", name)
			}
			if h.CellSize != m.cellSize {
				f.Close()
				return fmt.Errorf("%s: distinct cell size", name)
			}
			if padding {
				dx := float64(int(h.XMin+0.5)) - m.xMin
				if dx < 0 {
					dx = -dx
				}
				if int(dx+0.5)%int(wmap+0.5) != 0 {
					f.Close()
					return fmt.Errorf("%s: X axis aperiodicity", name)
				}
				dy := float64(int(h.YMin+0.5)) - m.yMin
				if dy < 0 {
					dy = -dy
				}
				if int(dy+0.5)%int(hmap+0.5) != 0 {
					f.Close()
					return fmt.Errorf("%s: Y axis aperiodicity", name)
				}
			}
		} else {
			m.twidth = int(h.Width)
			m.theight = int(h.Height)
			m.cellSize = h.CellSize
			m.iwidth = cols * m.twidth
			m.iheight = rows * m.theight
			if !padding {
				m.nmap = make([]geom.Point3f, m.iwidth*m.iheight)
			}
		}
		wmap = float64(m.twidth) * float64(m.cellSize)
		hmap = float64(m.theight) * float64(m.cellSize)
		loci := int((float64(h.XMin) - m.xMin + wmap/2) / wmap)
		locj := int((float64(h.YMin) - m.yMin + hmap/2) / hmap)
		if padding {
			m.arrFiles[locj*cols+loci] = name
		} else if err := m.readPayload(r, name, loci, locj); err != nil {
			f.Close()
			return err
		}
		f.Close()
	}
	return nil
}

// readPayload reads one tile payload into the map raster. Payload rows
// come south edge first while the raster keeps row 0 north.
func (m *Map) readPayload(r *bufio.Reader, name string, loci, locj int) error {
	r0 := m.iheight - 1 - locj*m.theight
	c0 := loci * m.twidth
	row := make([]geom.Point3f, m.twidth)
	for fr := 0; fr < m.theight; fr++ {
		if err := binary.Read(r, binary.LittleEndian, row); err != nil {
			return fmt.Errorf("read %s payload: %w", name, err)
		}
		copy(m.nmap[(r0-fr)*m.iwidth+c0:(r0-fr)*m.iwidth+c0+m.twidth], row)
	}
	return nil
}

// LoadNVMInfo reads the geometry of a normal vector map file without
// its payload, sizing the map to that single tile.
func (m *Map) LoadNVMInfo(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("terrain: %w", err)
	}
	defer f.Close()
	var h nvmHeader
	if err := binary.Read(f, binary.LittleEndian, &h); err != nil {
		return fmt.Errorf("read %s header: %w", name, err)
	}
	m.twidth = int(h.Width)
	m.theight = int(h.Height)
	m.cellSize = h.CellSize
	m.xMin = float64(int64(h.XMin + 0.5))
	m.yMin = float64(int64(h.YMin + 0.5))
	m.iwidth = m.twidth
	m.iheight = m.theight
	return nil
}

// writeTile writes one tile header and payload, south row first,
// taking the payload from the raster at tile layout position lay.
func (m *Map) writeTile(path string, xmin, ymin float64, lay geom.Point2i) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("terrain: %w", err)
	}
	w := bufio.NewWriter(f)
	h := nvmHeader{
		Width:    int32(m.twidth),
		Height:   int32(m.theight),
		CellSize: m.cellSize,
		XMin:     float32(xmin),
		YMin:     float32(ymin),
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		f.Close()
		return err
	}
	r0 := m.iheight - 1 - lay.Y*m.theight
	c0 := lay.X * m.twidth
	for fr := 0; fr < m.theight; fr++ {
		line := m.nmap[(r0-fr)*m.iwidth+c0 : (r0-fr)*m.iwidth+c0+m.twidth]
		if err := binary.Write(w, binary.LittleEndian, line); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// SaveFirstNormalMap writes the first loaded tile as an NVM file.
func (m *Map) SaveFirstNormalMap(name string) error {
	if len(m.layout) == 0 {
		return fmt.Errorf("terrain: no tile loaded")
	}
	return m.writeTile(name, m.xMins[0], m.yMins[0], m.layout[0])
}

// SaveLoadedNormalMaps writes every loaded tile as an NVM file under
// dir, named by tile nick name.
func (m *Map) SaveLoadedNormalMaps(dir string) error {
	for k, nick := range m.nickNames {
		name := filepath.Join(dir, nick+NVMSuffix)
		if err := m.writeTile(name, m.xMins[k], m.yMins[k], m.layout[k]); err != nil {
			return err
		}
	}
	return nil
}

// SaveSubMap writes the raster cells of columns [imin, imax) and rows
// [jmin, jmax), south-up coordinates, as a new NVM tile at path.
func (m *Map) SaveSubMap(imin, jmin, imax, jmax int, path string) error {
	nw, nh := imax-imin, jmax-jmin
	xm := float64(int(m.xMin + float64(imin)*float64(m.cellSize) + 0.5))
	ym := float64(int(m.yMin + float64(jmin)*float64(m.cellSize) + 0.5))

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("terrain: %w", err)
	}
	w := bufio.NewWriter(f)
	h := nvmHeader{
		Width:    int32(nw),
		Height:   int32(nh),
		CellSize: m.cellSize,
		XMin:     float32(xm),
		YMin:     float32(ym),
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		f.Close()
		return err
	}
	r0 := m.iheight - 1 - jmin
	for fr := 0; fr < nh; fr++ {
		line := m.nmap[(r0-fr)*m.iwidth+imin : (r0-fr)*m.iwidth+imin+nw]
		if err := binary.Write(w, binary.LittleEndian, line); err != nil {
			f.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
