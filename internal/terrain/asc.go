package terrain

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"github.com/banshee-data/roadtrace/internal/geom"
)

// wordReader tokenizes a whitespace-separated text file, latching the
// first error so callers can check once after a run of reads.
type wordReader struct {
	sc  *bufio.Scanner
	err error
}

func newWordReader(f *os.File) *wordReader {
	sc := bufio.NewScanner(f)
	sc.Split(bufio.ScanWords)
	return &wordReader{sc: sc}
}

func (w *wordReader) text() string {
	if w.err != nil {
		return ""
	}
	if !w.sc.Scan() {
		if err := w.sc.Err(); err != nil {
			w.err = err
		} else {
			w.err = fmt.Errorf("unexpected end of file")
		}
		return ""
	}
	return w.sc.Text()
}

func (w *wordReader) int() int {
	t := w.text()
	if w.err != nil {
		return 0
	}
	v, err := strconv.Atoi(t)
	if err != nil {
		w.err = err
		return 0
	}
	return v
}

func (w *wordReader) float() float64 {
	t := w.text()
	if w.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(t, 64)
	if err != nil {
		w.err = err
		return 0
	}
	return v
}

// AddDTMFile registers a DTM height grid (ASC format) and arranges it
// against the tiles already entered. The map itself is built by
// CreateMapFromDTM once all files are in. Grid-referenced files carry
// one extra row and column of duplicated edge samples.
func (m *Map) AddDTMFile(name string, gridRef bool) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("terrain: %w", err)
	}
	defer f.Close()

	w := newWordReader(f)
	w.text()
	width := w.int()
	if gridRef {
		width--
	}
	w.text()
	height := w.int()
	if gridRef {
		height--
	}
	w.text()
	xllc := float64(int(w.float() + 0.5))
	w.text()
	yllc := float64(int(w.float() + 0.5))
	w.text()
	csize := float32(w.float())
	if w.err != nil {
		return fmt.Errorf("parse %s header: %w", name, w.err)
	}

	if m.iwidth == 0 {
		m.twidth = width
		m.theight = height
		m.iwidth = width
		m.iheight = height
		m.xMin = xllc
		m.yMin = yllc
		m.cellSize = csize
		m.noData = 0
		m.layout = append(m.layout, geom.Point2i{})
	} else {
		if width != m.twidth {
			return fmt.Errorf("%s: inconsistent width", name)
		}
		if height != m.theight {
			return fmt.Errorf("%s: inconsistent height", name)
		}
		if csize != m.cellSize {
			return fmt.Errorf("%s: inconsistent cell size", name)
		}

		cs := float64(csize)
		shift := ((xllc - m.xMin) / cs) / float64(width)
		xshift := roundShift(shift)
		if !aligned(xllc, m.xMin+float64(xshift)*cs*float64(width)) {
			return fmt.Errorf("%s: xllc irregular", name)
		}
		shift = ((yllc - m.yMin) / cs) / float64(height)
		yshift := roundShift(shift)
		if !aligned(yllc, m.yMin+float64(yshift)*cs*float64(height)) {
			return fmt.Errorf("%s: yllc irregular", name)
		}

		if xshift < 0 || yshift < 0 {
			for k := range m.layout {
				if xshift < 0 {
					m.layout[k].X -= xshift
				}
				if yshift < 0 {
					m.layout[k].Y -= yshift
				}
			}
			if xshift < 0 {
				m.iwidth -= xshift * width
				xshift = 0
				m.xMin = xllc
			}
			if yshift < 0 {
				m.iheight -= yshift * height
				yshift = 0
				m.yMin = yllc
			}
		}
		m.layout = append(m.layout, geom.Point2i{X: xshift, Y: yshift})
		if m.iwidth/width <= xshift {
			m.iwidth = (xshift + 1) * width
		}
		if m.iheight/height <= yshift {
			m.iheight = (yshift + 1) * height
		}
	}

	m.fullNames = append(m.fullNames, name)
	m.xMins = append(m.xMins, xllc)
	m.yMins = append(m.yMins, yllc)
	return nil
}

func roundShift(shift float64) int {
	if shift < 0 {
		return int(shift - 0.5)
	}
	return int(shift + 0.5)
}

func aligned(got, want float64) bool {
	d := got - want
	return d >= -layoutEps && d <= layoutEps
}

// AddDTMName registers a tile nick name (no directory, no suffix).
func (m *Map) AddDTMName(name string) {
	m.nickNames = append(m.nickNames, name)
}

// GetLayoutInfo returns the nick name and lower-left corner of the
// tile arranged at layout position lay.
func (m *Map) GetLayoutInfo(lay geom.Point2i) (name string, xmin, ymin float64, ok bool) {
	for k := range m.layout {
		if m.layout[k].Equal(lay) {
			return m.nickNames[k], m.xMins[k], m.yMins[k], true
		}
	}
	return "", 0, 0, false
}

// CreateMapFromDTM reads the registered ASC files and derives the
// normal map from their heights. Normals use central differences,
// one-sided at raster borders, with relief amplification applied.
func (m *Map) CreateMapFromDTM(gridRef bool) error {
	isz := m.iwidth * m.iheight
	if gridRef {
		isz = (m.iwidth + 1) * (m.iheight + 1)
	}
	hval := make([]float64, isz)
	for i := range hval {
		hval[i] = m.noData
	}

	for k, lay := range m.layout {
		dx := lay.X * m.twidth
		dy := (m.iheight/m.theight - 1 - lay.Y) * m.theight
		f, err := os.Open(m.fullNames[k])
		if err != nil {
			return fmt.Errorf("terrain: %w", err)
		}
		w := newWordReader(f)
		for i := 0; i < 11; i++ {
			w.text()
		}
		nodata := w.float()

		locTH, locTW := m.theight, m.twidth
		if gridRef {
			locTH++
			locTW++
		}
		for j := 0; j < locTH; j++ {
			for i := 0; i < locTW; i++ {
				hv := w.float()
				if hv == nodata {
					hv = m.noData
				}
				hval[(dy+j)*m.iwidth+dx+i] = hv
			}
		}
		f.Close()
		if w.err != nil {
			return fmt.Errorf("parse %s: %w", m.fullNames[k], w.err)
		}
	}

	m.nmap = make([]geom.Point3f, m.iwidth*m.iheight)
	k := 0
	var dhx, dhy float64
	for j := 0; j < m.iheight; j++ {
		for i := 0; i < m.iwidth; i++ {
			at := func(jj, ii int) float64 { return hval[jj*m.iwidth+ii] }
			if gridRef {
				dhy = (at(j+1, i) - at(j, i)) * 2 * ReliefAmpli
				dhx = (at(j, i+1) - at(j, i)) * 2 * ReliefAmpli
			} else {
				switch {
				case j == m.iheight-1:
					dhy = (at(j, i) - at(j-1, i)) * 2 * ReliefAmpli
				case j == 0:
					dhy = (at(j+1, i) - at(j, i)) * 2 * ReliefAmpli
				default:
					dhy = (at(j+1, i) - at(j-1, i)) * ReliefAmpli
				}
				switch {
				case i == m.iwidth-1:
					dhx = (at(j, i) - at(j, i-1)) * 2 * ReliefAmpli
				case i == 0:
					dhx = (at(j, i+1) - at(j, i)) * 2 * ReliefAmpli
				default:
					dhx = (at(j, i+1) - at(j, i-1)) * ReliefAmpli
				}
			}
			n := geom.Point3f{X: -float32(dhx), Y: -float32(dhy), Z: 1}
			n.Normalize()
			m.nmap[k] = n
			k++
		}
	}
	return nil
}

// LoadDTMInfo reads the geometry of an ASC file without its heights,
// sizing the map to that single tile.
func (m *Map) LoadDTMInfo(name string) error {
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("terrain: %w", err)
	}
	defer f.Close()
	w := newWordReader(f)
	w.text()
	m.twidth = w.int()
	w.text()
	m.theight = w.int()
	w.text()
	xllc := w.float()
	w.text()
	yllc := w.float()
	w.text()
	m.cellSize = float32(w.float())
	if w.err != nil {
		return fmt.Errorf("parse %s header: %w", name, w.err)
	}
	m.xMin = float64(int(xllc + 0.5))
	m.yMin = float64(int(yllc + 0.5))
	m.iwidth = m.twidth
	m.iheight = m.theight
	return nil
}
