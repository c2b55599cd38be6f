package terrain

import (
	"math"

	"github.com/banshee-data/roadtrace/internal/geom"
)

// Shading selects how normal vectors are rendered to grey values.
type Shading int

const (
	// ShadeHill lights the relief with three fixed lamps.
	ShadeHill Shading = iota
	// ShadeSlope maps the terrain slope to darkness.
	ShadeSlope
	// ShadeExpSlope exaggerates slope contrast exponentially.
	ShadeExpSlope
)

// ReliefAmpli is the artificial relief amplification applied when
// deriving normals from height grids.
const ReliefAmpli = 5.0

// DefaultPadSize is the default pad side, in tile columns or rows.
const DefaultPadSize = 3

// NVMSuffix is the file extension of normal vector map tiles.
const NVMSuffix = ".nvm"

const (
	lightAngleIncrement = 0.03
	mm2m                = 0.001
	layoutEps           = 0.001
)

var (
	sqrt22 = float32(math.Sqrt2 / 2)
	sqrt32 = float32(math.Sqrt(3) / 2)
)

// Map holds a raster of ground normal vectors assembled from DTM
// tiles, plus the lighting state used to shade it.
type Map struct {
	twidth   int // tile width in cells
	theight  int // tile height in cells
	cellSize float32
	xMin     float64 // metres
	yMin     float64 // metres
	noData   float64

	iwidth  int
	iheight int
	nmap    []geom.Point3f

	shading    Shading
	lightAngle float32
	lightV1    geom.Point3f
	lightV2    geom.Point3f
	lightV3    geom.Point3f
	slopiness  int

	layout    []geom.Point2i
	fullNames []string
	nickNames []string
	xMins     []float64
	yMins     []float64

	// arrFiles maps tile grid slots to NVM file names in padded mode.
	arrFiles []string
	rowBuf   []geom.Point3f

	padSize int
	padW    int
	padH    int
	padRef  int
	tsCols  int
	tsRows  int
}

// NewMap returns an empty terrain map with hill shading and the
// lighting device at angle zero.
func NewMap() *Map {
	m := &Map{
		shading:   ShadeHill,
		slopiness: 1,
		padSize:   DefaultPadSize,
		padW:      DefaultPadSize,
		padH:      DefaultPadSize,
		padRef:    -1,
		tsCols:    1,
		tsRows:    1,
	}
	m.updateLights()
	return m
}

// Width returns the normal map width in cells.
func (m *Map) Width() int { return m.iwidth }

// Height returns the normal map height in cells.
func (m *Map) Height() int { return m.iheight }

// TileWidth returns one DTM tile width in cells.
func (m *Map) TileWidth() int { return m.twidth }

// TileHeight returns one DTM tile height in cells.
func (m *Map) TileHeight() int { return m.theight }

// CellSize returns the cell size in metres.
func (m *Map) CellSize() float32 { return m.cellSize }

// XMin returns the leftmost coordinate in metres.
func (m *Map) XMin() float64 { return m.xMin }

// YMin returns the lower coordinate in metres.
func (m *Map) YMin() float64 { return m.yMin }

// Normal returns the ground normal at cell (i, j), row 0 north.
func (m *Map) Normal(i, j int) geom.Point3f { return m.nmap[j*m.iwidth+i] }

// ShadingType returns the applied shading type.
func (m *Map) ShadingType() Shading { return m.shading }

// ToggleShadingType cycles through the shading types.
func (m *Map) ToggleShadingType() {
	m.shading++
	if m.shading > ShadeExpSlope {
		m.shading = ShadeHill
	}
}

// LightAngle returns the lighting device angle in radians.
func (m *Map) LightAngle() float32 { return m.lightAngle }

// IncLightAngle turns the lighting device by the given count of angle
// increments.
func (m *Map) IncLightAngle(steps int) {
	m.SetLightAngle(m.lightAngle + lightAngleIncrement*float32(steps))
}

// SetLightAngle sets the lighting device angle in radians.
func (m *Map) SetLightAngle(val float32) {
	m.lightAngle = val
	if m.lightAngle < 0 {
		m.lightAngle += float32(2 * math.Pi)
	} else if m.lightAngle >= float32(2*math.Pi) {
		m.lightAngle -= float32(2 * math.Pi)
	}
	m.updateLights()
}

func (m *Map) updateLights() {
	ang := float64(m.lightAngle)
	m.lightV1 = geom.Point3f{
		X: -float32(math.Cos(ang)) * sqrt22,
		Y: -float32(math.Sin(ang)) * sqrt22,
		Z: sqrt22,
	}
	ang += 2 * math.Pi / 3
	m.lightV2 = geom.Point3f{
		X: -float32(math.Cos(ang) / 2),
		Y: -float32(math.Sin(ang) / 2),
		Z: sqrt32,
	}
	ang += 2 * math.Pi / 3
	m.lightV3 = geom.Point3f{
		X: -float32(math.Cos(ang) / 2),
		Y: -float32(math.Sin(ang) / 2),
		Z: sqrt32,
	}
}

// SlopinessFactor returns the slope exponential factor.
func (m *Map) SlopinessFactor() int { return m.slopiness }

// IncSlopinessFactor shifts the slope exponential factor, floored at 1.
func (m *Map) IncSlopinessFactor(inc int) { m.SetSlopinessFactor(m.slopiness + inc) }

// SetSlopinessFactor sets the slope exponential factor, floored at 1.
func (m *Map) SetSlopinessFactor(val int) {
	m.slopiness = val
	if m.slopiness < 1 {
		m.slopiness = 1
	}
}

// Get returns the shade value of cell (i, j) under the current
// shading type.
func (m *Map) Get(i, j int) int { return m.GetShaded(i, j, m.shading) }

// GetShaded returns the shade value of cell (i, j) under the given
// shading type.
func (m *Map) GetShaded(i, j int, shading Shading) int {
	n := m.nmap[j*m.iwidth+i]
	switch shading {
	case ShadeHill:
		val1 := m.lightV1.Scalar(n)
		if val1 < 0 {
			val1 = 0
		}
		val2 := m.lightV2.Scalar(n)
		if val2 < 0 {
			val2 = 0
		}
		val3 := m.lightV3.Scalar(n)
		if val3 < 0 {
			val3 = 0
		}
		return int((val1 + (val2+val3)/2) * 100)
	case ShadeSlope:
		x, y := float64(n.X), float64(n.Y)
		return 255 - int(math.Sqrt(x*x+y*y)*255)
	case ShadeExpSlope:
		alph := 1 - float64(n.X)*float64(n.X) - float64(n.Y)*float64(n.Y)
		if alph < 0 {
			alph = 0
		}
		for sl := m.slopiness; sl > 1; sl-- {
			alph *= alph
		}
		return int(alph * 255)
	}
	return 0
}

// SlopeFactor returns the exponential slope value of cell (i, j) with
// the given exponential factor.
func (m *Map) SlopeFactor(i, j, slp int) float64 {
	n := m.nmap[j*m.iwidth+i]
	alph := 1 - float64(n.X)*float64(n.X) - float64(n.Y)*float64(n.Y)
	if alph < 0 {
		alph = 0
	}
	for sl := slp; sl > 1; sl-- {
		alph *= alph
	}
	return alph
}

// ClosestFlatArea returns the centre of the flattest area around pt.
// The search covers a (2*srad+1)-sided square; each candidate averages
// the exponential slope factor over a (2*frad+1)-sided neighbourhood
// with exponential factor sfact. Coordinates are south-up.
func (m *Map) ClosestFlatArea(pt geom.Point2i, srad, frad, sfact int) geom.Point2i {
	sxmin, sxmax := pt.X-srad, pt.X+srad+1
	symin, symax := pt.Y-srad, pt.Y+srad+1
	if sxmin < 0 {
		sxmin = 0
	}
	if symin < 0 {
		symin = 0
	}
	if sxmax > m.iwidth {
		sxmax = m.iwidth
	}
	if symax > m.iheight {
		symax = m.iheight
	}

	fxmin, fxmax := sxmin-frad, sxmax+frad
	fymin, fymax := symin-frad, symax+frad
	if fxmin < 0 {
		fxmin = 0
	}
	if fymin < 0 {
		fymin = 0
	}
	if fxmax > m.iwidth {
		fxmax = m.iwidth
	}
	if fymax > m.iheight {
		fymax = m.iheight
	}

	sw, sh := sxmax-sxmin, symax-symin
	val := make([]float64, sw*sh)
	cpt := make([]int, sw*sh)

	for fi := fxmin; fi < fxmax; fi++ {
		lxmin, lxmax := fi-frad-sxmin, fi+frad+1-sxmin
		if lxmin < 0 {
			lxmin = 0
		}
		if lxmax > sw {
			lxmax = sw
		}
		for fj := fymin; fj < fymax; fj++ {
			dval := m.SlopeFactor(fi, m.iheight-1-fj, sfact)
			lymin, lymax := fj-frad-symin, fj+frad+1-symin
			if lymin < 0 {
				lymin = 0
			}
			if lymax > sh {
				lymax = sh
			}
			for lj := lymin; lj < lymax; lj++ {
				for li := lxmin; li < lxmax; li++ {
					val[lj*sw+li] += dval
					cpt[lj*sw+li]++
				}
			}
		}
	}

	cmax := 0
	for i := range val {
		val[i] /= float64(cpt[i])
		if val[i] > val[cmax] {
			cmax = i
		}
	}
	return geom.Point2i{X: sxmin + cmax%sw, Y: symin + cmax/sw}
}
