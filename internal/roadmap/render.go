package roadmap

import (
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
)

const paletteSeed = 0x9e3779b9

// RenderOptions selects how the detection map is painted.
type RenderOptions struct {
	// Background is an optional grey shading raster laid under the
	// roads, indexed like the map grid (row 0 south). Nil paints a
	// plain background.
	Background []uint8
	// Color assigns one colour per road id instead of monochrome
	// roads. The palette is deterministic across runs.
	Color bool
	// Invert swaps road and background polarity in monochrome mode.
	Invert bool
}

// Render paints the map north up into an image.
func (m *Map) Render(opts RenderOptions) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	var palette []color.RGBA
	if opts.Color {
		rng := rand.New(rand.NewSource(paletteSeed))
		palette = make([]color.RGBA, m.numRoads+1)
		for i := 1; i <= m.numRoads; i++ {
			palette[i] = color.RGBA{
				R: uint8(64 + rng.Intn(192)),
				G: uint8(64 + rng.Intn(192)),
				B: uint8(64 + rng.Intn(192)),
				A: 255,
			}
		}
	}
	road := color.RGBA{A: 255}
	ground := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if opts.Invert {
		road, ground = ground, road
	}
	for y := 0; y < m.height; y++ {
		py := m.height - 1 - y
		for x := 0; x < m.width; x++ {
			id := m.ids[y*m.width+x]
			switch {
			case id == 0 && opts.Background != nil:
				g := opts.Background[y*m.width+x]
				img.SetRGBA(x, py, color.RGBA{R: g, G: g, B: g, A: 255})
			case id == 0:
				img.SetRGBA(x, py, ground)
			case opts.Color:
				img.SetRGBA(x, py, palette[id])
			default:
				img.SetRGBA(x, py, road)
			}
		}
	}
	return img
}

// WritePNG renders the map and writes it to path.
func (m *Map) WritePNG(path string, opts RenderOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, m.Render(opts)); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
