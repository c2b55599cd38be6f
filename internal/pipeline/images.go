package pipeline

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"math/rand"
	"os"

	"github.com/banshee-data/roadtrace/internal/fbsd"
	"github.com/banshee-data/roadtrace/internal/geom"
	"github.com/banshee-data/roadtrace/internal/gradient"
	"github.com/banshee-data/roadtrace/internal/seeds"
)

const segmentPaletteSeed = 0x5bd1e995

// WriteGreyPNG writes a row-0-north grey raster as a PNG image.
func WriteGreyPNG(path string, width, height int, pix []byte) error {
	if len(pix) != width*height {
		return fmt.Errorf("grey png %s: %d bytes for %dx%d raster",
			path, len(pix), width, height)
	}
	img := &image.Gray{Pix: pix, Stride: width,
		Rect: image.Rect(0, 0, width, height)}
	return writePNG(path, img)
}

// WriteSobelPNG writes the gradient magnitude as a grey PNG, scaled
// to the largest magnitude of the map.
func WriteSobelPNG(path string, m *gradient.Map) error {
	w, h := m.Width(), m.Height()
	norms := make([]float64, w*h)
	max := 0.0
	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			n := math.Sqrt(float64(m.SqNorm(i, j)))
			norms[j*w+i] = n
			if n > max {
				max = n
			}
		}
	}
	pix := make([]byte, w*h)
	if max > 0 {
		for k, n := range norms {
			pix[k] = byte(n * 255 / max)
		}
	}
	return WriteGreyPNG(path, w, h, pix)
}

// WriteSegmentsPNG draws the detected segments in false colour over a
// white or grey-shading background. Segment colours are deterministic
// and kept dark enough to read against a light backdrop.
func WriteSegmentsPNG(path string, width, height int, segs []fbsd.DSS,
	background []byte) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			g := uint8(255)
			if background != nil {
				g = background[j*width+i]
			}
			img.SetRGBA(i, j, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}

	rng := rand.New(rand.NewSource(segmentPaletteSeed))
	for _, d := range segs {
		var r, g, b int
		for {
			r, g, b = rng.Intn(256), rng.Intn(256), rng.Intn(256)
			if r+g+b <= 300 {
				break
			}
		}
		c := color.RGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
		x1, y1, x2, y2 := d.NaiveLine()
		for _, p := range geom.LinePoints(
			geom.Point2i{X: int(x1.Float() + 0.5), Y: int(y1.Float() + 0.5)},
			geom.Point2i{X: int(x2.Float() + 0.5), Y: int(y2.Float() + 0.5)}) {
			if p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height {
				img.SetRGBA(p.X, p.Y, c)
			}
		}
	}
	return writePNG(path, img)
}

// WriteSeedsPNG draws the seed strokes in red over a white or
// grey-shading background. Stroke coordinates count rows from the
// south grid corner and are flipped into image rows.
func WriteSeedsPNG(path string, width, height int, set *seeds.Set,
	background []byte) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for j := 0; j < height; j++ {
		for i := 0; i < width; i++ {
			g := uint8(255)
			if background != nil {
				g = background[j*width+i]
			}
			img.SetRGBA(i, j, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}

	red := color.RGBA{R: 200, A: 255}
	for _, st := range set.Ordered() {
		for _, p := range geom.LinePoints(st.P1, st.P2) {
			if p.X >= 0 && p.X < width && p.Y >= 0 && p.Y < height {
				img.SetRGBA(p.X, height-1-p.Y, red)
			}
		}
	}
	return writePNG(path, img)
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}
