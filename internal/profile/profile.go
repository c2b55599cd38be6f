// Package profile renders PNG charts of accepted carriage tracks: the
// height-vs-position cross profile of a single scan and the floor
// elevation along the track axis.
package profile

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/roadtrace/internal/geom"
	"github.com/banshee-data/roadtrace/internal/track"
)

var (
	pointColor = color.RGBA{R: 70, G: 70, B: 70, A: 255}
	floorColor = color.RGBA{R: 200, G: 40, B: 40, A: 255}
	boundColor = color.RGBA{R: 40, G: 90, B: 200, A: 255}
)

// CrossProfile plots the scan points of one profile with the detected
// plateau drawn over them: the floor segment between the plateau bounds
// and a vertical marker at each bound. pl may be nil to plot the raw
// profile alone.
func CrossProfile(path string, pts []geom.Point2f, pl *track.Plateau) error {
	if len(pts) == 0 {
		return fmt.Errorf("cross profile: no scan points")
	}

	p := plot.New()
	p.Title.Text = "Cross profile"
	p.X.Label.Text = "Position (m)"
	p.Y.Label.Text = "Height (m)"

	xys := make(plotter.XYs, len(pts))
	minH, maxH := pts[0].Y, pts[0].Y
	for i, pt := range pts {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
		if pt.Y < minH {
			minH = pt.Y
		}
		if pt.Y > maxH {
			maxH = pt.Y
		}
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return fmt.Errorf("cross profile scatter: %w", err)
	}
	scatter.Color = pointColor
	scatter.Radius = vg.Points(1.5)
	p.Add(scatter)
	p.Legend.Add("scan points", scatter)

	if pl != nil {
		floor, err := plotter.NewLine(plotter.XYs{
			{X: pl.InternalStart, Y: pl.MinHeight},
			{X: pl.InternalEnd, Y: pl.MinHeight},
		})
		if err != nil {
			return err
		}
		floor.Color = floorColor
		floor.Width = vg.Points(2)
		p.Add(floor)
		p.Legend.Add("plateau floor", floor)

		for _, x := range []float64{pl.InternalStart, pl.InternalEnd} {
			bound, err := plotter.NewLine(plotter.XYs{
				{X: x, Y: minH},
				{X: x, Y: maxH},
			})
			if err != nil {
				return err
			}
			bound.Color = boundColor
			bound.Width = vg.Points(1)
			bound.Dashes = []vg.Length{vg.Points(3), vg.Points(3)}
			p.Add(bound)
		}
	}

	p.Legend.Top = true
	if err := p.Save(10*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("save cross profile: %w", err)
	}
	return nil
}

// ElevationProfile plots the plateau floor height of every accepted
// scan against its curvilinear position along the track axis.
func ElevationProfile(path string, ct *track.CarriageTrack) error {
	step := ct.ScanStep()
	var pts plotter.XYs
	for num := -ct.RightScanCount(); num <= ct.LeftScanCount(); num++ {
		pl := ct.Plateau(num)
		if pl == nil || !pl.Accepted {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(num) * step, Y: pl.MinHeight})
	}
	if len(pts) == 0 {
		return fmt.Errorf("elevation profile: no accepted scans")
	}

	p := plot.New()
	p.Title.Text = "Track elevation"
	p.X.Label.Text = "Distance along track (m)"
	p.Y.Label.Text = "Floor height (m)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("elevation line: %w", err)
	}
	line.Color = floorColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("floor height", line)
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save elevation profile: %w", err)
	}
	return nil
}

// WidthProfile plots the detected plateau width of every accepted scan
// against its position along the track axis.
func WidthProfile(path string, ct *track.CarriageTrack) error {
	step := ct.ScanStep()
	var pts plotter.XYs
	for num := -ct.RightScanCount(); num <= ct.LeftScanCount(); num++ {
		pl := ct.Plateau(num)
		if pl == nil || !pl.Accepted {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(num) * step, Y: pl.Width()})
	}
	if len(pts) == 0 {
		return fmt.Errorf("width profile: no accepted scans")
	}

	p := plot.New()
	p.Title.Text = "Track width"
	p.X.Label.Text = "Distance along track (m)"
	p.Y.Label.Text = "Width (m)"

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("width line: %w", err)
	}
	line.Color = boundColor
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add("plateau width", line)
	p.Legend.Top = true

	if err := p.Save(10*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("save width profile: %w", err)
	}
	return nil
}
