// Package export writes the detection results to exchange formats:
// ESRI shapefiles of road centerlines and bounds, and the plain-text
// list of successful seeds.
package export

import (
	shp "github.com/jonas-p/go-shp"

	"github.com/banshee-data/roadtrace/internal/geom"
	"github.com/banshee-data/roadtrace/internal/track"
)

// WriteCenters writes the accepted centerlines of the tracks as a
// polyline shapefile. The grid origin (xref, yref) is given in
// projected meters.
func WriteCenters(path string, tracks []*track.CarriageTrack, xref, yref float64) error {
	return writeLines(path, tracks, xref, yref,
		(*track.CarriageTrack).CenterLine)
}

// WriteBounds writes the closed bound outlines of the tracks as a
// polyline shapefile.
func WriteBounds(path string, tracks []*track.CarriageTrack, xref, yref float64) error {
	return writeLines(path, tracks, xref, yref,
		(*track.CarriageTrack).BoundsLoop)
}

func writeLines(path string, tracks []*track.CarriageTrack, xref, yref float64,
	line func(*track.CarriageTrack) []geom.Point2f) error {
	w, err := shp.Create(path, shp.POLYLINE)
	if err != nil {
		return err
	}
	if err := w.SetFields([]shp.Field{shp.NumberField("ROAD", 10)}); err != nil {
		w.Close()
		return err
	}
	n := 0
	for _, ct := range tracks {
		pts := line(ct)
		if len(pts) < 2 {
			continue
		}
		coords := make([]shp.Point, len(pts))
		for i, p := range pts {
			coords[i] = shp.Point{X: xref + p.X, Y: yref + p.Y}
		}
		row := w.Write(shp.NewPolyLine([][]shp.Point{coords}))
		n++
		if err := w.WriteAttribute(int(row), 0, n); err != nil {
			w.Close()
			return err
		}
	}
	w.Close()
	return nil
}
