package pipeline

import (
	"fmt"

	"github.com/banshee-data/roadtrace/internal/gradient"
	"github.com/banshee-data/roadtrace/internal/roadmap"
	"github.com/banshee-data/roadtrace/internal/seeds"
)

// CompareSeedFiles counts the strokes present in exactly one of the
// two seed files. Bucket layout differences count as an error, not a
// difference.
func CompareSeedFiles(a, b string) (int, error) {
	sa, _, _, _, err := seeds.Load(a)
	if err != nil {
		return 0, err
	}
	sb, _, _, _, err := seeds.Load(b)
	if err != nil {
		return 0, err
	}
	if sa.TileCols != sb.TileCols || sa.TileRows != sb.TileRows {
		return 0, fmt.Errorf("seed grids differ: %dx%d vs %dx%d",
			sa.TileCols, sa.TileRows, sb.TileCols, sb.TileRows)
	}

	diff := 0
	for ty := 0; ty < sa.TileRows; ty++ {
		for tx := 0; tx < sa.TileCols; tx++ {
			counts := make(map[seeds.Stroke]int)
			for _, st := range sa.Bucket(tx, ty) {
				counts[st]++
			}
			for _, st := range sb.Bucket(tx, ty) {
				counts[st]--
			}
			for _, n := range counts {
				if n < 0 {
					n = -n
				}
				diff += n
			}
		}
	}
	return diff, nil
}

// CompareSobelMaps counts the cells whose gradient vector differs
// between two Sobel map files of the same geometry.
func CompareSobelMaps(a, b string) (int, error) {
	ma, err := gradient.Load(a)
	if err != nil {
		return 0, err
	}
	mb, err := gradient.Load(b)
	if err != nil {
		return 0, err
	}
	if ma.Width() != mb.Width() || ma.Height() != mb.Height() {
		return 0, fmt.Errorf("sobel maps differ in size: %dx%d vs %dx%d",
			ma.Width(), ma.Height(), mb.Width(), mb.Height())
	}

	diff := 0
	for j := 0; j < ma.Height(); j++ {
		for i := 0; i < ma.Width(); i++ {
			if ma.GX(i, j) != mb.GX(i, j) || ma.GY(i, j) != mb.GY(i, j) {
				diff++
			}
		}
	}
	return diff, nil
}

// CountRoadPixels returns the number of detection map cells assigned
// to a road.
func CountRoadPixels(m *roadmap.Map) int {
	n := 0
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			if m.ID(x, y) != 0 {
				n++
			}
		}
	}
	return n
}
