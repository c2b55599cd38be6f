package export

import (
	"bufio"
	"fmt"
	"math"
	"os"

	"github.com/banshee-data/roadtrace/internal/geom"
)

// WriteSuccessSeeds writes one accepted seed stroke per line as four
// projected millimetre coordinates. Strokes are consecutive point
// pairs of seeds; cellSize is the seed pixel pitch in meters and
// (xref, yref) the grid origin in millimetres.
func WriteSuccessSeeds(path string, seeds []geom.Point2i, cellSize float64,
	xref, yref int64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	mm := func(c int, ref int64) int64 {
		return ref + int64(math.Round((float64(c)+0.5)*cellSize*1000))
	}
	for i := 0; i+1 < len(seeds); i += 2 {
		p1, p2 := seeds[i], seeds[i+1]
		fmt.Fprintf(w, "%d %d %d %d\n",
			mm(p1.X, xref), mm(p1.Y, yref), mm(p2.X, xref), mm(p2.Y, yref))
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
