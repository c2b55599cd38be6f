package fbsd

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
)

type fileHeader struct {
	Width    int32
	Height   int32
	CellSize float32
}

type segRecord struct {
	A, B     int32
	Mu, Nu   int32
	Min, Max int32
}

// SaveSegments writes the segments after the standard raster header of
// the map they were detected on.
func SaveSegments(name string, width, height int, cellSize float32, segs []DSS) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("fbsd: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	h := fileHeader{Width: int32(width), Height: int32(height), CellSize: cellSize}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	if err := binary.Write(w, binary.LittleEndian, int32(len(segs))); err != nil {
		return fmt.Errorf("write %s count: %w", name, err)
	}
	for _, s := range segs {
		r := segRecord{
			A: int32(s.A), B: int32(s.B),
			Mu: int32(s.Mu), Nu: int32(s.Nu),
			Min: int32(s.Min), Max: int32(s.Max),
		}
		if err := binary.Write(w, binary.LittleEndian, r); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return w.Flush()
}

// LoadSegments reads a segment file written by SaveSegments.
func LoadSegments(name string) (width, height int, cellSize float32, segs []DSS, err error) {
	f, err := os.Open(name)
	if err != nil {
		return 0, 0, 0, nil, fmt.Errorf("fbsd: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var h fileHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return 0, 0, 0, nil, fmt.Errorf("read %s header: %w", name, err)
	}
	if h.Width <= 0 || h.Height <= 0 {
		return 0, 0, 0, nil, fmt.Errorf("%s: inconsistent raster size", name)
	}
	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return 0, 0, 0, nil, fmt.Errorf("read %s count: %w", name, err)
	}
	if count < 0 {
		return 0, 0, 0, nil, fmt.Errorf("%s: negative segment count", name)
	}
	segs = make([]DSS, 0, count)
	for k := int32(0); k < count; k++ {
		var rec segRecord
		if err := binary.Read(r, binary.LittleEndian, &rec); err != nil {
			return 0, 0, 0, nil, fmt.Errorf("read %s: %w", name, err)
		}
		segs = append(segs, DSS{
			A: int(rec.A), B: int(rec.B),
			Mu: int(rec.Mu), Nu: int(rec.Nu),
			Min: int(rec.Min), Max: int(rec.Max),
		})
	}
	return int(h.Width), int(h.Height), h.CellSize, segs, nil
}
