package pipeline

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

type byteMapHeader struct {
	Width    int32
	Height   int32
	CellSize float32
}

// SaveByteMap writes a grey raster with its grid header. The raster
// is stored row 0 north, one byte per cell.
func SaveByteMap(path string, width, height int, cellSize float32,
	pix []byte) error {
	if len(pix) != width*height {
		return fmt.Errorf("save %s: %d bytes for %dx%d raster",
			path, len(pix), width, height)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	h := byteMapHeader{Width: int32(width), Height: int32(height),
		CellSize: cellSize}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		f.Close()
		return fmt.Errorf("write %s header: %w", path, err)
	}
	if _, err := w.Write(pix); err != nil {
		f.Close()
		return fmt.Errorf("write %s payload: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadByteMap reads a raster written by SaveByteMap.
func LoadByteMap(path string) (width, height int, cellSize float32,
	pix []byte, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, 0, nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)
	var h byteMapHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return 0, 0, 0, nil, fmt.Errorf("read %s header: %w", path, err)
	}
	if h.Width <= 0 || h.Height <= 0 {
		return 0, 0, 0, nil, fmt.Errorf("%s: inconsistent header %dx%d",
			path, h.Width, h.Height)
	}
	pix = make([]byte, int(h.Width)*int(h.Height))
	if _, err := io.ReadFull(r, pix); err != nil {
		return 0, 0, 0, nil, fmt.Errorf("read %s payload: %w", path, err)
	}
	return int(h.Width), int(h.Height), h.CellSize, pix, nil
}
