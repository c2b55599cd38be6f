package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// readLines returns the non-empty trimmed lines of a text file.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			out = append(out, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func writeLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// ResolveTiles turns the command line arguments into the tile names
// of the run. A single argument naming a set under the tilesets
// directory expands to that set's tiles; explicit tile names are used
// as given; no arguments repeats the last run. The resolved list is
// recorded as the last tiles for the next run.
func ResolveTiles(p Paths, args []string) ([]string, error) {
	var names []string
	switch {
	case len(args) == 0:
		last, err := readLines(p.LastTiles())
		if err != nil {
			return nil, fmt.Errorf("no tiles given and no previous run: %w", err)
		}
		names = last

	case len(args) == 1:
		set, err := readLines(p.SetFile(args[0]))
		if err == nil {
			names = set
			if err := writeLines(p.LastSet(), []string{args[0]}); err != nil {
				return nil, fmt.Errorf("record last set: %w", err)
			}
			break
		}
		names = args

	default:
		names = args
	}

	if len(names) == 0 {
		return nil, fmt.Errorf("empty tile list")
	}
	if err := writeLines(p.LastTiles(), names); err != nil {
		return nil, fmt.Errorf("record last tiles: %w", err)
	}
	return names, nil
}
