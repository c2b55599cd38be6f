// Command roadtrace extracts forest roads and carriage tracks from
// airborne LiDAR tiles. Without a step flag it runs the whole chain;
// each step flag replays one stage from the saved artefacts of the
// previous one.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/banshee-data/roadtrace/internal/config"
	"github.com/banshee-data/roadtrace/internal/pipeline"
	"github.com/banshee-data/roadtrace/internal/store"
	"github.com/banshee-data/roadtrace/internal/tiles"
)

var (
	importDTM   = flag.Bool("import-dtm", false, "Import DTM tiles (ASC to NVM)")
	importXYZ   = flag.Bool("import-xyz", false, "Import point clouds (XYZ to TIL)")
	importLidar = flag.Bool("import-lidar", false, "Import DTM and point clouds")
	importAll   = flag.Bool("import-all", false, "Import every tile found in the DTM and XYZ directories")
	altTile     = flag.Bool("alt-tile", false, "Derive the named tiles at the selected density from existing ones")
	shade       = flag.Bool("shade", false, "Run the shading step only")
	rorpo       = flag.Bool("rorpo", false, "Run the filtering step only")
	sobel       = flag.Bool("sobel", false, "Run the gradient step only")
	fbsdStep    = flag.Bool("fbsd", false, "Run the segment detection step only")
	seedsStep   = flag.Bool("seeds", false, "Run the seed generation step only")
	asd         = flag.Bool("asd", false, "Run the track detection step only")
	hill        = flag.Bool("hill", false, "Render a hill-shading image only")

	verbose      = flag.Bool("verbose", false, "Log step progress")
	saveMap      = flag.Bool("map", false, "Dump a PNG beside each step output")
	colorRoads   = flag.Bool("color", false, "Paint one colour per road in the road map")
	dtmBack      = flag.Bool("dtm", false, "Lay the DTM shading under output images")
	invert       = flag.Bool("invert", false, "Swap road and background polarity")
	connected    = flag.Bool("connected", false, "Only paint connected plateaux")
	export       = flag.Bool("export", false, "Export detected roads as a shapefile")
	exportBounds = flag.Bool("export-bounds", false, "Export road bounds instead of center lines")
	buffer       = flag.Int64("buffer", 0, "Point tile byte budget (0 keeps all tiles resident)")
	pad          = flag.Int("pad", config.DefaultPadSize, "Processed pad edge length in tiles, odd (0 disables pad streaming)")
	tail         = flag.Int("tail", 0, "Minimal consistent plateau sequence length (0 disables tail pruning)")
	half         = flag.Bool("half", false, "Work on half-size seeds")
	gridRef      = flag.Bool("grid", false, "DTM files carry grid-referenced samples")
	accessName   = flag.String("access", "top", "Point tile density: top, mid or eco")
	configPath   = flag.String("config", config.DefaultConfigPath, "Tuning configuration file")
)

func parseAccess(name string) (tiles.Access, error) {
	switch name {
	case "top":
		return tiles.AccessTop, nil
	case "mid":
		return tiles.AccessMid, nil
	case "eco":
		return tiles.AccessEco, nil
	}
	return 0, fmt.Errorf("unknown access level %q", name)
}

// loadConfig reads the tuning file and folds the explicit command line
// options over it.
func loadConfig() (*config.TuningConfig, error) {
	cfg := config.EmptyTuningConfig()
	if _, err := os.Stat(*configPath); err == nil {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "buffer":
			cfg.TileBudgetBytes = buffer
		case "pad":
			cfg.PadSize = pad
		case "tail":
			cfg.TailMinSize = tail
		case "half":
			cfg.HalfSize = half
		case "connected":
			cfg.Connected = connected
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	flag.Parse()
	paths := pipeline.DefaultPaths()

	access, err := parseAccess(*accessName)
	if err != nil {
		log.Fatalf("roadtrace: %v", err)
	}
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("roadtrace: %v", err)
	}

	steps := 0
	for _, on := range []bool{*importDTM, *importXYZ, *importLidar,
		*importAll, *altTile, *shade, *rorpo, *sobel, *fbsdStep,
		*seedsStep, *asd, *hill} {
		if on {
			steps++
		}
	}
	if steps > 1 {
		log.Fatalf("roadtrace: choose a single step")
	}

	switch {
	case *importDTM:
		err = pipeline.ImportDTM(paths, flag.Args(), *gridRef)
	case *importXYZ:
		err = pipeline.ImportXYZ(paths, flag.Args(), access)
	case *importLidar:
		err = pipeline.ImportLidar(paths, flag.Args(), *gridRef, access)
	case *importAll:
		err = pipeline.ImportAll(paths, *gridRef, access)
	case *altTile:
		for _, name := range flag.Args() {
			if err = pipeline.CreateAltTile(paths, name, access); err != nil {
				break
			}
		}
	default:
		err = runPipeline(paths, cfg)
	}
	if err != nil {
		log.Fatalf("roadtrace: %v", err)
	}
}

// runPipeline resolves the tile list, opens the run store and
// dispatches the selected detection step.
func runPipeline(paths pipeline.Paths, cfg *config.TuningConfig) error {
	names, err := pipeline.ResolveTiles(paths, flag.Args())
	if err != nil {
		return err
	}
	r := &pipeline.Runner{
		Cfg:           cfg,
		Paths:         paths,
		Tiles:         names,
		Verbose:       *verbose,
		SaveImages:    *saveMap,
		ColorRoads:    *colorRoads,
		DTMBackground: *dtmBack,
		Invert:        *invert,
		Export:        *export,
		ExportBounds:  *exportBounds,
	}
	if err := os.MkdirAll(paths.Results, 0o755); err != nil {
		return err
	}
	st, err := store.Open(paths.RunsDB())
	if err != nil {
		log.Printf("roadtrace: run store unavailable: %v", err)
	} else {
		r.Store = st
		defer st.Close()
	}

	switch {
	case *shade:
		return r.Shade()
	case *hill:
		return r.Hill()
	case *rorpo:
		return r.Rorpo()
	case *sobel:
		return r.Sobel()
	case *fbsdStep:
		return r.Fbsd()
	case *seedsStep:
		return r.Seeds()
	case *asd:
		return r.Asd()
	}
	return r.Full()
}
