// Command tilegen prepares detection inputs: it imports DTM height
// grids into normal-vector tiles and bins point clouds into ground
// tiles at the requested density.
package main

import (
	"flag"
	"log"

	"github.com/banshee-data/roadtrace/internal/pipeline"
	"github.com/banshee-data/roadtrace/internal/tiles"
)

var (
	dtmOnly = flag.Bool("dtm", false, "Only import the DTM height grids")
	xyzOnly = flag.Bool("xyz", false, "Only import the point clouds")
	all     = flag.Bool("all", false, "Import every tile found in the input directories")
	alt     = flag.Bool("alt", false, "Derive the named tiles at the selected density from existing ones")

	dtmDir     = flag.String("dtm-dir", "asc", "DTM tile directory")
	xyzDir     = flag.String("xyz-dir", "xyz", "Point cloud directory")
	nvmDir     = flag.String("nvm-dir", "nvm", "Normal map output directory")
	tilDir     = flag.String("til-dir", "til", "Point tile output directory")
	gridRef    = flag.Bool("grid", false, "DTM files carry grid-referenced samples")
	accessName = flag.String("access", "top", "Point tile density: top, mid or eco")
)

func access() tiles.Access {
	switch *accessName {
	case "top":
		return tiles.AccessTop
	case "mid":
		return tiles.AccessMid
	case "eco":
		return tiles.AccessEco
	}
	log.Fatalf("tilegen: unknown access level %q", *accessName)
	return 0
}

func main() {
	flag.Parse()
	p := pipeline.DefaultPaths()
	p.DTM = *dtmDir
	p.XYZ = *xyzDir
	p.NVM = *nvmDir
	p.Til = *tilDir

	names := flag.Args()
	var err error
	switch {
	case *all:
		err = pipeline.ImportAll(p, *gridRef, access())
	case *dtmOnly:
		err = pipeline.ImportDTM(p, names, *gridRef)
	case *xyzOnly:
		err = pipeline.ImportXYZ(p, names, access())
	case *alt:
		for _, name := range names {
			if err = pipeline.CreateAltTile(p, name, access()); err != nil {
				break
			}
		}
	default:
		err = pipeline.ImportLidar(p, names, *gridRef, access())
	}
	if err != nil {
		log.Fatalf("tilegen: %v", err)
	}
}
