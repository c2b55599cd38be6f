// Command roadreport renders an HTML report of recorded detection runs:
// road counts across runs and per-road statistics for one run.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/roadtrace/internal/store"
)

func main() {
	dbPath := flag.String("db", "results/runs.db", "run store database")
	outPath := flag.String("out", "report.html", "output HTML file")
	runID := flag.String("run", "", "run to detail (default: most recent)")
	flag.Parse()

	s, err := store.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open run store: %v", err)
	}
	defer s.Close()

	runs, err := s.Runs()
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		log.Fatal("No runs recorded yet")
	}

	selected := runs[0]
	if *runID != "" {
		found := false
		for _, r := range runs {
			if r.ID == *runID {
				selected = r
				found = true
				break
			}
		}
		if !found {
			log.Fatalf("Unknown run %s", *runID)
		}
	}

	page := components.NewPage()
	page.AddCharts(runsChart(runs))

	detail, err := runDetailCharts(s, selected)
	if err != nil {
		log.Fatalf("Failed to build run detail: %v", err)
	}
	page.AddCharts(detail...)

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", *outPath, err)
	}
	if err := page.Render(f); err != nil {
		f.Close()
		log.Fatalf("Failed to render report: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Failed to close %s: %v", *outPath, err)
	}
	log.Printf("Report written to %s (run %s)", *outPath, selected.ID)
}

// runsChart shows road and unused-seed counts for every run, oldest
// first.
func runsChart(runs []store.Run) *charts.Bar {
	var x []string
	var roads, unused []opts.BarData
	for i := len(runs) - 1; i >= 0; i-- {
		r := runs[i]
		x = append(x, r.StartedAt.Format("01-02 15:04")+" "+r.Step)
		roads = append(roads, opts.BarData{Value: r.RoadCount})
		unused = append(unused, opts.BarData{Value: r.UnusedSeeds})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Roads per run",
			Subtitle: fmt.Sprintf("%d runs recorded", len(runs)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("roads", roads).
		AddSeries("unused seeds", unused)
	return bar
}

// runDetailCharts shows per-road length and mean width for one run.
func runDetailCharts(s *store.Store, run store.Run) ([]components.Charter, error) {
	roads, err := s.Roads(run.ID)
	if err != nil {
		return nil, err
	}
	sum, err := s.Summary(run.ID)
	if err != nil {
		return nil, err
	}

	var x []string
	var lengths []opts.BarData
	var widths []opts.LineData
	for _, r := range roads {
		x = append(x, fmt.Sprintf("road %d", r.Num))
		lengths = append(lengths, opts.BarData{Value: r.Length})
		widths = append(widths, opts.LineData{Value: r.MeanWidth})
	}

	lengthBar := charts.NewBar()
	lengthBar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Road lengths",
			Subtitle: fmt.Sprintf("run %s: %.0f m total", run.ID,
				sum.TotalLength),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	lengthBar.SetXAxis(x).AddSeries("length (m)", lengths)

	widthLine := charts.NewLine()
	widthLine.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: "Road widths",
			Subtitle: fmt.Sprintf("mean %.2f m, stddev %.2f m",
				sum.MeanWidth, sum.WidthStdDev),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	widthLine.SetXAxis(x).AddSeries("mean width (m)", widths,
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}))

	return []components.Charter{lengthBar, widthLine}, nil
}
