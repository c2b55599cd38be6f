package store

import (
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/roadtrace/internal/geom"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID          string
	Step        string
	TileSet     string
	Params      string
	StartedAt   time.Time
	FinishedAt  time.Time // zero until FinishRun
	SeedCount   int
	RoadCount   int
	UnusedSeeds int
}

// Road is one accepted carriage track within a run.
type Road struct {
	RunID     string
	Num       int
	Length    float64
	MeanWidth float64
	ScanCount int
	Holes     int
}

// RunSummary aggregates the roads of one run.
type RunSummary struct {
	Run
	TotalLength float64
	MeanWidth   float64
	WidthStdDev float64
}

const timeLayout = time.RFC3339Nano

// BeginRun inserts a new run record and returns its identifier.
func (s *Store) BeginRun(step, tileSet, params string) (string, error) {
	id := uuid.NewString()
	_, err := s.Exec(
		`INSERT INTO runs (run_id, step, tile_set, params, started_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id, step, tileSet, params, time.Now().UTC().Format(timeLayout),
	)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// FinishRun closes a run record with its final counters.
func (s *Store) FinishRun(runID string, seedCount, roadCount, unusedSeeds int) error {
	res, err := s.Exec(
		`UPDATE runs SET finished_at = ?, seed_count = ?, road_count = ?,
		 unused_seeds = ? WHERE run_id = ?`,
		time.Now().UTC().Format(timeLayout), seedCount, roadCount,
		unusedSeeds, runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// RecordRoad stores one accepted road of a run.
func (s *Store) RecordRoad(r Road) error {
	_, err := s.Exec(
		`INSERT INTO roads (run_id, road_num, length_m, mean_width,
		 scan_count, hole_count) VALUES (?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Num, r.Length, r.MeanWidth, r.ScanCount, r.Holes,
	)
	if err != nil {
		return fmt.Errorf("record road %d: %w", r.Num, err)
	}
	return nil
}

// RecordSuccessSeeds stores the seed strokes that produced accepted
// roads, as consecutive point pairs in projected millimetres. The
// coordinate convention matches the success-seed text export: cellSize
// is the seed pixel pitch in meters, (xref, yref) the grid origin in
// millimetres.
func (s *Store) RecordSuccessSeeds(runID string, seeds []geom.Point2i,
	cellSize float64, xref, yref int64) error {
	tx, err := s.Begin()
	if err != nil {
		return err
	}
	mm := func(c int, ref int64) int64 {
		return ref + int64(math.Round((float64(c)+0.5)*cellSize*1000))
	}
	for i := 0; i+1 < len(seeds); i += 2 {
		p1, p2 := seeds[i], seeds[i+1]
		_, err := tx.Exec(
			`INSERT INTO success_seeds (run_id, seed_num, x1_mm, y1_mm,
			 x2_mm, y2_mm) VALUES (?, ?, ?, ?, ?, ?)`,
			runID, i/2, mm(p1.X, xref), mm(p1.Y, yref),
			mm(p2.X, xref), mm(p2.Y, yref),
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("record seed %d: %w", i/2, err)
		}
	}
	return tx.Commit()
}

// Runs returns all recorded runs, most recent first.
func (s *Store) Runs() ([]Run, error) {
	rows, err := s.Query(
		`SELECT run_id, step, tile_set, params, started_at, finished_at,
		 seed_count, road_count, unused_seeds
		 FROM runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var tileSet, params sql.NullString
		var started string
		var finished sql.NullString
		if err := rows.Scan(&r.ID, &r.Step, &tileSet, &params, &started,
			&finished, &r.SeedCount, &r.RoadCount, &r.UnusedSeeds); err != nil {
			return nil, err
		}
		r.TileSet = tileSet.String
		r.Params = params.String
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s: bad started_at: %w", r.ID, err)
		}
		if finished.Valid {
			if r.FinishedAt, err = time.Parse(timeLayout, finished.String); err != nil {
				return nil, fmt.Errorf("run %s: bad finished_at: %w", r.ID, err)
			}
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Roads returns the roads of a run in acceptance order.
func (s *Store) Roads(runID string) ([]Road, error) {
	rows, err := s.Query(
		`SELECT run_id, road_num, length_m, mean_width, scan_count,
		 hole_count FROM roads WHERE run_id = ? ORDER BY road_num`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roads []Road
	for rows.Next() {
		var r Road
		if err := rows.Scan(&r.RunID, &r.Num, &r.Length, &r.MeanWidth,
			&r.ScanCount, &r.Holes); err != nil {
			return nil, err
		}
		roads = append(roads, r)
	}
	return roads, rows.Err()
}

// Summary returns the run record with its road statistics aggregated.
func (s *Store) Summary(runID string) (*RunSummary, error) {
	runs, err := s.Runs()
	if err != nil {
		return nil, err
	}
	var run *Run
	for i := range runs {
		if runs[i].ID == runID {
			run = &runs[i]
			break
		}
	}
	if run == nil {
		return nil, fmt.Errorf("summary: unknown run %s", runID)
	}

	roads, err := s.Roads(runID)
	if err != nil {
		return nil, err
	}
	sum := &RunSummary{Run: *run}
	if len(roads) == 0 {
		return sum, nil
	}
	lengths := make([]float64, len(roads))
	widths := make([]float64, len(roads))
	for i, r := range roads {
		lengths[i] = r.Length
		widths[i] = r.MeanWidth
	}
	sum.TotalLength = floats.Sum(lengths)
	sum.MeanWidth = stat.Mean(widths, nil)
	if len(widths) > 1 {
		sum.WidthStdDev = stat.StdDev(widths, nil)
	}
	return sum, nil
}
