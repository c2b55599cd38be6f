package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/roadtrace/internal/geom"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err, "open store")
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, s.Close())

	// Re-opening an already migrated file is a no-op, not a failure.
	s2, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s2.Close())
}

func TestRunLifecycle(t *testing.T) {
	s := openTestStore(t)

	id, err := s.BeginRun("asd", "creuse", `{"pad":0}`)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, s.FinishRun(id, 120, 7, 13))

	runs, err := s.Runs()
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Equal(t, id, r.ID)
	assert.Equal(t, "asd", r.Step)
	assert.Equal(t, "creuse", r.TileSet)
	assert.Equal(t, 120, r.SeedCount)
	assert.Equal(t, 7, r.RoadCount)
	assert.Equal(t, 13, r.UnusedSeeds)
	assert.False(t, r.StartedAt.IsZero())
	assert.False(t, r.FinishedAt.Before(r.StartedAt))
}

func TestFinishUnknownRun(t *testing.T) {
	s := openTestStore(t)
	err := s.FinishRun("no-such-run", 0, 0, 0)
	assert.Error(t, err)
}

func TestRoadsAndSummary(t *testing.T) {
	s := openTestStore(t)
	id, err := s.BeginRun("asd", "creuse", "")
	require.NoError(t, err)

	for i, road := range []Road{
		{Length: 40, MeanWidth: 3.0, ScanCount: 80, Holes: 2},
		{Length: 25, MeanWidth: 4.0, ScanCount: 50, Holes: 0},
		{Length: 10, MeanWidth: 3.5, ScanCount: 20, Holes: 1},
	} {
		road.RunID = id
		road.Num = i + 1
		require.NoError(t, s.RecordRoad(road))
	}

	roads, err := s.Roads(id)
	require.NoError(t, err)
	require.Len(t, roads, 3)
	assert.Equal(t, 1, roads[0].Num)
	assert.Equal(t, 40.0, roads[0].Length)

	sum, err := s.Summary(id)
	require.NoError(t, err)
	assert.InDelta(t, 75.0, sum.TotalLength, 1e-9)
	assert.InDelta(t, 3.5, sum.MeanWidth, 1e-9)
	assert.InDelta(t, 0.5, sum.WidthStdDev, 1e-9)
}

func TestSummaryEmptyRun(t *testing.T) {
	s := openTestStore(t)
	id, err := s.BeginRun("seeds", "", "")
	require.NoError(t, err)

	sum, err := s.Summary(id)
	require.NoError(t, err)
	assert.Zero(t, sum.TotalLength)
	assert.Zero(t, sum.MeanWidth)

	_, err = s.Summary("missing")
	assert.Error(t, err)
}

func TestRecordSuccessSeeds(t *testing.T) {
	s := openTestStore(t)
	id, err := s.BeginRun("asd", "", "")
	require.NoError(t, err)

	seeds := []geom.Point2i{{X: 1, Y: 2}, {X: 5, Y: 2}, {X: 7, Y: 9}, {X: 11, Y: 9}}
	require.NoError(t, s.RecordSuccessSeeds(id, seeds, 0.5, 1000, 2000))

	var n int
	require.NoError(t, s.QueryRow(
		`SELECT COUNT(*) FROM success_seeds WHERE run_id = ?`, id).Scan(&n))
	assert.Equal(t, 2, n)

	var x1, y1, x2, y2 int64
	require.NoError(t, s.QueryRow(
		`SELECT x1_mm, y1_mm, x2_mm, y2_mm FROM success_seeds
		 WHERE run_id = ? AND seed_num = 0`, id).Scan(&x1, &y1, &x2, &y2))
	assert.Equal(t, int64(1750), x1)
	assert.Equal(t, int64(3250), y1)
	assert.Equal(t, int64(3750), x2)
	assert.Equal(t, int64(3250), y2)
}
