package scanner

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/banshee-data/roadtrace/internal/geom"
)

func sortedPoints(pts []geom.Point2i) []geom.Point2i {
	out := append([]geom.Point2i(nil), pts...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].X != out[j].X {
			return out[i].X < out[j].X
		}
		return out[i].Y < out[j].Y
	})
	return out
}

func TestCentralScanJoinsEndpoints(t *testing.T) {
	p := NewProvider(20, 20)
	p1 := geom.Point2i{X: 3, Y: 5}
	p2 := geom.Point2i{X: 11, Y: 9}
	ds := p.GetScanner(p1, p2)

	scan := ds.First(nil)
	if len(scan) != 9 {
		t.Fatalf("central scan size = %d, want 9", len(scan))
	}
	if !scan[0].Equal(p2) {
		t.Errorf("scan starts at %v, want %v", scan[0], p2)
	}
	if !scan[len(scan)-1].Equal(p1) {
		t.Errorf("scan ends at %v, want %v", scan[len(scan)-1], p1)
	}
	for i := 1; i < len(scan); i++ {
		if scan[i-1].ChessboardTo(scan[i]) != 1 {
			t.Errorf("scan not connected at %d: %v -> %v", i, scan[i-1], scan[i])
		}
	}
	if !p.IsLastScanReversed() {
		t.Errorf("scans run from p2 to p1, reversed flag should be set")
	}
}

func TestStripInvariantAllOctants(t *testing.T) {
	dirs := []geom.Vec2i{
		{X: 7, Y: 3}, {X: 3, Y: 7}, {X: -7, Y: 3}, {X: -3, Y: 7},
		{X: 7, Y: -3}, {X: 3, Y: -7}, {X: -7, Y: -3}, {X: -3, Y: -7},
		{X: 6, Y: 0}, {X: 0, Y: 6}, {X: 5, Y: 5}, {X: -5, Y: 5},
	}
	for _, d := range dirs {
		p := NewProvider(41, 41)
		p1 := geom.Point2i{X: 20, Y: 20}
		p2 := geom.Point2i{X: 20 + d.X, Y: 20 + d.Y}
		ds := p.GetScanner(p1, p2)

		band := d.X + d.Y
		if d.X < 0 {
			band -= 2 * d.X
		}
		if d.Y < 0 {
			band -= 2 * d.Y
		}
		c1 := d.X*p1.X + d.Y*p1.Y
		c2 := d.X*p2.X + d.Y*p2.Y
		if c2 < c1 {
			c1, c2 = c2, c1
		}

		check := func(scan []geom.Point2i) {
			for _, pt := range scan {
				if pt.X < 0 || pt.X >= 41 || pt.Y < 0 || pt.Y >= 41 {
					t.Errorf("dir %v: pixel %v outside raster", d, pt)
				}
				proj := d.X*pt.X + d.Y*pt.Y
				if proj < c1 || proj >= c2+band {
					t.Errorf("dir %v: pixel %v offset %d outside [%d, %d)",
						d, pt, proj, c1, c2+band)
				}
			}
		}
		check(ds.First(nil))
		for i := 0; i < 5; i++ {
			check(ds.NextOnLeft(nil))
			check(ds.NextOnRight(nil))
		}
	}
}

func TestSuccessiveScansDisjoint(t *testing.T) {
	p := NewProvider(41, 41)
	ds := p.GetScanner(geom.Point2i{X: 16, Y: 18}, geom.Point2i{X: 25, Y: 23})

	seen := make(map[geom.Point2i]int)
	record := func(k int, scan []geom.Point2i) {
		if len(scan) == 0 {
			t.Fatalf("scan %d empty inside raster", k)
		}
		for _, pt := range scan {
			if prev, dup := seen[pt]; dup {
				t.Fatalf("pixel %v emitted by scans %d and %d", pt, prev, k)
			}
			seen[pt] = k
		}
	}
	record(0, ds.First(nil))
	for i := 1; i <= 6; i++ {
		record(i, ds.NextOnLeft(nil))
		record(-i, ds.NextOnRight(nil))
	}
}

func TestArgumentOrderIndifferent(t *testing.T) {
	p1 := geom.Point2i{X: 4, Y: 12}
	p2 := geom.Point2i{X: 13, Y: 6}

	pa := NewProvider(20, 20)
	fwd := pa.GetScanner(p1, p2).First(nil)
	fwdRev := pa.IsLastScanReversed()

	pb := NewProvider(20, 20)
	bwd := pb.GetScanner(p2, p1).First(nil)
	bwdRev := pb.IsLastScanReversed()

	if diff := cmp.Diff(sortedPoints(fwd), sortedPoints(bwd)); diff != "" {
		t.Errorf("central scans differ (-fwd +bwd):\n%s", diff)
	}
	if fwdRev == bwdRev {
		t.Errorf("reversed flags equal (%v) for swapped arguments", fwdRev)
	}
}

func TestCenteredScannerLength(t *testing.T) {
	cases := []struct {
		name string
		dir  geom.Vec2i
		horz bool
	}{
		{"horizontal", geom.Vec2i{X: 3, Y: 0}, true},
		{"vertical", geom.Vec2i{X: 0, Y: 3}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			p := NewProvider(30, 30)
			center := geom.Point2i{X: 14, Y: 15}
			ds := p.GetScannerAround(center, c.dir, 10)

			scan := ds.First(nil)
			if len(scan) != 11 {
				t.Fatalf("central scan size = %d, want 11", len(scan))
			}
			for _, pt := range scan {
				if c.horz && pt.Y != center.Y {
					t.Errorf("pixel %v off the central row", pt)
				}
				if !c.horz && pt.X != center.X {
					t.Errorf("pixel %v off the central column", pt)
				}
			}
			next := ds.NextOnLeft(nil)
			if len(next) != 11 {
				t.Fatalf("left scan size = %d, want 11", len(next))
			}
			for _, pt := range next {
				if c.horz && pt.Y == center.Y {
					t.Errorf("left scan pixel %v still on the central row", pt)
				}
				if !c.horz && pt.X == center.X {
					t.Errorf("left scan pixel %v still on the central column", pt)
				}
			}
		})
	}
}

func TestBindToShiftsStrip(t *testing.T) {
	p := NewProvider(20, 20)
	ds := p.GetScanner(geom.Point2i{X: 0, Y: 10}, geom.Point2i{X: 10, Y: 10})

	scan := ds.First(nil)
	if len(scan) != 11 {
		t.Fatalf("central scan size = %d, want 11", len(scan))
	}

	ds.BindTo(10, 0, 20)
	scan = ds.NextOnLeft(nil)
	if len(scan) != 8 {
		t.Fatalf("rebound scan size = %d, want 8", len(scan))
	}
	for _, pt := range scan {
		if pt.Y != 9 {
			t.Errorf("rebound scan pixel %v off row 9", pt)
		}
		if pt.X > 7 {
			t.Errorf("rebound scan pixel %v beyond rebound strip", pt)
		}
	}
}

func TestCopyKeepsIndependentState(t *testing.T) {
	p := NewProvider(30, 30)
	ds := p.GetScanner(geom.Point2i{X: 8, Y: 14}, geom.Point2i{X: 19, Y: 17})
	cp := ds.Copy()

	a1 := ds.NextOnLeft(nil)
	a2 := ds.NextOnLeft(nil)
	b1 := cp.NextOnLeft(nil)
	b2 := cp.NextOnLeft(nil)

	if diff := cmp.Diff(a1, b1); diff != "" {
		t.Errorf("first left scans differ (-orig +copy):\n%s", diff)
	}
	if diff := cmp.Diff(a2, b2); diff != "" {
		t.Errorf("second left scans differ (-orig +copy):\n%s", diff)
	}
}

func TestSkipFastThenNextMatchesSkip(t *testing.T) {
	mk := func() Scanner {
		p := NewProvider(40, 40)
		return p.GetScanner(geom.Point2i{X: 10, Y: 16}, geom.Point2i{X: 21, Y: 22})
	}
	s1 := mk()
	s2 := mk()

	got1 := s1.SkipLeft(4, nil)
	s2.SkipLeftFast(4)
	got2 := s2.NextOnLeft(nil)
	if diff := cmp.Diff(got1, got2); diff != "" {
		t.Errorf("left skips differ (-skip +fast):\n%s", diff)
	}

	got1 = s1.SkipRight(3, nil)
	s2.SkipRightFast(3)
	got2 = s2.NextOnRight(nil)
	if diff := cmp.Diff(got1, got2); diff != "" {
		t.Errorf("right skips differ (-skip +fast):\n%s", diff)
	}
}

func TestScansEndOutsideRaster(t *testing.T) {
	p := NewProvider(12, 12)
	ds := p.GetScanner(geom.Point2i{X: 2, Y: 6}, geom.Point2i{X: 9, Y: 6})
	ds.First(nil)

	left := 0
	for ; left < 30; left++ {
		if len(ds.NextOnLeft(nil)) == 0 {
			break
		}
	}
	if left >= 30 {
		t.Fatalf("left scans never left the raster")
	}
	right := 0
	for ; right < 30; right++ {
		if len(ds.NextOnRight(nil)) == 0 {
			break
		}
	}
	if right >= 30 {
		t.Fatalf("right scans never left the raster")
	}
}

func TestHalfStripScanner(t *testing.T) {
	p := NewProvider(20, 20)
	ds := p.GetScannerFrom(geom.Point2i{X: 10, Y: 10}, geom.Vec2i{X: 5, Y: 0}, 35)

	got := ds.First(nil)
	want := []geom.Point2i{
		{X: 10, Y: 10}, {X: 9, Y: 10}, {X: 8, Y: 10}, {X: 7, Y: 10},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("half strip scan differs (-want +got):\n%s", diff)
	}
}
