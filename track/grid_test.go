package track

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func mustGrid(t testing.TB, tiles [][]Tile, size, wall float64) *Grid {
	t.Helper()
	g, err := NewGrid(tiles, size, r2.Vec{}, wall)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	return g
}

func TestTileOpenEdges(t *testing.T) {
	tests := []struct {
		tile Tile
		open []Dir
	}{
		{Empty, nil},
		{StraightH, []Dir{East, West}},
		{StraightV, []Dir{North, South}},
		{CornerNW, []Dir{South, East}},
		{CornerNE, []Dir{South, West}},
		{CornerSW, []Dir{North, East}},
		{CornerSE, []Dir{North, West}},
		{TJunctionN, []Dir{South, East, West}},
		{TJunctionS, []Dir{North, East, West}},
		{TJunctionE, []Dir{North, South, West}},
		{TJunctionW, []Dir{North, South, East}},
		{Crossroads, []Dir{North, South, East, West}},
		{SpawnPoint, []Dir{East, West}},
	}

	for _, tt := range tests {
		t.Run(tt.tile.String(), func(t *testing.T) {
			want := map[Dir]bool{}
			for _, d := range tt.open {
				want[d] = true
			}
			for _, d := range Dirs {
				if got := tt.tile.IsOpen(d); got != want[d] {
					t.Errorf("IsOpen(%s) = %v, want %v", d, got, want[d])
				}
			}
			if tt.tile.IsRoad() != (len(tt.open) > 0) {
				t.Errorf("IsRoad() = %v", tt.tile.IsRoad())
			}
		})
	}
}

func TestDirRoundTrip(t *testing.T) {
	for _, d := range Dirs {
		if d.Opposite().Opposite() != d {
			t.Errorf("%s: double opposite = %s", d, d.Opposite().Opposite())
		}
		dr, dc := d.Delta()
		or, oc := d.Opposite().Delta()
		if dr+or != 0 || dc+oc != 0 {
			t.Errorf("%s: delta (%d,%d) not cancelled by opposite (%d,%d)", d, dr, dc, or, oc)
		}
		parsed, ok := ParseDir(d.String())
		if !ok || parsed != d {
			t.Errorf("ParseDir(%q) = %s, %v", d.String(), parsed, ok)
		}
	}

	// Row grows downward while world Y grows upward.
	if dr, _ := North.Delta(); dr != -1 {
		t.Errorf("North row delta = %d, want -1", dr)
	}
	if North.Unit().Y != 1 {
		t.Errorf("North unit = %v, want +Y", North.Unit())
	}
}

func TestNewGridValidation(t *testing.T) {
	tests := []struct {
		name  string
		tiles [][]Tile
		size  float64
		wall  float64
	}{
		{"empty", nil, 100, 5},
		{"empty row", [][]Tile{{}}, 100, 5},
		{"zero size", [][]Tile{{StraightH}}, 0, 5},
		{"negative wall", [][]Tile{{StraightH}}, 100, -1},
		{"wall too thick", [][]Tile{{StraightH}}, 100, 100},
		{"ragged", [][]Tile{{StraightH, StraightH}, {StraightH}}, 100, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGrid(tt.tiles, tt.size, r2.Vec{}, tt.wall); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestGridCopiesTiles(t *testing.T) {
	tiles := [][]Tile{{StraightH}}
	g := mustGrid(t, tiles, 100, 5)
	tiles[0][0] = Empty
	if g.TileAt(0, 0) != StraightH {
		t.Errorf("grid mutated through caller slice: %s", g.TileAt(0, 0))
	}
}

func TestCellMapping(t *testing.T) {
	g := mustGrid(t, [][]Tile{
		{StraightH, StraightH, StraightH},
		{StraightH, StraightH, StraightH},
	}, 100, 5)

	if c := g.CellCenter(0, 0); c != (r2.Vec{X: 50, Y: -50}) {
		t.Errorf("CellCenter(0,0) = %v, want (50,-50)", c)
	}
	if c := g.CellCenter(1, 2); c != (r2.Vec{X: 250, Y: -150}) {
		t.Errorf("CellCenter(1,2) = %v, want (250,-150)", c)
	}

	tests := []struct {
		p        r2.Vec
		row, col int
		ok       bool
	}{
		{r2.Vec{X: 50, Y: -50}, 0, 0, true},
		{r2.Vec{X: 150, Y: -150}, 1, 1, true},
		{r2.Vec{X: 299.9, Y: -199.9}, 1, 2, true},
		{r2.Vec{X: -1, Y: -50}, 0, 0, false},
		{r2.Vec{X: 50, Y: 1}, 0, 0, false},
		{r2.Vec{X: 300, Y: -50}, 0, 0, false},
		{r2.Vec{X: 50, Y: -200}, 0, 0, false},
	}
	for _, tt := range tests {
		row, col, ok := g.CellAt(tt.p)
		if ok != tt.ok || (ok && (row != tt.row || col != tt.col)) {
			t.Errorf("CellAt(%v) = (%d,%d,%v), want (%d,%d,%v)", tt.p, row, col, ok, tt.row, tt.col, tt.ok)
		}
	}

	if g.TileAt(-1, 0) != Empty || g.TileAt(0, 3) != Empty {
		t.Error("out-of-range TileAt should be Empty")
	}
}

func TestIsRoadAtWallSymmetry(t *testing.T) {
	const wall = 10.0

	// Two StraightH cells stacked vertically share a closed edge at y = -100.
	stacked := mustGrid(t, [][]Tile{{StraightH}, {StraightH}}, 100, wall)
	for _, off := range []float64{0.5, 2, 4.9} {
		above := r2.Vec{X: 50, Y: -100 + off}
		below := r2.Vec{X: 50, Y: -100 - off}
		if stacked.IsRoadAt(above) {
			t.Errorf("point %v above shared wall should be off-road", above)
		}
		if stacked.IsRoadAt(below) {
			t.Errorf("point %v below shared wall should be off-road", below)
		}
	}
	if !stacked.IsRoadAt(r2.Vec{X: 50, Y: -90}) || !stacked.IsRoadAt(r2.Vec{X: 50, Y: -110}) {
		t.Error("points beyond half a wall from the shared edge should be road")
	}

	// Two StraightV cells side by side share a closed edge at x = 100.
	beside := mustGrid(t, [][]Tile{{StraightV, StraightV}}, 100, wall)
	for _, off := range []float64{0.5, 2, 4.9} {
		if beside.IsRoadAt(r2.Vec{X: 100 - off, Y: -50}) {
			t.Errorf("x=%v left of shared wall should be off-road", 100-off)
		}
		if beside.IsRoadAt(r2.Vec{X: 100 + off, Y: -50}) {
			t.Errorf("x=%v right of shared wall should be off-road", 100+off)
		}
	}

	// Open edges carry no inset.
	row := mustGrid(t, [][]Tile{{StraightH, StraightH}}, 100, wall)
	if !row.IsRoadAt(r2.Vec{X: 99.5, Y: -50}) || !row.IsRoadAt(r2.Vec{X: 100.5, Y: -50}) {
		t.Error("points at an open shared edge should be road")
	}
}

func TestIsRoadAtCorner(t *testing.T) {
	// CornerNW arcs around the cell's south-east corner at (100, -100).
	g := mustGrid(t, [][]Tile{{CornerNW}}, 100, 10)

	tests := []struct {
		p    r2.Vec
		want bool
	}{
		{r2.Vec{X: 60, Y: -60}, true},
		{r2.Vec{X: 30, Y: -90}, true},
		{r2.Vec{X: 99, Y: -99}, true},
		{r2.Vec{X: 5, Y: -5}, false},
		{r2.Vec{X: 1, Y: -99}, false},
		{r2.Vec{X: 99, Y: -1}, false},
	}
	for _, tt := range tests {
		if got := g.IsRoadAt(tt.p); got != tt.want {
			t.Errorf("IsRoadAt(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestIsRoadAtEmptyAndOutside(t *testing.T) {
	g := mustGrid(t, [][]Tile{{Empty, StraightH}}, 100, 5)
	if g.IsRoadAt(r2.Vec{X: 50, Y: -50}) {
		t.Error("Empty cell should never be road")
	}
	if !g.IsRoadAt(r2.Vec{X: 150, Y: -50}) {
		t.Error("StraightH centre should be road")
	}
	if g.IsRoadAt(r2.Vec{X: 250, Y: -50}) || g.IsRoadAt(r2.Vec{X: 150, Y: 10}) {
		t.Error("points outside the grid should not be road")
	}
}

func TestFindSpawn(t *testing.T) {
	g := mustGrid(t, [][]Tile{
		{Empty, Empty, Empty},
		{StraightH, StraightH, SpawnPoint},
	}, 100, 5)

	row, col, ok := g.FindSpawnCell()
	if !ok || row != 1 || col != 2 {
		t.Fatalf("FindSpawnCell = (%d,%d,%v), want (1,2,true)", row, col, ok)
	}
	pose, ok := g.FindSpawn()
	if !ok {
		t.Fatal("FindSpawn failed")
	}
	if pose.Position != g.CellCenter(1, 2) || pose.Heading != 0 {
		t.Errorf("FindSpawn = %+v, want centre of (1,2) heading 0", pose)
	}

	none := mustGrid(t, [][]Tile{{StraightH}}, 100, 5)
	if _, ok := none.FindSpawn(); ok {
		t.Error("FindSpawn should fail without a SpawnPoint")
	}
}

func TestCenteredOrigin(t *testing.T) {
	o := CenteredOrigin(9, 14, 100)
	if o.X != -700 || o.Y != 450 {
		t.Errorf("CenteredOrigin(9,14,100) = %v, want (-700,450)", o)
	}
}
