package track

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Pose is a world-space position and heading (radians, 0 = east).
type Pose struct {
	Position r2.Vec
	Heading  float64
}

// Grid is an immutable rectangular tile array placed in world space.
//
// Tiles are row-major; row 0 is the topmost row. World Y increases upward,
// so the top-left corner of cell [row][col] is
// (origin.X + col*size, origin.Y - row*size).
type Grid struct {
	tiles  [][]Tile
	size   float64
	origin r2.Vec
	wall   float64
	rows   int
	cols   int
}

// ErrEmptyGrid is returned when constructing a grid without tiles.
var ErrEmptyGrid = errors.New("track: grid has no tiles")

// NewGrid validates and copies tiles into a new Grid. origin is the
// world-space top-left corner of cell [0][0]; wallThickness is the visual
// wall width whose half is inset from every closed edge.
func NewGrid(tiles [][]Tile, size float64, origin r2.Vec, wallThickness float64) (*Grid, error) {
	if len(tiles) == 0 || len(tiles[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	if !(size > 0) {
		return nil, fmt.Errorf("track: cell size must be positive, got %v", size)
	}
	if wallThickness < 0 || wallThickness >= size {
		return nil, fmt.Errorf("track: wall thickness %v out of range [0, %v)", wallThickness, size)
	}

	cols := len(tiles[0])
	copied := make([][]Tile, len(tiles))
	for r, row := range tiles {
		if len(row) != cols {
			return nil, fmt.Errorf("track: row %d has %d tiles, want %d", r, len(row), cols)
		}
		copied[r] = append([]Tile(nil), row...)
	}

	return &Grid{
		tiles:  copied,
		size:   size,
		origin: origin,
		wall:   wallThickness,
		rows:   len(copied),
		cols:   cols,
	}, nil
}

// CenteredOrigin returns the origin that centres a rows x cols grid on the
// world origin.
func CenteredOrigin(rows, cols int, size float64) r2.Vec {
	return r2.Vec{
		X: -float64(cols) * size * 0.5,
		Y: float64(rows) * size * 0.5,
	}
}

func (g *Grid) Rows() int { return g.rows }
func (g *Grid) Cols() int { return g.cols }
func (g *Grid) Size() float64 { return g.size }
func (g *Grid) Origin() r2.Vec { return g.origin }
func (g *Grid) WallThickness() float64 { return g.wall }

// TileAt returns the tile at (row, col), or Empty when out of bounds.
func (g *Grid) TileAt(row, col int) Tile {
	if row < 0 || col < 0 || row >= g.rows || col >= g.cols {
		return Empty
	}
	return g.tiles[row][col]
}

// CellCenter returns the world-space centre of cell (row, col).
func (g *Grid) CellCenter(row, col int) r2.Vec {
	return r2.Vec{
		X: g.origin.X + float64(col)*g.size + g.size*0.5,
		Y: g.origin.Y - float64(row)*g.size - g.size*0.5,
	}
}

// CellAt maps a world point to its cell. ok is false outside the grid.
func (g *Grid) CellAt(p r2.Vec) (row, col int, ok bool) {
	relX := p.X - g.origin.X
	relY := g.origin.Y - p.Y
	if relX < 0 || relY < 0 {
		return 0, 0, false
	}
	col = int(math.Floor(relX / g.size))
	row = int(math.Floor(relY / g.size))
	if row >= g.rows || col >= g.cols {
		return 0, 0, false
	}
	return row, col, true
}

// IsRoadAt reports whether p lies on driveable surface.
//
// Straight and junction tiles are inset by half the wall thickness on each
// closed edge, so two road cells sharing a closed edge leave a full-wall dead
// zone between them. Corner tiles accept points within size - wall/2 of the
// arc centre.
func (g *Grid) IsRoadAt(p r2.Vec) bool {
	row, col, ok := g.CellAt(p)
	if !ok {
		return false
	}
	tile := g.tiles[row][col]
	if !tile.IsRoad() {
		return false
	}

	center := g.CellCenter(row, col)
	half := g.size * 0.5
	margin := g.wall * 0.5

	if tile.IsCorner() {
		arc := tile.arcCenter(center, half)
		return r2.Norm(r2.Sub(p, arc)) <= g.size-margin
	}

	open := tile.OpenEdges()
	if open&EdgeNorth == 0 && p.Y > center.Y+half-margin {
		return false
	}
	if open&EdgeSouth == 0 && p.Y < center.Y-half+margin {
		return false
	}
	if open&EdgeEast == 0 && p.X > center.X+half-margin {
		return false
	}
	if open&EdgeWest == 0 && p.X < center.X-half+margin {
		return false
	}
	return true
}

// FindSpawnCell returns the first SpawnPoint cell in row-major order.
func (g *Grid) FindSpawnCell() (row, col int, ok bool) {
	for r, tiles := range g.tiles {
		for c, tile := range tiles {
			if tile == SpawnPoint {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

// FindSpawn returns the spawn pose: the SpawnPoint cell centre facing east,
// matching the tile's StraightH connectivity.
func (g *Grid) FindSpawn() (Pose, bool) {
	row, col, ok := g.FindSpawnCell()
	if !ok {
		return Pose{}, false
	}
	return Pose{Position: g.CellCenter(row, col), Heading: 0}, true
}
