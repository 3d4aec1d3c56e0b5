// Package track compiles tile grids into closed driving loops and answers
// geometric queries against them: road membership, spawn lookup, and
// nearest-point projection onto the centerline.
package track

import "gonum.org/v1/gonum/spatial/r2"

// Tile is the road-shape classification of one grid cell.
//
// Corner naming describes the quadrant the outer wall curves around, so
// CornerNW is open to the east and south. T-junction naming describes the
// single closed edge (the stem of the T).
type Tile uint8

const (
	Empty Tile = iota
	StraightH
	StraightV
	CornerNW
	CornerNE
	CornerSW
	CornerSE
	TJunctionN
	TJunctionS
	TJunctionE
	TJunctionW
	Crossroads
	SpawnPoint
)

// Edge is a bit mask over the four cell edges.
type Edge uint8

const (
	EdgeNorth Edge = 1 << iota
	EdgeSouth
	EdgeEast
	EdgeWest
)

// openEdges is the fixed connectivity table, indexed by Tile.
var openEdges = [...]Edge{
	Empty:      0,
	StraightH:  EdgeEast | EdgeWest,
	StraightV:  EdgeNorth | EdgeSouth,
	CornerNW:   EdgeSouth | EdgeEast,
	CornerNE:   EdgeSouth | EdgeWest,
	CornerSW:   EdgeNorth | EdgeEast,
	CornerSE:   EdgeNorth | EdgeWest,
	TJunctionN: EdgeSouth | EdgeEast | EdgeWest,
	TJunctionS: EdgeNorth | EdgeEast | EdgeWest,
	TJunctionE: EdgeNorth | EdgeSouth | EdgeWest,
	TJunctionW: EdgeNorth | EdgeSouth | EdgeEast,
	Crossroads: EdgeNorth | EdgeSouth | EdgeEast | EdgeWest,
	SpawnPoint: EdgeEast | EdgeWest,
}

var tileNames = [...]string{
	Empty:      "Empty",
	StraightH:  "StraightH",
	StraightV:  "StraightV",
	CornerNW:   "CornerNW",
	CornerNE:   "CornerNE",
	CornerSW:   "CornerSW",
	CornerSE:   "CornerSE",
	TJunctionN: "TJunctionN",
	TJunctionS: "TJunctionS",
	TJunctionE: "TJunctionE",
	TJunctionW: "TJunctionW",
	Crossroads: "Crossroads",
	SpawnPoint: "SpawnPoint",
}

// String returns the tile name.
func (t Tile) String() string {
	if int(t) < len(tileNames) {
		return tileNames[t]
	}
	return "Tile(?)"
}

// OpenEdges returns the open-edge mask. Unknown values have no open edges.
func (t Tile) OpenEdges() Edge {
	if int(t) < len(openEdges) {
		return openEdges[t]
	}
	return 0
}

// IsOpen reports whether the tile is open toward d.
func (t Tile) IsOpen(d Dir) bool {
	return t.OpenEdges()&d.Edge() != 0
}

// IsRoad reports whether the tile is driveable surface.
func (t Tile) IsRoad() bool {
	return t != Empty && t.OpenEdges() != 0
}

// IsCorner reports whether the tile is one of the four quarter-arc corners.
func (t Tile) IsCorner() bool {
	switch t {
	case CornerNW, CornerNE, CornerSW, CornerSE:
		return true
	}
	return false
}

// arcCenter returns the cell corner a corner tile's arcs are centred on,
// given the cell centre and half the cell size.
func (t Tile) arcCenter(center r2.Vec, half float64) r2.Vec {
	switch t {
	case CornerNW:
		return r2.Vec{X: center.X + half, Y: center.Y - half}
	case CornerNE:
		return r2.Vec{X: center.X - half, Y: center.Y - half}
	case CornerSW:
		return r2.Vec{X: center.X + half, Y: center.Y + half}
	case CornerSE:
		return r2.Vec{X: center.X - half, Y: center.Y + half}
	}
	return center
}

// Dir is a cardinal direction in grid space.
type Dir uint8

const (
	North Dir = iota
	South
	East
	West
)

// Dirs lists the directions in the order used for branch reporting.
var Dirs = [4]Dir{North, South, East, West}

// String returns the lower-case direction name.
func (d Dir) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case East:
		return "east"
	case West:
		return "west"
	}
	return "dir(?)"
}

// ParseDir parses a direction name as produced by String.
func ParseDir(s string) (Dir, bool) {
	for _, d := range Dirs {
		if d.String() == s {
			return d, true
		}
	}
	return 0, false
}

// Opposite returns the reverse direction.
func (d Dir) Opposite() Dir {
	switch d {
	case North:
		return South
	case South:
		return North
	case East:
		return West
	}
	return East
}

// Edge returns the edge bit for d.
func (d Dir) Edge() Edge {
	switch d {
	case North:
		return EdgeNorth
	case South:
		return EdgeSouth
	case East:
		return EdgeEast
	}
	return EdgeWest
}

// Delta returns the (row, col) offset of one step toward d.
func (d Dir) Delta() (int, int) {
	switch d {
	case North:
		return -1, 0
	case South:
		return 1, 0
	case East:
		return 0, 1
	}
	return 0, -1
}

// Unit returns the world-space unit vector for d. World Y points north.
func (d Dir) Unit() r2.Vec {
	switch d {
	case North:
		return r2.Vec{Y: 1}
	case South:
		return r2.Vec{Y: -1}
	case East:
		return r2.Vec{X: 1}
	}
	return r2.Vec{X: -1}
}
