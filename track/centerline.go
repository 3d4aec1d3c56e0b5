package track

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r2"
)

const (
	// ArcSamples is the number of points sampled along each corner arc.
	ArcSamples = 8

	// dedupeEpsilon collapses consecutive polyline points closer than this.
	dedupeEpsilon = 1e-3
)

// BuildErrorKind classifies a structural defect in an authored track.
type BuildErrorKind uint8

const (
	InvalidStartCell BuildErrorKind = iota + 1
	DeadEnd
	AmbiguousBranch
	NotClosedLoop
	TooShort
)

func (k BuildErrorKind) String() string {
	switch k {
	case InvalidStartCell:
		return "invalid start cell"
	case DeadEnd:
		return "dead end"
	case AmbiguousBranch:
		return "ambiguous branch"
	case NotClosedLoop:
		return "not a closed loop"
	case TooShort:
		return "too short"
	}
	return "unknown"
}

// Sentinels for errors.Is matching against a *BuildError.
var (
	ErrInvalidStartCell = &BuildError{Kind: InvalidStartCell}
	ErrDeadEnd          = &BuildError{Kind: DeadEnd}
	ErrAmbiguousBranch  = &BuildError{Kind: AmbiguousBranch}
	ErrNotClosedLoop    = &BuildError{Kind: NotClosedLoop}
	ErrTooShort         = &BuildError{Kind: TooShort}
)

// BuildError reports why a grid could not be compiled into a closed loop.
// Row and Col locate the offending cell where one exists; Options lists the
// candidate exits of an ambiguous branch.
type BuildError struct {
	Kind    BuildErrorKind
	Row     int
	Col     int
	Options []Dir
}

func (e *BuildError) Error() string {
	switch e.Kind {
	case InvalidStartCell, DeadEnd:
		return fmt.Sprintf("track: %s at (%d, %d)", e.Kind, e.Row, e.Col)
	case AmbiguousBranch:
		return fmt.Sprintf("track: %s at (%d, %d): options %v", e.Kind, e.Row, e.Col, e.Options)
	}
	return "track: " + e.Kind.String()
}

// Is matches any *BuildError of the same kind.
func (e *BuildError) Is(target error) bool {
	var other *BuildError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// Centerline is an immutable closed polyline with arc-length
// parametrization. Segment i joins point i to point (i+1) mod N.
type Centerline struct {
	points     []r2.Vec
	cumulative []float64
	total      float64
}

// BuildClosedLoop walks grid connectivity from the start cell, leaving it
// toward startDir, and compiles the visited cells into a closed centerline.
//
// Only degree-2 loops compile: junction tiles that leave more than one way
// forward fail with AmbiguousBranch rather than guessing.
func BuildClosedLoop(grid *Grid, startRow, startCol int, startDir Dir) (*Centerline, error) {
	cells, dirs, err := traverse(grid, startRow, startCol, startDir)
	if err != nil {
		return nil, err
	}
	return newCenterline(synthesize(grid, cells, dirs))
}

// NewCenterline builds a centerline directly from closed-loop points.
func NewCenterline(points []r2.Vec) (*Centerline, error) {
	return newCenterline(append([]r2.Vec(nil), points...))
}

func newCenterline(points []r2.Vec) (*Centerline, error) {
	if len(points) < 3 {
		return nil, &BuildError{Kind: TooShort}
	}
	cumulative, total := arcLengths(points)
	if !(total > 0) {
		return nil, &BuildError{Kind: TooShort}
	}
	return &Centerline{points: points, cumulative: cumulative, total: total}, nil
}

// TotalLength returns the arc length of the closed loop.
func (c *Centerline) TotalLength() float64 { return c.total }

// Len returns the number of polyline points.
func (c *Centerline) Len() int { return len(c.points) }

// Points returns a copy of the polyline points in traversal order.
func (c *Centerline) Points() []r2.Vec {
	return append([]r2.Vec(nil), c.points...)
}

// CumulativeLength returns the arc length from point 0 to point i.
func (c *Centerline) CumulativeLength(i int) float64 { return c.cumulative[i] }

type cell struct{ row, col int }

func traverse(grid *Grid, startRow, startCol int, startDir Dir) ([]cell, []Dir, error) {
	start := cell{startRow, startCol}
	startTile := grid.TileAt(startRow, startCol)
	if !startTile.IsRoad() {
		return nil, nil, &BuildError{Kind: InvalidStartCell, Row: startRow, Col: startCol}
	}
	if !startTile.IsOpen(startDir) {
		return nil, nil, &BuildError{Kind: DeadEnd, Row: startRow, Col: startCol}
	}

	cells := []cell{start}
	var dirs []Dir
	visited := map[cell]bool{start: true}

	current := start
	next := startDir
	for {
		if len(dirs) > 0 {
			var err error
			next, err = chooseNext(grid, current, dirs[len(dirs)-1].Opposite())
			if err != nil {
				return nil, nil, err
			}
		}

		dr, dc := next.Delta()
		to := cell{current.row + dr, current.col + dc}
		if !grid.TileAt(to.row, to.col).IsRoad() {
			return nil, nil, &BuildError{Kind: DeadEnd, Row: current.row, Col: current.col}
		}

		dirs = append(dirs, next)
		if to == start {
			break
		}
		if visited[to] {
			return nil, nil, &BuildError{Kind: NotClosedLoop, Row: to.row, Col: to.col}
		}
		visited[to] = true
		cells = append(cells, to)
		current = to
	}

	return cells, dirs, nil
}

// chooseNext returns the single open exit of c other than the one it was
// entered through.
func chooseNext(grid *Grid, c cell, incoming Dir) (Dir, error) {
	tile := grid.TileAt(c.row, c.col)
	var options []Dir
	for _, d := range Dirs {
		if d != incoming && tile.IsOpen(d) {
			options = append(options, d)
		}
	}
	switch len(options) {
	case 1:
		return options[0], nil
	case 0:
		return 0, &BuildError{Kind: DeadEnd, Row: c.row, Col: c.col}
	}
	return 0, &BuildError{Kind: AmbiguousBranch, Row: c.row, Col: c.col, Options: options}
}

// synthesize turns the ordered cell walk into polyline points. dirs[i] is
// the exit direction of cells[i].
func synthesize(grid *Grid, cells []cell, dirs []Dir) []r2.Vec {
	n := len(cells)
	if n == 0 {
		return nil
	}
	half := grid.Size() * 0.5
	points := make([]r2.Vec, 0, n*2)

	for i, c := range cells {
		tile := grid.TileAt(c.row, c.col)
		center := grid.CellCenter(c.row, c.col)

		prev := dirs[(i+n-1)%n]
		entry := r2.Add(center, r2.Scale(half, prev.Opposite().Unit()))
		exit := r2.Add(center, r2.Scale(half, dirs[i].Unit()))

		points = pushUnique(points, entry)
		if tile.IsCorner() {
			points = pushArc(points, tile.arcCenter(center, half), half, entry, exit)
		} else {
			points = pushUnique(points, exit)
		}
	}

	if len(points) > 1 && r2.Norm(r2.Sub(points[len(points)-1], points[0])) < dedupeEpsilon {
		points = points[:len(points)-1]
	}
	return points
}

func pushUnique(points []r2.Vec, p r2.Vec) []r2.Vec {
	if len(points) > 0 && r2.Norm(r2.Sub(points[len(points)-1], p)) < dedupeEpsilon {
		return points
	}
	return append(points, p)
}

// pushArc appends ArcSamples points along the short arc from entry to exit.
// The entry point itself is assumed to be present already.
func pushArc(points []r2.Vec, center r2.Vec, radius float64, entry, exit r2.Vec) []r2.Vec {
	a0 := math.Atan2(entry.Y-center.Y, entry.X-center.X)
	a1 := math.Atan2(exit.Y-center.Y, exit.X-center.X)
	sweep := WrapAngle(a1 - a0)

	for i := 1; i <= ArcSamples; i++ {
		a := a0 + sweep*float64(i)/ArcSamples
		p := r2.Vec{X: center.X + radius*math.Cos(a), Y: center.Y + radius*math.Sin(a)}
		points = pushUnique(points, p)
	}
	return points
}

// arcLengths returns the arc length at the start of every segment and the
// closed-loop total.
func arcLengths(points []r2.Vec) ([]float64, float64) {
	n := len(points)
	lengths := make([]float64, n)
	for i := range points {
		lengths[i] = r2.Norm(r2.Sub(points[(i+1)%n], points[i]))
	}
	ends := floats.CumSum(make([]float64, n), lengths)

	cumulative := make([]float64, n)
	copy(cumulative[1:], ends[:n-1])
	return cumulative, ends[n-1]
}

// WrapAngle wraps a to (-pi, pi].
func WrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a <= 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
