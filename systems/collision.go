package systems

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/neurodrive/components"
	"github.com/pthm-cable/neurodrive/track"
)

// FootprintCorners returns the four corners of a width x height rectangle
// centred on the car and rotated by its heading. Width runs along the heading.
func FootprintCorners(state components.KinematicState, width, height float64) [4]r2.Vec {
	fwd := state.Forward()
	left := r2.Vec{X: -fwd.Y, Y: fwd.X}
	hw, hh := width*0.5, height*0.5

	var corners [4]r2.Vec
	for i, s := range [4][2]float64{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}} {
		corners[i] = r2.Add(state.Position, r2.Add(r2.Scale(s[0]*hw, fwd), r2.Scale(s[1]*hh, left)))
	}
	return corners
}

// FootprintOffRoad reports whether any corner of the car footprint is off
// the road.
func FootprintOffRoad(grid *track.Grid, state components.KinematicState, width, height float64) bool {
	for _, c := range FootprintCorners(state, width, height) {
		if !grid.IsRoadAt(c) {
			return true
		}
	}
	return false
}
