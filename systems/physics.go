// Package systems contains the per-tick functions that drive and measure a
// car: kinematics, action smoothing, footprint collision and raycast sensing.
// Every function here is pure; the session calls them in a fixed order.
package systems

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/neurodrive/components"
)

// Step advances a car by dt.
//
// Positive steering turns right (heading decreases). Thrust is applied along
// the post-rotation heading, drag is a per-tick multiplier, and position
// integrates the damped velocity. Inputs are not clamped; callers clamp
// before stepping.
func Step(state components.KinematicState, steering, throttle, dt float64, p components.DynamicsParams) components.KinematicState {
	next := state

	// Rotation
	next.Heading -= steering * p.RotationSpeed * dt

	// Thrust
	if throttle > 0 {
		next.Velocity = r2.Add(next.Velocity, r2.Scale(p.Thrust*throttle*dt, next.Forward()))
	}

	// Drag and integration
	next.Velocity = r2.Scale(p.Drag, next.Velocity)
	next.Position = r2.Add(next.Position, r2.Scale(dt, next.Velocity))

	return next
}
