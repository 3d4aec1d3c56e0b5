// Package components defines the per-agent ECS components of a driving session.
package components

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// AgentID identifies a car within a session. IDs are never reused.
type AgentID uint32

// Car tags a driving agent and carries its footprint.
type Car struct {
	ID     AgentID
	Name   string
	Width  float64 // along the heading
	Height float64 // across the heading
}

// KinematicState is the pose and velocity of a car. Heading is in radians,
// 0 = east, counter-clockwise positive, and is never wrapped.
type KinematicState struct {
	Position r2.Vec
	Velocity r2.Vec
	Heading  float64
}

// Forward returns the unit vector the car is facing.
func (s KinematicState) Forward() r2.Vec {
	return r2.Vec{X: math.Cos(s.Heading), Y: math.Sin(s.Heading)}
}

// Speed returns the velocity magnitude.
func (s KinematicState) Speed() float64 {
	return r2.Norm(s.Velocity)
}

// DynamicsParams configures the kinematics stepper.
type DynamicsParams struct {
	RotationSpeed float64 // rad/s at full steering
	Thrust        float64 // acceleration at full throttle
	Drag          float64 // per-tick velocity multiplier in (0, 1]
}

// DefaultDynamicsParams returns the stock car tuning.
func DefaultDynamicsParams() DynamicsParams {
	return DynamicsParams{
		RotationSpeed: 4.0,
		Thrust:        1500.0,
		Drag:          0.985,
	}
}

// Action is a control input. Positive steering turns right.
type Action struct {
	Steering float64 // [-1, 1]
	Throttle float64 // [0, 1]
}

// Clamped returns a with both channels clamped to their nominal ranges.
// NaN maps to zero.
func (a Action) Clamped() Action {
	return Action{
		Steering: clamp(a.Steering, -1, 1),
		Throttle: clamp(a.Throttle, 0, 1),
	}
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}

// Controls holds the controller's desired action and the smoothed action
// actually fed to the stepper.
type Controls struct {
	Desired Action
	Applied Action
}

// SensorReadings is the raw sensor state for one tick.
type SensorReadings struct {
	Distances  []float64
	HitPoints  []r2.Vec
	Directions []r2.Vec

	Speed           float64
	HeadingError    float64 // (-pi, pi], positive when the track bends left of the heading
	AngularVelocity float64
	PreviousHeading float64
}

// Observation is the normalized feature vector: one value per ray, then
// speed, heading error and angular velocity.
type Observation struct {
	Values []float64
}

// Len returns the number of features.
func (o Observation) Len() int { return len(o.Values) }

// Progress is the latest centerline projection of the car position.
type Progress struct {
	S            float64
	Fraction     float64
	ClosestPoint r2.Vec
	Tangent      r2.Vec
	Distance     float64 // lateral distance from the centerline
}

// Collision records the footprint test for the current tick.
type Collision struct {
	OffRoad bool
	Resets  int // times the car was returned to spawn
}
