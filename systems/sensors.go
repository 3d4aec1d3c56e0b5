package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/neurodrive/components"
	"github.com/pthm-cable/neurodrive/track"
)

const (
	// bisectIterations refines a ray's boundary crossing after the march.
	bisectIterations = 8

	// minRayStep floors the march step so a zero step cannot stall.
	minRayStep = 0.5

	// minSensorDT floors the elapsed time used for angular velocity.
	minSensorDT = 1e-6
)

// defaultRayAnglesDeg is the stock ray fan relative to the heading.
// Positive angles point left.
var defaultRayAnglesDeg = []float64{-150, -90, -60, -35, -15, 0, 15, 35, 60, 90, 150}

// SensorConfig holds the ray fan and normalization scales.
type SensorConfig struct {
	MaxRange            float64
	Step                float64
	SpeedNorm           float64
	AngularVelocityNorm float64
	RayAngles           []float64 // radians relative to heading, in output order
}

// DefaultRayAngles returns the stock ray fan in radians.
func DefaultRayAngles() []float64 {
	angles := make([]float64, len(defaultRayAnglesDeg))
	for i, deg := range defaultRayAnglesDeg {
		angles[i] = degToRad(deg)
	}
	return angles
}

// DefaultSensorConfig returns the stock sensor configuration.
func DefaultSensorConfig() SensorConfig {
	return SensorConfig{
		MaxRange:            375,
		Step:                3,
		SpeedNorm:           900,
		AngularVelocityNorm: 8,
		RayAngles:           DefaultRayAngles(),
	}
}

// ObservationLen returns the length of the observation vector.
func (c SensorConfig) ObservationLen() int {
	return len(c.RayAngles) + 3
}

// Raycast marches from origin along dir in fixed steps until it leaves the
// road or exceeds maxRange, then bisects between the last on-road and first
// off-road sample. It returns the distance and end point. A ray that never
// leaves the road reports maxRange; a zero direction reports (0, origin).
func Raycast(grid *track.Grid, origin, dir r2.Vec, maxRange, step float64) (float64, r2.Vec) {
	n := r2.Norm(dir)
	if n == 0 {
		return 0, origin
	}
	dir = r2.Scale(1/n, dir)
	step = math.Max(step, minRayStep)

	at := func(d float64) r2.Vec { return r2.Add(origin, r2.Scale(d, dir)) }

	inside := 0.0
	for i := 1; ; i++ {
		d := step * float64(i)
		if d > maxRange {
			break
		}
		if !grid.IsRoadAt(at(d)) {
			dist := bisect(grid, at, inside, d)
			return dist, at(dist)
		}
		inside = d
	}

	return maxRange, at(maxRange)
}

// bisect narrows the boundary between an on-road distance and an off-road
// distance and returns the on-road side.
func bisect(grid *track.Grid, at func(float64) r2.Vec, inside, outside float64) float64 {
	for i := 0; i < bisectIterations; i++ {
		mid := (inside + outside) * 0.5
		if grid.IsRoadAt(at(mid)) {
			inside = mid
		} else {
			outside = mid
		}
	}
	return inside
}

// UpdateSensors casts the ray fan from the car pose and derives speed,
// heading error against the centerline tangent, and angular velocity from
// the previous tick's heading. prev may be nil on the first tick.
func UpdateSensors(
	grid *track.Grid,
	cfg SensorConfig,
	state components.KinematicState,
	tangent r2.Vec,
	prev *components.SensorReadings,
	dt float64,
) components.SensorReadings {
	n := len(cfg.RayAngles)
	readings := components.SensorReadings{
		Distances:  make([]float64, n),
		HitPoints:  make([]r2.Vec, n),
		Directions: make([]r2.Vec, n),
	}

	for i, angle := range cfg.RayAngles {
		a := state.Heading + angle
		dir := r2.Vec{X: math.Cos(a), Y: math.Sin(a)}
		readings.Directions[i] = dir
		readings.Distances[i], readings.HitPoints[i] = Raycast(grid, state.Position, dir, cfg.MaxRange, cfg.Step)
	}

	readings.Speed = state.Speed()
	readings.HeadingError = track.WrapAngle(math.Atan2(tangent.Y, tangent.X) - state.Heading)

	prevHeading := state.Heading
	if prev != nil {
		prevHeading = prev.PreviousHeading
	}
	readings.AngularVelocity = track.WrapAngle(state.Heading-prevHeading) / math.Max(dt, minSensorDT)
	readings.PreviousHeading = state.Heading

	return readings
}

// BuildObservation normalizes readings into the fixed-order feature vector:
// rays in [0, 1], speed in [0, 1], heading error in [-1, 1], angular
// velocity in [-1, 1].
func BuildObservation(cfg SensorConfig, r components.SensorReadings) components.Observation {
	values := make([]float64, 0, len(r.Distances)+3)
	for _, d := range r.Distances {
		values = append(values, clamp01(safeDiv(d, cfg.MaxRange)))
	}
	values = append(values,
		clamp01(safeDiv(r.Speed, cfg.SpeedNorm)),
		clampFloat(r.HeadingError/math.Pi, -1, 1),
		clampFloat(safeDiv(r.AngularVelocity, cfg.AngularVelocityNorm), -1, 1),
	)
	return components.Observation{Values: values}
}
