package controller

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/neurodrive/components"
	"github.com/pthm-cable/neurodrive/track"
)

// Follower steers toward a point a fixed arc length ahead of the car's
// centerline projection and holds a target speed that drops in corners.
type Follower struct {
	centerline     *track.Centerline
	lookAhead      float64
	steeringGain   float64
	targetSpeed    float64
	cornerSlowdown float64
}

// FollowerParams tunes a Follower.
type FollowerParams struct {
	LookAhead      float64
	SteeringGain   float64
	TargetSpeed    float64
	CornerSlowdown float64
}

// NewFollower creates a follower over a shared read-only centerline.
func NewFollower(c *track.Centerline, p FollowerParams) *Follower {
	return &Follower{
		centerline:     c,
		lookAhead:      p.LookAhead,
		steeringGain:   p.SteeringGain,
		targetSpeed:    p.TargetSpeed,
		cornerSlowdown: p.CornerSlowdown,
	}
}

// Act steers toward the look-ahead target.
func (f *Follower) Act(p Percept) components.Action {
	target, _ := f.centerline.PointAt(p.Progress.S + f.lookAhead)
	to := r2.Sub(target, p.State.Position)

	// Positive error means the target is to the left.
	bearing := math.Atan2(to.Y, to.X)
	err := track.WrapAngle(bearing - p.State.Heading)

	// Positive steering turns right.
	steering := -f.steeringGain * err

	slow := math.Min(1, math.Abs(err)/(math.Pi/2))
	targetSpeed := f.targetSpeed * (1 - f.cornerSlowdown*slow)
	throttle := 0.0
	if p.State.Speed() < targetSpeed {
		throttle = 1
	}

	return components.Action{Steering: steering, Throttle: throttle}.Clamped()
}
