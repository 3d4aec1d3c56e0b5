package systems

import (
	"math"

	"github.com/pthm-cable/neurodrive/components"
)

// minSmoothingTau floors the smoothing time constant.
const minSmoothingTau = 1e-4

// DefaultSmoothingTau is the stock action smoothing time constant in seconds.
const DefaultSmoothingTau = 0.12

// SmoothAction moves the applied action toward the desired one with a
// first-order low-pass filter. When disabled it returns the clamped desired
// action unchanged.
func SmoothAction(applied, desired components.Action, dt, tau float64, enabled bool) components.Action {
	desired = desired.Clamped()
	if !enabled {
		return desired
	}

	alpha := 1 - math.Exp(-dt/math.Max(tau, minSmoothingTau))
	return components.Action{
		Steering: applied.Steering + (desired.Steering-applied.Steering)*alpha,
		Throttle: applied.Throttle + (desired.Throttle-applied.Throttle)*alpha,
	}.Clamped()
}
