// Package controller provides the drivers that turn a car's percept into an
// action each tick: fixed, scripted centerline following, replay of a
// recorded log, and a learned network policy.
package controller

import (
	"github.com/pthm-cable/neurodrive/components"
)

// Percept is what a controller sees before the tick it acts on. It reflects
// the measurement taken at the end of the previous tick.
type Percept struct {
	Tick        uint64
	State       components.KinematicState
	Sensors     components.SensorReadings
	Observation components.Observation
	Progress    components.Progress
}

// Controller chooses the desired action for one car. Implementations may
// keep per-car state and must be deterministic for replay.
type Controller interface {
	Act(p Percept) components.Action
}

// Func adapts a plain function to Controller.
type Func func(p Percept) components.Action

// Act calls f.
func (f Func) Act(p Percept) components.Action { return f(p) }

// Constant always returns the same action.
type Constant struct {
	Action components.Action
}

// Act returns the fixed action.
func (c Constant) Act(Percept) components.Action { return c.Action }
