package controller

import "github.com/pthm-cable/neurodrive/components"

// Replay plays back a recorded action sequence indexed by tick. Ticks past
// the end of the log produce a zero action.
type Replay struct {
	actions []components.Action
}

// NewReplay creates a replay controller over a copy of actions.
func NewReplay(actions []components.Action) *Replay {
	return &Replay{actions: append([]components.Action(nil), actions...)}
}

// Act returns the action recorded for p.Tick.
func (r *Replay) Act(p Percept) components.Action {
	if p.Tick >= uint64(len(r.actions)) {
		return components.Action{}
	}
	return r.actions[p.Tick]
}

// Len returns the number of recorded ticks.
func (r *Replay) Len() int { return len(r.actions) }
