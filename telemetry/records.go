package telemetry

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/neurodrive/components"
	"github.com/pthm-cable/neurodrive/sim"
)

// TrajectoryRecord is one car's state after a tick.
type TrajectoryRecord struct {
	Tick         uint64  `csv:"tick"`
	AgentID      uint32  `csv:"agent_id"`
	Name         string  `csv:"name"`
	X            float64 `csv:"x"`
	Y            float64 `csv:"y"`
	Heading      float64 `csv:"heading"`
	VX           float64 `csv:"vx"`
	VY           float64 `csv:"vy"`
	Speed        float64 `csv:"speed"`
	S            float64 `csv:"s"`
	Fraction     float64 `csv:"fraction"`
	Lateral      float64 `csv:"lateral"`
	HeadingError float64 `csv:"heading_error"`
	Steering     float64 `csv:"steering"` // applied
	Throttle     float64 `csv:"throttle"` // applied
	OffRoad      bool    `csv:"off_road"`
	Resets       int     `csv:"resets"`
}

// ActionRecord is the desired action a controller produced on a tick.
// Tick is the percept tick, so a replay controller can index it directly.
type ActionRecord struct {
	Tick     uint64  `csv:"tick"`
	AgentID  uint32  `csv:"agent_id"`
	Steering float64 `csv:"steering"`
	Throttle float64 `csv:"throttle"`
}

// NewTrajectoryRecord flattens a snapshot.
func NewTrajectoryRecord(s sim.Snapshot) TrajectoryRecord {
	return TrajectoryRecord{
		Tick:         s.Tick,
		AgentID:      uint32(s.ID),
		Name:         s.Name,
		X:            s.State.Position.X,
		Y:            s.State.Position.Y,
		Heading:      s.State.Heading,
		VX:           s.State.Velocity.X,
		VY:           s.State.Velocity.Y,
		Speed:        s.Sensors.Speed,
		S:            s.Progress.S,
		Fraction:     s.Progress.Fraction,
		Lateral:      s.Progress.Distance,
		HeadingError: s.Sensors.HeadingError,
		Steering:     s.Controls.Applied.Steering,
		Throttle:     s.Controls.Applied.Throttle,
		OffRoad:      s.Collision.OffRoad,
		Resets:       s.Collision.Resets,
	}
}

// NewActionRecord extracts the desired action behind a snapshot. Snapshots
// are taken after the tick completes, so the action belongs to Tick-1.
func NewActionRecord(s sim.Snapshot) ActionRecord {
	var tick uint64
	if s.Tick > 0 {
		tick = s.Tick - 1
	}
	return ActionRecord{
		Tick:     tick,
		AgentID:  uint32(s.ID),
		Steering: s.Controls.Desired.Steering,
		Throttle: s.Controls.Desired.Throttle,
	}
}

// ReadActions loads an action log into per-agent sequences indexed by tick.
// Ticks missing from the log replay as a zero action.
func ReadActions(path string) (map[components.AgentID][]components.Action, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening action log: %w", err)
	}
	defer f.Close()

	var records []ActionRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, fmt.Errorf("parsing action log: %w", err)
	}

	actions := make(map[components.AgentID][]components.Action)
	for _, r := range records {
		id := components.AgentID(r.AgentID)
		seq := actions[id]
		for uint64(len(seq)) <= r.Tick {
			seq = append(seq, components.Action{})
		}
		seq[r.Tick] = components.Action{Steering: r.Steering, Throttle: r.Throttle}
		actions[id] = seq
	}
	return actions, nil
}

// ReadTrajectory loads a trajectory log.
func ReadTrajectory(path string) ([]TrajectoryRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trajectory: %w", err)
	}
	defer f.Close()

	var records []TrajectoryRecord
	if err := gocsv.UnmarshalFile(f, &records); err != nil {
		return nil, fmt.Errorf("parsing trajectory: %w", err)
	}
	return records, nil
}
