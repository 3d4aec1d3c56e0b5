package controller

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pthm-cable/neurodrive/components"
	"github.com/pthm-cable/neurodrive/neural"
)

// Policy drives from the normalized observation through a feedforward
// network. The network is read-only once wrapped, so one Policy may serve
// many cars.
type Policy struct {
	brain *neural.FFNN
}

// NewPolicy wraps a network.
func NewPolicy(brain *neural.FFNN) *Policy {
	return &Policy{brain: brain}
}

// Act runs the network on the observation.
func (p *Policy) Act(percept Percept) components.Action {
	steering, throttle := p.brain.Forward(percept.Observation.Values)
	return components.Action{Steering: steering, Throttle: throttle}
}

// LoadPolicy reads a policy saved by SavePolicy. The network input width
// must match the observation length.
func LoadPolicy(path string, observationLen int) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy: %w", err)
	}
	var bw neural.BrainWeights
	if err := json.Unmarshal(data, &bw); err != nil {
		return nil, fmt.Errorf("parsing policy: %w", err)
	}
	if bw.Inputs != observationLen {
		return nil, fmt.Errorf("policy expects %d inputs, observation has %d", bw.Inputs, observationLen)
	}
	brain, err := neural.UnmarshalWeights(bw)
	if err != nil {
		return nil, fmt.Errorf("loading policy weights: %w", err)
	}
	return NewPolicy(brain), nil
}

// SavePolicy writes the network weights as JSON.
func SavePolicy(path string, brain *neural.FFNN) error {
	data, err := json.MarshalIndent(brain.MarshalWeights(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling policy: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing policy: %w", err)
	}
	return nil
}
