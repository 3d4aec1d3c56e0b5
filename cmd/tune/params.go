package main

import (
	"github.com/pthm-cable/neurodrive/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewFollowerParams creates the follower tuning parameters, defaulting to
// the loaded config.
func NewFollowerParams(cfg *config.Config) *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "look_ahead", Path: "follower.look_ahead", Min: 30, Max: 300, Default: cfg.Follower.LookAhead},
			{Name: "steering_gain", Path: "follower.steering_gain", Min: 0.25, Max: 8, Default: cfg.Follower.SteeringGain},
			{Name: "target_speed", Path: "follower.target_speed", Min: 60, Max: 900, Default: cfg.Follower.TargetSpeed},
			{Name: "corner_slowdown", Path: "follower.corner_slowdown", Min: 0, Max: 0.95, Default: cfg.Follower.CornerSlowdown},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	cfg.Follower.LookAhead = clamped[0]
	cfg.Follower.SteeringGain = clamped[1]
	cfg.Follower.TargetSpeed = clamped[2]
	cfg.Follower.CornerSlowdown = clamped[3]
}
