package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/neurodrive/config"
	"github.com/pthm-cable/neurodrive/controller"
	"github.com/pthm-cable/neurodrive/sim"
	"github.com/pthm-cable/neurodrive/telemetry"
)

func TestParamVectorNormalizeRoundTrip(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	pv := NewFollowerParams(cfg)

	raw := pv.DefaultVector()
	if len(raw) != pv.Dim() {
		t.Fatalf("default vector has %d values, want %d", len(raw), pv.Dim())
	}
	back := pv.Denormalize(pv.Normalize(raw))
	for i := range raw {
		if math.Abs(back[i]-raw[i]) > 1e-9 {
			t.Errorf("%s: %v -> %v", pv.Specs[i].Name, raw[i], back[i])
		}
	}
}

func TestParamVectorClampAndApply(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	pv := NewFollowerParams(cfg)

	pv.ApplyToConfig(cfg, []float64{-10, 4, 1e6, 0.5})
	if cfg.Follower.LookAhead != pv.Specs[0].Min {
		t.Errorf("look ahead = %v, want clamped to %v", cfg.Follower.LookAhead, pv.Specs[0].Min)
	}
	if cfg.Follower.SteeringGain != 4 {
		t.Errorf("steering gain = %v, want 4", cfg.Follower.SteeringGain)
	}
	if cfg.Follower.TargetSpeed != pv.Specs[2].Max {
		t.Errorf("target speed = %v, want clamped to %v", cfg.Follower.TargetSpeed, pv.Specs[2].Max)
	}
	if cfg.Follower.CornerSlowdown != 0.5 {
		t.Errorf("corner slowdown = %v, want 0.5", cfg.Follower.CornerSlowdown)
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		s    telemetry.Summary
		want float64
	}{
		{"clean lap", telemetry.Summary{Laps: 1}, 1},
		{"two crashes", telemetry.Summary{Laps: 1, Resets: 2}, 0.5},
		{"all off road", telemetry.Summary{OffRoadFraction: 1}, -0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.s); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Score = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	grid, centerline, err := sim.BuildTrack(cfg)
	if err != nil {
		t.Fatal(err)
	}
	pv := NewFollowerParams(cfg)
	factory := func(x []float64) (controller.Controller, error) {
		c := *cfg
		pv.ApplyToConfig(&c, pv.Denormalize(x))
		return controller.NewFollower(centerline, sim.FollowerParamsFrom(&c)), nil
	}

	fe := NewFitnessEvaluator(grid, centerline, sim.OptionsFrom(cfg), 240, []int64{42, 1042, 2042}, 0.05, factory)
	x := pv.Normalize(pv.DefaultVector())

	a := fe.Evaluate(x)
	b := fe.Evaluate(x)
	if a != b {
		t.Errorf("Evaluate not deterministic: %v vs %v", a, b)
	}
	if a == failedFitness || math.IsNaN(a) {
		t.Errorf("Evaluate = %v", a)
	}
	if fe.LastSummary().Ticks != 240 {
		t.Errorf("last summary ticks = %d, want 240", fe.LastSummary().Ticks)
	}
}
