package runner

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/neurodrive/components"
	"github.com/pthm-cable/neurodrive/config"
	"github.com/pthm-cable/neurodrive/controller"
	"github.com/pthm-cable/neurodrive/sim"
	"github.com/pthm-cable/neurodrive/telemetry"
)

func buildSession(t *testing.T) (*config.Config, *sim.Session) {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s, err := sim.Build(cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cfg, s
}

func TestRunStopsAtMaxTicks(t *testing.T) {
	_, s := buildSession(t)
	s.AddAgent("idle", nil)

	r, err := New(s, Options{MaxTicks: 25, LogInterval: 10}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if s.Tick() != 25 {
		t.Errorf("tick = %d, want 25", s.Tick())
	}

	sums := r.Summaries()
	if len(sums) != 1 || sums[0].Ticks != 25 {
		t.Errorf("summaries = %+v", sums)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	_, s := buildSession(t)
	r, err := New(s, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestRecordedRunReplaysExactly(t *testing.T) {
	cfg, s := buildSession(t)
	s.AddAgent("follower", controller.NewFollower(s.Centerline(), sim.FollowerParamsFrom(cfg)))
	s.AddAgent("weave", controller.Func(func(p controller.Percept) components.Action {
		return components.Action{Steering: 0.5 * math.Sin(float64(p.Tick)/15), Throttle: 0.6}
	}))
	s.AddAgent("gas", controller.Constant{Action: components.Action{Throttle: 1}})

	dir := filepath.Join(t.TempDir(), "run")
	r, err := New(s, Options{MaxTicks: 300, TrajectoryInterval: 1, OutputDir: dir}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}

	actions, err := telemetry.ReadActions(filepath.Join(dir, telemetry.ActionsFile))
	if err != nil {
		t.Fatalf("ReadActions: %v", err)
	}
	recorded, err := telemetry.ReadTrajectory(filepath.Join(dir, telemetry.TrajectoryFile))
	if err != nil {
		t.Fatalf("ReadTrajectory: %v", err)
	}

	resets := 0
	for _, rec := range recorded {
		resets = max(resets, rec.Resets)
	}
	if resets == 0 {
		t.Fatal("recorded run never crashed")
	}

	_, replay := buildSession(t)
	if n := AddReplayAgents(replay, actions); n != 300 {
		t.Fatalf("replay length = %d, want 300", n)
	}

	i := 0
	for tick := 0; tick < 300; tick++ {
		for _, snap := range replay.Step() {
			got := telemetry.NewTrajectoryRecord(snap)
			want := recorded[i]
			got.Name = want.Name
			if got != want {
				t.Fatalf("tick %d agent %d: replay %+v, recorded %+v", snap.Tick, snap.ID, got, want)
			}
			i++
		}
	}
	if i != len(recorded) {
		t.Errorf("compared %d rows, recorded %d", i, len(recorded))
	}
}

func TestAddReplayAgentsFillsGaps(t *testing.T) {
	_, s := buildSession(t)
	n := AddReplayAgents(s, map[components.AgentID][]components.Action{
		1: {{Throttle: 1}},
		3: {{Throttle: 1}, {Throttle: 1}},
	})
	if n != 2 {
		t.Errorf("longest = %d, want 2", n)
	}
	if s.NumAgents() != 3 {
		t.Fatalf("agents = %d, want 3", s.NumAgents())
	}
	if snap, _ := s.Agent(2); snap.Name != "idle" {
		t.Errorf("gap agent name = %q, want idle", snap.Name)
	}
}
