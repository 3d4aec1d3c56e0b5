// Package main re-runs a recorded session from its action log and checks
// that every trajectory row is reproduced bit for bit.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pthm-cable/neurodrive/config"
	"github.com/pthm-cable/neurodrive/runner"
	"github.com/pthm-cable/neurodrive/sim"
	"github.com/pthm-cable/neurodrive/telemetry"
)

func main() {
	runDir := flag.String("run", "", "Run directory written with -output-dir")
	maxMismatches := flag.Int("max-mismatches", 10, "Stop reporting after N mismatches")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *runDir == "" {
		slog.Error("-run is required")
		os.Exit(2)
	}

	mismatches, rows, err := verify(*runDir, *maxMismatches, logger)
	if err != nil {
		slog.Error("replay failed", "error", err)
		os.Exit(1)
	}
	if mismatches > 0 {
		slog.Error("replay diverged", "rows", rows, "mismatches", mismatches)
		os.Exit(1)
	}
	slog.Info("replay matches", "rows", rows)
}

// verify replays the run in dir and returns the number of trajectory rows
// that differ and the number compared.
func verify(dir string, maxReport int, logger *slog.Logger) (int, int, error) {
	cfg, err := config.Load(filepath.Join(dir, telemetry.ConfigFile))
	if err != nil {
		return 0, 0, err
	}
	actions, err := telemetry.ReadActions(filepath.Join(dir, telemetry.ActionsFile))
	if err != nil {
		return 0, 0, err
	}
	recorded, err := telemetry.ReadTrajectory(filepath.Join(dir, telemetry.TrajectoryFile))
	if err != nil {
		return 0, 0, err
	}

	session, err := sim.Build(cfg, logger)
	if err != nil {
		return 0, 0, err
	}
	ticks := runner.AddReplayAgents(session, actions)

	// Index recorded rows by tick and agent; trajectory_interval may skip ticks.
	type key struct {
		tick  uint64
		agent uint32
	}
	want := make(map[key]telemetry.TrajectoryRecord, len(recorded))
	for _, r := range recorded {
		want[key{r.Tick, r.AgentID}] = r
	}

	mismatches, compared := 0, 0
	for i := 0; i < ticks; i++ {
		for _, snap := range session.Step() {
			got := telemetry.NewTrajectoryRecord(snap)
			rec, ok := want[key{got.Tick, got.AgentID}]
			if !ok {
				continue
			}
			compared++
			got.Name = rec.Name
			if got != rec {
				mismatches++
				if mismatches <= maxReport {
					logger.Warn("mismatch",
						"tick", got.Tick,
						"agent", got.AgentID,
						"got", fmt.Sprintf("%+v", got),
						"want", fmt.Sprintf("%+v", rec),
					)
				}
			}
		}
	}
	if compared < len(recorded) {
		return mismatches, compared, fmt.Errorf("%d recorded rows were never reached", len(recorded)-compared)
	}
	return mismatches, compared, nil
}
