// Package runner drives a session headlessly: it advances ticks, streams
// trajectory and action logs, and reports periodic and end-of-run stats.
package runner

import (
	"context"
	"log/slog"
	"sort"

	"github.com/pthm-cable/neurodrive/components"
	"github.com/pthm-cable/neurodrive/controller"
	"github.com/pthm-cable/neurodrive/sim"
	"github.com/pthm-cable/neurodrive/telemetry"
)

// Options configures a Runner.
type Options struct {
	MaxTicks           int // 0 = until the context is cancelled
	LogInterval        int // ticks between progress logs, 0 = off
	TrajectoryInterval int // ticks between trajectory rows, 0 = off
	OutputDir          string
}

// Runner owns a session and its telemetry sinks.
type Runner struct {
	session *sim.Session
	opts    Options
	logger  *slog.Logger

	outputManager *telemetry.OutputManager
	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
}

// New creates a runner. Output files are created only when opts.OutputDir
// is set.
func New(session *sim.Session, opts Options, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}

	window := opts.LogInterval
	if window <= 0 {
		window = 60
	}

	return &Runner{
		session:       session,
		opts:          opts,
		logger:        logger,
		outputManager: om,
		collector:     telemetry.NewCollector(),
		perfCollector: telemetry.NewPerfCollector(window),
	}, nil
}

// Session returns the driven session.
func (r *Runner) Session() *sim.Session { return r.session }

// Output returns the output manager, nil when output is disabled.
func (r *Runner) Output() *telemetry.OutputManager { return r.outputManager }

// Step advances one tick and records it.
func (r *Runner) Step() []sim.Snapshot {
	r.perfCollector.StartTick()
	snaps := r.session.Step()
	r.perfCollector.EndStep()

	r.record(snaps)

	r.perfCollector.EndTick()

	if r.opts.LogInterval > 0 && r.session.Tick()%uint64(r.opts.LogInterval) == 0 {
		r.flush(snaps)
	}
	return snaps
}

// Run steps until MaxTicks is reached or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	for r.opts.MaxTicks <= 0 || r.session.Tick() < uint64(r.opts.MaxTicks) {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Step()
	}
	r.logger.Info("max ticks reached", "tick", r.session.Tick())
	return nil
}

func (r *Runner) record(snaps []sim.Snapshot) {
	r.collector.Observe(snaps)

	if err := r.outputManager.WriteActions(snaps); err != nil {
		r.logger.Error("failed to write actions", "error", err)
	}
	if r.opts.TrajectoryInterval > 0 && r.session.Tick()%uint64(r.opts.TrajectoryInterval) == 0 {
		if err := r.outputManager.WriteTrajectory(snaps); err != nil {
			r.logger.Error("failed to write trajectory", "error", err)
		}
	}
}

// flush logs progress and perf for the elapsed window.
func (r *Runner) flush(snaps []sim.Snapshot) {
	perfStats := r.perfCollector.Stats()

	for _, s := range snaps {
		r.logger.Info("agent",
			"tick", s.Tick,
			"id", s.ID,
			"name", s.Name,
			"speed", s.Sensors.Speed,
			"fraction", s.Progress.Fraction,
			"lateral", s.Progress.Distance,
			"resets", s.Collision.Resets,
		)
	}
	r.logger.Info("perf", "tick", r.session.Tick(), "stats", perfStats)

	if err := r.outputManager.WritePerf(perfStats, r.session.Tick()); err != nil {
		r.logger.Error("failed to write perf", "error", err)
	}
}

// Summaries returns per-car run summaries.
func (r *Runner) Summaries() []telemetry.Summary {
	return r.collector.Summaries()
}

// Close logs and writes the run summaries and closes output files.
func (r *Runner) Close() error {
	summaries := r.collector.Summaries()
	for _, s := range summaries {
		r.logger.Info("summary", "agent", s)
	}
	if err := r.outputManager.WriteSummaries(summaries); err != nil {
		r.logger.Error("failed to write summary", "error", err)
	}
	return r.outputManager.Close()
}

// AddReplayAgents adds one replay car per recorded agent. Cars are added in
// ID order and gaps are filled with idle cars, so a fresh session reproduces
// the recorded IDs. It returns the longest recorded sequence length.
func AddReplayAgents(s *sim.Session, actions map[components.AgentID][]components.Action) int {
	ids := make([]components.AgentID, 0, len(actions))
	for id := range actions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	longest := 0
	if len(ids) == 0 {
		return longest
	}
	for id := components.AgentID(1); id <= ids[len(ids)-1]; id++ {
		seq, ok := actions[id]
		if !ok {
			s.AddAgent("idle", nil)
			continue
		}
		r := controller.NewReplay(seq)
		s.AddAgent("replay", r)
		longest = max(longest, r.Len())
	}
	return longest
}
