package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/pthm-cable/neurodrive/components"
	"github.com/pthm-cable/neurodrive/config"
	"github.com/pthm-cable/neurodrive/controller"
	"github.com/pthm-cable/neurodrive/neural"
	"github.com/pthm-cable/neurodrive/runner"
	"github.com/pthm-cable/neurodrive/sim"
	"github.com/pthm-cable/neurodrive/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	controllerKind := flag.String("controller", "follower", "Controller: follower, constant, policy, replay, idle")
	agents := flag.Int("agents", 1, "Number of cars (ignored for replay)")
	maxTicks := flag.Int("max-ticks", -1, "Stop after N ticks (0 = unlimited, -1 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	policyPath := flag.String("policy", "", "Policy weights JSON for -controller policy (empty = random network)")
	replayPath := flag.String("replay", "", "Run directory or actions.csv for -controller replay")
	seed := flag.Int64("seed", 0, "RNG seed for random policies (0 = time-based)")
	steering := flag.Float64("steering", 0, "Steering for -controller constant")
	throttle := flag.Float64("throttle", 1, "Throttle for -controller constant")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	session, err := sim.Build(cfg, logger)
	if err != nil {
		slog.Error("failed to build track", "error", err)
		os.Exit(1)
	}
	slog.Info("track compiled",
		"track", cfg.Track.Name,
		"points", session.Centerline().Len(),
		"length", session.Centerline().TotalLength(),
	)

	ticks := cfg.Session.MaxTicks
	if *maxTicks >= 0 {
		ticks = *maxTicks
	}

	switch *controllerKind {
	case "replay":
		n, err := addReplay(session, *replayPath)
		if err != nil {
			slog.Error("failed to load replay", "error", err)
			os.Exit(1)
		}
		if *maxTicks < 0 {
			ticks = n
		}
	default:
		rng := rand.New(rand.NewSource(rngSeed))
		for i := 0; i < *agents; i++ {
			ctrl, err := newController(*controllerKind, cfg, session, rng, *policyPath, components.Action{Steering: *steering, Throttle: *throttle})
			if err != nil {
				slog.Error("failed to create controller", "error", err)
				os.Exit(1)
			}
			session.AddAgent(fmt.Sprintf("%s-%d", *controllerKind, i), ctrl)
		}
	}

	r, err := runner.New(session, runner.Options{
		MaxTicks:           ticks,
		LogInterval:        cfg.Telemetry.LogInterval,
		TrajectoryInterval: cfg.Telemetry.TrajectoryInterval,
		OutputDir:          *outputDir,
	}, logger)
	if err != nil {
		slog.Error("failed to create output", "error", err)
		os.Exit(1)
	}
	if err := r.Output().WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	slog.Info("starting headless simulation",
		"seed", rngSeed,
		"controller", *controllerKind,
		"agents", session.NumAgents(),
		"max_ticks", ticks,
		"output_dir", *outputDir,
	)

	if err := r.Run(ctx); err != nil {
		slog.Info("interrupted", "tick", session.Tick(), "reason", err)
	}
	if err := r.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
		os.Exit(1)
	}
}

func newController(kind string, cfg *config.Config, s *sim.Session, rng *rand.Rand, policyPath string, fixed components.Action) (controller.Controller, error) {
	switch kind {
	case "follower":
		return controller.NewFollower(s.Centerline(), sim.FollowerParamsFrom(cfg)), nil
	case "constant":
		return controller.Constant{Action: fixed}, nil
	case "idle":
		return nil, nil
	case "policy":
		if policyPath != "" {
			return controller.LoadPolicy(policyPath, cfg.Derived.ObservationLen)
		}
		return controller.NewPolicy(neural.NewFFNN(rng, cfg.Derived.ObservationLen, cfg.Policy.Hidden)), nil
	default:
		return nil, fmt.Errorf("unknown controller %q", kind)
	}
}

// addReplay loads an action log, given directly or as a run directory.
func addReplay(s *sim.Session, path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("-replay is required for the replay controller")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, telemetry.ActionsFile)
	}
	actions, err := telemetry.ReadActions(path)
	if err != nil {
		return 0, err
	}
	return runner.AddReplayAgents(s, actions), nil
}
