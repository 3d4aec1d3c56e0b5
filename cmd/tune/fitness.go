package main

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/neurodrive/components"
	"github.com/pthm-cable/neurodrive/controller"
	"github.com/pthm-cable/neurodrive/sim"
	"github.com/pthm-cable/neurodrive/telemetry"
	"github.com/pthm-cable/neurodrive/track"
)

// Fitness weights.
const (
	resetPenalty   = 0.25 // laps lost per crash
	offRoadPenalty = 0.5  // laps lost for a run spent entirely off road
	failedFitness  = 1e9
)

// ControllerFactory builds a fresh controller for a candidate vector.
type ControllerFactory func(x []float64) (controller.Controller, error)

// FitnessEvaluator runs headless sessions and computes fitness.
type FitnessEvaluator struct {
	grid       *track.Grid
	centerline *track.Centerline
	opts       sim.Options
	maxTicks   int
	seeds      []int64
	noise      float64
	factory    ControllerFactory

	mu          sync.Mutex
	bestFitness float64
	lastSummary telemetry.Summary
}

// NewFitnessEvaluator creates a new evaluator. The grid and centerline are
// shared read-only by every run.
func NewFitnessEvaluator(grid *track.Grid, centerline *track.Centerline, opts sim.Options, maxTicks int, seeds []int64, noise float64, factory ControllerFactory) *FitnessEvaluator {
	return &FitnessEvaluator{
		grid:        grid,
		centerline:  centerline,
		opts:        opts,
		maxTicks:    maxTicks,
		seeds:       seeds,
		noise:       noise,
		factory:     factory,
		bestFitness: math.Inf(1),
	}
}

// LastSummary returns the first seed's summary from the most recent evaluation.
func (fe *FitnessEvaluator) LastSummary() telemetry.Summary {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastSummary
}

// noisy perturbs steering with seeded Gaussian noise so a candidate has to
// hold the line under disturbance.
type noisy struct {
	inner controller.Controller
	rng   *rand.Rand
	std   float64
}

func (n *noisy) Act(p controller.Percept) components.Action {
	a := n.inner.Act(p)
	a.Steering += n.rng.NormFloat64() * n.std
	return a
}

// Score turns a run summary into driven laps net of penalties.
func Score(s telemetry.Summary) float64 {
	return s.Laps - resetPenalty*float64(s.Resets) - offRoadPenalty*s.OffRoadFraction
}

// Evaluate computes fitness for a candidate (lower = better): the negated
// mean score over all seeds, run in parallel.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	summaries := make([]telemetry.Summary, len(fe.seeds))

	var g errgroup.Group
	for i, seed := range fe.seeds {
		g.Go(func() error {
			s, err := fe.runSession(x, seed)
			if err != nil {
				return err
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Error("evaluation failed", "error", err)
		return failedFitness
	}

	var total float64
	for _, s := range summaries {
		total += Score(s)
	}
	fitness := -total / float64(len(summaries))

	fe.mu.Lock()
	if fitness < fe.bestFitness {
		fe.bestFitness = fitness
	}
	if len(summaries) > 0 {
		fe.lastSummary = summaries[0]
	}
	fe.mu.Unlock()

	return fitness
}

// runSession drives one car for maxTicks and summarizes the run.
func (fe *FitnessEvaluator) runSession(x []float64, seed int64) (telemetry.Summary, error) {
	session, err := sim.New(fe.opts, fe.grid, fe.centerline, slog.New(slog.DiscardHandler))
	if err != nil {
		return telemetry.Summary{}, err
	}
	ctrl, err := fe.factory(x)
	if err != nil {
		return telemetry.Summary{}, err
	}
	if fe.noise > 0 {
		ctrl = &noisy{inner: ctrl, rng: rand.New(rand.NewSource(seed)), std: fe.noise}
	}
	id := session.AddAgent("candidate", ctrl)

	collector := telemetry.NewCollector()
	for i := 0; i < fe.maxTicks; i++ {
		collector.Observe(session.Step())
	}

	s, _ := collector.Summary(id)
	return s, nil
}
