// Package main provides CMA-ES tuning of the scripted follower or of a
// policy network's weights against the driving simulator.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/neurodrive/config"
	"github.com/pthm-cable/neurodrive/controller"
	"github.com/pthm-cable/neurodrive/neural"
	"github.com/pthm-cable/neurodrive/sim"
)

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	target := flag.String("target", "follower", "What to tune: follower or policy")
	maxTicks := flag.Int("max-ticks", 1800, "Ticks per evaluation run")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	noise := flag.Float64("noise", 0.05, "Steering noise std per seed (0 = noiseless)")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	seed := flag.Int64("seed", 1, "RNG seed for the initial policy network")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()

	// Compile the track once; every run shares it read-only.
	grid, centerline, err := sim.BuildTrack(baseCfg)
	if err != nil {
		log.Fatalf("failed to build track: %v", err)
	}

	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}

	// Each target defines the search space, the starting point, how a
	// candidate becomes a controller, and how the winner is saved.
	var (
		initX   []float64
		header  []string
		factory ControllerFactory
		decode  func(x []float64) []float64
		save    func(best []float64) error
		step    float64
		dim     int
	)

	switch *target {
	case "follower":
		params := NewFollowerParams(baseCfg)
		initX = params.Normalize(params.DefaultVector())
		dim = params.Dim()
		step = 0.3
		for _, spec := range params.Specs {
			header = append(header, spec.Name)
		}
		decode = func(x []float64) []float64 { return params.Clamp(params.Denormalize(x)) }
		factory = func(x []float64) (controller.Controller, error) {
			cfg := *baseCfg
			params.ApplyToConfig(&cfg, params.Denormalize(x))
			return controller.NewFollower(centerline, sim.FollowerParamsFrom(&cfg)), nil
		}
		save = func(best []float64) error {
			bestCfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			params.ApplyToConfig(bestCfg, best)
			path := filepath.Join(*outputDir, "best_config.yaml")
			if err := bestCfg.WriteYAML(path); err != nil {
				return err
			}
			fmt.Printf("\nBest config saved to: %s\n", path)
			return nil
		}

	case "policy":
		inputs, hidden := baseCfg.Derived.ObservationLen, baseCfg.Policy.Hidden
		initX = neural.NewFFNN(rand.New(rand.NewSource(*seed)), inputs, hidden).Params()
		dim = neural.NumParams(inputs, hidden)
		step = 0.5
		header = []string{"params"}
		decode = func(x []float64) []float64 { return x }
		factory = func(x []float64) (controller.Controller, error) {
			brain, err := neural.FromParams(inputs, hidden, x)
			if err != nil {
				return nil, err
			}
			return controller.NewPolicy(brain), nil
		}
		save = func(best []float64) error {
			brain, err := neural.FromParams(inputs, hidden, best)
			if err != nil {
				return err
			}
			path := filepath.Join(*outputDir, "best_policy.json")
			if err := controller.SavePolicy(path, brain); err != nil {
				return err
			}
			fmt.Printf("\nBest policy saved to: %s\n", path)
			return nil
		}

	default:
		log.Fatalf("unknown target %q (want follower or policy)", *target)
	}

	evaluator := NewFitnessEvaluator(grid, centerline, sim.OptionsFrom(baseCfg), *maxTicks, evalSeeds, *noise, factory)

	problem := optimize.Problem{
		Func: evaluator.Evaluate,
	}

	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential evaluation; seeds run in parallel inside Evaluate
	}

	popSize := *population
	if popSize == 0 {
		// Auto-size: 4 + floor(3*ln(n))
		popSize = 4 + int(3*math.Log(float64(dim)))
	}

	method := &optimize.CmaEsChol{
		InitStepSize: step,
		Population:   popSize,
	}

	logPath := filepath.Join(*outputDir, "tune_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()

	logWriter := csv.NewWriter(logFile)
	defer logWriter.Flush()

	logWriter.Write(append([]string{"eval", "fitness", "laps", "resets", "speed_mean"}, header...))

	evalCount := 0
	var bestFitness float64 = 1e9
	var bestParams []float64
	startTime := time.Now()

	// Wrap the function to log evaluations
	originalFunc := problem.Func
	problem.Func = func(x []float64) float64 {
		fitness := originalFunc(x)
		evalCount++

		values := decode(x)
		if fitness < bestFitness {
			bestFitness = fitness
			bestParams = append([]float64(nil), values...)
		}

		summary := evaluator.LastSummary()
		row := []string{
			strconv.Itoa(evalCount),
			fmt.Sprintf("%.6f", fitness),
			fmt.Sprintf("%.4f", summary.Laps),
			strconv.Itoa(summary.Resets),
			fmt.Sprintf("%.2f", summary.SpeedMean),
		}
		if *target == "follower" {
			for _, v := range values {
				row = append(row, fmt.Sprintf("%.6f", v))
			}
		} else {
			row = append(row, strconv.Itoa(len(values)))
		}
		logWriter.Write(row)
		logWriter.Flush()

		elapsed := time.Since(startTime)
		avgPerEval := elapsed / time.Duration(evalCount)
		remaining := time.Duration(*maxEvals-evalCount) * avgPerEval

		fmt.Printf("Eval %d/%d: laps=%.3f resets=%d (best=%.3f) | elapsed: %s, ETA: %s\n",
			evalCount, *maxEvals, summary.Laps, summary.Resets, bestFitness,
			formatDuration(elapsed), formatDuration(remaining))

		return fitness
	}

	fmt.Printf("Starting CMA-ES tuning of %s with %d parameters, population=%d, max_evals=%d\n",
		*target, dim, popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, ticks per run: %d\n", *seeds, *maxTicks)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	// Use best params found (may be from any evaluation, not just final)
	if bestParams == nil && result != nil {
		bestParams = decode(result.X)
	}
	if bestParams == nil {
		log.Fatal("no evaluations completed")
	}

	fmt.Printf("\nTuning complete after %d evaluations in %s\n", evalCount, formatDuration(time.Since(startTime)))
	fmt.Printf("Best fitness: %.4f\n", bestFitness)

	if err := save(bestParams); err != nil {
		log.Printf("failed to save best result: %v", err)
	}
}
