package telemetry

import (
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
)

// tickTiming splits one runner tick into the simulation step and the
// logging that follows it.
type tickTiming struct {
	step      time.Duration
	telemetry time.Duration
}

func (t tickTiming) total() time.Duration { return t.step + t.telemetry }

// PerfCollector keeps the last windowSize tick timings in a ring.
type PerfCollector struct {
	window []tickTiming
	next   int
	filled int

	start    time.Time
	stepDone time.Time
	inStep   bool
}

// NewPerfCollector creates a collector averaging over windowSize ticks.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{window: make([]tickTiming, windowSize)}
}

// StartTick marks the start of a tick and of its step phase.
func (p *PerfCollector) StartTick() {
	p.start = time.Now()
	p.inStep = true
}

// EndStep marks the end of the step phase. Everything until EndTick is
// counted as telemetry.
func (p *PerfCollector) EndStep() {
	p.stepDone = time.Now()
	p.inStep = false
}

// EndTick records the tick.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	if p.inStep {
		p.stepDone = now
		p.inStep = false
	}
	p.window[p.next] = tickTiming{
		step:      p.stepDone.Sub(p.start),
		telemetry: now.Sub(p.stepDone),
	}
	p.next = (p.next + 1) % len(p.window)
	p.filled = min(p.filled+1, len(p.window))
}

// PerfStats summarizes the window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	AvgStep      time.Duration
	AvgTelemetry time.Duration
	StepPct      float64
	TelemetryPct float64

	TicksPerSecond float64
}

// Stats computes statistics over the current window. An empty window
// yields zero stats.
func (p *PerfCollector) Stats() PerfStats {
	if p.filled == 0 {
		return PerfStats{}
	}

	totals := make([]float64, p.filled)
	steps := make([]float64, p.filled)
	for i, t := range p.window[:p.filled] {
		totals[i] = float64(t.total())
		steps[i] = float64(t.step)
	}

	n := float64(p.filled)
	avgTick := floats.Sum(totals) / n
	avgStep := floats.Sum(steps) / n

	stats := PerfStats{
		AvgTickDuration: time.Duration(avgTick),
		MinTickDuration: time.Duration(floats.Min(totals)),
		MaxTickDuration: time.Duration(floats.Max(totals)),
		AvgStep:         time.Duration(avgStep),
		AvgTelemetry:    time.Duration(avgTick - avgStep),
	}
	if avgTick > 0 {
		stats.StepPct = avgStep / avgTick * 100
		stats.TelemetryPct = 100 - stats.StepPct
		stats.TicksPerSecond = float64(time.Second) / avgTick
	}
	return stats
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
		slog.Float64("step_pct", s.StepPct),
		slog.Float64("telemetry_pct", s.TelemetryPct),
	)
}

// PerfStatsCSV is one row of perf.csv.
type PerfStatsCSV struct {
	Tick         uint64  `csv:"tick"`
	AvgTickUS    int64   `csv:"avg_tick_us"`
	MinTickUS    int64   `csv:"min_tick_us"`
	MaxTickUS    int64   `csv:"max_tick_us"`
	TicksPerSec  float64 `csv:"ticks_per_sec"`
	StepPct      float64 `csv:"step_pct"`
	TelemetryPct float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats into a perf.csv row for tick.
func (s PerfStats) ToCSV(tick uint64) PerfStatsCSV {
	return PerfStatsCSV{
		Tick:         tick,
		AvgTickUS:    s.AvgTickDuration.Microseconds(),
		MinTickUS:    s.MinTickDuration.Microseconds(),
		MaxTickUS:    s.MaxTickDuration.Microseconds(),
		TicksPerSec:  s.TicksPerSecond,
		StepPct:      s.StepPct,
		TelemetryPct: s.TelemetryPct,
	}
}
