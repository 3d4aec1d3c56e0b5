package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/neurodrive/components"
	"github.com/pthm-cable/neurodrive/sim"
	"github.com/pthm-cable/neurodrive/track"
)

// Summary aggregates one car's run.
type Summary struct {
	AgentID uint32 `csv:"agent_id"`
	Name    string `csv:"name"`
	Ticks   int    `csv:"ticks"`

	// Speed distribution
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP10  float64 `csv:"speed_p10"`
	SpeedP50  float64 `csv:"speed_p50"`
	SpeedP90  float64 `csv:"speed_p90"`

	// Distance from the centerline
	LateralMean float64 `csv:"lateral_mean"`
	LateralP90  float64 `csv:"lateral_p90"`

	OffRoadFraction float64 `csv:"off_road_fraction"`
	Resets          int     `csv:"resets"`
	Laps            float64 `csv:"laps"` // net driven progress, teleports excluded
}

// ComputeStats returns mean, sample standard deviation and the 10th, 50th
// and 90th percentiles. Empty input gives zeros; a single value has zero
// deviation.
func ComputeStats(values []float64) (mean, std, p10, p50, p90 float64) {
	n := len(values)
	if n == 0 {
		return 0, 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)
	if n > 1 {
		std = stat.StdDev(values, nil)
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, std, p10, p50, p90
}

// LogValue implements slog.LogValuer for structured logging.
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("agent_id", int(s.AgentID)),
		slog.String("name", s.Name),
		slog.Int("ticks", s.Ticks),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p50", s.SpeedP50),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("lateral_mean", s.LateralMean),
		slog.Float64("lateral_p90", s.LateralP90),
		slog.Float64("off_road_fraction", s.OffRoadFraction),
		slog.Int("resets", s.Resets),
		slog.Float64("laps", s.Laps),
	)
}

// agentTrace accumulates per-tick samples for one car.
type agentTrace struct {
	name         string
	speeds       []float64
	laterals     []float64
	offRoadTicks int
	resets       int
	laps         float64
	lastFraction float64
	seen         bool
}

// Collector accumulates snapshots over a run and produces Summaries.
type Collector struct {
	traces map[components.AgentID]*agentTrace
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{traces: make(map[components.AgentID]*agentTrace)}
}

// Observe records one tick of snapshots.
func (c *Collector) Observe(snaps []sim.Snapshot) {
	for _, s := range snaps {
		tr, ok := c.traces[s.ID]
		if !ok {
			tr = &agentTrace{name: s.Name}
			c.traces[s.ID] = tr
		}

		tr.speeds = append(tr.speeds, s.Sensors.Speed)
		tr.laterals = append(tr.laterals, s.Progress.Distance)
		if s.Collision.OffRoad {
			tr.offRoadTicks++
		}

		// A reset teleports the car; its jump is not driven progress.
		if tr.seen && s.Collision.Resets == tr.resets {
			tr.laps += track.WrapFractionDelta(tr.lastFraction, s.Progress.Fraction)
		}
		tr.resets = s.Collision.Resets
		tr.lastFraction = s.Progress.Fraction
		tr.seen = true
	}
}

// Summary returns the summary for one car.
func (c *Collector) Summary(id components.AgentID) (Summary, bool) {
	tr, ok := c.traces[id]
	if !ok {
		return Summary{}, false
	}

	s := Summary{
		AgentID: uint32(id),
		Name:    tr.name,
		Ticks:   len(tr.speeds),
		Resets:  tr.resets,
		Laps:    tr.laps,
	}
	s.SpeedMean, s.SpeedStd, s.SpeedP10, s.SpeedP50, s.SpeedP90 = ComputeStats(tr.speeds)
	s.LateralMean, _, _, _, s.LateralP90 = ComputeStats(tr.laterals)
	if s.Ticks > 0 {
		s.OffRoadFraction = float64(tr.offRoadTicks) / float64(s.Ticks)
	}
	return s, true
}

// Summaries returns every observed car's summary ordered by ID.
func (c *Collector) Summaries() []Summary {
	ids := make([]components.AgentID, 0, len(c.traces))
	for id := range c.traces {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		s, _ := c.Summary(id)
		out = append(out, s)
	}
	return out
}
