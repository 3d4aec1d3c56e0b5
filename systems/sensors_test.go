package systems

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/neurodrive/components"
)

func TestDefaultSensorConfig(t *testing.T) {
	cfg := DefaultSensorConfig()

	if len(cfg.RayAngles) != 11 {
		t.Fatalf("ray count = %d, want 11", len(cfg.RayAngles))
	}
	if cfg.ObservationLen() != 14 {
		t.Errorf("ObservationLen() = %d, want 14", cfg.ObservationLen())
	}
	if cfg.RayAngles[5] != 0 {
		t.Errorf("centre ray = %v, want 0", cfg.RayAngles[5])
	}
	for i := 0; i < 5; i++ {
		if cfg.RayAngles[i] != -cfg.RayAngles[10-i] {
			t.Errorf("ray fan not symmetric at %d: %v vs %v", i, cfg.RayAngles[i], cfg.RayAngles[10-i])
		}
	}
	if math.Abs(cfg.RayAngles[0]+150*math.Pi/180) > 1e-12 {
		t.Errorf("first ray = %v, want -150deg", cfg.RayAngles[0])
	}
}

func TestRaycastRefinesToWall(t *testing.T) {
	g := corridor(t)
	origin := r2.Vec{X: 150, Y: -50}
	up := r2.Vec{X: 0, Y: 1}

	// The north wall inset puts the road edge 47.5 above the corridor centre.
	const want = 47.5
	for _, step := range []float64{3, 1, 0.5} {
		dist, hit := Raycast(g, origin, up, 375, step)
		if dist > want || want-dist > step {
			t.Errorf("step %v: distance = %v, want within %v below %v", step, dist, step, want)
		}
		if hit != r2.Add(origin, r2.Scale(dist, up)) {
			t.Errorf("step %v: hit point %v does not match distance %v", step, hit, dist)
		}
	}

	// Bisection tightens well beyond the march step.
	dist, _ := Raycast(g, origin, up, 375, 3)
	if want-dist > 3.0/128 {
		t.Errorf("refined distance %v not within 3/128 of %v", dist, want)
	}
}

func TestRaycastAlongCorridor(t *testing.T) {
	g := corridor(t)
	origin := r2.Vec{X: 150, Y: -50}

	east, _ := Raycast(g, origin, r2.Vec{X: 1}, 375, 3)
	if math.Abs(east-150) > 3 {
		t.Errorf("east distance = %v, want ~150 (grid edge)", east)
	}

	// Direction length does not scale the distance.
	west, _ := Raycast(g, origin, r2.Vec{X: -10}, 375, 3)
	if math.Abs(west-150) > 3 {
		t.Errorf("west distance = %v, want ~150", west)
	}
}

func TestRaycastNoHitWithinRange(t *testing.T) {
	g := corridor(t)
	origin := r2.Vec{X: 150, Y: -50}

	dist, hit := Raycast(g, origin, r2.Vec{X: 1}, 20, 3)
	if dist != 20 {
		t.Errorf("distance = %v, want max range 20", dist)
	}
	if hit != (r2.Vec{X: 170, Y: -50}) {
		t.Errorf("hit = %v, want (170,-50)", hit)
	}
}

func TestRaycastDegenerate(t *testing.T) {
	g := corridor(t)
	origin := r2.Vec{X: 150, Y: -50}

	dist, hit := Raycast(g, origin, r2.Vec{}, 375, 3)
	if dist != 0 || hit != origin {
		t.Errorf("zero direction = (%v, %v), want (0, origin)", dist, hit)
	}

	// A zero step is floored instead of looping forever.
	dist, _ = Raycast(g, origin, r2.Vec{Y: 1}, 375, 0)
	if dist > 47.5 || 47.5-dist > minRayStep {
		t.Errorf("zero step distance = %v, want within %v of 47.5", dist, minRayStep)
	}
}

func TestUpdateSensors(t *testing.T) {
	g := corridor(t)
	cfg := DefaultSensorConfig()
	state := components.KinematicState{
		Position: r2.Vec{X: 150, Y: -50},
		Velocity: r2.Vec{X: 30, Y: 40},
		Heading:  0.1,
	}
	north := r2.Vec{Y: 1}

	first := UpdateSensors(g, cfg, state, north, nil, 1.0/60.0)
	if len(first.Distances) != 11 || len(first.HitPoints) != 11 || len(first.Directions) != 11 {
		t.Fatalf("reading lengths = %d/%d/%d, want 11", len(first.Distances), len(first.HitPoints), len(first.Directions))
	}
	if first.Speed != 50 {
		t.Errorf("speed = %v, want 50", first.Speed)
	}
	if want := math.Pi/2 - 0.1; math.Abs(first.HeadingError-want) > 1e-12 {
		t.Errorf("heading error = %v, want %v", first.HeadingError, want)
	}
	if first.AngularVelocity != 0 {
		t.Errorf("first-tick angular velocity = %v, want 0", first.AngularVelocity)
	}
	if first.PreviousHeading != 0.1 {
		t.Errorf("previous heading = %v, want 0.1", first.PreviousHeading)
	}
	for i, d := range first.Directions {
		if math.Abs(r2.Norm(d)-1) > 1e-12 {
			t.Errorf("direction %d not unit: %v", i, d)
		}
	}

	state.Heading = 0.3
	second := UpdateSensors(g, cfg, state, north, &first, 0.5)
	if math.Abs(second.AngularVelocity-0.4) > 1e-12 {
		t.Errorf("angular velocity = %v, want 0.4", second.AngularVelocity)
	}

	// A zero dt is floored.
	third := UpdateSensors(g, cfg, state, north, &first, 0)
	if want := 0.2 / minSensorDT; math.Abs(third.AngularVelocity-want) > 1e-3 {
		t.Errorf("zero-dt angular velocity = %v, want %v", third.AngularVelocity, want)
	}
}

func TestUpdateSensorsHeadingErrorWraps(t *testing.T) {
	g := corridor(t)
	state := components.KinematicState{Position: r2.Vec{X: 150, Y: -50}, Heading: 3}
	west := r2.Vec{X: -1}

	r := UpdateSensors(g, DefaultSensorConfig(), state, west, nil, 1.0/60.0)
	if want := math.Pi - 3; math.Abs(r.HeadingError-want) > 1e-12 {
		t.Errorf("heading error = %v, want %v", r.HeadingError, want)
	}

	state.Heading = 3 + 4*math.Pi
	r = UpdateSensors(g, DefaultSensorConfig(), state, west, nil, 1.0/60.0)
	if r.HeadingError <= -math.Pi || r.HeadingError > math.Pi {
		t.Errorf("heading error %v outside (-pi, pi]", r.HeadingError)
	}
}

func TestBuildObservation(t *testing.T) {
	cfg := SensorConfig{
		MaxRange:            375,
		Step:                3,
		SpeedNorm:           900,
		AngularVelocityNorm: 8,
		RayAngles:           []float64{-1, 0, 1, 2},
	}
	readings := components.SensorReadings{
		Distances:       []float64{0, 187.5, 375, 500},
		Speed:           450,
		HeadingError:    -math.Pi / 2,
		AngularVelocity: 16,
	}

	obs := BuildObservation(cfg, readings)
	want := []float64{0, 0.5, 1, 1, 0.5, -0.5, 1}
	if obs.Len() != len(want) {
		t.Fatalf("length = %d, want %d", obs.Len(), len(want))
	}
	for i, w := range want {
		if math.Abs(obs.Values[i]-w) > 1e-12 {
			t.Errorf("obs[%d] = %v, want %v", i, obs.Values[i], w)
		}
	}

	readings.Speed = 5000
	readings.HeadingError = math.Pi
	readings.AngularVelocity = -100
	obs = BuildObservation(cfg, readings)
	if obs.Values[4] != 1 || obs.Values[5] != 1 || obs.Values[6] != -1 {
		t.Errorf("saturated tail = %v, want [1 1 -1]", obs.Values[4:])
	}
}

func BenchmarkRaycast(b *testing.B) {
	g := corridor(b)
	origin := r2.Vec{X: 150, Y: -50}
	dir := r2.Vec{X: math.Cos(0.3), Y: math.Sin(0.3)}

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		Raycast(g, origin, dir, 375, 3)
	}
}

func BenchmarkUpdateSensors(b *testing.B) {
	g := corridor(b)
	cfg := DefaultSensorConfig()
	state := components.KinematicState{Position: r2.Vec{X: 150, Y: -50}, Velocity: r2.Vec{X: 200}}
	prev := UpdateSensors(g, cfg, state, r2.Vec{X: 1}, nil, 1.0/60.0)

	b.ResetTimer()
	for n := 0; n < b.N; n++ {
		prev = UpdateSensors(g, cfg, state, r2.Vec{X: 1}, &prev, 1.0/60.0)
	}
}
