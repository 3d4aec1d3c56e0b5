package sim

import (
	"fmt"

	"github.com/pthm-cable/neurodrive/components"
	"github.com/pthm-cable/neurodrive/config"
	"github.com/pthm-cable/neurodrive/controller"
	"github.com/pthm-cable/neurodrive/systems"
	"github.com/pthm-cable/neurodrive/track"
)

// Options are the explicit parameters a Session runs with.
type Options struct {
	DT           float64
	Dynamics     components.DynamicsParams
	Sensors      systems.SensorConfig
	CarWidth     float64
	CarHeight    float64
	Smoothing    bool
	SmoothingTau float64
	ResetOnCrash bool
}

// DefaultOptions returns the stock session parameters.
func DefaultOptions() Options {
	return Options{
		DT:           1.0 / 60.0,
		Dynamics:     components.DefaultDynamicsParams(),
		Sensors:      systems.DefaultSensorConfig(),
		CarWidth:     12,
		CarHeight:    6,
		SmoothingTau: systems.DefaultSmoothingTau,
		ResetOnCrash: true,
	}
}

// OptionsFrom converts loaded configuration into session options.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		DT: cfg.Physics.DT,
		Dynamics: components.DynamicsParams{
			RotationSpeed: cfg.Physics.RotationSpeed,
			Thrust:        cfg.Physics.Thrust,
			Drag:          cfg.Physics.Drag,
		},
		Sensors:      SensorConfigFrom(cfg),
		CarWidth:     cfg.Car.Width,
		CarHeight:    cfg.Car.Height,
		Smoothing:    cfg.Action.Smoothing,
		SmoothingTau: cfg.Action.SmoothingTau,
		ResetOnCrash: cfg.Session.ResetOnCrash,
	}
}

// SensorConfigFrom extracts the sensor configuration.
func SensorConfigFrom(cfg *config.Config) systems.SensorConfig {
	return systems.SensorConfig{
		MaxRange:            cfg.Sensors.MaxRange,
		Step:                cfg.Sensors.Step,
		SpeedNorm:           cfg.Sensors.SpeedNorm,
		AngularVelocityNorm: cfg.Sensors.AngularVelocityNorm,
		RayAngles:           append([]float64(nil), cfg.Derived.RayAngles...),
	}
}

// FollowerParamsFrom extracts the scripted follower tuning.
func FollowerParamsFrom(cfg *config.Config) controller.FollowerParams {
	return controller.FollowerParams{
		LookAhead:      cfg.Follower.LookAhead,
		SteeringGain:   cfg.Follower.SteeringGain,
		TargetSpeed:    cfg.Follower.TargetSpeed,
		CornerSlowdown: cfg.Follower.CornerSlowdown,
	}
}

// BuildTrack parses the configured layout into a grid centred on the world
// origin and compiles its centerline from the spawn cell.
func BuildTrack(cfg *config.Config) (*track.Grid, *track.Centerline, error) {
	tiles, err := track.ParseLayout(cfg.Derived.Layout)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing layout: %w", err)
	}

	rows, cols := len(tiles), len(tiles[0])
	origin := track.CenteredOrigin(rows, cols, cfg.Track.TileSize)
	grid, err := track.NewGrid(tiles, cfg.Track.TileSize, origin, cfg.Track.WallThickness)
	if err != nil {
		return nil, nil, fmt.Errorf("building grid: %w", err)
	}

	row, col, ok := grid.FindSpawnCell()
	if !ok {
		return nil, nil, fmt.Errorf("building grid: no spawn point")
	}
	centerline, err := track.BuildClosedLoop(grid, row, col, cfg.Derived.StartDir)
	if err != nil {
		return nil, nil, fmt.Errorf("compiling centerline: %w", err)
	}

	return grid, centerline, nil
}
