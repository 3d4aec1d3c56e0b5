// Package config provides configuration loading and access for the simulator.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/neurodrive/track"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Physics   PhysicsConfig   `yaml:"physics"`
	Track     TrackConfig     `yaml:"track"`
	Car       CarConfig       `yaml:"car"`
	Action    ActionConfig    `yaml:"action"`
	Sensors   SensorsConfig   `yaml:"sensors"`
	Session   SessionConfig   `yaml:"session"`
	Follower  FollowerConfig  `yaml:"follower"`
	Policy    PolicyConfig    `yaml:"policy"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// PhysicsConfig holds the fixed timestep and car dynamics.
type PhysicsConfig struct {
	DT            float64 `yaml:"dt"`
	RotationSpeed float64 `yaml:"rotation_speed"` // rad/s at full steering
	Thrust        float64 `yaml:"thrust"`
	Drag          float64 `yaml:"drag"` // per-tick velocity multiplier
}

// TrackConfig selects and places the track. Layout rows, when present,
// override the built-in named layout.
type TrackConfig struct {
	Name           string   `yaml:"name"`
	TileSize       float64  `yaml:"tile_size"`
	WallThickness  float64  `yaml:"wall_thickness"`
	StartDirection string   `yaml:"start_direction"`
	Layout         []string `yaml:"layout"`
}

// CarConfig holds the car footprint.
type CarConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// ActionConfig holds action smoothing parameters.
type ActionConfig struct {
	Smoothing    bool    `yaml:"smoothing"`
	SmoothingTau float64 `yaml:"smoothing_tau"` // seconds
}

// SensorsConfig holds the ray fan and observation normalization scales.
type SensorsConfig struct {
	MaxRange            float64   `yaml:"max_range"`
	Step                float64   `yaml:"step"`
	SpeedNorm           float64   `yaml:"speed_norm"`
	AngularVelocityNorm float64   `yaml:"angular_velocity_norm"`
	RayAnglesDeg        []float64 `yaml:"ray_angles_deg"`
}

// SessionConfig holds session-level behaviour.
type SessionConfig struct {
	ResetOnCrash bool `yaml:"reset_on_crash"`
	MaxTicks     int  `yaml:"max_ticks"` // 0 = unlimited
}

// FollowerConfig tunes the scripted centerline follower.
type FollowerConfig struct {
	LookAhead      float64 `yaml:"look_ahead"`
	SteeringGain   float64 `yaml:"steering_gain"`
	TargetSpeed    float64 `yaml:"target_speed"`
	CornerSlowdown float64 `yaml:"corner_slowdown"` // fraction of target speed shed at a right-angle error
}

// PolicyConfig holds the learned policy network shape.
type PolicyConfig struct {
	Hidden int `yaml:"hidden"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	LogInterval        int `yaml:"log_interval"`        // ticks between progress log lines
	TrajectoryInterval int `yaml:"trajectory_interval"` // ticks between trajectory rows
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	RayAngles      []float64 // Sensors.RayAnglesDeg in radians
	ObservationLen int       // len(RayAngles) + 3
	StartDir       track.Dir
	Layout         []string // resolved layout rows
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	// Start with embedded defaults
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	// Load user config if provided
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.computeDerived(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// computeDerived validates the config and calculates derived values.
func (c *Config) computeDerived() error {
	if !(c.Physics.DT > 0) {
		return fmt.Errorf("config: physics.dt must be positive, got %v", c.Physics.DT)
	}
	if len(c.Sensors.RayAnglesDeg) == 0 {
		return fmt.Errorf("config: sensors.ray_angles_deg is empty")
	}

	c.Derived.RayAngles = make([]float64, len(c.Sensors.RayAnglesDeg))
	for i, deg := range c.Sensors.RayAnglesDeg {
		c.Derived.RayAngles[i] = deg * math.Pi / 180
	}
	c.Derived.ObservationLen = len(c.Derived.RayAngles) + 3

	dir, ok := track.ParseDir(c.Track.StartDirection)
	if !ok {
		return fmt.Errorf("config: unknown track.start_direction %q", c.Track.StartDirection)
	}
	c.Derived.StartDir = dir

	if len(c.Track.Layout) > 0 {
		c.Derived.Layout = append([]string(nil), c.Track.Layout...)
	} else {
		rows, ok := track.Builtin(c.Track.Name)
		if !ok {
			return fmt.Errorf("config: unknown track.name %q and no layout given", c.Track.Name)
		}
		c.Derived.Layout = rows
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
