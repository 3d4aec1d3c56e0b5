// Package sim runs driving sessions: one static track shared by any number
// of independently controlled cars, advanced by an explicit fixed-step tick.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/neurodrive/components"
	"github.com/pthm-cable/neurodrive/config"
	"github.com/pthm-cable/neurodrive/controller"
	"github.com/pthm-cable/neurodrive/systems"
	"github.com/pthm-cable/neurodrive/track"
)

// Snapshot is a copy of one car's state after a tick.
type Snapshot struct {
	ID          components.AgentID
	Name        string
	Tick        uint64
	State       components.KinematicState
	Controls    components.Controls
	Sensors     components.SensorReadings
	Observation components.Observation
	Progress    components.Progress
	Collision   components.Collision
}

// Session owns a track and the cars driving on it.
//
// Grid and Centerline are read-only and may be shared across sessions.
// A Session itself is not safe for concurrent use.
type Session struct {
	opts       Options
	grid       *track.Grid
	centerline *track.Centerline
	spawn      track.Pose
	logger     *slog.Logger

	world *ecs.World

	// Entity mapper and filter over the full car archetype
	carMapper *ecs.Map7[
		components.Car,
		components.KinematicState,
		components.Controls,
		components.SensorReadings,
		components.Observation,
		components.Progress,
		components.Collision,
	]
	carFilter *ecs.Filter7[
		components.Car,
		components.KinematicState,
		components.Controls,
		components.SensorReadings,
		components.Observation,
		components.Progress,
		components.Collision,
	]

	entities    map[components.AgentID]ecs.Entity
	controllers map[components.AgentID]controller.Controller

	nextID components.AgentID
	tick   uint64
}

// New creates a session over a compiled track. The spawn pose is the
// SpawnPoint cell centre facing along the centerline.
func New(opts Options, grid *track.Grid, centerline *track.Centerline, logger *slog.Logger) (*Session, error) {
	if grid == nil || centerline == nil {
		return nil, errors.New("sim: grid and centerline are required")
	}
	if !(opts.DT > 0) {
		return nil, fmt.Errorf("sim: dt must be positive, got %v", opts.DT)
	}
	pose, ok := grid.FindSpawn()
	if !ok {
		return nil, errors.New("sim: track has no spawn point")
	}
	if logger == nil {
		logger = slog.Default()
	}

	tangent := centerline.Project(pose.Position).Tangent
	pose.Heading = math.Atan2(tangent.Y, tangent.X)

	world := ecs.NewWorld()
	s := &Session{
		opts:       opts,
		grid:       grid,
		centerline: centerline,
		spawn:      pose,
		logger:     logger,
		world:      world,
		carMapper: ecs.NewMap7[
			components.Car,
			components.KinematicState,
			components.Controls,
			components.SensorReadings,
			components.Observation,
			components.Progress,
			components.Collision,
		](world),
		carFilter: ecs.NewFilter7[
			components.Car,
			components.KinematicState,
			components.Controls,
			components.SensorReadings,
			components.Observation,
			components.Progress,
			components.Collision,
		](world),
		entities:    make(map[components.AgentID]ecs.Entity),
		controllers: make(map[components.AgentID]controller.Controller),
		nextID:      1,
	}

	logger.Debug("session ready",
		"centerline_points", centerline.Len(),
		"track_length", centerline.TotalLength(),
		"spawn_x", pose.Position.X,
		"spawn_y", pose.Position.Y,
		"spawn_heading", pose.Heading,
	)
	return s, nil
}

// Build compiles the configured track and creates a session on it.
// Track defects are returned as errors; no session is created.
func Build(cfg *config.Config, logger *slog.Logger) (*Session, error) {
	grid, centerline, err := BuildTrack(cfg)
	if err != nil {
		return nil, err
	}
	return New(OptionsFrom(cfg), grid, centerline, logger)
}

func (s *Session) Grid() *track.Grid             { return s.grid }
func (s *Session) Centerline() *track.Centerline { return s.centerline }
func (s *Session) Spawn() track.Pose             { return s.spawn }
func (s *Session) Options() Options              { return s.opts }

// Tick returns the number of completed ticks.
func (s *Session) Tick() uint64 { return s.tick }

// NumAgents returns the number of cars in the session.
func (s *Session) NumAgents() int { return len(s.entities) }

// AddAgent places a new car at the spawn pose, measures its initial sensors,
// and returns its ID. A nil controller coasts with a zero action.
func (s *Session) AddAgent(name string, ctrl controller.Controller) components.AgentID {
	id := s.nextID
	s.nextID++

	car := components.Car{ID: id, Name: name, Width: s.opts.CarWidth, Height: s.opts.CarHeight}
	state := s.spawnState()
	var controls components.Controls
	var collision components.Collision
	progress, sensors, obs := s.measure(state, nil)

	entity := s.carMapper.NewEntity(&car, &state, &controls, &sensors, &obs, &progress, &collision)
	s.entities[id] = entity
	s.controllers[id] = ctrl

	s.logger.Debug("agent added", "id", id, "name", name, "tick", s.tick)
	return id
}

// RemoveAgent removes a car. It reports whether the car existed.
func (s *Session) RemoveAgent(id components.AgentID) bool {
	entity, ok := s.entities[id]
	if !ok {
		return false
	}
	s.world.RemoveEntity(entity)
	delete(s.entities, id)
	delete(s.controllers, id)

	s.logger.Debug("agent removed", "id", id, "tick", s.tick)
	return true
}

// ResetAgent returns a car to the spawn pose at rest with cleared controls.
// The reset counter is kept.
func (s *Session) ResetAgent(id components.AgentID) bool {
	entity, ok := s.entities[id]
	if !ok {
		return false
	}
	_, state, controls, sensors, obs, progress, collision := s.carMapper.Get(entity)
	s.reset(state, controls, sensors, obs, progress)
	collision.OffRoad = false
	return true
}

// Agent returns a snapshot of one car.
func (s *Session) Agent(id components.AgentID) (Snapshot, bool) {
	entity, ok := s.entities[id]
	if !ok {
		return Snapshot{}, false
	}
	return s.snapshot(s.carMapper.Get(entity)), true
}

// Agents returns snapshots of all cars ordered by ID.
func (s *Session) Agents() []Snapshot {
	snaps := make([]Snapshot, 0, len(s.entities))
	query := s.carFilter.Query()
	for query.Next() {
		snaps = append(snaps, s.snapshot(query.Get()))
	}
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].ID < snaps[j].ID })
	return snaps
}

// Step advances every car by one tick and returns their snapshots.
//
// Each car runs Input (controller, clamping, smoothing), Physics (Step),
// Collision (footprint test, optional reset), then Measurement (projection,
// sensors, observation) against the new pose. Cars do not interact, so the
// order in which they are visited does not affect the result.
func (s *Session) Step() []Snapshot {
	dt := s.opts.DT

	query := s.carFilter.Query()
	for query.Next() {
		car, state, controls, sensors, obs, progress, collision := query.Get()

		// Input
		desired := components.Action{}
		if ctrl := s.controllers[car.ID]; ctrl != nil {
			desired = ctrl.Act(controller.Percept{
				Tick:        s.tick,
				State:       *state,
				Sensors:     *sensors,
				Observation: *obs,
				Progress:    *progress,
			})
		}
		controls.Desired = desired.Clamped()
		controls.Applied = systems.SmoothAction(controls.Applied, controls.Desired, dt, s.opts.SmoothingTau, s.opts.Smoothing)

		// Physics
		*state = systems.Step(*state, controls.Applied.Steering, controls.Applied.Throttle, dt, s.opts.Dynamics)

		// Collision
		collision.OffRoad = systems.FootprintOffRoad(s.grid, *state, car.Width, car.Height)
		if collision.OffRoad && s.opts.ResetOnCrash {
			s.reset(state, controls, sensors, obs, progress)
			// The action chosen this tick stays on record for the action log.
			controls.Desired = desired.Clamped()
			collision.Resets++
			s.logger.Debug("agent reset", "id", car.ID, "tick", s.tick, "resets", collision.Resets)
			continue
		}

		// Measurement
		*progress, *sensors, *obs = s.measure(*state, sensors)
	}

	s.tick++
	return s.Agents()
}

// Run steps the session n times and returns the final snapshots.
func (s *Session) Run(n int) []Snapshot {
	var snaps []Snapshot
	for i := 0; i < n; i++ {
		snaps = s.Step()
	}
	if snaps == nil {
		snaps = s.Agents()
	}
	return snaps
}

func (s *Session) spawnState() components.KinematicState {
	return components.KinematicState{Position: s.spawn.Position, Heading: s.spawn.Heading}
}

// reset puts a car back at spawn and re-measures from rest. The heading
// history is dropped so the jump does not register as angular velocity.
func (s *Session) reset(
	state *components.KinematicState,
	controls *components.Controls,
	sensors *components.SensorReadings,
	obs *components.Observation,
	progress *components.Progress,
) {
	*state = s.spawnState()
	*controls = components.Controls{}
	*progress, *sensors, *obs = s.measure(*state, nil)
}

// measure projects the pose onto the centerline and recomputes sensors.
func (s *Session) measure(state components.KinematicState, prev *components.SensorReadings) (components.Progress, components.SensorReadings, components.Observation) {
	proj := s.centerline.Project(state.Position)
	progress := components.Progress{
		S:            proj.S,
		Fraction:     proj.Fraction,
		ClosestPoint: proj.ClosestPoint,
		Tangent:      proj.Tangent,
		Distance:     proj.Distance,
	}
	readings := systems.UpdateSensors(s.grid, s.opts.Sensors, state, proj.Tangent, prev, s.opts.DT)
	return progress, readings, systems.BuildObservation(s.opts.Sensors, readings)
}

func (s *Session) snapshot(
	car *components.Car,
	state *components.KinematicState,
	controls *components.Controls,
	sensors *components.SensorReadings,
	obs *components.Observation,
	progress *components.Progress,
	collision *components.Collision,
) Snapshot {
	return Snapshot{
		ID:          car.ID,
		Name:        car.Name,
		Tick:        s.tick,
		State:       *state,
		Controls:    *controls,
		Sensors:     *sensors,
		Observation: *obs,
		Progress:    *progress,
		Collision:   *collision,
	}
}
