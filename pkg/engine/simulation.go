// pkg/engine/simulation.go
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-drivesim/pkg/config"
	"github.com/opd-ai/go-drivesim/pkg/event"
	"github.com/opd-ai/go-drivesim/pkg/logging"
	"github.com/opd-ai/go-drivesim/pkg/physics"
	"github.com/opd-ai/go-drivesim/pkg/track"
	"github.com/opd-ai/go-drivesim/pkg/vehicle"
)

// Status is the lifecycle state of a Simulation.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configures a Simulation. Only Config is required.
type Options struct {
	Config  *config.Config
	Catalog *track.Catalog
	Input   vehicle.InputSource
	Bus     *event.Bus
	Logger  *logging.Logger
}

// Frame is everything a renderer needs for one frame.
type Frame struct {
	Geometry  *track.Geometry
	Vehicle   physics.VehicleState
	Camera    vehicle.Camera
	Telemetry Telemetry
}

// FrameHandler receives a frame after each Run iteration.
type FrameHandler func(ctx context.Context, frame Frame) error

// Simulation owns the physics world, the vehicle controller and the current
// circuit. Ticks and track changes are serialized by one mutex; events are
// published after it is released so handlers may call back in.
type Simulation struct {
	mu sync.Mutex

	config     *config.Config
	catalog    *track.Catalog
	input      vehicle.InputSource
	bus        *event.Bus
	logger     *logging.Logger
	sessionID  string
	world      *physics.World
	car        *physics.VehicleBody
	controller *vehicle.Controller
	terrainID  physics.BodyID

	track      track.Track
	geometry   *track.Geometry
	barrierIDs []physics.BodyID

	timeStep      float64
	maxFrameDelta float64
	accumulator   float64
	tick          uint64
	elapsed       float64
	status        Status
}

// ParamsFromConfig maps configuration onto controller tuning.
func ParamsFromConfig(cfg *config.Config) vehicle.Params {
	return vehicle.Params{
		Speed:            cfg.Vehicle.Speed,
		ReverseRatio:     cfg.Vehicle.ReverseRatio,
		TurnSpeed:        cfg.Vehicle.TurnSpeed,
		DragFactor:       cfg.Vehicle.DragFactor,
		CameraDistance:   cfg.Camera.Distance,
		CameraHeight:     cfg.Camera.Height,
		CameraLookHeight: cfg.Camera.LookHeight,
		CameraBlend:      cfg.Camera.Blend,
		NominalStep:      vehicle.NominalStep,
	}
}

// NewSimulation builds the world, spawns the vehicle and loads the
// configured default circuit.
func NewSimulation(ctx context.Context, opts Options) (*Simulation, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Catalog == nil {
		opts.Catalog = track.BuiltIn()
	}
	if opts.Bus == nil {
		opts.Bus = event.NewEventBus()
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}

	s := &Simulation{
		config:        cfg,
		catalog:       opts.Catalog,
		input:         opts.Input,
		bus:           opts.Bus,
		logger:        opts.Logger.With("component", "engine"),
		sessionID:     logging.GenerateCorrelationID(),
		timeStep:      cfg.Physics.TimeStep,
		maxFrameDelta: cfg.Physics.MaxFrameDelta,
	}
	ctx = s.withSession(ctx)

	s.world = physics.NewWorld(physics.WorldConfig{
		Gravity:        cfg.Physics.Gravity,
		Iterations:     cfg.Physics.Iterations,
		AngularDamping: cfg.Vehicle.AngularDamping,
	}, opts.Logger.With("component", "physics"))

	terrainID, err := s.world.CreateStaticBody(physics.StaticBody{
		Kind:     physics.ShapePlane,
		Size:     mgl64.Vec3{cfg.Physics.TerrainSize, 0, cfg.Physics.TerrainSize},
		Material: physics.Material{Friction: cfg.Physics.TerrainFriction, Restitution: cfg.Physics.TerrainRestitution},
	})
	if err != nil {
		return nil, logging.WrapError(err, "failed to create terrain")
	}
	s.terrainID = terrainID

	s.car, err = s.world.AddVehicle(physics.VehicleSpec{
		Mass:     cfg.Vehicle.Mass,
		Size:     mgl64.Vec3{cfg.Vehicle.Width, cfg.Vehicle.Height, cfg.Vehicle.Length},
		Material: physics.Material{Friction: cfg.Vehicle.Friction, Restitution: cfg.Vehicle.Restitution},
		Position: mgl64.Vec3{0, cfg.Vehicle.SpawnHeight, 0},
	})
	if err != nil {
		return nil, logging.WrapError(err, "failed to create vehicle")
	}
	s.controller = vehicle.NewController(ParamsFromConfig(cfg), s.car, s.car.State(), opts.Logger.With("component", "vehicle"))

	if _, err := s.SelectTrack(ctx, cfg.Track.Default); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulation) withSession(ctx context.Context) context.Context {
	if logging.GetCorrelationID(ctx) != "" {
		return ctx
	}
	return logging.WithCorrelationID(ctx, s.sessionID)
}

func (s *Simulation) publish(events []event.Event) {
	for _, e := range events {
		s.bus.Publish(e)
	}
}

// SessionID identifies this simulation in logs.
func (s *Simulation) SessionID() string {
	return s.sessionID
}

// Bus returns the event bus the simulation publishes to.
func (s *Simulation) Bus() *event.Bus {
	return s.bus
}

// Catalog returns the circuits the simulation can load.
func (s *Simulation) Catalog() *track.Catalog {
	return s.catalog
}

// CurrentTrack returns the loaded circuit.
func (s *Simulation) CurrentTrack() track.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.track
}

// Geometry returns the loaded circuit's geometry. It is replaced, never
// mutated, on track change.
func (s *Simulation) Geometry() *track.Geometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.geometry
}

// BarrierCount returns the number of live barrier bodies.
func (s *Simulation) BarrierCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.barrierIDs)
}

// SelectTrack loads the circuit with the given id, replacing the barriers of
// the previous one and moving the vehicle to the start line. Unknown ids load
// the default circuit; that is logged and published as TrackFallback, not
// returned as an error. It returns the id actually loaded.
func (s *Simulation) SelectTrack(ctx context.Context, id string) (string, error) {
	ctx = s.withSession(ctx)
	var events []event.Event
	defer func() { s.publish(events) }()

	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.catalog.Resolve(id)
	if !ok {
		s.logger.Warn(ctx, "unknown track, loading default", "requested_track", id, "track_id", t.ID)
		events = append(events, event.NewTrackEvent(event.TrackFallback, s, t.ID, id))
	}

	geometry := track.Generate(t)
	for _, idx := range geometry.Skipped {
		s.logger.Debug(ctx, "skipped degenerate segment", "track_id", t.ID, "segment", idx)
	}
	if len(geometry.Skipped) > 0 {
		skipped := event.NewTrackEvent(event.SegmentSkipped, s, t.ID, id)
		skipped.Skipped = len(geometry.Skipped)
		events = append(events, skipped)
	}

	ids := make([]physics.BodyID, 0, len(geometry.Barriers))
	for i, b := range geometry.Barriers {
		bodyID, err := s.world.CreateStaticBody(b.StaticBody())
		if err != nil {
			for _, created := range ids {
				_ = s.world.RemoveStaticBody(created)
			}
			s.logger.Error(ctx, "barrier creation failed", err, "track_id", t.ID, "barrier", i)
			return s.track.ID, logging.WrapError(err, "failed to create barrier %d of %s", i, t.ID)
		}
		ids = append(ids, bodyID)
	}

	for _, old := range s.barrierIDs {
		if err := s.world.RemoveStaticBody(old); err != nil {
			s.logger.Error(ctx, "barrier removal failed", err, "body", uint64(old))
		}
	}

	s.track = t
	s.geometry = geometry
	s.barrierIDs = ids

	changed := event.NewTrackEvent(event.TrackChanged, s, t.ID, id)
	changed.Barriers = len(ids)
	changed.Skipped = len(geometry.Skipped)
	events = append(events, changed)

	s.logger.Info(ctx, "track loaded",
		"track_id", t.ID,
		"track_name", t.Name,
		"segments", len(geometry.Segments),
		"barriers", len(ids),
	)
	s.world.LogSummary(ctx)

	events = append(events, s.resetLocked())
	return t.ID, nil
}

// NextTrack loads the circuit after the current one in catalog order.
func (s *Simulation) NextTrack(ctx context.Context) (string, error) {
	s.mu.Lock()
	next := s.catalog.Next(s.track.ID)
	s.mu.Unlock()
	return s.SelectTrack(ctx, next)
}

// Reset moves the vehicle back to the start line at rest.
func (s *Simulation) Reset(ctx context.Context) {
	s.mu.Lock()
	e := s.resetLocked()
	s.mu.Unlock()

	s.logger.Debug(s.withSession(ctx), "vehicle reset", "x", e.X, "z", e.Z, "yaw", e.Yaw)
	s.bus.Publish(e)
}

func (s *Simulation) resetLocked() *event.VehicleEvent {
	start, heading := s.geometry.Start()
	pos := mgl64.Vec3{start.X, s.config.Vehicle.SpawnHeight, start.Z}

	s.car.Place(pos, heading)
	s.controller.Reset(s.car.State())
	s.accumulator = 0

	return event.NewVehicleEvent(event.VehicleReset, s, pos.X(), pos.Y(), pos.Z(), heading)
}

// Advance feeds frameDelta seconds of wall time into the fixed-step loop and
// returns the number of ticks run. Deltas above the configured cap are
// clamped so a stalled frame cannot trigger a burst of ticks.
func (s *Simulation) Advance(ctx context.Context, frameDelta float64) int {
	ctx = s.withSession(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	if !physics.IsFiniteScalar(frameDelta) || frameDelta <= 0 {
		return 0
	}
	if frameDelta > s.maxFrameDelta {
		frameDelta = s.maxFrameDelta
	}

	// Tolerance absorbs rounding when frameDelta is a multiple of the step.
	const slack = 1e-9
	s.accumulator += frameDelta
	ticks := 0
	for s.accumulator+slack >= s.timeStep {
		s.stepLocked(ctx)
		s.accumulator -= s.timeStep
		ticks++
	}
	if s.accumulator < 0 {
		s.accumulator = 0
	}
	return ticks
}

// Step runs exactly one fixed tick.
func (s *Simulation) Step(ctx context.Context) {
	ctx = s.withSession(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stepLocked(ctx)
}

func (s *Simulation) stepLocked(ctx context.Context) {
	var in vehicle.InputState
	if s.input != nil {
		in = s.input.Snapshot()
	}
	s.controller.Update(ctx, in, s.timeStep)
	s.world.Step(s.timeStep)
	s.tick++
	s.elapsed += s.timeStep
}

// Tick returns the number of fixed ticks run.
func (s *Simulation) Tick() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tick
}

// VehicleState returns the vehicle body's current snapshot.
func (s *Simulation) VehicleState() physics.VehicleState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vehicleStateLocked()
}

func (s *Simulation) vehicleStateLocked() physics.VehicleState {
	if state := s.car.State(); state.IsFinite() {
		return state
	}
	return s.controller.State()
}

// Camera returns the chase camera.
func (s *Simulation) Camera() vehicle.Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controller.Camera()
}

// Telemetry returns the HUD readout.
func (s *Simulation) Telemetry() Telemetry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.telemetryLocked()
}

func (s *Simulation) telemetryLocked() Telemetry {
	var in vehicle.InputState
	if s.input != nil {
		in = s.input.Snapshot()
	}
	return NewTelemetry(s.vehicleStateLocked(), in, s.track, s.tick, s.elapsed)
}

// Frame returns a consistent view for rendering.
func (s *Simulation) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Frame{
		Geometry:  s.geometry,
		Vehicle:   s.vehicleStateLocked(),
		Camera:    s.controller.Camera(),
		Telemetry: s.telemetryLocked(),
	}
}

// Status returns the lifecycle state.
func (s *Simulation) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start marks the simulation running and publishes SimulationStarted.
func (s *Simulation) Start(ctx context.Context) {
	s.mu.Lock()
	s.status = StatusRunning
	tick := s.tick
	s.mu.Unlock()

	s.logger.Info(s.withSession(ctx), "simulation started", "track_id", s.CurrentTrack().ID)
	s.bus.Publish(event.NewSimulationEvent(event.SimulationStarted, s, tick))
}

// Stop marks the simulation stopped and publishes SimulationStopped.
func (s *Simulation) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.status == StatusStopped {
		s.mu.Unlock()
		return
	}
	s.status = StatusStopped
	tick, elapsed := s.tick, s.elapsed
	s.mu.Unlock()

	s.logger.Info(s.withSession(ctx), "simulation stopped", "ticks", tick, "elapsed_seconds", elapsed)
	s.bus.Publish(event.NewSimulationEvent(event.SimulationStopped, s, tick))
}

// Run drives the simulation from a wall-clock ticker until ctx is done,
// calling onFrame after every frame. It returns nil on cancellation and the
// first onFrame error otherwise.
func (s *Simulation) Run(ctx context.Context, onFrame FrameHandler) error {
	ctx = s.withSession(ctx)
	s.Start(ctx)
	defer s.Stop(context.WithoutCancel(ctx))

	period := time.Duration(s.timeStep * float64(time.Second))
	if period <= 0 {
		return fmt.Errorf("invalid time step %v", s.timeStep)
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.Advance(ctx, now.Sub(last).Seconds())
			last = now
			if onFrame == nil {
				continue
			}
			if err := onFrame(ctx, s.Frame()); err != nil {
				return err
			}
		}
	}
}
