package physics

import (
	"context"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"

	"github.com/opd-ai/go-drivesim/pkg/logging"
)

// WorldConfig configures a World.
type WorldConfig struct {
	// Gravity is the vertical acceleration, negative for downward.
	Gravity float64
	// Iterations is the solver iteration count per step.
	Iterations int
	// AngularDamping is the fraction of yaw rate lost per second, in [0, 1].
	AngularDamping float64
}

// DefaultWorldConfig returns the scene's physics settings.
func DefaultWorldConfig() WorldConfig {
	return WorldConfig{
		Gravity:        -30,
		Iterations:     10,
		AngularDamping: 0.9,
	}
}

// World is the rigid-body collaborator. Horizontal motion, yaw and contacts
// with barriers and the terrain rim are solved by a Chipmunk2D space lying in
// the X/Z plane; height is integrated separately against the ground plane.
//
// A World is not safe for concurrent use; the simulation goroutine owns it.
type World struct {
	space   *cp.Space
	config  WorldConfig
	statics map[BodyID]*staticEntry
	nextID  BodyID
	// ground holds the plane bodies; the highest one wins.
	ground   map[BodyID]float64
	vehicles []*VehicleBody
	logger   *logging.Logger
}

type staticEntry struct {
	desc   StaticBody
	body   *cp.Body
	shapes []*cp.Shape
}

// NewWorld creates an empty world.
func NewWorld(config WorldConfig, logger *logging.Logger) *World {
	if logger == nil {
		logger = logging.Discard()
	}
	if config.Iterations <= 0 {
		config.Iterations = DefaultWorldConfig().Iterations
	}

	space := cp.NewSpace()
	space.SetGravity(cp.Vector{})
	space.Iterations = uint(config.Iterations)

	return &World{
		space:   space,
		config:  config,
		statics: make(map[BodyID]*staticEntry),
		nextID:  1,
		ground:  make(map[BodyID]float64),
		logger:  logger,
	}
}

// toPlane maps a world position onto the solver plane.
func toPlane(v mgl64.Vec3) cp.Vector {
	return cp.Vector{X: v.X(), Y: v.Z()}
}

// CreateStaticBody adds an immovable body and returns its handle.
func (w *World) CreateStaticBody(desc StaticBody) (BodyID, error) {
	if err := desc.Validate(); err != nil {
		return 0, err
	}

	body := cp.NewStaticBody()
	body.SetPosition(toPlane(desc.Position))
	body.SetAngle(-desc.Yaw)
	w.space.AddBody(body)

	entry := &staticEntry{desc: desc, body: body}
	switch desc.Kind {
	case ShapeBox:
		entry.shapes = append(entry.shapes, cp.NewBox(body, desc.Size.X(), desc.Size.Z(), 0))
	case ShapePlane:
		hx, hz := desc.Size.X()/2, desc.Size.Z()/2
		corners := []cp.Vector{{X: -hx, Y: -hz}, {X: hx, Y: -hz}, {X: hx, Y: hz}, {X: -hx, Y: hz}}
		for i := range corners {
			entry.shapes = append(entry.shapes, cp.NewSegment(body, corners[i], corners[(i+1)%len(corners)], 0.1))
		}
	}
	for _, shape := range entry.shapes {
		shape.SetFriction(desc.Material.Friction)
		shape.SetElasticity(desc.Material.Restitution)
		w.space.AddShape(shape)
	}

	id := w.nextID
	w.nextID++
	w.statics[id] = entry
	if desc.Kind == ShapePlane {
		w.ground[id] = desc.Position.Y()
	}
	return id, nil
}

// RemoveStaticBody removes a body created by CreateStaticBody.
func (w *World) RemoveStaticBody(id BodyID) error {
	entry, ok := w.statics[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	for _, shape := range entry.shapes {
		w.space.RemoveShape(shape)
	}
	w.space.RemoveBody(entry.body)
	delete(w.statics, id)
	delete(w.ground, id)
	return nil
}

// StaticBody returns the description of a live static body.
func (w *World) StaticBody(id BodyID) (StaticBody, bool) {
	entry, ok := w.statics[id]
	if !ok {
		return StaticBody{}, false
	}
	return entry.desc, true
}

// StaticBodyCount returns the number of live static bodies.
func (w *World) StaticBodyCount() int {
	return len(w.statics)
}

// GroundHeight returns the elevation of the highest ground plane.
func (w *World) GroundHeight() (float64, bool) {
	height, found := 0.0, false
	for _, y := range w.ground {
		if !found || y > height {
			height, found = y, true
		}
	}
	return height, found
}

// AddVehicle adds the dynamic vehicle body.
func (w *World) AddVehicle(spec VehicleSpec) (*VehicleBody, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	width, length := spec.Size.X(), spec.Size.Z()
	body := w.space.AddBody(cp.NewBody(spec.Mass, cp.MomentForBox(spec.Mass, width, length)))
	shape := w.space.AddShape(cp.NewBox(body, width, length, 0))
	shape.SetFriction(spec.Material.Friction)
	shape.SetElasticity(spec.Material.Restitution)

	v := &VehicleBody{
		world:      w,
		body:       body,
		shape:      shape,
		mass:       spec.Mass,
		halfHeight: spec.Size.Y() / 2,
		material:   spec.Material,
	}
	v.Place(spec.Position, spec.Yaw)
	w.vehicles = append(w.vehicles, v)
	return v, nil
}

// Step advances the world by dt seconds. Non-positive or non-finite dt is
// ignored.
func (w *World) Step(dt float64) {
	if !IsFiniteScalar(dt) || dt <= 0 {
		return
	}

	w.space.Step(dt)

	ground, hasGround := w.GroundHeight()
	keep := math.Pow(1-w.config.AngularDamping, dt)
	for _, v := range w.vehicles {
		v.body.SetAngularVelocity(v.body.AngularVelocity() * keep)
		v.integrateVertical(dt, w.config.Gravity, ground, hasGround)
	}
}

// LogSummary writes the world's contents at DEBUG.
func (w *World) LogSummary(ctx context.Context) {
	ground, hasGround := w.GroundHeight()
	w.logger.Debug(ctx, "physics world",
		"static_bodies", len(w.statics),
		"vehicles", len(w.vehicles),
		"ground", ground,
		"has_ground", hasGround,
	)
}

// VehicleBody is the dynamic vehicle in a World. It implements Body.
type VehicleBody struct {
	world      *World
	body       *cp.Body
	shape      *cp.Shape
	mass       float64
	halfHeight float64
	material   Material

	height   float64
	climb    float64
	liftAccu float64
}

var _ Body = (*VehicleBody)(nil)

// State returns the current snapshot with yaw wrapped to (-π, π].
func (v *VehicleBody) State() VehicleState {
	p := v.body.Position()
	vel := v.body.Velocity()
	return VehicleState{
		Position: mgl64.Vec3{p.X, v.height, p.Y},
		Yaw:      WrapAngle(-v.body.Angle()),
		Velocity: mgl64.Vec3{vel.X, v.climb, vel.Y},
	}
}

// ApplyForce accumulates force applied at the world-oriented offset at from
// the body origin.
func (v *VehicleBody) ApplyForce(force, at mgl64.Vec3) {
	if !IsFinite(force) || !IsFinite(at) {
		return
	}
	point := v.body.Position().Add(toPlane(at))
	v.body.ApplyForceAtWorldPoint(toPlane(force), point)
	v.liftAccu += force.Y()
}

// ApplyTorque accumulates torque. Only the vertical component turns the
// planar body; positive Y increases yaw.
func (v *VehicleBody) ApplyTorque(torque mgl64.Vec3) {
	if !IsFinite(torque) {
		return
	}
	v.body.SetTorque(v.body.Torque() - torque.Y())
}

// SetVelocity overwrites the linear velocity.
func (v *VehicleBody) SetVelocity(vel mgl64.Vec3) {
	if !IsFinite(vel) {
		return
	}
	v.body.SetVelocity(vel.X(), vel.Z())
	v.climb = vel.Y()
}

// Place teleports the body to position facing yaw and clears its motion.
func (v *VehicleBody) Place(position mgl64.Vec3, yaw float64) {
	v.body.SetPosition(toPlane(position))
	v.body.SetAngle(-yaw)
	v.body.SetVelocity(0, 0)
	v.body.SetAngularVelocity(0)
	v.body.SetForce(cp.Vector{})
	v.body.SetTorque(0)
	v.height = position.Y()
	v.climb = 0
	v.liftAccu = 0
}

// YawRate returns the current rate of yaw change in radians per second.
func (v *VehicleBody) YawRate() float64 {
	return -v.body.AngularVelocity()
}

func (v *VehicleBody) integrateVertical(dt, gravity, ground float64, hasGround bool) {
	v.climb += (gravity + v.liftAccu/v.mass) * dt
	v.height += v.climb * dt
	v.liftAccu = 0

	if !hasGround {
		return
	}
	rest := ground + v.halfHeight
	if v.height < rest {
		v.height = rest
		if v.climb < 0 {
			v.climb = -v.climb * v.material.Restitution * TerrainMaterial.Restitution
		}
	}
}
