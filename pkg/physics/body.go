package physics

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrInvalidBody is returned when a body description has non-finite or
	// non-positive dimensions, mass or position.
	ErrInvalidBody = errors.New("invalid body description")
	// ErrUnknownBody is returned when removing a body the world does not hold.
	ErrUnknownBody = errors.New("unknown body")
)

// VehicleState is the kinematic snapshot of the vehicle body.
type VehicleState struct {
	Position mgl64.Vec3
	Yaw      float64
	Velocity mgl64.Vec3
}

// IsFinite reports whether every field of the snapshot is finite.
func (s VehicleState) IsFinite() bool {
	return IsFinite(s.Position) && IsFiniteScalar(s.Yaw) && IsFinite(s.Velocity)
}

// Forward returns the snapshot's horizontal heading.
func (s VehicleState) Forward() mgl64.Vec3 {
	return Forward(s.Yaw)
}

// Body is the dynamic body the vehicle controller drives. Forces and torques
// accumulate until the next World step; SetVelocity takes effect immediately.
type Body interface {
	State() VehicleState
	ApplyForce(force, at mgl64.Vec3)
	ApplyTorque(torque mgl64.Vec3)
	SetVelocity(v mgl64.Vec3)
}

// Material describes the contact response of a shape.
type Material struct {
	Friction    float64
	Restitution float64
}

// Contact materials used by the scene.
var (
	VehicleMaterial = Material{Friction: 0.3, Restitution: 0.1}
	TerrainMaterial = Material{Friction: 0.8, Restitution: 0.1}
	BarrierMaterial = Material{Friction: 0.1, Restitution: 0.8}
)

// ShapeKind selects the geometry of a static body.
type ShapeKind int

const (
	// ShapeBox is an oriented box of Size (width, height, length).
	ShapeBox ShapeKind = iota
	// ShapePlane is a horizontal ground plane of Size.X by Size.Z at
	// Position.Y. Its rim is solid.
	ShapePlane
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeBox:
		return "box"
	case ShapePlane:
		return "plane"
	default:
		return fmt.Sprintf("shape(%d)", int(k))
	}
}

// StaticBody describes an immovable collision body.
type StaticBody struct {
	Kind     ShapeKind
	Position mgl64.Vec3
	Yaw      float64
	Size     mgl64.Vec3
	Material Material
}

// Validate checks that the description can be added to a World.
func (b StaticBody) Validate() error {
	if b.Kind != ShapeBox && b.Kind != ShapePlane {
		return fmt.Errorf("%w: unsupported shape %v", ErrInvalidBody, b.Kind)
	}
	if !IsFinite(b.Position) || !IsFiniteScalar(b.Yaw) {
		return fmt.Errorf("%w: non-finite pose", ErrInvalidBody)
	}
	if !IsFinite(b.Size) || b.Size.X() <= 0 || b.Size.Z() <= 0 {
		return fmt.Errorf("%w: size %v", ErrInvalidBody, b.Size)
	}
	if b.Kind == ShapeBox && b.Size.Y() <= 0 {
		return fmt.Errorf("%w: box height %v", ErrInvalidBody, b.Size.Y())
	}
	return nil
}

// BodyID identifies a static body inside a World.
type BodyID uint64

// VehicleSpec describes the dynamic vehicle body.
type VehicleSpec struct {
	Mass     float64
	Size     mgl64.Vec3
	Material Material
	Position mgl64.Vec3
	Yaw      float64
}

// Validate checks mass, size and pose.
func (s VehicleSpec) Validate() error {
	if !IsFiniteScalar(s.Mass) || s.Mass <= 0 {
		return fmt.Errorf("%w: mass %v", ErrInvalidBody, s.Mass)
	}
	if !IsFinite(s.Size) || s.Size.X() <= 0 || s.Size.Y() <= 0 || s.Size.Z() <= 0 {
		return fmt.Errorf("%w: size %v", ErrInvalidBody, s.Size)
	}
	if !IsFinite(s.Position) || !IsFiniteScalar(s.Yaw) {
		return fmt.Errorf("%w: non-finite pose", ErrInvalidBody)
	}
	return nil
}
