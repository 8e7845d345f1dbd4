package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func newTestVehicle(t *testing.T, w *World, pos mgl64.Vec3, yaw float64) *VehicleBody {
	t.Helper()
	v, err := w.AddVehicle(VehicleSpec{
		Mass:     1,
		Size:     mgl64.Vec3{2, 1, 4},
		Material: VehicleMaterial,
		Position: pos,
		Yaw:      yaw,
	})
	if err != nil {
		t.Fatalf("AddVehicle() error = %v", err)
	}
	return v
}

func TestWorld_CreateAndRemoveStaticBody(t *testing.T) {
	w := NewWorld(DefaultWorldConfig(), nil)

	id, err := w.CreateStaticBody(StaticBody{
		Kind:     ShapeBox,
		Position: mgl64.Vec3{3, 0.5, 4},
		Yaw:      0.7,
		Size:     mgl64.Vec3{0.3, 0.8, 10},
		Material: BarrierMaterial,
	})
	if err != nil {
		t.Fatalf("CreateStaticBody() error = %v", err)
	}
	if w.StaticBodyCount() != 1 {
		t.Errorf("StaticBodyCount() = %d, expected 1", w.StaticBodyCount())
	}
	desc, ok := w.StaticBody(id)
	if !ok || desc.Material != BarrierMaterial {
		t.Errorf("StaticBody(%d) = %+v, %v", id, desc, ok)
	}

	if err := w.RemoveStaticBody(id); err != nil {
		t.Fatalf("RemoveStaticBody() error = %v", err)
	}
	if w.StaticBodyCount() != 0 {
		t.Errorf("StaticBodyCount() = %d after removal", w.StaticBodyCount())
	}
	if err := w.RemoveStaticBody(id); !errors.Is(err, ErrUnknownBody) {
		t.Errorf("second RemoveStaticBody() = %v, expected ErrUnknownBody", err)
	}
}

func TestWorld_CreateStaticBody_Invalid(t *testing.T) {
	tests := []struct {
		name string
		desc StaticBody
	}{
		{"zero length", StaticBody{Kind: ShapeBox, Size: mgl64.Vec3{0.3, 0.8, 0}}},
		{"zero height box", StaticBody{Kind: ShapeBox, Size: mgl64.Vec3{0.3, 0, 1}}},
		{"NaN position", StaticBody{Kind: ShapeBox, Position: mgl64.Vec3{math.NaN(), 0, 0}, Size: mgl64.Vec3{1, 1, 1}}},
		{"infinite yaw", StaticBody{Kind: ShapeBox, Yaw: math.Inf(1), Size: mgl64.Vec3{1, 1, 1}}},
		{"unknown kind", StaticBody{Kind: ShapeKind(9), Size: mgl64.Vec3{1, 1, 1}}},
	}

	w := NewWorld(DefaultWorldConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := w.CreateStaticBody(tt.desc); !errors.Is(err, ErrInvalidBody) {
				t.Errorf("CreateStaticBody() error = %v, expected ErrInvalidBody", err)
			}
		})
	}
	if w.StaticBodyCount() != 0 {
		t.Errorf("invalid bodies were added: %d", w.StaticBodyCount())
	}
}

func TestWorld_AddVehicle_Invalid(t *testing.T) {
	w := NewWorld(DefaultWorldConfig(), nil)
	_, err := w.AddVehicle(VehicleSpec{Mass: 0, Size: mgl64.Vec3{2, 1, 4}})
	if !errors.Is(err, ErrInvalidBody) {
		t.Errorf("AddVehicle() error = %v, expected ErrInvalidBody", err)
	}
}

func TestVehicleBody_StateReflectsPlacement(t *testing.T) {
	w := NewWorld(DefaultWorldConfig(), nil)
	v := newTestVehicle(t, w, mgl64.Vec3{5, 2, -3}, 0.4)

	state := v.State()
	if !vecNear(state.Position, mgl64.Vec3{5, 2, -3}) {
		t.Errorf("Position = %v", state.Position)
	}
	if math.Abs(state.Yaw-0.4) > epsilon {
		t.Errorf("Yaw = %v, expected 0.4", state.Yaw)
	}
	if state.Velocity != (mgl64.Vec3{}) {
		t.Errorf("Velocity = %v, expected zero", state.Velocity)
	}
}

func TestVehicleBody_PlaceThenStep(t *testing.T) {
	w := NewWorld(DefaultWorldConfig(), nil)
	v := newTestVehicle(t, w, mgl64.Vec3{0, 0.5, 0}, 0)
	v.SetVelocity(mgl64.Vec3{4, 0, 0})
	w.Step(1.0 / 60)

	v.Place(mgl64.Vec3{20, 0.5, -10}, math.Pi/2)
	w.Step(1.0 / 60)

	state := v.State()
	if math.Abs(state.Position.X()-20) > 0.1 || math.Abs(state.Position.Z()+10) > 0.1 {
		t.Errorf("Position after Place and Step = %v", state.Position)
	}
	if math.Abs(state.Yaw-math.Pi/2) > 1e-6 {
		t.Errorf("Yaw after Place and Step = %v", state.Yaw)
	}
}

func TestVehicleBody_ForceAcceleratesAlongHeading(t *testing.T) {
	w := NewWorld(DefaultWorldConfig(), nil)
	yaw := math.Pi / 2
	v := newTestVehicle(t, w, mgl64.Vec3{0, 0.5, 0}, yaw)

	for i := 0; i < 30; i++ {
		v.ApplyForce(Forward(yaw).Mul(15), mgl64.Vec3{})
		w.Step(1.0 / 60.0)
	}

	state := v.State()
	if state.Position.X() <= 0 {
		t.Errorf("vehicle did not move along +X: %v", state.Position)
	}
	if math.Abs(state.Position.Z()) > 1e-6 {
		t.Errorf("vehicle drifted sideways: %v", state.Position)
	}
	// 15 N on 1 kg for half a second.
	if got := state.Velocity.X(); math.Abs(got-7.5) > 1e-6 {
		t.Errorf("Velocity.X = %v, expected 7.5", got)
	}
}

func TestVehicleBody_PositiveTorqueIncreasesYaw(t *testing.T) {
	w := NewWorld(WorldConfig{Gravity: 0, Iterations: 10, AngularDamping: 0}, nil)
	v := newTestVehicle(t, w, mgl64.Vec3{}, 0)

	for i := 0; i < 10; i++ {
		v.ApplyTorque(mgl64.Vec3{0, 2, 0})
		w.Step(1.0 / 60.0)
	}

	if v.State().Yaw <= 0 {
		t.Errorf("Yaw = %v, expected positive", v.State().Yaw)
	}
	if v.YawRate() <= 0 {
		t.Errorf("YawRate = %v, expected positive", v.YawRate())
	}
}

func TestVehicleBody_AngularDamping(t *testing.T) {
	w := NewWorld(WorldConfig{AngularDamping: 0.9, Iterations: 10}, nil)
	v := newTestVehicle(t, w, mgl64.Vec3{}, 0)
	v.ApplyTorque(mgl64.Vec3{0, 5, 0})
	w.Step(0.1)
	before := v.YawRate()

	for i := 0; i < 10; i++ {
		w.Step(0.1)
	}
	// One second at 0.9 damping keeps a tenth of the rate.
	if got := v.YawRate(); math.Abs(got-before*0.1) > 1e-6 {
		t.Errorf("YawRate = %v, expected %v", got, before*0.1)
	}
}

func TestVehicleBody_SetVelocity(t *testing.T) {
	w := NewWorld(DefaultWorldConfig(), nil)
	v := newTestVehicle(t, w, mgl64.Vec3{0, 10, 0}, 0)

	v.SetVelocity(mgl64.Vec3{1, -2, 3})
	if got := v.State().Velocity; !vecNear(got, mgl64.Vec3{1, -2, 3}) {
		t.Errorf("Velocity = %v", got)
	}

	v.SetVelocity(mgl64.Vec3{math.NaN(), 0, 0})
	if got := v.State().Velocity; !vecNear(got, mgl64.Vec3{1, -2, 3}) {
		t.Errorf("non-finite velocity was applied: %v", got)
	}
}

func TestVehicleBody_SettlesOnGround(t *testing.T) {
	w := NewWorld(DefaultWorldConfig(), nil)
	if _, err := w.CreateStaticBody(StaticBody{
		Kind:     ShapePlane,
		Size:     mgl64.Vec3{200, 0, 200},
		Material: TerrainMaterial,
	}); err != nil {
		t.Fatalf("CreateStaticBody() error = %v", err)
	}
	v := newTestVehicle(t, w, mgl64.Vec3{0, 2, 0}, 0)

	for i := 0; i < 120; i++ {
		w.Step(1.0 / 60.0)
	}

	if got := v.State().Position.Y(); math.Abs(got-0.5) > 1e-3 {
		t.Errorf("resting height = %v, expected 0.5", got)
	}
	ground, ok := w.GroundHeight()
	if !ok || ground != 0 {
		t.Errorf("GroundHeight() = %v, %v", ground, ok)
	}
}

func TestVehicleBody_FallsWithoutGround(t *testing.T) {
	w := NewWorld(DefaultWorldConfig(), nil)
	v := newTestVehicle(t, w, mgl64.Vec3{0, 2, 0}, 0)
	w.Step(0.1)
	if v.State().Velocity.Y() >= 0 {
		t.Errorf("vertical velocity = %v, expected negative", v.State().Velocity.Y())
	}
}

func TestVehicleBody_BarrierBlocksMotion(t *testing.T) {
	w := NewWorld(WorldConfig{Iterations: 10}, nil)
	if _, err := w.CreateStaticBody(StaticBody{
		Kind:     ShapeBox,
		Position: mgl64.Vec3{0, 0.5, 6},
		Yaw:      math.Pi / 2,
		Size:     mgl64.Vec3{0.3, 0.8, 20},
		Material: BarrierMaterial,
	}); err != nil {
		t.Fatalf("CreateStaticBody() error = %v", err)
	}
	v := newTestVehicle(t, w, mgl64.Vec3{}, 0)

	for i := 0; i < 240; i++ {
		v.ApplyForce(Forward(0).Mul(15), mgl64.Vec3{})
		w.Step(1.0 / 60.0)
	}

	// Wall face at z = 5.85, vehicle half-length 2.
	if z := v.State().Position.Z(); z > 4.5 {
		t.Errorf("vehicle passed through barrier, z = %v", z)
	}
}

func TestWorld_StepIgnoresBadDelta(t *testing.T) {
	w := NewWorld(DefaultWorldConfig(), nil)
	v := newTestVehicle(t, w, mgl64.Vec3{0, 2, 0}, 0)
	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		w.Step(dt)
	}
	if got := v.State().Position.Y(); got != 2 {
		t.Errorf("height changed to %v", got)
	}
}

func TestShapeKind_String(t *testing.T) {
	if ShapeBox.String() != "box" || ShapePlane.String() != "plane" {
		t.Error("unexpected shape names")
	}
	if ShapeKind(7).String() != "shape(7)" {
		t.Errorf("unknown shape name = %q", ShapeKind(7).String())
	}
}
