package vehicle

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-drivesim/pkg/physics"
)

// fakeBody records commands and returns a scripted state.
type fakeBody struct {
	state   physics.VehicleState
	forces  []mgl64.Vec3
	torques []mgl64.Vec3
}

func (b *fakeBody) State() physics.VehicleState { return b.state }

func (b *fakeBody) ApplyForce(force, at mgl64.Vec3) { b.forces = append(b.forces, force) }

func (b *fakeBody) ApplyTorque(torque mgl64.Vec3) { b.torques = append(b.torques, torque) }

func (b *fakeBody) SetVelocity(v mgl64.Vec3) { b.state.Velocity = v }

func TestController_DragOverManyFrames(t *testing.T) {
	body := &fakeBody{state: physics.VehicleState{Velocity: mgl64.Vec3{6, -2, 8}}}
	c := NewController(DefaultParams(), body, physics.VehicleState{}, nil)
	ctx := context.Background()

	const frames = 40
	for i := 0; i < frames; i++ {
		c.Update(ctx, InputState{}, NominalStep)
	}

	want := 10 * math.Pow(0.95, frames)
	if got := physics.HorizontalSpeed(body.state.Velocity); math.Abs(got-want) > 1e-9 {
		t.Errorf("horizontal speed = %v, expected %v", got, want)
	}
	if body.state.Velocity.Y() != -2 {
		t.Errorf("vertical velocity = %v, expected -2", body.state.Velocity.Y())
	}
}

func TestController_SubmitsCommands(t *testing.T) {
	body := &fakeBody{state: physics.VehicleState{Yaw: 0}}
	c := NewController(DefaultParams(), body, physics.VehicleState{}, nil)

	cmd := c.Update(context.Background(), InputState{Forward: true, Left: true}, NominalStep)

	if len(body.forces) != 1 || body.forces[0] != cmd.Force {
		t.Errorf("forces = %v", body.forces)
	}
	if len(body.torques) != 1 || body.torques[0] != (mgl64.Vec3{0, 2, 0}) {
		t.Errorf("torques = %v", body.torques)
	}
	if c.LastCommand() != cmd {
		t.Error("LastCommand() does not match Update result")
	}
}

func TestController_NonFiniteStateUsesCachedPose(t *testing.T) {
	spawn := physics.VehicleState{Position: mgl64.Vec3{1, 2, 3}, Yaw: 0.5}
	body := &fakeBody{state: spawn}
	c := NewController(DefaultParams(), body, spawn, nil)
	ctx := context.Background()

	body.state = physics.VehicleState{Position: mgl64.Vec3{math.NaN(), 0, 0}}
	cmd := c.Update(ctx, InputState{Forward: true}, NominalStep)

	if c.State() != spawn {
		t.Errorf("State() = %+v, expected cached %+v", c.State(), spawn)
	}
	if !physics.IsFinite(cmd.Force) || !physics.IsFinite(cmd.Velocity) {
		t.Errorf("non-finite command %+v", cmd)
	}
	if !near(cmd.Force, physics.Forward(0.5).Mul(15), epsilon) {
		t.Errorf("Force = %v, expected along cached yaw", cmd.Force)
	}
	if !physics.IsFinite(c.Camera().Position) {
		t.Errorf("camera became non-finite: %v", c.Camera().Position)
	}
}

func TestController_NilBodyKeepsDefaultPose(t *testing.T) {
	c := NewController(DefaultParams(), nil, physics.VehicleState{}, nil)
	for i := 0; i < 5; i++ {
		c.Update(context.Background(), InputState{Forward: true}, NominalStep)
	}
	if c.State() != (physics.VehicleState{}) {
		t.Errorf("State() = %+v, expected default", c.State())
	}
}

func TestController_WrapsYaw(t *testing.T) {
	body := &fakeBody{state: physics.VehicleState{Yaw: 3 * math.Pi / 2}}
	c := NewController(DefaultParams(), body, physics.VehicleState{}, nil)
	c.Update(context.Background(), InputState{}, NominalStep)
	if got := c.State().Yaw; math.Abs(got+math.Pi/2) > epsilon {
		t.Errorf("Yaw = %v, expected -π/2", got)
	}
}

func TestController_ResetSnapsCamera(t *testing.T) {
	p := DefaultParams()
	c := NewController(p, nil, physics.VehicleState{}, nil)
	pose := physics.VehicleState{Position: mgl64.Vec3{20, 2, 30}, Yaw: 1}
	c.Reset(pose)

	if c.Camera().Position != p.Ideal(pose) {
		t.Errorf("camera = %v, expected %v", c.Camera().Position, p.Ideal(pose))
	}
	if c.State() != pose {
		t.Errorf("State() = %+v", c.State())
	}

	c.Reset(physics.VehicleState{Yaw: math.Inf(1)})
	if c.State() != (physics.VehicleState{}) {
		t.Errorf("non-finite reset kept %+v", c.State())
	}
}
