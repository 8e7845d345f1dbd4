// Package vehicle turns held drive keys into forces, torques and drag for the
// vehicle body, and keeps the chase camera behind it.
package vehicle

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-drivesim/pkg/physics"
)

// NominalStep is the frame period the tuning constants were chosen for.
const NominalStep = 1.0 / 60.0

// Params holds the handling and camera tuning.
type Params struct {
	// Speed is the drive force.
	Speed float64
	// ReverseRatio scales Speed when reversing.
	ReverseRatio float64
	// TurnSpeed is the steering torque about the vertical axis.
	TurnSpeed float64
	// DragFactor is the horizontal velocity kept per NominalStep.
	DragFactor float64

	CameraDistance   float64
	CameraHeight     float64
	CameraLookHeight float64
	// CameraBlend is the share of the gap to the ideal camera position
	// closed per NominalStep.
	CameraBlend float64

	NominalStep float64
}

// DefaultParams returns the stock handling.
func DefaultParams() Params {
	return Params{
		Speed:            15,
		ReverseRatio:     0.7,
		TurnSpeed:        2,
		DragFactor:       0.95,
		CameraDistance:   10,
		CameraHeight:     5,
		CameraLookHeight: 1,
		CameraBlend:      0.1,
		NominalStep:      NominalStep,
	}
}

// InputState is a snapshot of the four drive actions.
type InputState struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
}

// Driving reports whether a drive key is held. Steering only acts while
// driving.
func (in InputState) Driving() bool {
	return in.Forward || in.Backward
}

// Command is one tick's output for the physics body.
type Command struct {
	Force  mgl64.Vec3
	Torque mgl64.Vec3
	// Velocity replaces the body's velocity when SetVelocity is true.
	Velocity    mgl64.Vec3
	SetVelocity bool
}

// Apply submits the command to body. The force acts at the body origin.
func (c Command) Apply(body physics.Body) {
	if body == nil {
		return
	}
	body.ApplyForce(c.Force, mgl64.Vec3{})
	body.ApplyTorque(c.Torque)
	if c.SetVelocity {
		body.SetVelocity(c.Velocity)
	}
}

// steps converts dt into a count of nominal frames.
func (p Params) steps(dt float64) float64 {
	nominal := p.NominalStep
	if nominal <= 0 {
		nominal = NominalStep
	}
	return dt / nominal
}

// DragScale returns the horizontal velocity factor for a tick of dt seconds.
func (p Params) DragScale(dt float64) float64 {
	return math.Pow(p.DragFactor, p.steps(dt))
}

// BlendWeight returns the camera smoothing weight for a tick of dt seconds.
func (p Params) BlendWeight(dt float64) float64 {
	return 1 - math.Pow(1-p.CameraBlend, p.steps(dt))
}

// Compute derives the command for one tick of dt seconds. A non-positive or
// non-finite dt yields an empty command.
func (p Params) Compute(in InputState, state physics.VehicleState, dt float64) Command {
	if !physics.IsFiniteScalar(dt) || dt <= 0 {
		return Command{}
	}

	forward := physics.Forward(state.Yaw)

	var force mgl64.Vec3
	if in.Forward {
		force = force.Add(forward.Mul(p.Speed))
	}
	if in.Backward {
		force = force.Add(forward.Mul(-p.Speed * p.ReverseRatio))
	}

	var turn float64
	if in.Driving() {
		if in.Left {
			turn += p.TurnSpeed
		}
		if in.Right {
			turn -= p.TurnSpeed
		}
	}

	drag := p.DragScale(dt)
	v := state.Velocity
	return Command{
		Force:       force,
		Torque:      physics.Up.Mul(turn),
		Velocity:    mgl64.Vec3{v.X() * drag, v.Y(), v.Z() * drag},
		SetVelocity: true,
	}
}

// Camera is the chase camera pose.
type Camera struct {
	Position mgl64.Vec3
	Target   mgl64.Vec3
}

// Ideal returns the camera position the chase camera converges to.
func (p Params) Ideal(state physics.VehicleState) mgl64.Vec3 {
	return state.Position.
		Sub(physics.Forward(state.Yaw).Mul(p.CameraDistance)).
		Add(physics.Up.Mul(p.CameraHeight))
}

// Snap returns a camera already at its ideal pose.
func (p Params) Snap(state physics.VehicleState) Camera {
	return Camera{
		Position: p.Ideal(state),
		Target:   state.Position.Add(physics.Up.Mul(p.CameraLookHeight)),
	}
}

// Follow moves the camera toward its ideal pose for a tick of dt seconds.
func (p Params) Follow(cam Camera, state physics.VehicleState, dt float64) Camera {
	if !physics.IsFiniteScalar(dt) || dt <= 0 {
		return cam
	}
	ideal := p.Ideal(state)
	w := p.BlendWeight(dt)
	return Camera{
		Position: cam.Position.Add(ideal.Sub(cam.Position).Mul(w)),
		Target:   state.Position.Add(physics.Up.Mul(p.CameraLookHeight)),
	}
}
