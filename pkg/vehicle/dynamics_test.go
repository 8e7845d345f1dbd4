package vehicle

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-drivesim/pkg/physics"
)

const epsilon = 1e-9

func TestCompute_Force(t *testing.T) {
	p := DefaultParams()
	state := physics.VehicleState{Yaw: math.Pi / 2}

	tests := []struct {
		name     string
		input    InputState
		expected mgl64.Vec3
	}{
		{"idle", InputState{}, mgl64.Vec3{}},
		{"forward", InputState{Forward: true}, mgl64.Vec3{15, 0, 0}},
		{"backward", InputState{Backward: true}, mgl64.Vec3{-10.5, 0, 0}},
		{"both drive keys", InputState{Forward: true, Backward: true}, mgl64.Vec3{4.5, 0, 0}},
		{"steering only", InputState{Left: true}, mgl64.Vec3{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := p.Compute(tt.input, state, NominalStep)
			if !near(cmd.Force, tt.expected, epsilon) {
				t.Errorf("Force = %v, expected %v", cmd.Force, tt.expected)
			}
		})
	}
}

func TestCompute_TorqueOnlyWhileDriving(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name     string
		input    InputState
		expected float64
	}{
		{"left without drive", InputState{Left: true}, 0},
		{"right without drive", InputState{Right: true}, 0},
		{"both steer without drive", InputState{Left: true, Right: true}, 0},
		{"nothing", InputState{}, 0},
		{"forward left", InputState{Forward: true, Left: true}, 2},
		{"forward right", InputState{Forward: true, Right: true}, -2},
		{"backward left", InputState{Backward: true, Left: true}, 2},
		{"forward both steer", InputState{Forward: true, Left: true, Right: true}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := p.Compute(tt.input, physics.VehicleState{Yaw: 0.3}, NominalStep)
			if cmd.Torque != (mgl64.Vec3{0, tt.expected, 0}) {
				t.Errorf("Torque = %v, expected (0, %v, 0)", cmd.Torque, tt.expected)
			}
		})
	}
}

func TestCompute_DragKeepsVertical(t *testing.T) {
	p := DefaultParams()
	state := physics.VehicleState{Velocity: mgl64.Vec3{10, -3, -4}}

	cmd := p.Compute(InputState{}, state, NominalStep)
	if !cmd.SetVelocity {
		t.Fatal("SetVelocity not requested")
	}
	expected := mgl64.Vec3{9.5, -3, -3.8}
	if !near(cmd.Velocity, expected, epsilon) {
		t.Errorf("Velocity = %v, expected %v", cmd.Velocity, expected)
	}
}

func TestCompute_FrameRateIndependentDrag(t *testing.T) {
	p := DefaultParams()
	state := physics.VehicleState{Velocity: mgl64.Vec3{10, 0, 0}}

	once := p.Compute(InputState{}, state, 2*NominalStep).Velocity.X()
	half := p.Compute(InputState{}, state, NominalStep).Velocity
	twice := p.Compute(InputState{}, physics.VehicleState{Velocity: half}, NominalStep).Velocity.X()

	if math.Abs(once-twice) > epsilon {
		t.Errorf("one double step = %v, two single steps = %v", once, twice)
	}
}

func TestCompute_NonPositiveDelta(t *testing.T) {
	p := DefaultParams()
	for _, dt := range []float64{0, -NominalStep, math.NaN(), math.Inf(1)} {
		cmd := p.Compute(InputState{Forward: true, Left: true}, physics.VehicleState{Velocity: mgl64.Vec3{1, 0, 0}}, dt)
		if cmd != (Command{}) {
			t.Errorf("Compute(dt=%v) = %+v, expected empty", dt, cmd)
		}
	}
}

func TestCameraConvergence(t *testing.T) {
	p := DefaultParams()
	state := physics.VehicleState{Position: mgl64.Vec3{4, 0.5, -2}, Yaw: 1.1}
	ideal := p.Ideal(state)
	p0 := mgl64.Vec3{30, 20, 30}
	cam := Camera{Position: p0}

	prevDist := ideal.Sub(p0).Len()
	for k := 1; k <= 60; k++ {
		cam = p.Follow(cam, state, NominalStep)

		expected := ideal.Sub(ideal.Sub(p0).Mul(math.Pow(0.9, float64(k))))
		if !near(cam.Position, expected, 1e-9) {
			t.Fatalf("frame %d: position = %v, expected %v", k, cam.Position, expected)
		}

		dist := ideal.Sub(cam.Position).Len()
		if dist > prevDist {
			t.Fatalf("frame %d: distance grew from %v to %v", k, prevDist, dist)
		}
		// Never overshoots: still on the same side of the ideal point.
		if ideal.Sub(cam.Position).Dot(ideal.Sub(p0)) < 0 {
			t.Fatalf("frame %d: camera overshot", k)
		}
		prevDist = dist
	}

	if cam.Target != state.Position.Add(mgl64.Vec3{0, 1, 0}) {
		t.Errorf("Target = %v", cam.Target)
	}
}

func TestIdealCameraBehindVehicle(t *testing.T) {
	p := DefaultParams()
	state := physics.VehicleState{Position: mgl64.Vec3{0, 1, 0}, Yaw: 0}
	if got := p.Ideal(state); !near(got, mgl64.Vec3{0, 6, -10}, epsilon) {
		t.Errorf("Ideal() = %v", got)
	}
}

func TestBlendWeight(t *testing.T) {
	p := DefaultParams()
	if got := p.BlendWeight(NominalStep); math.Abs(got-0.1) > epsilon {
		t.Errorf("BlendWeight(nominal) = %v, expected 0.1", got)
	}
	if got := p.DragScale(NominalStep); math.Abs(got-0.95) > epsilon {
		t.Errorf("DragScale(nominal) = %v, expected 0.95", got)
	}
	p.NominalStep = 0
	if got := p.DragScale(NominalStep); math.Abs(got-0.95) > epsilon {
		t.Errorf("DragScale with unset nominal step = %v", got)
	}
}

func near(a, b mgl64.Vec3, eps float64) bool {
	for i := range a {
		if math.Abs(a[i]-b[i]) > eps {
			return false
		}
	}
	return true
}
