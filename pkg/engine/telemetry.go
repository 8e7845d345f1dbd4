package engine

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-drivesim/pkg/physics"
	"github.com/opd-ai/go-drivesim/pkg/track"
	"github.com/opd-ai/go-drivesim/pkg/vehicle"
)

// MovingThreshold is the horizontal speed, in m/s, below which the vehicle
// counts as stopped.
const MovingThreshold = 0.1

// Direction labels.
const (
	DirectionForward  = "forward"
	DirectionBackward = "backward"
	DirectionLeft     = "left"
	DirectionRight    = "right"
	DirectionStopped  = "stopped"
)

// Telemetry is the HUD readout derived from the vehicle state.
type Telemetry struct {
	Tick      uint64
	Elapsed   float64
	TrackID   string
	TrackName string
	Position  mgl64.Vec3
	// SpeedKMH is the horizontal speed in km/h.
	SpeedKMH float64
	// HeadingDeg is the yaw in degrees, (-180, 180].
	HeadingDeg float64
	Direction  string
	Moving     bool
	Input      vehicle.InputState
}

// NewTelemetry derives the readout for state.
func NewTelemetry(state physics.VehicleState, in vehicle.InputState, t track.Track, tick uint64, elapsed float64) Telemetry {
	speed := physics.HorizontalSpeed(state.Velocity)
	moving := speed >= MovingThreshold
	return Telemetry{
		Tick:       tick,
		Elapsed:    elapsed,
		TrackID:    t.ID,
		TrackName:  t.Name,
		Position:   state.Position,
		SpeedKMH:   speed * 3.6,
		HeadingDeg: physics.WrapAngle(state.Yaw) * 180 / math.Pi,
		Direction:  direction(state, in, moving),
		Moving:     moving,
		Input:      in,
	}
}

// direction prefers the steering key while driving, then the drive key, then
// the sense of travel.
func direction(state physics.VehicleState, in vehicle.InputState, moving bool) string {
	if in.Driving() {
		switch {
		case in.Left && !in.Right:
			return DirectionLeft
		case in.Right && !in.Left:
			return DirectionRight
		case in.Forward && !in.Backward:
			return DirectionForward
		case in.Backward && !in.Forward:
			return DirectionBackward
		}
	}
	if !moving {
		return DirectionStopped
	}
	if physics.Horizontal(state.Velocity).Dot(state.Forward()) < 0 {
		return DirectionBackward
	}
	return DirectionForward
}
