// pkg/render/renderer.go
package render

import (
	"context"

	"github.com/opd-ai/go-drivesim/pkg/engine"
	"github.com/opd-ai/go-drivesim/pkg/logging"
	"github.com/opd-ai/go-drivesim/pkg/physics"
	"github.com/opd-ai/go-drivesim/pkg/track"
	"github.com/opd-ai/go-drivesim/pkg/vehicle"
)

// Renderer draws one frame of the simulation.
type Renderer interface {
	Clear()
	RenderTrack(geometry *track.Geometry)
	RenderCamera(camera vehicle.Camera)
	RenderVehicle(state physics.VehicleState)
	RenderHUD(telemetry engine.Telemetry)
	Present() error
}

// Draw renders frame with r in a fixed order: track, camera, vehicle, HUD.
func Draw(r Renderer, frame engine.Frame) error {
	r.Clear()
	if frame.Geometry != nil {
		r.RenderTrack(frame.Geometry)
	}
	r.RenderCamera(frame.Camera)
	r.RenderVehicle(frame.Vehicle)
	r.RenderHUD(frame.Telemetry)
	return r.Present()
}

// NullRenderer logs each call at debug level and draws nothing. It backs
// headless runs.
type NullRenderer struct {
	logger *logging.Logger
}

// NewNullRenderer creates a NullRenderer. A nil logger discards output.
func NewNullRenderer(logger *logging.Logger) *NullRenderer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &NullRenderer{
		logger: logger.With("component", "render"),
	}
}

// Clear implements Renderer.
func (d *NullRenderer) Clear() {
	d.logger.Debug(context.Background(), "Clear called")
}

// Present implements Renderer.
func (d *NullRenderer) Present() error {
	d.logger.Debug(context.Background(), "Present called")
	return nil
}

// RenderTrack implements Renderer.
func (d *NullRenderer) RenderTrack(geometry *track.Geometry) {
	ctx := context.Background()
	if geometry == nil {
		d.logger.Debug(ctx, "RenderTrack called with nil geometry")
		return
	}
	d.logger.Debug(ctx, "RenderTrack called",
		"track_id", geometry.TrackID,
		"segments", len(geometry.Segments),
		"barriers", len(geometry.Barriers),
	)
}

// RenderCamera implements Renderer.
func (d *NullRenderer) RenderCamera(camera vehicle.Camera) {
	d.logger.Debug(context.Background(), "RenderCamera called",
		"position", camera.Position,
		"target", camera.Target,
	)
}

// RenderVehicle implements Renderer.
func (d *NullRenderer) RenderVehicle(state physics.VehicleState) {
	d.logger.Debug(context.Background(), "RenderVehicle called",
		"position", state.Position,
		"yaw", state.Yaw,
	)
}

// RenderHUD implements Renderer.
func (d *NullRenderer) RenderHUD(telemetry engine.Telemetry) {
	d.logger.Debug(context.Background(), "RenderHUD called",
		"track_id", telemetry.TrackID,
		"speed_kmh", telemetry.SpeedKMH,
		"direction", telemetry.Direction,
	)
}
