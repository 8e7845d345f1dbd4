package vehicle

import (
	"context"

	"github.com/opd-ai/go-drivesim/pkg/logging"
	"github.com/opd-ai/go-drivesim/pkg/physics"
)

// InputSource supplies the held drive actions once per tick.
type InputSource interface {
	Snapshot() InputState
}

// Controller drives a physics body from input and owns the chase camera.
// It is used from the simulation goroutine only.
type Controller struct {
	params Params
	body   physics.Body
	logger *logging.Logger

	state   physics.VehicleState
	camera  Camera
	command Command
	stale   int
}

// NewController creates a controller for body starting from the spawn pose.
// body may be nil, in which case commands are computed but not submitted.
func NewController(params Params, body physics.Body, spawn physics.VehicleState, logger *logging.Logger) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	c := &Controller{
		params: params,
		body:   body,
		logger: logger,
	}
	c.Reset(spawn)
	return c
}

// Reset replaces the cached snapshot and snaps the camera behind it.
func (c *Controller) Reset(spawn physics.VehicleState) {
	if !spawn.IsFinite() {
		spawn = physics.VehicleState{}
	}
	c.state = spawn
	c.camera = c.params.Snap(spawn)
	c.command = Command{}
	c.stale = 0
}

// observe reads the body, keeping the last finite snapshot when the body is
// missing or reports non-finite values.
func (c *Controller) observe(ctx context.Context) physics.VehicleState {
	if c.body == nil {
		return c.state
	}
	s := c.body.State()
	if !s.IsFinite() {
		c.stale++
		if c.stale == 1 {
			c.logger.Warn(ctx, "non-finite vehicle state, holding last pose")
		}
		return c.state
	}
	c.stale = 0
	s.Yaw = physics.WrapAngle(s.Yaw)
	c.state = s
	return s
}

// Update runs one tick: observe the body, compute and submit the command,
// and move the camera.
func (c *Controller) Update(ctx context.Context, in InputState, dt float64) Command {
	state := c.observe(ctx)
	cmd := c.params.Compute(in, state, dt)
	cmd.Apply(c.body)
	c.camera = c.params.Follow(c.camera, state, dt)
	c.command = cmd
	return cmd
}

// State returns the last finite snapshot.
func (c *Controller) State() physics.VehicleState {
	return c.state
}

// Camera returns the current chase camera.
func (c *Controller) Camera() Camera {
	return c.camera
}

// LastCommand returns the command issued by the latest Update.
func (c *Controller) LastCommand() Command {
	return c.command
}

// Params returns the controller tuning.
func (c *Controller) Params() Params {
	return c.params
}
