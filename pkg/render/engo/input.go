// pkg/render/engo/input.go
package engo

import (
	"context"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"

	"github.com/opd-ai/go-drivesim/pkg/input"
	"github.com/opd-ai/go-drivesim/pkg/logging"
)

// Button names registered with engo.
const (
	ButtonForward   = "forward"
	ButtonBackward  = "backward"
	ButtonLeft      = "left"
	ButtonRight     = "right"
	ButtonNextTrack = "nextTrack"
	ButtonReset     = "reset"
	ButtonZoomIn    = "zoomIn"
	ButtonZoomOut   = "zoomOut"
	ButtonQuit      = "quit"
)

var driveButtons = []struct {
	name   string
	action input.Action
}{
	{ButtonForward, input.Forward},
	{ButtonBackward, input.Backward},
	{ButtonLeft, input.Left},
	{ButtonRight, input.Right},
}

// Controls are the simulation commands bound to keys.
type Controls interface {
	NextTrack(ctx context.Context) (string, error)
	Reset(ctx context.Context)
}

// ButtonReader reports button state. engo.Input satisfies it through
// engoButtons.
type ButtonReader interface {
	Down(name string) bool
	JustPressed(name string) bool
}

type engoButtons struct{}

func (engoButtons) Down(name string) bool        { return engo.Input.Button(name).Down() }
func (engoButtons) JustPressed(name string) bool { return engo.Input.Button(name).JustPressed() }

// InputSystem copies held drive keys into the sampler and triggers track and
// reset commands.
type InputSystem struct {
	ctx      context.Context
	sampler  *input.Sampler
	controls Controls
	buttons  ButtonReader
	logger   *logging.Logger
	quit     func()
}

// NewInputSystem creates an input system reading engo's keyboard state.
func NewInputSystem(ctx context.Context, sampler *input.Sampler, controls Controls, logger *logging.Logger) *InputSystem {
	if logger == nil {
		logger = logging.Discard()
	}
	return &InputSystem{
		ctx:      ctx,
		sampler:  sampler,
		controls: controls,
		buttons:  engoButtons{},
		logger:   logger,
		quit:     engo.Exit,
	}
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {}

// Update processes input once per frame.
func (is *InputSystem) Update(dt float32) {
	is.poll()
}

func (is *InputSystem) poll() {
	for _, b := range driveButtons {
		is.sampler.Set(b.action, is.buttons.Down(b.name))
	}

	if is.buttons.JustPressed(ButtonNextTrack) {
		id, err := is.controls.NextTrack(is.ctx)
		if err != nil {
			is.logger.Error(is.ctx, "track change failed", err)
		} else {
			is.logger.Info(is.ctx, "track changed from keyboard", "track_id", id)
		}
	}
	if is.buttons.JustPressed(ButtonReset) {
		is.controls.Reset(is.ctx)
	}
	if is.buttons.JustPressed(ButtonQuit) && is.quit != nil {
		is.quit()
	}
}

// SetupInputBindings registers the drive, track and camera keys.
func SetupInputBindings() {
	engo.Input.RegisterButton(ButtonForward, engo.KeyW, engo.KeyArrowUp)
	engo.Input.RegisterButton(ButtonBackward, engo.KeyS, engo.KeyArrowDown)
	engo.Input.RegisterButton(ButtonLeft, engo.KeyA, engo.KeyArrowLeft)
	engo.Input.RegisterButton(ButtonRight, engo.KeyD, engo.KeyArrowRight)

	engo.Input.RegisterButton(ButtonNextTrack, engo.KeyT)
	engo.Input.RegisterButton(ButtonReset, engo.KeyR)
	engo.Input.RegisterButton(ButtonQuit, engo.KeyEscape)

	engo.Input.RegisterButton(ButtonZoomIn, engo.KeyZ)
	engo.Input.RegisterButton(ButtonZoomOut, engo.KeyX)
}
