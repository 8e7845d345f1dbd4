// pkg/render/engo/scene.go
package engo

import (
	"context"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-drivesim/pkg/config"
	"github.com/opd-ai/go-drivesim/pkg/engine"
	"github.com/opd-ai/go-drivesim/pkg/input"
	"github.com/opd-ai/go-drivesim/pkg/logging"
	"github.com/opd-ai/go-drivesim/pkg/render"
)

// SceneType is the engo scene name.
const SceneType = "DriveScene"

// Scene drives the simulation from engo's frame loop and draws it.
type Scene struct {
	ctx     context.Context
	sim     *engine.Simulation
	sampler *input.Sampler
	config  *config.Config
	logger  *logging.Logger

	assets   *AssetManager
	camera   *CameraSystem
	renderer *EngoRenderer
}

// NewScene creates a scene for sim. Keyboard state is written to sampler,
// which should be the simulation's input source.
func NewScene(ctx context.Context, sim *engine.Simulation, sampler *input.Sampler, cfg *config.Config, logger *logging.Logger) *Scene {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Scene{
		ctx:     ctx,
		sim:     sim,
		sampler: sampler,
		config:  cfg,
		logger:  logger.With("component", "engo"),
	}
}

// Type returns the scene type (required by Engo)
func (scene *Scene) Type() string {
	return SceneType
}

// Preload is called before the scene starts (required by Engo). Assets are
// generated in Setup.
func (scene *Scene) Preload() {}

// Setup is called when the scene starts (required by Engo)
func (scene *Scene) Setup(u engo.Updater) {
	world, _ := u.(*ecs.World)

	common.SetBackground(BackgroundColor)
	renderSystem := &common.RenderSystem{}
	world.AddSystem(renderSystem)
	SetupInputBindings()

	scene.assets = NewAssetManager()
	if err := scene.assets.LoadAssets(); err != nil {
		scene.logger.Error(scene.ctx, "asset loading failed, drawing plain shapes", err)
	}

	w := scene.config.Window
	scene.camera = NewCameraSystem(float32(w.Width), float32(w.Height), float32(w.Scale))
	scene.renderer = NewEngoRenderer(renderSystem, scene.assets, scene.camera,
		scene.config.Vehicle.Width, scene.config.Vehicle.Length)

	world.AddSystem(scene.camera)
	world.AddSystem(NewInputSystem(scene.ctx, scene.sampler, scene.sim, scene.logger))
	world.AddSystem(&simulationSystem{scene: scene})

	scene.sim.Start(scene.ctx)
}

// Exit is called when the window closes.
func (scene *Scene) Exit() {
	scene.sim.Stop(context.WithoutCancel(scene.ctx))
}

// simulationSystem advances the simulation by the frame time and draws the
// result.
type simulationSystem struct {
	scene *Scene
}

func (s *simulationSystem) Remove(ecs.BasicEntity) {}

func (s *simulationSystem) Update(dt float32) {
	scene := s.scene
	scene.sim.Advance(scene.ctx, float64(dt))
	if err := render.Draw(scene.renderer, scene.sim.Frame()); err != nil {
		scene.logger.Error(scene.ctx, "draw failed", err)
	}
}

// Run opens the window and blocks until it is closed or ctx is done.
func Run(ctx context.Context, scene *Scene) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			engo.Exit()
		case <-done:
		}
	}()

	w := scene.config.Window
	engo.Run(engo.RunOptions{
		Title:  w.Title,
		Width:  w.Width,
		Height: w.Height,
		VSync:  true,
	}, scene)
}
