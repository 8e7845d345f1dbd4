// pkg/render/engo/renderer.go
package engo

import (
	"image/color"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-drivesim/pkg/engine"
	"github.com/opd-ai/go-drivesim/pkg/physics"
	"github.com/opd-ai/go-drivesim/pkg/track"
	"github.com/opd-ai/go-drivesim/pkg/vehicle"
)

// Draw order.
const (
	zSurface    = 0
	zCenterLine = 1
	zStartLine  = 2
	zBarrier    = 3
	zVehicle    = 10
	zCamera     = 11
)

// cameraMarkerSize is the side, in metres, of the chase camera marker.
const cameraMarkerSize = 0.6

type sprite struct {
	ecs.BasicEntity
	common.RenderComponent
	common.SpaceComponent
}

func newSprite(d common.Drawable, c color.Color) *sprite {
	return &sprite{
		BasicEntity:     ecs.NewBasic(),
		RenderComponent: common.RenderComponent{Drawable: d, Color: c, Scale: engo.Point{X: 1, Y: 1}},
	}
}

// groundRect is a rectangle on the ground plane, Width across and Length
// along Heading.
type groundRect struct {
	X, Z    float64
	Heading float64
	Width   float64
	Length  float64
}

// Placement is a groundRect in window pixels.
type Placement struct {
	Center   engo.Point
	Width    float32
	Height   float32
	Rotation float32
}

// Place projects a ground rectangle through the camera.
func (cs *CameraSystem) Place(x, z, heading, width, length float64) Placement {
	return Placement{
		Center:   cs.WorldToScreen(x, z),
		Width:    float32(width) * cs.zoom,
		Height:   float32(length) * cs.zoom,
		Rotation: Rotation(heading),
	}
}

type placed struct {
	*sprite
	rect groundRect
}

// EngoRenderer implements render.Renderer with engo sprites. Track sprites
// are rebuilt when the geometry changes and repositioned every frame.
type EngoRenderer struct {
	render *common.RenderSystem
	assets *AssetManager
	camera *CameraSystem
	hud    *HUD

	geometry *track.Geometry
	track    []placed

	vehicle *placed
	marker  *placed
}

// NewEngoRenderer creates a renderer adding sprites to render. A nil render
// system tracks placements without drawing. The car's footprint is width by
// length metres.
func NewEngoRenderer(render *common.RenderSystem, assets *AssetManager, camera *CameraSystem, width, length float64) *EngoRenderer {
	r := &EngoRenderer{
		render: render,
		assets: assets,
		camera: camera,
		hud:    NewHUD(render, assets.Font()),
	}

	r.vehicle = r.add(assets.Vehicle(), color.White, zVehicle, groundRect{
		Width:  width,
		Length: length,
	})
	r.marker = r.add(common.Rectangle{}, CameraColor, zCamera, groundRect{
		Width:  cameraMarkerSize,
		Length: cameraMarkerSize,
	})
	return r
}

func (r *EngoRenderer) add(d common.Drawable, c color.Color, z float32, rect groundRect) *placed {
	s := newSprite(d, c)
	s.SetZIndex(z)
	if r.render != nil {
		r.render.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
	}
	return &placed{sprite: s, rect: rect}
}

// HUD returns the telemetry overlay.
func (r *EngoRenderer) HUD() *HUD {
	return r.hud
}

// Clear implements render.Renderer. engo clears the frame itself.
func (r *EngoRenderer) Clear() {}

// RenderTrack implements render.Renderer.
func (r *EngoRenderer) RenderTrack(g *track.Geometry) {
	if g == r.geometry {
		return
	}
	for _, p := range r.track {
		if r.render != nil {
			r.render.Remove(p.BasicEntity)
		}
	}
	r.track = r.track[:0]
	r.geometry = g
	if g == nil {
		return
	}

	for _, m := range g.Surfaces {
		r.track = append(r.track, *r.add(common.Rectangle{}, SurfaceColor, zSurface, markRect(m)))
	}
	for _, m := range g.CenterLines {
		r.track = append(r.track, *r.add(common.Rectangle{}, CenterLineColor, zCenterLine, markRect(m)))
	}
	if g.StartLine != nil {
		r.track = append(r.track, *r.add(r.assets.StartLine(), color.White, zStartLine, markRect(*g.StartLine)))
	}
	for _, b := range g.Barriers {
		rect := groundRect{
			X:       b.Position.X(),
			Z:       b.Position.Z(),
			Heading: b.Heading,
			Width:   b.Size.X(),
			Length:  b.Size.Z(),
		}
		r.track = append(r.track, *r.add(common.Rectangle{}, BarrierColor, zBarrier, rect))
	}
}

func markRect(m track.Mark) groundRect {
	return groundRect{
		X:       m.Position.X(),
		Z:       m.Position.Z(),
		Heading: m.Heading,
		Width:   m.Width,
		Length:  m.Length,
	}
}

// RenderCamera implements render.Renderer.
func (r *EngoRenderer) RenderCamera(camera vehicle.Camera) {
	r.camera.Follow(camera)
	r.marker.rect.X = camera.Position.X()
	r.marker.rect.Z = camera.Position.Z()
}

// RenderVehicle implements render.Renderer.
func (r *EngoRenderer) RenderVehicle(state physics.VehicleState) {
	if !state.IsFinite() {
		return
	}
	r.vehicle.rect.X = state.Position.X()
	r.vehicle.rect.Z = state.Position.Z()
	r.vehicle.rect.Heading = state.Yaw
}

// RenderHUD implements render.Renderer.
func (r *EngoRenderer) RenderHUD(t engine.Telemetry) {
	r.hud.SetTelemetry(t)
}

// Present implements render.Renderer. It moves every sprite to its projected
// position; engo draws them on its own schedule.
func (r *EngoRenderer) Present() error {
	for i := range r.track {
		r.position(&r.track[i])
	}
	r.position(r.vehicle)
	r.position(r.marker)
	return nil
}

func (r *EngoRenderer) position(p *placed) {
	pl := r.camera.Place(p.rect.X, p.rect.Z, p.rect.Heading, p.rect.Width, p.rect.Length)
	p.Width = pl.Width
	p.Height = pl.Height
	p.Rotation = pl.Rotation
	p.Scale = textureScale(p.Drawable, pl.Width, pl.Height)
	p.SetCenter(pl.Center)
}

// textureScale stretches a texture to w by h pixels. Shapes are sized by
// their space component and keep unit scale.
func textureScale(d common.Drawable, w, h float32) engo.Point {
	if d == nil || d.Width() == 0 || d.Height() == 0 {
		return engo.Point{X: 1, Y: 1}
	}
	return engo.Point{X: w / d.Width(), Y: h / d.Height()}
}
