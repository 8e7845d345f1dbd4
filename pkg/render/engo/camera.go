// pkg/render/engo/camera.go
package engo

import (
	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/opd-ai/go-drivesim/pkg/vehicle"
)

// CameraSystem projects the ground plane onto the window. It centres on the
// chase camera's look-at point; zoom is pixels per metre.
type CameraSystem struct {
	center mgl64.Vec3

	zoom    float32
	minZoom float32
	maxZoom float32

	viewWidth  float32
	viewHeight float32
}

// NewCameraSystem creates a camera for a viewport of the given size.
func NewCameraSystem(width, height, zoom float32) *CameraSystem {
	cs := &CameraSystem{
		minZoom:    1,
		maxZoom:    40,
		viewWidth:  width,
		viewHeight: height,
	}
	cs.SetZoom(zoom)
	return cs
}

// Remove satisfies the ecs.System interface
func (cs *CameraSystem) Remove(basic ecs.BasicEntity) {}

// Update tracks the window size and handles zoom input.
func (cs *CameraSystem) Update(dt float32) {
	if w, h := engo.GameWidth(), engo.GameHeight(); w > 0 && h > 0 {
		cs.SetViewport(w, h)
	}
	if scrollY := engo.Input.Mouse.ScrollY; scrollY != 0 {
		cs.SetZoom(cs.zoom * (1 + scrollY*0.1))
	}
	if engo.Input.Button(ButtonZoomIn).Down() {
		cs.SetZoom(cs.zoom * 1.02)
	}
	if engo.Input.Button(ButtonZoomOut).Down() {
		cs.SetZoom(cs.zoom * 0.98)
	}
}

// Follow centres the view on the camera's look-at point.
func (cs *CameraSystem) Follow(camera vehicle.Camera) {
	cs.center = camera.Target
}

// Center returns the world point at the middle of the view.
func (cs *CameraSystem) Center() mgl64.Vec3 {
	return cs.center
}

// SetViewport updates the window size.
func (cs *CameraSystem) SetViewport(width, height float32) {
	cs.viewWidth = width
	cs.viewHeight = height
}

// SetZoom sets the camera zoom level
func (cs *CameraSystem) SetZoom(zoom float32) {
	cs.zoom = cs.clampZoom(zoom)
}

// Zoom returns the current zoom level
func (cs *CameraSystem) Zoom() float32 {
	return cs.zoom
}

func (cs *CameraSystem) clampZoom(zoom float32) float32 {
	if zoom < cs.minZoom {
		return cs.minZoom
	}
	if zoom > cs.maxZoom {
		return cs.maxZoom
	}
	return zoom
}

// SetZoomLimits sets the minimum and maximum zoom levels
func (cs *CameraSystem) SetZoomLimits(min, max float32) {
	cs.minZoom = min
	cs.maxZoom = max
	cs.zoom = cs.clampZoom(cs.zoom)
}

// ZoomLimits returns the current zoom limits
func (cs *CameraSystem) ZoomLimits() (float32, float32) {
	return cs.minZoom, cs.maxZoom
}

// WorldToScreen maps a ground-plane point to window pixels. Forward (+z) is
// up the screen and +x is to the left, as seen from behind the car.
func (cs *CameraSystem) WorldToScreen(x, z float64) engo.Point {
	return engo.Point{
		X: -float32(x-cs.center.X())*cs.zoom + cs.viewWidth/2,
		Y: -float32(z-cs.center.Z())*cs.zoom + cs.viewHeight/2,
	}
}

// ScreenToWorld is the inverse of WorldToScreen.
func (cs *CameraSystem) ScreenToWorld(p engo.Point) (x, z float64) {
	x = cs.center.X() - float64((p.X-cs.viewWidth/2)/cs.zoom)
	z = cs.center.Z() - float64((p.Y-cs.viewHeight/2)/cs.zoom)
	return x, z
}

// Rotation converts a world heading to an engo rotation in degrees for a
// sprite whose long axis is its height.
func Rotation(heading float64) float32 {
	return -float32(mgl64.RadToDeg(heading))
}
