// pkg/render/engo/hud.go
package engo

import (
	"fmt"

	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-drivesim/pkg/engine"
)

// HelpText lists the key bindings shown under the readout.
const HelpText = "WASD / arrows drive | T next track | R reset | Z/X zoom | Esc quit"

// HUD layout in pixels.
const (
	hudMargin     = 10
	hudLineHeight = 20
	hudZIndex     = 100
)

// HUD draws the telemetry readout in the top-left corner.
type HUD struct {
	render *common.RenderSystem
	font   *common.Font
	lines  []*sprite
	text   []string
}

// NewHUD creates a HUD drawing into render with font. With a nil font
// the HUD only tracks text.
func NewHUD(render *common.RenderSystem, font *common.Font) *HUD {
	return &HUD{
		render: render,
		font:   font,
	}
}

// HUDLines formats telemetry for display.
func HUDLines(t engine.Telemetry) []string {
	name := t.TrackName
	if name == "" {
		name = t.TrackID
	}
	return []string{
		"Track: " + name,
		fmt.Sprintf("Speed: %.0f km/h", t.SpeedKMH),
		fmt.Sprintf("Heading: %.0f deg", t.HeadingDeg),
		"Direction: " + t.Direction,
		HelpText,
	}
}

// SetTelemetry updates the text shown.
func (hud *HUD) SetTelemetry(t engine.Telemetry) {
	hud.text = HUDLines(t)
	if hud.font == nil || hud.render == nil {
		return
	}

	for len(hud.lines) < len(hud.text) {
		s := newSprite(common.Text{Font: hud.font}, HUDColor)
		s.Position = engo.Point{X: hudMargin, Y: float32(hudMargin + len(hud.lines)*hudLineHeight)}
		s.SetZIndex(hudZIndex)
		hud.render.Add(&s.BasicEntity, &s.RenderComponent, &s.SpaceComponent)
		hud.lines = append(hud.lines, s)
	}
	for i, line := range hud.text {
		hud.lines[i].Drawable = common.Text{Font: hud.font, Text: line}
	}
}

// Text returns the lines last set.
func (hud *HUD) Text() []string {
	return hud.text
}
